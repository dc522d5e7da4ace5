package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, userID uint) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Email:  "driver@example.com",
		Role:   "driver",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthApp() *fiber.App {
	app := fiber.New()
	app.Get("/protected", AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newAuthApp()

	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
	}{
		{
			name: "Valid bearer token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", 7))
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Missing token",
			setup:      func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Malformed authorization header",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Token abc")
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Wrong signing secret",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", 7))
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Garbage token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer not.a.jwt")
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

// WebSocket upgrade requests cannot carry headers from browser clients, so
// the token is accepted as a query parameter too.
func TestAuthRequiredQueryToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	app := newAuthApp()

	token := signToken(t, "test-secret", 7)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
