package handlers

import (
	"github.com/farhan-web-dev/truckerCheatSheet/internal/httpx"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/models"
	"github.com/farhan-web-dev/truckerCheatSheet/internal/service"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetRoster returns the users shown in the chat sidebar, minus the caller.
func (h *UserHandler) GetRoster(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	users, err := h.userService.ListRoster(c.QueryInt("limit"))
	if err != nil {
		return httpx.Internal(c, "fetch_users_failed")
	}

	responses := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		responses = append(responses, u.ToResponse())
	}

	return c.JSON(fiber.Map{"users": responses})
}
