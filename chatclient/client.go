package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the request/response half of the chat core. Every call attaches
// the session's bearer token; token acquisition belongs to the auth
// subsystem, not here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s (%s)", method, path, resp.StatusCode, apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Messages fetches the full conversation history between sender and
// receiver, oldest first. An empty conversation is an empty slice.
func (c *Client) Messages(ctx context.Context, senderID, receiverID uint) ([]Message, error) {
	q := url.Values{}
	q.Set("sender", strconv.FormatUint(uint64(senderID), 10))
	q.Set("receiver", strconv.FormatUint(uint64(receiverID), 10))

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	return out.Messages, nil
}

// UnreadCounts fetches the per-peer unread map for userID.
func (c *Client) UnreadCounts(ctx context.Context, userID uint) (map[uint]int64, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatUint(uint64(userID), 10))

	var out struct {
		UnreadCounts map[string]int64 `json:"unreadCounts"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages/unread-counts", q, nil, &out); err != nil {
		return nil, err
	}
	return parseUintKeys(out.UnreadCounts), nil
}

// LastMessages fetches the per-peer preview map for userID.
func (c *Client) LastMessages(ctx context.Context, userID uint) (map[uint]LastMessage, error) {
	q := url.Values{}
	q.Set("userId", strconv.FormatUint(uint64(userID), 10))

	var out struct {
		LastMessages map[string]LastMessage `json:"lastMessages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages/last", q, nil, &out); err != nil {
		return nil, err
	}

	previews := make(map[uint]LastMessage, len(out.LastMessages))
	for k, v := range out.LastMessages {
		if id, err := strconv.ParseUint(k, 10, 32); err == nil {
			previews[uint(id)] = v
		}
	}
	return previews, nil
}

// MarkRead acknowledges everything senderID has sent to receiverID. The
// server treats nothing-unread as success, so the call is idempotent.
func (c *Client) MarkRead(ctx context.Context, senderID, receiverID uint) error {
	body := map[string]uint{
		"sender":   senderID,
		"receiver": receiverID,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/messages/mark-read", nil, body, nil)
}

// Send persists one message and returns the server's copy (with assigned
// id). It does not touch the live channel; that is the Delivery
// coordinator's job, and only after this call succeeds.
func (c *Client) Send(ctx context.Context, msg Message) (Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", nil, msg, &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

func parseUintKeys(in map[string]int64) map[uint]int64 {
	out := make(map[uint]int64, len(in))
	for k, v := range in {
		if id, err := strconv.ParseUint(k, 10, 32); err == nil {
			out[uint(id)] = v
		}
	}
	return out
}
