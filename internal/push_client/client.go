package push_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the push gateway that owns durable device tokens and push
// delivery. All methods are best-effort from the caller's point of view.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// RegisterRequest registers a device token with the gateway.
type RegisterRequest struct {
	UserID   int64  `json:"user_id"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
	DeviceID string `json:"device_id"`
}

// PushRequest delivers one push message to a token.
type PushRequest struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func NewClient(baseURL string, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Register registers a device token with the gateway.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.post(ctx, "/api/v1/devices/register", req)
}

// Push sends one push message through the gateway.
func (c *Client) Push(ctx context.Context, req PushRequest) error {
	return c.post(ctx, "/api/v1/push", req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.log.Warnf("Push gateway returned status %d for %s: %s", resp.StatusCode, path, string(body))
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}
