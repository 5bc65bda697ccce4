package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ledir/internal/domain"
	"ledir/internal/infra"
)

// Client sends IR codes through a Home Assistant remote entity (Broadlink,
// ESPHome and similar), using commands learned on the Home Assistant side.
type Client struct {
	baseURL    string
	token      string
	entityID   string
	device     string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(baseURL, token, entityID, device string) *Client {
	// Remove trailing slash if present
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL:    baseURL,
		token:      token,
		entityID:   entityID,
		device:     device,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

type sendCommandRequest struct {
	EntityID string `json:"entity_id"`
	Command  string `json:"command"`
	Device   string `json:"device,omitempty"`
}

// Send calls the remote.send_command service once for code.
func (c *Client) Send(ctx context.Context, code domain.Command) error {
	body, err := json.Marshal(sendCommandRequest{
		EntityID: c.entityID,
		Command:  code.String(),
		Device:   c.device,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPost, "/api/services/remote/send_command", body); err != nil {
		return fmt.Errorf("sending %s via %s: %w", code, c.entityID, err)
	}

	return nil
}

func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var respBody []byte

	retryErr := infra.WithRetry(ctx, c.retry, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = strings.NewReader(string(body))
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return infra.Permanent(fmt.Errorf("creating request: %w", err))
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return infra.Permanent(fmt.Errorf("sending request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return infra.Permanent(fmt.Errorf("reading response: %w", err))
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return infra.Permanent(fmt.Errorf("unauthorized: check your Home Assistant token"))
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("home assistant API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}

		if resp.StatusCode >= 400 {
			return infra.Permanent(fmt.Errorf("home assistant API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}
