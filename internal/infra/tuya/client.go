package tuya

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ledir/internal/infra"
)

// tokenMargin renews a token this long before Tuya expires it.
const tokenMargin = 5 * time.Minute

type accessToken struct {
	value    string
	expireAt time.Time
}

func (t accessToken) fresh(now time.Time) bool {
	return t.value != "" && now.Add(tokenMargin).Before(t.expireAt)
}

// Client talks to the Tuya OpenAPI with HMAC-signed requests.
type Client struct {
	signer     signer
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu    sync.Mutex
	token accessToken
}

func NewClient(clientID, secret, region string) *Client {
	baseURL := "https://openapi.tuyaus.com"
	switch strings.ToLower(region) {
	case "eu":
		baseURL = "https://openapi.tuyaeu.com"
	case "cn":
		baseURL = "https://openapi.tuyacn.com"
	case "in":
		baseURL = "https://openapi.tuyain.com"
	}

	return NewClientWithURL(clientID, secret, baseURL)
}

func NewClientWithURL(clientID, secret, baseURL string) *Client {
	return &Client{
		signer:     signer{clientID: clientID, secret: []byte(secret)},
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
}

// SendLearnedCode asks the IR hub infraredID to emit a code previously
// learned for remoteID.
func (c *Client) SendLearnedCode(ctx context.Context, infraredID, remoteID string, categoryID int, code string) error {
	body, err := json.Marshal(map[string]any{
		"category_id": categoryID,
		"code":        code,
	})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	path := fmt.Sprintf("/v2.0/infrareds/%s/remotes/%s/learning-codes", infraredID, remoteID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("sending learned code: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp, &env); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	if !env.Success {
		return fmt.Errorf("tuya error: %s", env.Msg)
	}

	return nil
}

// envelope is the wrapper every OpenAPI response shares.
type envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	retryErr := infra.WithRetry(ctx, infra.DefaultRetryConfig(), func() error {
		req, err := c.newRequest(ctx, method, path, token, body)
		if err != nil {
			return infra.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return infra.Permanent(fmt.Errorf("sending request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return infra.Permanent(fmt.Errorf("reading response: %w", err))
		}

		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("tuya API error %d (retryable): %s", resp.StatusCode, string(respBody))
		}

		if resp.StatusCode >= 400 {
			return infra.Permanent(fmt.Errorf("tuya API error %d: %s", resp.StatusCode, string(respBody)))
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	return respBody, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.signer.authorize(req, token, body, c.now())
	return req, nil
}

// currentToken returns the cached token, fetching a new one when it is
// missing or about to expire.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.fresh(c.now()) {
		return c.token.value, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	return token.value, nil
}

func (c *Client) fetchToken(ctx context.Context) (accessToken, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1.0/token?grant_type=1", "", nil)
	if err != nil {
		return accessToken{}, fmt.Errorf("token: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return accessToken{}, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return accessToken{}, fmt.Errorf("parsing token response: %w", err)
	}
	if !env.Success {
		return accessToken{}, fmt.Errorf("token error: %s", env.Msg)
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpireTime  int64  `json:"expire_time"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return accessToken{}, fmt.Errorf("parsing token result: %w", err)
	}

	return accessToken{
		value:    result.AccessToken,
		expireAt: c.now().Add(time.Duration(result.ExpireTime) * time.Second),
	}, nil
}
