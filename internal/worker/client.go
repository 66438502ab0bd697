// Package worker talks to the external assistant orchestration
// service. The upstream is an opaque collaborator: this client only
// knows the request/response envelope, never the model behind it.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable is returned when no upstream is configured or the
// upstream cannot be reached.
var ErrUnavailable = errors.New("assistant upstream unavailable")

const defaultTimeout = 30 * time.Second

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, Timeout: defaultTimeout}
}

// MessageRequest is the envelope forwarded upstream.
type MessageRequest struct {
	UserID  string         `json:"user_id"`
	Role    string         `json:"role"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Visualization is the upstream's chart suggestion, if any.
type Visualization struct {
	Recommended  string   `json:"recommended"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// MessageResponse is the upstream's reply envelope.
type MessageResponse struct {
	Message         string         `json:"message"`
	Data            []any          `json:"data,omitempty"`
	Visualization   *Visualization `json:"visualization,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// APIError wraps non-2xx upstream responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant upstream: status=%d body=%s", e.StatusCode, e.Body)
}

// Configured reports whether an upstream URL is set.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.BaseURL) != ""
}

// SendMessage forwards one exchange upstream and decodes the reply.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (MessageResponse, error) {
	var resp MessageResponse
	if !c.Configured() {
		return resp, ErrUnavailable
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return resp, err
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/message"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return resp, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		b, _ := io.ReadAll(httpResp.Body)
		return resp, &APIError{StatusCode: httpResp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return resp, err
	}
	return resp, nil
}
