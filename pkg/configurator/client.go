package configurator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	chatEndpoint         = "/api/chat"
	conversationPrefix   = "/api/conversation/"
	defaultClientTimeout = 120 * time.Second
)

// Backend is the request/response contract the controller consumes. Client implements it
// against the relay; tests substitute fakes.
type Backend interface {
	SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	FetchHistory(ctx context.Context, conversationID string) (*HistoryResponse, error)
	ExportURL(conversationID string) string
}

// StatusError is returned when the relay answers with a non-2xx status.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay error: status %d", e.Status)
	}
	return fmt.Sprintf("relay error: status %d: %s", e.Status, e.Message)
}

// Client talks to the relay over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client (120s timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var res ChatResponse
	if err := c.do(httpReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) FetchHistory(ctx context.Context, conversationID string) (*HistoryResponse, error) {
	endpoint := c.baseURL + conversationPrefix + url.PathEscape(conversationID) + "/history"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var res HistoryResponse
	if err := c.do(httpReq, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExportURL is the download location of a conversation's report.
func (c *Client) ExportURL(conversationID string) string {
	return c.baseURL + conversationPrefix + url.PathEscape(conversationID) + "/export"
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var shaped struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &shaped)
		return &StatusError{Status: res.StatusCode, Message: shaped.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
