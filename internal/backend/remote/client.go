package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// errMalformedResponse is returned when a 2xx body cannot be decoded.
var errMalformedResponse = errors.New("malformed provider response")

// Error is a non-2xx response from the provider.
type Error struct {
	Code    int
	Message string
	Path    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error, request path: %s, code: %d, message: %s", e.Path, e.Code, e.Message)
}

// Client talks to the provider's HTTP API.
type Client struct {
	http           *resty.Client
	catalogTimeout time.Duration
	executeTimeout time.Duration
}

// NewClient creates a provider client for cfg.BaseURL.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "runbox")
	return &Client{
		http:           c,
		catalogTimeout: cfg.CatalogTimeout,
		executeTimeout: cfg.ExecuteTimeout,
	}
}

// Runtimes fetches the provider's runtime catalog.
func (c *Client) Runtimes(ctx context.Context) ([]Runtime, error) {
	ctx, cancel := context.WithTimeout(ctx, c.catalogTimeout)
	defer cancel()

	start := time.Now()
	rts, err := receive[[]Runtime](c.http.R().SetContext(ctx), resty.MethodGet, "/runtimes")
	requestDuration.WithLabelValues("runtimes").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return *rts, nil
}

// Execute submits one execution.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.executeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := receive[ExecuteResponse](c.http.R().SetContext(ctx).SetBody(req), resty.MethodPost, "/execute")
	requestDuration.WithLabelValues("execute").Observe(time.Since(start).Seconds())
	return resp, err
}

// receive executes r and decodes a 2xx JSON body into T. Non-2xx responses
// become *Error carrying the provider's message when it sent one.
func receive[T any](r *resty.Request, method, path string) (*T, error) {
	resp, err := r.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	body := resp.Body()
	if resp.IsError() || !resp.IsSuccess() {
		return nil, &Error{
			Code:    resp.StatusCode(),
			Message: providerMessage(body),
			Path:    path,
		}
	}

	var result T
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", errMalformedResponse, method, path, err)
	}
	return &result, nil
}

func providerMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	const maxLen = 200
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
