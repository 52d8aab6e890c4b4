package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client fetches bootstrap data from an echo server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	retries int           // extra attempts after a retryable status
	backoff time.Duration // wait before the first retry, doubled after each
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the server at baseURL, e.g. http://localhost:8001.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
		retries: 2,
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRetries sets how often a 5xx or 429 response is retried.
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
