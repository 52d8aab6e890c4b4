package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

// StatusError is an HTTP error response from the echo server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("echo server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the request may succeed if repeated.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// fetch GETs path, repeating it while the server answers with a temporary error.
func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]byte, error) {
	wait := c.backoff

	for attempt := 0; ; attempt++ {
		body, err := c.fetchOnce(ctx, path, query)

		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.Temporary() {
			return body, err
		}
		if attempt == c.retries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, err)
		}

		// Spread concurrent consoles over [wait/2, 3*wait/2]
		delay := wait/2 + time.Duration(rand.Int64N(int64(wait)+1))
		c.logger.Debug("setup request failed, retrying", "path", path, "status", se.StatusCode, "delay", delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		wait *= 2
	}
}

func (c *Client) fetchOnce(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
