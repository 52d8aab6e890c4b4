package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rickgao/wsconsole/internal/echo"
)

// SetupPath is where the echo server serves the bootstrap payload.
const SetupPath = "/setup"

// GetSetup fetches the websocket URL and a token. With an empty user the
// server returns the anonymous token.
func (c *Client) GetSetup(ctx context.Context, user string) (*echo.Setup, error) {
	var query url.Values
	if user != "" {
		query = url.Values{"user": {user}}
	}

	body, err := c.fetch(ctx, SetupPath, query)
	if err != nil {
		return nil, fmt.Errorf("get setup: %w", err)
	}

	var setup echo.Setup
	if err := json.Unmarshal(body, &setup); err != nil {
		return nil, fmt.Errorf("get setup: decode: %w", err)
	}
	if setup.WSURL == "" {
		return nil, errors.New("get setup: response has no ws_url")
	}
	return &setup, nil
}
