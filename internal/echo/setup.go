package echo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/wsconsole/internal/auth"
)

// Setup is the bootstrap payload a console fetches before connecting.
type Setup struct {
	WSURL string `json:"ws_url"`
	Token string `json:"token"`
}

// SetupConfig configures the setup endpoint.
type SetupConfig struct {
	Auth          string
	Secret        string
	TokenValidity time.Duration
	WSPath        string // path of the websocket handler
}

// NewSetupHandler serves Setup as JSON. In token mode a "user" query
// parameter gets a token minted for the caller's address; without one the
// anonymous token is returned.
func NewSetupHandler(cfg SetupConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setup := Setup{
			WSURL: wsURL(r, cfg.WSPath),
			Token: auth.AnonToken,
		}

		if user := r.URL.Query().Get("user"); user != "" && cfg.Auth == AuthToken {
			token, err := auth.Mint(cfg.Secret, user, requestIP(r), cfg.TokenValidity)
			if err != nil {
				logger.Error("failed to mint token", "user", user, "error", err)
				http.Error(w, "token unavailable", http.StatusInternalServerError)
				return
			}
			setup.Token = token
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(setup); err != nil {
			logger.Warn("failed to write setup", "error", err)
		}
	})
}

func wsURL(r *http.Request, path string) string {
	scheme := "ws://"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "wss://"
	}
	return scheme + r.Host + path
}

// requestIP prefers the first X-Forwarded-For entry.
func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return remoteIP(r)
}
