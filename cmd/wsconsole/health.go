package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/metrics"
	"github.com/rickgao/wsconsole/internal/router"
)

type stateReader interface {
	State() connection.State
	ConnID() (connection.ConnID, bool)
}

// createHTTPHandler serves metrics at metricsPath plus /health.
func createHTTPHandler(metricsPath string, registry *prometheus.Registry, ctrl stateReader, rtr *router.Router, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler(registry))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		conn := map[string]any{"state": ctrl.State().String()}
		if id, ok := ctrl.ConnID(); ok {
			conn["conn_id"] = id.String()
		}
		health.Components["connection"] = conn

		stats := rtr.Stats()
		health.Components["router"] = stats
		for _, s := range stats.Sinks {
			if s.Failed > 0 {
				health.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})

	return mux
}
