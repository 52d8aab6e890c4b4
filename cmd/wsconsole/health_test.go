package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/metrics"
	"github.com/rickgao/wsconsole/internal/router"
)

type fixedState struct {
	state connection.State
	id    connection.ConnID
}

func (f fixedState) State() connection.State { return f.state }

func (f fixedState) ConnID() (connection.ConnID, bool) {
	return f.id, f.id != uuid.Nil
}

func TestHTTPHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics.NewController(registry)

	rtr := router.NewRouter(router.DefaultRouterConfig(), nil, router.NewConsoleSink(io.Discard))
	if err := rtr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		rtr.Stop(ctx)
	}()

	id := uuid.New()
	server := httptest.NewServer(createHTTPHandler("/metrics", registry, fixedState{connection.StateOpen, id}, rtr, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var health struct {
		Status     string `json:"status"`
		Components struct {
			Connection map[string]string `json:"connection"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
	if got := health.Components.Connection["state"]; got != "open" {
		t.Errorf("connection state = %q, want open", got)
	}
	if got := health.Components.Connection["conn_id"]; got != id.String() {
		t.Errorf("conn_id = %q, want %q", got, id.String())
	}

	mresp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	body, _ := io.ReadAll(mresp.Body)
	if !strings.Contains(string(body), "wsconsole_controller_state") {
		t.Errorf("metrics missing controller state gauge:\n%s", body)
	}
}
