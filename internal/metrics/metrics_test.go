package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/wsconsole/internal/connection"
)

func scrape(t *testing.T, registry *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("metrics output missing %q", w)
		}
	}
}

func TestController_ImplementsRecorder(t *testing.T) {
	var _ connection.Recorder = (*Controller)(nil)
}

func TestController_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewController(registry)

	m.ConnectAttempted()
	m.ConnectAttempted()
	m.StateChanged(connection.StateOpen)
	m.MessageSent(5)
	m.MessageReceived(4)
	m.MessageReceived(6)
	m.SendRejected()
	m.Closed(1000)
	m.StaleEvent("closed")

	body := scrape(t, registry)
	assertContains(t, body,
		"wsconsole_controller_connect_attempts_total 2",
		`wsconsole_controller_state{state="open"} 1`,
		`wsconsole_controller_state{state="idle"} 0`,
		`wsconsole_controller_messages_total{direction="in"} 2`,
		`wsconsole_controller_messages_total{direction="out"} 1`,
		`wsconsole_controller_message_bytes_total{direction="in"} 10`,
		"wsconsole_controller_send_rejected_total 1",
		`wsconsole_controller_closes_total{code="1000"} 1`,
		`wsconsole_controller_stale_events_total{event="closed"} 1`,
	)
}

func TestController_InitialStateIdle(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewController(registry)

	assertContains(t, scrape(t, registry),
		`wsconsole_controller_state{state="idle"} 1`,
		`wsconsole_controller_state{state="open"} 0`,
	)
}

func TestServer_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewServer(registry)

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.Echoed()
	m.AuthFailed(4001)

	assertContains(t, scrape(t, registry),
		"wsconsole_echo_sessions 1",
		"wsconsole_echo_messages_echoed_total 1",
		`wsconsole_echo_auth_failures_total{code="4001"} 1`,
	)
}
