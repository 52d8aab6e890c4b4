package echo

import (
	"fmt"
	"testing"
	"time"

	"github.com/rickgao/wsconsole/internal/auth"
	"github.com/rickgao/wsconsole/internal/connection"
)

const greeting = "sending message on websocket opening"

func newConsole(t *testing.T, endpoint, token string, greet bool) (*connection.Controller, <-chan string) {
	t.Helper()
	lines := make(chan string, 64)
	cfg := connection.DefaultClientConfig()
	cfg.PingInterval = 0

	ctrl, err := connection.NewController(
		connection.ControllerConfig{
			Endpoint:           endpoint,
			Token:              token,
			SendGreetingOnOpen: greet,
			Greeting:           greeting,
		},
		connection.NewTransport(cfg, nil),
		connection.PresenterFunc(func(line string) { lines <- line }),
	)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	return ctrl, lines
}

func expectLines(t *testing.T, lines <-chan string, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-lines:
			if got != w {
				t.Fatalf("line = %q, want %q", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for line %q", w)
		}
	}
}

func TestConsole_EchoSession(t *testing.T) {
	server, _ := newEchoServer(t, Config{Auth: AuthToken, Secret: testSecret})
	token, err := auth.Mint(testSecret, "alice", "127.0.0.1", time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	endpoint := wsURLFor(server)

	ctrl, lines := newConsole(t, endpoint, token, true)
	ctrl.Open()

	expectLines(t, lines,
		fmt.Sprintf(`connecting to "%s" with token "%s"...`, endpoint, token),
		"connected",
		"> "+greeting,
		"< "+greeting,
	)

	if err := ctrl.Send("hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	expectLines(t, lines, "> hello", "< hello")

	ctrl.Close()
	expectLines(t, lines, "closing connection...")
	if ctrl.State() != connection.StateIdle {
		t.Errorf("State() = %v, want idle", ctrl.State())
	}

	// The released connection's closed event must not reach the log.
	select {
	case line := <-lines:
		t.Errorf("unexpected line after Close: %q", line)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConsole_InvalidToken(t *testing.T) {
	server, _ := newEchoServer(t, Config{Auth: AuthToken, Secret: testSecret})
	endpoint := wsURLFor(server)

	ctrl, lines := newConsole(t, endpoint, "forged", false)
	ctrl.Open()

	expectLines(t, lines,
		fmt.Sprintf(`connecting to "%s" with token "forged"...`, endpoint),
		"connected",
		`Connection closed, reason: "permission denied - invalid token", code: 4001`,
	)
	if ctrl.State() != connection.StateClosed {
		t.Errorf("State() = %v, want closed", ctrl.State())
	}
}

func TestConsole_ReopenReplacesConnection(t *testing.T) {
	server, h := newEchoServer(t, Config{Auth: AuthAnon})
	endpoint := wsURLFor(server)

	ctrl, lines := newConsole(t, endpoint, auth.AnonToken, false)
	connecting := fmt.Sprintf(`connecting to "%s" with token "anon"...`, endpoint)

	ctrl.Open()
	expectLines(t, lines, connecting, "connected")

	ctrl.Open()
	expectLines(t, lines, "closing connection...", connecting, "connected")

	if err := ctrl.Send("x"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	expectLines(t, lines, "> x", "< x")

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients().Stats().Total != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if total := h.Clients().Stats().Total; total != 1 {
		t.Errorf("server sessions = %d, want 1", total)
	}
	ctrl.Close()
}
