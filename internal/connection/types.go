package connection

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected         = errors.New("not connected")
	ErrTransportUnavailable = errors.New("websocket transport unavailable")
	ErrAlreadyClosed        = errors.New("already closed")
)

// State is the lifecycle state of the controller's connection.
type State int

const (
	StateIdle       State = iota // nothing held: never opened, or closed by the operator
	StateConnecting              // Connect issued, opened not yet observed
	StateOpen                    // opened observed, sends allowed
	StateClosed                  // the transport reported the connection closed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close codes used when the peer supplied none.
const (
	CloseNormal   = 1000
	CloseAbnormal = 1006
)

// Handler receives the asynchronous events of exactly one connection.
// Opened is called at most once, before any Message; Closed is called exactly
// once and nothing follows it. Calls for one connection never overlap.
type Handler interface {
	Opened()
	Message(data string)
	Closed(code int, reason string)
}

// Conn is a live transport handle.
type Conn interface {
	// Send writes text as a single text frame.
	Send(text string) error

	// Disconnect requests shutdown. Safe before the handshake completes and
	// safe to call more than once. Does not wait for Closed.
	Disconnect()
}

// Transport creates connections.
type Transport interface {
	// Connect starts connecting and returns immediately. The outcome is
	// reported to h; a failed attempt is reported as Closed.
	Connect(endpoint, token string, h Handler) Conn

	// Available reports whether the transport can be used at all.
	Available() error
}

// Presenter displays console log lines. Present must not block and must not
// fail observably.
type Presenter interface {
	Present(line string)
}

// PresenterFunc is a function adapter for Presenter.
type PresenterFunc func(line string)

func (f PresenterFunc) Present(line string) {
	f(line)
}

// Recorder observes controller activity, typically for metrics.
type Recorder interface {
	StateChanged(s State)
	ConnectAttempted()
	MessageReceived(bytes int)
	MessageSent(bytes int)
	SendRejected()
	Closed(code int)
	StaleEvent(kind string)
}

type nopRecorder struct{}

func (nopRecorder) StateChanged(State)  {}
func (nopRecorder) ConnectAttempted()   {}
func (nopRecorder) MessageReceived(int) {}
func (nopRecorder) MessageSent(int)     {}
func (nopRecorder) SendRejected()       {}
func (nopRecorder) Closed(int)          {}
func (nopRecorder) StaleEvent(string)   {}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Endpoint           string // websocket URL
	Token              string // passed as the websocket subprotocol
	SendGreetingOnOpen bool   // send Greeting right after the connection opens
	Greeting           string
}

// ClientConfig configures the websocket transport.
type ClientConfig struct {
	HandshakeTimeout   time.Duration // Dial handshake deadline
	WriteTimeout       time.Duration // Write deadline for sends
	PingInterval       time.Duration // Keepalive ping period, 0 disables
	CAFile             string        // Extra PEM roots for wss endpoints
	InsecureSkipVerify bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// ConnID identifies one connection instance.
type ConnID = uuid.UUID
