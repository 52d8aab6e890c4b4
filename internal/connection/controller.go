package connection

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Controller owns the console's single connection.
//
// Operator calls (Open, Close, Send) and transport callbacks are serialized by
// one mutex, and the Presenter is called inside it, so log lines come out in
// the order the triggering events were handled.
type Controller struct {
	cfg       ControllerConfig
	transport Transport
	presenter Presenter
	logger    *slog.Logger
	recorder  Recorder

	mu     sync.Mutex
	state  State
	conn   Conn
	connID ConnID // uuid.Nil while nothing is held
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewController checks the transport once and returns an idle controller.
// It returns ErrTransportUnavailable when transport is nil or reports itself
// unusable; no connection is attempted in that case.
func NewController(cfg ControllerConfig, transport Transport, presenter Presenter, opts ...ControllerOption) (*Controller, error) {
	if transport == nil {
		return nil, ErrTransportUnavailable
	}
	if err := transport.Available(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	if presenter == nil {
		presenter = PresenterFunc(func(string) {})
	}

	c := &Controller{
		cfg:       cfg,
		transport: transport,
		presenter: presenter,
		logger:    slog.Default(),
		recorder:  nopRecorder{},
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Open connects to the configured endpoint, first closing any held connection.
// It returns immediately; the result arrives as an opened or closed event.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.closeLocked()
	}

	c.present(fmt.Sprintf(`connecting to "%s" with token "%s"...`, c.cfg.Endpoint, c.cfg.Token))

	id := uuid.New()
	c.connID = id
	c.setState(StateConnecting)
	c.recorder.ConnectAttempted()
	c.conn = c.transport.Connect(c.cfg.Endpoint, c.cfg.Token, &connHandler{c: c, id: id})

	c.logger.Debug("connect issued", "conn_id", id, "endpoint", c.cfg.Endpoint)
}

// Close releases the held connection. Without one it does nothing.
// The controller is idle as soon as Close returns; the transport's own closed
// event for the released connection is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	c.closeLocked()
}

// Send transmits text verbatim. It fails with ErrNotConnected unless the
// connection is open.
func (c *Controller) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sendLocked(text)
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnID returns the identity of the held connection, if any.
func (c *Controller) ConnID() (ConnID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID, c.conn != nil
}

func (c *Controller) closeLocked() {
	c.present("closing connection...")

	conn, id := c.conn, c.connID
	c.conn = nil
	c.connID = uuid.Nil
	c.setState(StateIdle)

	conn.Disconnect()
	c.logger.Debug("connection released", "conn_id", id)
}

func (c *Controller) sendLocked(text string) error {
	if c.state != StateOpen || c.conn == nil {
		c.recorder.SendRejected()
		return ErrNotConnected
	}

	c.present("> " + text)
	if err := c.conn.Send(text); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	c.recorder.MessageSent(len(text))
	return nil
}

func (c *Controller) handleOpened(id ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(id) || c.state != StateConnecting {
		c.stale("opened", id)
		return
	}

	c.setState(StateOpen)
	c.present("connected")

	if c.cfg.SendGreetingOnOpen {
		if err := c.sendLocked(c.cfg.Greeting); err != nil {
			c.logger.Warn("greeting not sent", "conn_id", id, "error", err)
		}
	}
}

func (c *Controller) handleMessage(id ConnID, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(id) {
		c.stale("message", id)
		return
	}

	c.recorder.MessageReceived(len(data))
	c.present("< " + data)
}

func (c *Controller) handleClosed(id ConnID, code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrent(id) {
		c.stale("closed", id)
		return
	}

	c.conn = nil
	c.connID = uuid.Nil
	c.setState(StateClosed)
	c.recorder.Closed(code)
	c.present(fmt.Sprintf(`Connection closed, reason: "%s", code: %d`, reason, code))
}

func (c *Controller) isCurrent(id ConnID) bool {
	return c.conn != nil && id == c.connID
}

func (c *Controller) stale(kind string, id ConnID) {
	c.recorder.StaleEvent(kind)
	c.logger.Debug("ignoring event from released connection", "event", kind, "conn_id", id)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("state change", "from", c.state, "to", s)
	c.state = s
	c.recorder.StateChanged(s)
}

func (c *Controller) present(line string) {
	c.presenter.Present(line)
}

// connHandler binds transport callbacks to one connection identity.
type connHandler struct {
	c  *Controller
	id ConnID
}

func (h *connHandler) Opened() {
	h.c.handleOpened(h.id)
}

func (h *connHandler) Message(data string) {
	h.c.handleMessage(h.id, data)
}

func (h *connHandler) Closed(code int, reason string) {
	h.c.handleClosed(h.id, code, reason)
}
