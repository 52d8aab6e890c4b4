package connection

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// transport dials websocket connections with gorilla/websocket.
type transport struct {
	cfg    ClientConfig
	logger *slog.Logger
	dialer websocket.Dialer

	// initErr is set when the dialer could not be built.
	initErr error
}

// NewTransport creates a websocket Transport. Configuration problems are not
// returned here; they surface through Available.
func NewTransport(cfg ClientConfig, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}

	t := &transport{
		cfg:    cfg,
		logger: logger,
	}

	tlsCfg, err := buildTLSConfig(cfg)
	if err != nil {
		t.initErr = err
	}

	t.dialer = websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
		TLSClientConfig:  tlsCfg,
	}

	return t
}

// Available reports whether the dialer was built.
func (t *transport) Available() error {
	return t.initErr
}

// Connect starts a dial in the background and returns its handle.
func (t *transport) Connect(endpoint, token string, h Handler) Conn {
	ctx, cancel := context.WithCancel(context.Background())

	c := &client{
		cfg:      t.cfg,
		logger:   t.logger.With("endpoint", endpoint),
		dialer:   t.dialer,
		endpoint: endpoint,
		token:    token,
		handler:  h,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go c.run(ctx)

	return c
}

// client is one websocket connection.
type client struct {
	cfg      ClientConfig
	logger   *slog.Logger
	dialer   websocket.Dialer
	endpoint string
	token    string
	handler  Handler

	cancel context.CancelFunc
	done   chan struct{} // closed when the read loop exits

	// Write serialization
	writeMu sync.Mutex

	// State
	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool // Disconnect was called
}

// run dials, reports the outcome, then reads until the connection ends.
func (c *client) run(ctx context.Context) {
	dialer := c.dialer
	if c.token != "" {
		dialer.Subprotocols = []string{c.token}
	}

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if c.isClosed() {
			c.handler.Closed(CloseNormal, "closed before open")
			return
		}
		reason := err.Error()
		if resp != nil {
			reason = fmt.Sprintf("%s (http status %d)", reason, resp.StatusCode)
		}
		c.logger.Debug("websocket dial failed", "error", err)
		c.handler.Closed(CloseAbnormal, reason)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		c.handler.Closed(CloseNormal, "closed before open")
		return
	}
	c.conn = conn
	c.mu.Unlock()

	// Pong payload is the send time of our ping
	conn.SetPongHandler(func(data string) error {
		if sent, err := strconv.ParseInt(data, 10, 64); err == nil {
			c.logger.Debug("pong", "rtt", time.Since(time.Unix(0, sent)))
		}
		return nil
	})

	c.logger.Debug("websocket connected", "subprotocol", conn.Subprotocol())
	c.handler.Opened()

	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop(conn)
	}

	c.readLoop(conn)
}

// Send writes one text frame.
func (c *client) Send(text string) error {
	c.mu.RLock()
	conn, closed := c.conn, c.closed
	c.mu.RUnlock()

	if closed {
		return ErrAlreadyClosed
	}
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Disconnect cancels a pending dial or closes the open connection.
func (c *client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()

	if conn != nil {
		// Send close message; the read loop reports Closed once the socket is gone
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			c.controlDeadline(),
		)
		conn.Close()
	}
}

func (c *client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// readLoop delivers frames to the handler and finishes with exactly one Closed.
func (c *client) readLoop(conn *websocket.Conn) {
	defer c.cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			close(c.done)
			code, reason := closeStatus(err, c.isClosed())
			c.logger.Debug("websocket read ended", "code", code, "error", err)
			c.handler.Closed(code, reason)
			return
		}

		c.handler.Message(string(data))
	}
}

// heartbeatLoop pings the server until the read loop exits.
func (c *client) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			payload := strconv.FormatInt(time.Now().UnixNano(), 10)
			if err := conn.WriteControl(websocket.PingMessage, []byte(payload), c.controlDeadline()); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

func (c *client) controlDeadline() time.Time {
	if c.cfg.WriteTimeout > 0 {
		return time.Now().Add(c.cfg.WriteTimeout)
	}
	return time.Now().Add(time.Second)
}

// closeStatus maps a read error to the code and reason reported to the handler.
func closeStatus(err error, disconnected bool) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	if disconnected {
		return CloseNormal, ""
	}
	return CloseAbnormal, err.Error()
}

// buildTLSConfig returns nil when the dialer defaults are enough.
func buildTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	if cfg.CAFile == "" && !cfg.InsecureSkipVerify {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CAFile != "" {
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("no PEM certificates in %s", cfg.CAFile)
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}
