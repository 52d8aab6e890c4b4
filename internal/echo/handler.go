// Package echo is a development websocket server for the console. It reads
// the access token from the single subprotocol, checks it, and echoes every
// message back.
package echo

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/wsconsole/internal/auth"
)

// Auth modes
const (
	AuthAnon  = "anon"  // any token, or none, is accepted
	AuthToken = "token" // exactly one subprotocol carrying a valid token
)

// Close codes sent when the token check fails.
const (
	CloseProtocolError = websocket.CloseProtocolError // 1002
	CloseNoToken       = 4000
	CloseInvalidToken  = 4001
)

// Close reasons matching the codes above.
const (
	ReasonSubprotocolCount = "exactly one sub-protocol should be provided"
	ReasonNoToken          = "permission denied - no token supplied"
	ReasonInvalidToken     = "permission denied - invalid token"
)

// Config configures a Handler.
type Config struct {
	Auth          string
	Secret        string        // HS256 key for token mode
	PingOnMessage bool          // ping the client after each echo
	IdleTimeout   time.Duration // close idle sessions, 0 disables
}

// Recorder observes server activity.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	Echoed()
	AuthFailed(code int)
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened() {}
func (nopRecorder) SessionClosed() {}
func (nopRecorder) Echoed()        {}
func (nopRecorder) AuthFailed(int) {}

// Option configures a Handler.
type Option func(*Handler)

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// Handler serves websocket echo sessions.
type Handler struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	upgrader websocket.Upgrader
	clients  *Clients
}

// NewHandler creates an echo Handler.
func NewHandler(cfg Config, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Auth == "" {
		cfg.Auth = AuthAnon
	}

	h := &Handler{
		cfg:      cfg,
		logger:   logger,
		recorder: nopRecorder{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: newClients(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Clients returns the connected session registry.
func (h *Handler) Clients() *Clients {
	return h.clients
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	protocols := websocket.Subprotocols(r)
	ip := requestIP(r)

	// The first offered subprotocol is accepted so the handshake completes
	// and a failed token check can be reported with a close code.
	var header http.Header
	if len(protocols) > 0 {
		header = http.Header{"Sec-Websocket-Protocol": {protocols[0]}}
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	user, code, reason := h.authenticate(protocols, ip)
	if code != 0 {
		h.recorder.AuthFailed(code)
		h.logger.Info("session rejected", "remote_ip", ip, "code", code, "reason", reason)
		h.reject(conn, code, reason)
		return
	}

	session := h.clients.add(user, ip)
	h.recorder.SessionOpened()
	defer func() {
		h.clients.remove(session)
		h.recorder.SessionClosed()
	}()

	h.serve(conn, session)
}

// authenticate returns the session user, or a close code and reason.
func (h *Handler) authenticate(protocols []string, ip string) (string, int, string) {
	if h.cfg.Auth != AuthToken {
		return "", 0, ""
	}
	if len(protocols) != 1 {
		return "", CloseProtocolError, ReasonSubprotocolCount
	}

	user, err := auth.Verify(h.cfg.Secret, protocols[0], ip)
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "", CloseNoToken, ReasonNoToken
	case err != nil:
		h.logger.Debug("token rejected", "remote_ip", ip, "error", err)
		return "", CloseInvalidToken, ReasonInvalidToken
	}
	return user, 0, ""
}

// reject sends a close frame and waits briefly for the client's reply.
func (h *Handler) reject(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		return
	}
	conn.SetReadDeadline(deadline)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) serve(conn *websocket.Conn, s *Session) {
	logger := h.logger.With("session", s.ID, "remote_ip", s.RemoteIP)
	if s.Authenticated() {
		logger = logger.With("user", s.User)
	}
	logger.Info("new connection", "clients", h.clients.Stats().String())

	conn.SetPongHandler(func(data string) error {
		if sent, err := strconv.ParseInt(data, 10, 64); err == nil {
			rtt := time.Since(time.Unix(0, sent))
			logger.Info("ping pong", "rtt_ms", float64(rtt.Microseconds())/1000)
		}
		return nil
	})

	h.ping(conn, logger)
	h.extendDeadline(conn)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			h.logClose(logger, conn, err)
			return
		}
		h.extendDeadline(conn)

		logger.Info("received message", "bytes", len(data), "binary", messageType == websocket.BinaryMessage)

		if err := conn.WriteMessage(messageType, data); err != nil {
			logger.Warn("echo failed", "error", err)
			return
		}
		h.recorder.Echoed()

		if h.cfg.PingOnMessage {
			h.ping(conn, logger)
		}
	}
}

// ping sends the current time so the pong handler can compute the round trip.
func (h *Handler) ping(conn *websocket.Conn, logger *slog.Logger) {
	payload := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := conn.WriteControl(websocket.PingMessage, []byte(payload), time.Now().Add(time.Second)); err != nil {
		logger.Debug("ping failed", "error", err)
	}
}

func (h *Handler) extendDeadline(conn *websocket.Conn) {
	if h.cfg.IdleTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(h.cfg.IdleTimeout))
	}
}

func (h *Handler) logClose(logger *slog.Logger, conn *websocket.Conn, err error) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		logger.Info("client disconnected", "code", ce.Code, "reason", ce.Text)
		return
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "idle timeout"),
			time.Now().Add(time.Second))
		logger.Info("session idle, closing", "idle_timeout", h.cfg.IdleTimeout)
		return
	}

	logger.Info("client disconnected", "error", err)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
