package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/wsconsole/internal/connection"
)

const namespace = "wsconsole"

var states = []connection.State{
	connection.StateIdle,
	connection.StateConnecting,
	connection.StateOpen,
	connection.StateClosed,
}

// Handler serves the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Controller records controller activity. It implements connection.Recorder.
type Controller struct {
	state           *prometheus.GaugeVec
	connectAttempts prometheus.Counter
	messages        *prometheus.CounterVec
	bytes           *prometheus.CounterVec
	sendRejected    prometheus.Counter
	closes          *prometheus.CounterVec
	staleEvents     *prometheus.CounterVec
}

// NewController registers the controller metrics on registry.
func NewController(registry *prometheus.Registry) *Controller {
	factory := promauto.With(registry)
	m := &Controller{
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "state",
			Help:      "1 for the current connection state, 0 otherwise.",
		}, []string{"state"}),
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "connect_attempts_total",
			Help:      "Connections requested with Open.",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "messages_total",
			Help:      "Text messages by direction.",
		}, []string{"direction"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "message_bytes_total",
			Help:      "Message payload bytes by direction.",
		}, []string{"direction"}),
		sendRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "send_rejected_total",
			Help:      "Sends refused because no connection was open.",
		}),
		closes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "closes_total",
			Help:      "Closed events for the current connection by close code.",
		}, []string{"code"}),
		staleEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "stale_events_total",
			Help:      "Events ignored because their connection was released.",
		}, []string{"event"}),
	}
	m.StateChanged(connection.StateIdle)
	return m
}

func (m *Controller) StateChanged(s connection.State) {
	for _, st := range states {
		v := 0.0
		if st == s {
			v = 1
		}
		m.state.WithLabelValues(st.String()).Set(v)
	}
}

func (m *Controller) ConnectAttempted() {
	m.connectAttempts.Inc()
}

func (m *Controller) MessageReceived(bytes int) {
	m.messages.WithLabelValues("in").Inc()
	m.bytes.WithLabelValues("in").Add(float64(bytes))
}

func (m *Controller) MessageSent(bytes int) {
	m.messages.WithLabelValues("out").Inc()
	m.bytes.WithLabelValues("out").Add(float64(bytes))
}

func (m *Controller) SendRejected() {
	m.sendRejected.Inc()
}

func (m *Controller) Closed(code int) {
	m.closes.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (m *Controller) StaleEvent(kind string) {
	m.staleEvents.WithLabelValues(kind).Inc()
}

// Server records echo server activity.
type Server struct {
	sessions     prometheus.Gauge
	echoed       prometheus.Counter
	authFailures *prometheus.CounterVec
}

// NewServer registers the echo server metrics on registry.
func NewServer(registry *prometheus.Registry) *Server {
	factory := promauto.With(registry)
	return &Server{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "echo",
			Name:      "sessions",
			Help:      "Open websocket sessions.",
		}),
		echoed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "echo",
			Name:      "messages_echoed_total",
			Help:      "Messages echoed back to clients.",
		}),
		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "echo",
			Name:      "auth_failures_total",
			Help:      "Sessions closed by the token check, by close code.",
		}, []string{"code"}),
	}
}

func (m *Server) SessionOpened() { m.sessions.Inc() }
func (m *Server) SessionClosed() { m.sessions.Dec() }
func (m *Server) Echoed()        { m.echoed.Inc() }

func (m *Server) AuthFailed(code int) {
	m.authFailures.WithLabelValues(strconv.Itoa(code)).Inc()
}
