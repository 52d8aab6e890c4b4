package config

import "time"

// ConsoleConfig is the root configuration for a wsconsole instance.
type ConsoleConfig struct {
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Console    BehaviorConfig   `yaml:"console"`
	Transport  TransportConfig  `yaml:"transport"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// EndpointConfig describes where the console connects and with which token.
// URL wins when set; otherwise the URL is derived from the remaining fields.
type EndpointConfig struct {
	URL    string `yaml:"url"`
	Host   string `yaml:"host"`   // host[:port]
	Secure bool   `yaml:"secure"` // wss instead of ws
	Path   string `yaml:"path"`
	Port   int    `yaml:"port"` // replaces the port in Host when non-zero
	Token  string `yaml:"token"`
}

// BehaviorConfig holds operator-facing console options.
type BehaviorConfig struct {
	SendGreetingOnOpen bool   `yaml:"send_greeting_on_open"`
	Greeting           string `yaml:"greeting"`
	AutoOpen           *bool  `yaml:"auto_open"` // nil means default (true)
}

// TransportConfig holds websocket dialer settings.
type TransportConfig struct {
	HandshakeTimeout   time.Duration  `yaml:"handshake_timeout"`
	WriteTimeout       time.Duration  `yaml:"write_timeout"`
	PingInterval       *time.Duration `yaml:"ping_interval"` // nil means default, 0 disables keepalive pings
	CAFile             string         `yaml:"ca_file"`
	InsecureSkipVerify bool           `yaml:"insecure_skip_verify"`
}

// TranscriptConfig controls the optional PostgreSQL copy of the console log.
type TranscriptConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// KeepaliveInterval returns the ping period. Zero disables pings.
func (t TransportConfig) KeepaliveInterval() time.Duration {
	if t.PingInterval == nil {
		return DefaultPingInterval
	}
	return *t.PingInterval
}

// ShouldAutoOpen reports whether the console opens the connection at startup.
func (c *ConsoleConfig) ShouldAutoOpen() bool {
	if c.Console.AutoOpen == nil {
		return true
	}
	return *c.Console.AutoOpen
}
