package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHost                 = "localhost:8001"
	DefaultPath                 = "/ws/"
	DefaultToken                = "anon"
	DefaultGreeting             = "sending message on websocket opening"
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultTranscriptBatchSize  = 100
	DefaultTranscriptFlushEvery = 1 * time.Second
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

func (c *ConsoleConfig) applyDefaults() {
	// Endpoint defaults
	if c.Endpoint.URL == "" && c.Endpoint.Host == "" {
		c.Endpoint.Host = DefaultHost
	}
	if c.Endpoint.Path == "" {
		c.Endpoint.Path = DefaultPath
	}
	if c.Endpoint.Token == "" {
		c.Endpoint.Token = DefaultToken
	}

	if c.Console.Greeting == "" {
		c.Console.Greeting = DefaultGreeting
	}

	// Transport defaults
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
	if c.Transport.PingInterval == nil {
		ping := DefaultPingInterval
		c.Transport.PingInterval = &ping
	}

	// Transcript defaults
	applyDBDefaults(&c.Transcript.Database)
	if c.Transcript.BatchSize == 0 {
		c.Transcript.BatchSize = DefaultTranscriptBatchSize
	}
	if c.Transcript.FlushInterval == 0 {
		c.Transcript.FlushInterval = DefaultTranscriptFlushEvery
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
