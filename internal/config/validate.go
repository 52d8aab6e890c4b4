package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *ConsoleConfig) Validate() error {
	endpoint := c.Endpoint.EndpointURL()
	if endpoint == "" {
		return errors.New("endpoint.url or endpoint.host is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("endpoint url %q: %w", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("endpoint url scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Endpoint.Port < 0 || c.Endpoint.Port > 65535 {
		return fmt.Errorf("endpoint.port must be between 0 and 65535, got %d", c.Endpoint.Port)
	}

	if c.Transport.HandshakeTimeout < 0 {
		return errors.New("transport.handshake_timeout must be >= 0")
	}
	if c.Transport.WriteTimeout < 0 {
		return errors.New("transport.write_timeout must be >= 0")
	}
	if c.Transport.KeepaliveInterval() < 0 {
		return errors.New("transport.ping_interval must be >= 0")
	}

	if c.Transcript.Enabled {
		if err := c.Transcript.Database.validate("transcript.database"); err != nil {
			return err
		}
		if c.Transcript.BatchSize < 1 {
			return errors.New("transcript.batch_size must be >= 1")
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
