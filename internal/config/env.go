package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every console override variable.
const EnvPrefix = "WSCONSOLE"

// envOverrides lists the variables that may replace file values.
// Pointer fields stay nil when the variable is unset. Keys come from the field
// names; an explicit envconfig tag would also match the unprefixed name.
type envOverrides struct {
	URL            *string
	Token          *string
	GreetingOnOpen *bool   `split_words:"true"`
	LogLevel       *string `split_words:"true"`
}

// ApplyEnv copies WSCONSOLE_* variables over the loaded values.
func (c *ConsoleConfig) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read %s_* environment: %w", EnvPrefix, err)
	}

	if env.URL != nil {
		c.Endpoint.URL = *env.URL
	}
	if env.Token != nil {
		c.Endpoint.Token = *env.Token
	}
	if env.GreetingOnOpen != nil {
		c.Console.SendGreetingOnOpen = *env.GreetingOnOpen
	}
	if env.LogLevel != nil {
		c.Log.Level = *env.LogLevel
	}
	return nil
}

// ServerConfig configures the development echo server.
type ServerConfig struct {
	Addr          string        `default:":8001"`
	Path          string        `default:"/ws/"`
	Auth          string        `default:"anon"` // anon or token
	Secret        string
	TokenValidity time.Duration `split_words:"true" default:"24h"`
	PingOnMessage bool          `split_words:"true" default:"true"`
	IdleTimeout   time.Duration `split_words:"true" default:"10m"` // 0 disables
}

// LoadServerConfig reads ECHO_* variables.
func LoadServerConfig() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("ECHO", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load echo server config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the echo server settings.
func (c *ServerConfig) Validate() error {
	switch c.Auth {
	case "anon":
	case "token":
		if c.Secret == "" {
			return fmt.Errorf("secret is required when auth is %q", c.Auth)
		}
	default:
		return fmt.Errorf("unsupported auth mode %q", c.Auth)
	}
	if c.TokenValidity <= 0 {
		return fmt.Errorf("token validity must be positive, got %v", c.TokenValidity)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must be non-negative, got %v", c.IdleTimeout)
	}
	return nil
}
