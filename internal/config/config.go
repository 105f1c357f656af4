// Package config provides Viper-based configuration loading for the parlor server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds WebSocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/WebSocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/WebSocket listener.
	Port int `mapstructure:"port"`
	// WriteTimeout is the per-message write deadline for client connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval is how often the server pings idle connections.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// PongWait is how long a connection may go without a pong before it is
	// considered dead. Must exceed PingInterval.
	PongWait time.Duration `mapstructure:"pong_wait"`
	// AllowedOrigins lists Origin header values accepted during the WebSocket
	// handshake. Empty means all origins are accepted.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// RateLimit throttles inbound messages per connection.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds per-connection token-bucket settings.
type RateLimitConfig struct {
	// MessagesPerSecond is the sustained inbound message rate per connection.
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	// Burst is the token bucket capacity.
	Burst int `mapstructure:"burst"`
	// Enabled determines whether rate limiting is active.
	Enabled bool `mapstructure:"enabled"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WhotConfig holds card-game session settings.
type WhotConfig struct {
	// PacingDelay is the deferred interval between a validated action and the
	// follow-up turn broadcast, pacing the game for human players.
	PacingDelay time.Duration `mapstructure:"pacing_delay"`
	// DefaultPlayers is the participant count for sessions created without an
	// explicit count.
	DefaultPlayers int `mapstructure:"default_players"`
	// TurnTimeout force-draws for a current player who has not acted within
	// the interval. Zero disables the timeout.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Whot    WhotConfig    `mapstructure:"whot"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWhot(c.Whot); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.PingInterval <= 0 {
		errs = append(errs, "server.ping_interval must be positive")
	}
	if s.PongWait <= s.PingInterval {
		errs = append(errs, "server.pong_wait must exceed server.ping_interval")
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.MessagesPerSecond <= 0 {
			errs = append(errs, "server.rate_limit.messages_per_second must be positive when enabled")
		}
		if s.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Sprintf("server.rate_limit.burst must be >= 1, got %d", s.RateLimit.Burst))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWhot(w WhotConfig) error {
	var errs []string
	if w.PacingDelay < 0 {
		errs = append(errs, "whot.pacing_delay must not be negative")
	}
	if w.DefaultPlayers < 2 {
		errs = append(errs, fmt.Sprintf("whot.default_players must be >= 2, got %d", w.DefaultPlayers))
	}
	if w.TurnTimeout < 0 {
		errs = append(errs, "whot.turn_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with PARLOR_ prefix
	v.SetEnvPrefix("PARLOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Default returns the configuration used when no config file is present.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are statically valid; Unmarshal cannot fail on them.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8800)
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.ping_interval", "15s")
	v.SetDefault("server.pong_wait", "60s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit.messages_per_second", 20)
	v.SetDefault("server.rate_limit.burst", 40)
	v.SetDefault("server.rate_limit.enabled", true)

	v.SetDefault("whot.pacing_delay", "1s")
	v.SetDefault("whot.default_players", 4)
	v.SetDefault("whot.turn_timeout", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
