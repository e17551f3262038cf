package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// Chat limits. HistoryLimit bounds the backlog replayed on join,
	// MaxMessageLength bounds content in runes, MessagesPerMinute bounds
	// a single connection's send rate.
	HistoryLimit      int `mapstructure:"history_limit" yaml:"history_limit"`
	MaxMessageLength  int `mapstructure:"max_message_length" yaml:"max_message_length"`
	MessagesPerMinute int `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "edunexus.db",
		LogLevel:          "info",
		JWTIssuer:         "edunexus",
		JWTAudience:       "edunexus",
		JWTTTL:            24 * time.Hour,
		HistoryLimit:      50,
		MaxMessageLength:  2000,
		MessagesPerMinute: 60,
	}
}
