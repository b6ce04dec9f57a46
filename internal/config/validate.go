package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sh03m2a5h/filesession-go/internal/identity"
)

// Validate validates the configuration
func Validate(config *Config) error {
	// Validate server config
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	// Validate session config
	if err := validateSessionConfig(&config.Session); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	// Validate logging config
	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	// Validate metrics config if enabled
	if config.Metrics.Enabled {
		if !strings.HasPrefix(config.Metrics.Path, "/") {
			return fmt.Errorf("metrics config: path must start with '/'")
		}
	}

	// Validate tracing config if enabled
	if config.Tracing.Enabled {
		if err := validateTracingConfig(&config.Tracing); err != nil {
			return fmt.Errorf("tracing config: %w", err)
		}
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Port)
	}

	if config.TLS.Enabled {
		if config.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert file is required when TLS is enabled")
		}
		if config.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key file is required when TLS is enabled")
		}
	}

	if config.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if config.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if config.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}

	for _, origin := range config.CORSOrigins {
		if origin == "" {
			return fmt.Errorf("CORS origin must not be empty")
		}
	}

	return nil
}

func validateSessionConfig(config *SessionConfig) error {
	switch config.Store {
	case "file", "memory", "redis":
		// Valid stores
	default:
		return fmt.Errorf("invalid session store: %s (must be 'file', 'memory' or 'redis')", config.Store)
	}

	if config.IDName == "" {
		return fmt.Errorf("id name is required")
	}
	if strings.ContainsAny(config.IDName, " \t\r\n;,=") {
		return fmt.Errorf("invalid id name: %q", config.IDName)
	}

	if config.IDLength < 1 || config.IDLength > identity.MaxIDLength {
		return fmt.Errorf("id length must be between 1 and %d, got %d", identity.MaxIDLength, config.IDLength)
	}

	if config.IDLimit < 0 {
		return fmt.Errorf("id limit must be non-negative")
	}

	if config.IDPath == "" {
		return fmt.Errorf("id path is required")
	}

	switch strings.ToLower(config.CookieSameSite) {
	case "strict", "lax", "none":
		// Valid values
	default:
		return fmt.Errorf("invalid cookie same site: %s (must be 'strict', 'lax', or 'none')", config.CookieSameSite)
	}

	// Validate file config if using file store
	if config.Store == "file" {
		if config.RootPath == "" {
			return fmt.Errorf("root path is required when using file store")
		}
		if config.SessionsPath == "" {
			return fmt.Errorf("sessions path is required when using file store")
		}
		if filepath.IsAbs(config.SessionsPath) {
			return fmt.Errorf("sessions path must be relative to the root path")
		}
		if config.FileMode == 0 || config.FileMode > 0777 {
			return fmt.Errorf("invalid file mode: %o", config.FileMode)
		}
		if config.DirMode == 0 || config.DirMode > 0777 {
			return fmt.Errorf("invalid dir mode: %o", config.DirMode)
		}
	}

	// Validate Redis config if using Redis store
	if config.Store == "redis" {
		if config.Redis.URL == "" {
			return fmt.Errorf("redis URL is required when using redis store")
		}
		if _, err := url.Parse(config.Redis.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		if config.Redis.DB < 0 {
			return fmt.Errorf("redis DB must be non-negative")
		}
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", config.Level)
	}

	switch strings.ToLower(config.Format) {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s (must be 'json' or 'text')", config.Format)
	}

	switch strings.ToLower(config.Output) {
	case "stdout", "stderr", "file":
		// Valid outputs
	default:
		return fmt.Errorf("invalid log output: %s (must be 'stdout', 'stderr', or 'file')", config.Output)
	}

	if strings.ToLower(config.Output) == "file" && config.File == "" {
		return fmt.Errorf("log file path is required when output is 'file'")
	}

	return nil
}

func validateTracingConfig(config *TracingConfig) error {
	switch strings.ToLower(config.Provider) {
	case "otlp", "jaeger":
		// Valid providers, both exported over OTLP HTTP
	default:
		return fmt.Errorf("invalid tracing provider: %s (must be 'otlp' or 'jaeger')", config.Provider)
	}

	if config.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return fmt.Errorf("invalid tracing endpoint: %w", err)
	}

	if config.ServiceName == "" {
		return fmt.Errorf("service name is required when tracing is enabled")
	}

	if config.SampleRate < 0 || config.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1")
	}

	return nil
}
