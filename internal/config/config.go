package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sh03m2a5h/filesession-go/internal/server"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	TLS          TLSConfig     `mapstructure:"tls"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// CORSOrigins lists origins allowed to call the session API with
	// credentials; empty disables CORS handling
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SessionConfig holds session identity and storage configuration
type SessionConfig struct {
	// Store selects the backend: file, memory or redis
	Store string `mapstructure:"store"`

	// Identity cookie
	IDName   string `mapstructure:"id_name"`
	IDLength int    `mapstructure:"id_length"`
	IDLimit  int    `mapstructure:"id_limit"`
	IDPath   string `mapstructure:"id_path"`

	CookieDomain   string `mapstructure:"cookie_domain"`
	CookieSecure   bool   `mapstructure:"cookie_secure"`
	CookieHTTPOnly bool   `mapstructure:"cookie_http_only"`
	CookieSameSite string `mapstructure:"cookie_same_site"`

	// File backend
	RootPath     string `mapstructure:"root_path"`
	SessionsPath string `mapstructure:"sessions_path"`
	AtomicWrite  bool   `mapstructure:"atomic_write"`
	FileMode     uint32 `mapstructure:"file_mode"`
	DirMode      uint32 `mapstructure:"dir_mode"`

	// Lock serialises read-modify-write per session id within the process
	Lock bool `mapstructure:"lock"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Provider    string  `mapstructure:"provider"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	cfg, _, err := LoadWithViper(configPath)
	return cfg, err
}

// LoadWithViper loads configuration and also returns the viper instance, so
// callers can watch the config file for changes
func LoadWithViper(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()

	// Set config file
	if configPath != "" && configPath != "-" {
		v.SetConfigFile(configPath)
	} else if configPath == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/filesession")
	}

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "-" {
		if err := v.ReadInConfig(); err != nil {
			// It's okay if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Bind environment variables
	v.SetEnvPrefix("FILESESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	config, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return config, v, nil
}

// decode unmarshals and validates the configuration held by v
func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Reload decodes the current state of v, typically after a file change event
func Reload(v *viper.Viper) (*Config, error) {
	return decode(v)
}

// Watch reloads the configuration whenever the backing file changes and
// hands the result to onChange. Invalid edits are reported through onError
// and otherwise ignored. It is a no-op when v was not loaded from a file.
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) bool {
	if v == nil || v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Reload(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return true
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.tls.enabled", false)

	// Session defaults
	v.SetDefault("session.store", "file")
	v.SetDefault("session.id_name", "HSSID")
	v.SetDefault("session.id_length", 64)
	v.SetDefault("session.id_limit", 3600)
	v.SetDefault("session.id_path", "/")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.cookie_http_only", true)
	v.SetDefault("session.cookie_same_site", "lax")
	v.SetDefault("session.root_path", ".")
	v.SetDefault("session.sessions_path", "sessions")
	v.SetDefault("session.atomic_write", true)
	v.SetDefault("session.file_mode", 0600)
	v.SetDefault("session.dir_mode", 0700)
	v.SetDefault("session.lock", true)
	v.SetDefault("session.redis.url", "redis://localhost:6379")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.key_prefix", "filesession:")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.provider", "otlp")
	v.SetDefault("tracing.service_name", "filesession")
	v.SetDefault("tracing.sample_rate", 0.1)
}

// bindEnvVars manually binds environment variables for better control
func bindEnvVars(v *viper.Viper) {
	// Server bindings
	v.BindEnv("server.host", "FILESESSION_HOST", "HOST")
	v.BindEnv("server.port", "FILESESSION_PORT", "PORT")

	// Session bindings
	v.BindEnv("session.store", "FILESESSION_SESSION_STORE", "SESSION_STORE")
	v.BindEnv("session.root_path", "FILESESSION_SESSION_ROOT_PATH", "SESSION_ROOT_PATH")
	v.BindEnv("session.redis.url", "FILESESSION_SESSION_REDIS_URL", "REDIS_URL")

	// Logging bindings
	v.BindEnv("logging.level", "FILESESSION_LOGGING_LEVEL", "LOG_LEVEL")
}

// ToServerConfig converts ServerConfig to internal server.Config
func (c *ServerConfig) ToServerConfig() *server.Config {
	return &server.Config{
		Host:         c.Host,
		Port:         c.Port,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		IdleTimeout:  c.IdleTimeout,
		TLSCertFile:  c.TLS.CertFile,
		TLSKeyFile:   c.TLS.KeyFile,
		TLSEnabled:   c.TLS.Enabled,
		CORSOrigins:  c.CORSOrigins,
	}
}
