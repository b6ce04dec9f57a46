package session

import (
	"fmt"
	"io/fs"
	"time"

	"github.com/sh03m2a5h/filesession-go/internal/config"
	"github.com/sh03m2a5h/filesession-go/internal/cookie"
	"github.com/sh03m2a5h/filesession-go/internal/identity"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"github.com/sh03m2a5h/filesession-go/internal/session/file"
	"github.com/sh03m2a5h/filesession-go/internal/session/memory"
	"github.com/sh03m2a5h/filesession-go/internal/session/redis"
	"go.uber.org/zap"
)

// Factory creates session stores based on configuration
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates a new session store factory
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		logger: logger,
	}
}

// CreateStore wires the cookie jar, identity manager and backend described
// by config into a Store
func (f *Factory) CreateStore(config *config.SessionConfig) (*Store, error) {
	b, err := f.CreateBackend(config)
	if err != nil {
		return nil, err
	}

	ids := identity.NewManager(IdentityConfig(config), cookie.NewHTTPJar(CookieConfig(config)), f.logger)

	return NewStore(ids, b, f.logger, WithLocking(config.Lock)), nil
}

// CreateBackend creates the configured record backend wrapped with metrics
func (f *Factory) CreateBackend(config *config.SessionConfig) (backend.Backend, error) {
	var (
		b   backend.Backend
		err error
	)

	switch config.Store {
	case "file":
		b, err = f.createFileBackend(config)
	case "redis":
		b, err = f.createRedisBackend(config)
	case "memory":
		b = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", config.Store)
	}
	if err != nil {
		return nil, err
	}

	return NewMetricsBackend(b, config.Store), nil
}

// createFileBackend creates a file session backend
func (f *Factory) createFileBackend(config *config.SessionConfig) (backend.Backend, error) {
	fileConfig := &file.Config{
		RootPath:     config.RootPath,
		SessionsPath: config.SessionsPath,
		AtomicWrite:  config.AtomicWrite,
		FileMode:     fs.FileMode(config.FileMode),
		DirMode:      fs.FileMode(config.DirMode),
	}

	store, err := file.NewStore(fileConfig, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file session store: %w", err)
	}

	f.logger.Info("File session store created",
		zap.String("dir", store.Dir()),
		zap.Bool("atomic_write", fileConfig.AtomicWrite),
	)

	return store, nil
}

// createRedisBackend creates a Redis session backend
func (f *Factory) createRedisBackend(config *config.SessionConfig) (backend.Backend, error) {
	redisConfig := &redis.Config{
		URL:          config.Redis.URL,
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		KeyPrefix:    config.Redis.KeyPrefix,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	if redisConfig.URL == "" {
		return nil, fmt.Errorf("Redis URL is required for Redis session store")
	}

	store, err := redis.NewStore(redisConfig, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis session store: %w", err)
	}

	f.logger.Info("Redis session store created",
		zap.String("key_prefix", store.KeyPrefix()),
	)

	return store, nil
}

// createMemoryBackend creates an in-memory session backend
func (f *Factory) createMemoryBackend() backend.Backend {
	store := memory.NewStore(f.logger)
	f.logger.Info("Memory session store created")
	return store
}

// IdentityConfig extracts the identity settings from config
func IdentityConfig(config *config.SessionConfig) *identity.Config {
	return &identity.Config{
		Name:   config.IDName,
		Length: config.IDLength,
		Limit:  config.IDLimit,
		Path:   config.IDPath,
	}
}

// CookieConfig extracts the cookie attributes from config
func CookieConfig(config *config.SessionConfig) *cookie.Config {
	return &cookie.Config{
		Domain:   config.CookieDomain,
		Secure:   config.CookieSecure,
		HTTPOnly: config.CookieHTTPOnly,
		SameSite: cookie.ParseSameSite(config.CookieSameSite),
	}
}
