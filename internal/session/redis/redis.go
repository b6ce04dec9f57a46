package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"go.uber.org/zap"
)

// Store implements backend.Backend using Redis. Records never expire;
// lifetime is bounded by the identity cookie only.
type Store struct {
	client    redis.Cmdable
	keyPrefix string
	logger    *zap.Logger
}

// Config holds Redis session store configuration
type Config struct {
	// Redis connection URL (redis://localhost:6379/0)
	URL string
	// Password for Redis authentication
	Password string
	// Database number (0-15)
	DB int
	// Key prefix for session keys
	KeyPrefix string
	// Connection pool size
	PoolSize int
	// Minimum idle connections
	MinIdleConns int
	// Connection timeout
	DialTimeout time.Duration
	// Read timeout
	ReadTimeout time.Duration
	// Write timeout
	WriteTimeout time.Duration
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() *Config {
	return &Config{
		URL:          "redis://localhost:6379/0",
		KeyPrefix:    "filesession:",
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewStore creates a new Redis session store
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Parse Redis URL
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Override with config values
	if config.Password != "" {
		opt.Password = config.Password
	}
	if config.DB > 0 {
		opt.DB = config.DB
	}
	if config.PoolSize > 0 {
		opt.PoolSize = config.PoolSize
	}
	if config.MinIdleConns > 0 {
		opt.MinIdleConns = config.MinIdleConns
	}
	if config.DialTimeout > 0 {
		opt.DialTimeout = config.DialTimeout
	}
	if config.ReadTimeout > 0 {
		opt.ReadTimeout = config.ReadTimeout
	}
	if config.WriteTimeout > 0 {
		opt.WriteTimeout = config.WriteTimeout
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewStoreWithClient(client, config.KeyPrefix, logger), nil
}

// NewStoreWithClient creates a new Redis session store with an existing Redis client
func NewStoreWithClient(client redis.Cmdable, keyPrefix string, logger *zap.Logger) *Store {
	if keyPrefix == "" {
		keyPrefix = "filesession:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// KeyPrefix returns the prefix prepended to every id
func (s *Store) KeyPrefix() string {
	return s.keyPrefix
}

// Load retrieves the stored record for id
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	s.logger.Debug("Session retrieved", zap.String("id", id))
	return data, nil
}

// Save stores the record for id without expiration
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}

	s.logger.Debug("Session saved", zap.String("id", id), zap.Int("bytes", len(data)))
	return nil
}

// Delete removes the record for id
func (s *Store) Delete(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, s.keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}

	if deleted > 0 {
		s.logger.Debug("Session deleted", zap.String("id", id))
	}
	return nil
}

// Exists checks if a record is stored for id
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}

	return exists > 0, nil
}

// List returns the ids stored under the key prefix, using SCAN
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return ids, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	if client, ok := s.client.(*redis.Client); ok {
		return client.Close()
	}
	// For redis.Cmdable interface, we can't close it directly
	return nil
}

// Stats returns session store statistics
func (s *Store) Stats(ctx context.Context) (*backend.Stats, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	return &backend.Stats{
		ActiveSessions: int64(len(ids)),
		TotalSaved:     -1, // Redis doesn't track this
		TotalDeleted:   -1, // Redis doesn't track this
		Store:          "redis",
		Info:           fmt.Sprintf("key_prefix=%s", s.keyPrefix),
	}, nil
}
