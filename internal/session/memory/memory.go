package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"go.uber.org/zap"
)

// Store implements backend.Backend using in-memory storage
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	logger   *zap.Logger
	stats    sessionStats
}

// sessionData holds a stored record
type sessionData struct {
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// sessionStats tracks session statistics
type sessionStats struct {
	totalSaved   int64
	totalDeleted int64
}

// NewStore creates a new memory session store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		sessions: make(map[string]*sessionData),
		logger:   logger,
	}
}

// Load returns a copy of the stored record
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	session, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, backend.ErrNotFound
	}

	data := make([]byte, len(session.Data))
	copy(data, session.Data)

	s.logger.Debug("Session retrieved", zap.String("id", id))
	return data, nil
}

// Save stores a copy of data for id
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if session, exists := s.sessions[id]; exists {
		session.Data = stored
		session.UpdatedAt = now
	} else {
		s.sessions[id] = &sessionData{
			Data:      stored,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	s.stats.totalSaved++

	s.logger.Debug("Session saved", zap.String("id", id), zap.Int("bytes", len(data)))
	return nil
}

// Delete removes the record for id
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return nil
	}

	delete(s.sessions, id)
	s.stats.totalDeleted++

	s.logger.Debug("Session deleted", zap.String("id", id))
	return nil
}

// Exists checks if a record is stored for id
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.sessions[id]
	return exists, nil
}

// List returns stored ids in sorted order
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close clears all sessions
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*sessionData)

	s.logger.Debug("Memory session store closed")
	return nil
}

// Stats returns session store statistics
func (s *Store) Stats(ctx context.Context) (*backend.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &backend.Stats{
		ActiveSessions: int64(len(s.sessions)),
		TotalSaved:     s.stats.totalSaved,
		TotalDeleted:   s.stats.totalDeleted,
		Store:          "memory",
		Info:           fmt.Sprintf("active_sessions=%d", len(s.sessions)),
	}, nil
}
