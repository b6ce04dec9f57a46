package session

import (
	"context"
	"errors"
	"time"

	"github.com/sh03m2a5h/filesession-go/internal/metrics"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
)

// MetricsBackend wraps a Backend and records metrics
type MetricsBackend struct {
	backend   backend.Backend
	storeType string
}

// NewMetricsBackend creates a new metrics-enabled backend wrapper
func NewMetricsBackend(b backend.Backend, storeType string) backend.Backend {
	return &MetricsBackend{
		backend:   b,
		storeType: storeType,
	}
}

func (m *MetricsBackend) observe(op string, start time.Time, err error) {
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}

	metrics.BackendOperationsTotal.WithLabelValues(op, m.storeType, status).Inc()
	metrics.BackendOperationDuration.WithLabelValues(op, m.storeType).Observe(time.Since(start).Seconds())
}

// Load loads a record and records metrics
func (m *MetricsBackend) Load(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	data, err := m.backend.Load(ctx, id)
	m.observe("load", start, err)
	return data, err
}

// Save saves a record and records metrics
func (m *MetricsBackend) Save(ctx context.Context, id string, data []byte) error {
	start := time.Now()
	err := m.backend.Save(ctx, id, data)
	m.observe("save", start, err)
	return err
}

// Delete deletes a record and records metrics
func (m *MetricsBackend) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.backend.Delete(ctx, id)
	m.observe("delete", start, err)
	return err
}

// Exists checks if a record exists and records metrics
func (m *MetricsBackend) Exists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	exists, err := m.backend.Exists(ctx, id)
	m.observe("exists", start, err)
	return exists, err
}

// List lists stored ids and records metrics
func (m *MetricsBackend) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.backend.List(ctx)
	m.observe("list", start, err)
	return ids, err
}

// Stats returns backend statistics and updates the active sessions gauge
func (m *MetricsBackend) Stats(ctx context.Context) (*backend.Stats, error) {
	stats, err := m.backend.Stats(ctx)
	if err == nil && stats != nil {
		metrics.SessionsActive.Set(float64(stats.ActiveSessions))
	}
	return stats, err
}

// Close closes the backend
func (m *MetricsBackend) Close() error {
	return m.backend.Close()
}
