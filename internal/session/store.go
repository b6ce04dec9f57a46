package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sh03m2a5h/filesession-go/internal/identity"
	"github.com/sh03m2a5h/filesession-go/internal/metrics"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNotFound is returned by backends when no record is stored for an id.
// Store reads never surface it.
var ErrNotFound = backend.ErrNotFound

// ErrInvalidID is returned for ids that cannot name a record
var ErrInvalidID = identity.ErrInvalidID

const tracerName = "github.com/sh03m2a5h/filesession-go/internal/session"

// Store maps session ids to records persisted through a backend.
//
// Write, Delete, Clear, Migrate and Move are read-modify-write sequences. With
// locking enabled (the default) they are serialised per id inside this
// process; without it two concurrent requests of one client can lose an
// update. Nothing is locked across processes.
type Store struct {
	ids     *identity.Manager
	backend backend.Backend
	locks   *lockTable
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures a Store
type Option func(*Store)

// WithLocking enables or disables per-id mutual exclusion
func WithLocking(enabled bool) Option {
	return func(s *Store) {
		if enabled {
			s.locks = newLockTable()
		} else {
			s.locks = nil
		}
	}
}

// NewStore creates a session store
func NewStore(ids *identity.Manager, b backend.Backend, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		ids:     ids,
		backend: b,
		locks:   newLockTable(),
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the identity manager
func (s *Store) Identity() *identity.Manager {
	return s.ids
}

// Backend returns the underlying backend
func (s *Store) Backend() backend.Backend {
	return s.backend
}

// Read returns the record for the current request's session id. A missing or
// undecodable record reads as an empty record. Backend I/O failures are
// logged and also read as empty; only identity failures are returned.
func (s *Store) Read(w http.ResponseWriter, r *http.Request) (Record, error) {
	ctx, span := s.startSpan(r.Context(), "read")
	defer span.End()

	id, err := s.ids.ResolveID(w, r)
	if err != nil {
		s.fail(span, "read", err)
		return nil, err
	}

	rec, err := s.load(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load session record, treating as empty",
			zap.Error(err),
		)
		rec = Record{}
	}

	s.succeed(span, "read")
	return rec, nil
}

// ReadField returns one value from the current record and whether the key is
// present
func (s *Store) ReadField(w http.ResponseWriter, r *http.Request, key string) (any, bool, error) {
	rec, err := s.Read(w, r)
	if err != nil {
		return nil, false, err
	}
	v, ok := rec.Lookup(key)
	return v, ok, nil
}

// Write sets key to value in the current record, or removes key when value is
// nil, and rewrites the whole record
func (s *Store) Write(w http.ResponseWriter, r *http.Request, key string, value any) error {
	ctx, span := s.startSpan(r.Context(), "write")
	defer span.End()

	id, err := s.ids.ResolveID(w, r)
	if err != nil {
		s.fail(span, "write", err)
		return err
	}

	err = s.update(ctx, id, func(rec Record) (Record, error) {
		if value == nil {
			delete(rec, key)
		} else {
			rec[key] = value
		}
		return rec, nil
	})
	if err != nil {
		s.fail(span, "write", err)
		return err
	}

	s.succeed(span, "write")
	return nil
}

// Delete removes key from the current record
func (s *Store) Delete(w http.ResponseWriter, r *http.Request, key string) error {
	return s.Write(w, r, key, nil)
}

// Clear removes the current record entirely
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	ctx, span := s.startSpan(r.Context(), "clear")
	defer span.End()

	id, err := s.ids.ResolveID(w, r)
	if err != nil {
		s.fail(span, "clear", err)
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	if err := s.backend.Delete(ctx, id); err != nil {
		err = fmt.Errorf("failed to clear session record: %w", err)
		s.fail(span, "clear", err)
		return err
	}

	s.succeed(span, "clear")
	return nil
}

// Load returns the record stored for id, fail-soft on decode errors
func (s *Store) Load(ctx context.Context, id string) (Record, error) {
	if err := identity.ValidateID(id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Migrate copies the record of fromID into toID, replacing any record toID
// already has. A missing source record leaves toID untouched.
func (s *Store) Migrate(ctx context.Context, fromID, toID string) error {
	ctx, span := s.startSpan(ctx, "migrate")
	defer span.End()

	if err := s.transfer(ctx, fromID, toID, false); err != nil {
		s.fail(span, "migrate", err)
		return err
	}

	s.succeed(span, "migrate")
	return nil
}

// Move copies the record of fromID into toID and removes it from fromID.
// Both ids stay locked until the source is gone, so a concurrent write to
// fromID lands after the move instead of being deleted with it.
func (s *Store) Move(ctx context.Context, fromID, toID string) error {
	ctx, span := s.startSpan(ctx, "move")
	defer span.End()

	if err := s.transfer(ctx, fromID, toID, true); err != nil {
		s.fail(span, "move", err)
		return err
	}

	s.succeed(span, "move")
	return nil
}

func (s *Store) transfer(ctx context.Context, fromID, toID string, remove bool) error {
	if err := identity.ValidateID(fromID); err != nil {
		return err
	}
	if err := identity.ValidateID(toID); err != nil {
		return err
	}
	if fromID == toID {
		return nil
	}

	unlock := s.lock(fromID, toID)
	defer unlock()

	data, err := s.backend.Load(ctx, fromID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load source session record: %w", err)
	}

	if err := s.backend.Save(ctx, toID, data); err != nil {
		return fmt.Errorf("failed to save migrated session record: %w", err)
	}

	if remove {
		// The record is already reachable under toID
		if err := s.backend.Delete(ctx, fromID); err != nil {
			s.logger.Warn("Failed to remove record of moved session id", zap.Error(err))
		}
	}
	return nil
}

// Remove deletes the record stored for id
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := identity.ValidateID(id); err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	return s.backend.Delete(ctx, id)
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// update runs fn over the stored record for id under the id lock and saves
// the result. Undecodable records are replaced; load I/O errors abort so a
// transient failure cannot wipe existing data.
func (s *Store) update(ctx context.Context, id string, fn func(Record) (Record, error)) error {
	unlock := s.lock(id)
	defer unlock()

	rec, err := s.load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session record: %w", err)
	}

	rec, err = fn(rec)
	if err != nil {
		return err
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := s.backend.Save(ctx, id, data); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

// load fetches and decodes the record for id. Missing and corrupt records
// return an empty record; other backend errors are returned.
func (s *Store) load(ctx context.Context, id string) (Record, error) {
	data, err := s.backend.Load(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return Record{}, nil
		}
		return nil, err
	}

	rec, err := decodeRecord(data)
	if err != nil {
		metrics.CorruptRecordsTotal.Inc()
		s.logger.Warn("Discarding corrupt session record",
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return Record{}, nil
	}
	return rec, nil
}

func (s *Store) lock(ids ...string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.lock(ids...)
}

func (s *Store) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "session."+op,
		trace.WithAttributes(attribute.String("session.operation", op)),
	)
}

func (s *Store) succeed(span trace.Span, op string) {
	metrics.RecordOperationsTotal.WithLabelValues(op, "success").Inc()
	span.SetStatus(codes.Ok, "")
}

func (s *Store) fail(span trace.Span, op string, err error) {
	metrics.RecordOperationsTotal.WithLabelValues(op, "error").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
