package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sh03m2a5h/filesession-go/internal/cookie"
	"github.com/sh03m2a5h/filesession-go/internal/metrics"
	"go.uber.org/zap"
)

// Alphabet is the character set used for generated session ids. Ids read
// from cookies may also contain '_' and '-' (see ValidateID).
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// MaxIDLength bounds both generated ids and ids accepted from clients. Ids
// name files, and the file backend's temp names add a prefix and suffix, so
// the bound stays well under the common 255 byte file name limit.
const MaxIDLength = 200

var (
	// ErrInvalidID is returned for ids that are empty, longer than
	// MaxIDLength, or contain characters outside [A-Za-z0-9_-]. Generated ids
	// only use Alphabet, a subset of the accepted set.
	ErrInvalidID = errors.New("invalid session id")
	// ErrGenerate is returned when a new id cannot be generated
	ErrGenerate = errors.New("failed to generate session id")
)

// Config holds identity cookie configuration
type Config struct {
	// Name is the cookie name carrying the id
	Name string
	// Length of generated ids
	Length int
	// Limit is the cookie Max-Age in seconds
	Limit int
	// Path is the cookie path scope
	Path string
}

// DefaultConfig returns the default identity configuration
func DefaultConfig() *Config {
	return &Config{
		Name:   "HSSID",
		Length: 64,
		Limit:  3600,
		Path:   "/",
	}
}

// Generator produces a new id of the given length
type Generator func(length int) (string, error)

// NanoID generates ids over Alphabet
func NanoID(length int) (string, error) {
	return gonanoid.Generate(Alphabet, length)
}

// Option configures a Manager
type Option func(*Manager)

// WithGenerator replaces the id generator
func WithGenerator(g Generator) Option {
	return func(m *Manager) {
		if g != nil {
			m.generate = g
		}
	}
}

// Manager issues and resolves session ids
type Manager struct {
	config   *Config
	jar      cookie.Jar
	generate Generator
	logger   *zap.Logger
}

// NewManager creates a new identity manager
func NewManager(config *Config, jar cookie.Jar, logger *zap.Logger, opts ...Option) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		config:   config,
		jar:      jar,
		generate: NanoID,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the cookie name
func (m *Manager) Name() string {
	return m.config.Name
}

// ResolveID returns the id for the current request, issuing one when
// CurrentID finds none. Without a scope (see WithScope) every call that finds
// no cookie issues a fresh id.
func (m *Manager) ResolveID(w http.ResponseWriter, r *http.Request) (string, error) {
	if id, ok := m.CurrentID(r); ok {
		return id, nil
	}

	if !HasScope(r) {
		m.logger.Debug("Resolving session id outside a request scope")
	}

	return m.IssueID(w, r)
}

// CurrentID returns the id the request already has without issuing one. An
// id issued earlier in the same request scope wins over the incoming cookie,
// so a rotated id is seen by later calls. Invalid cookie ids are ignored.
func (m *Manager) CurrentID(r *http.Request) (string, bool) {
	if s := scopeFrom(r.Context()); s != nil {
		if id, ok := s.get(m.config.Name); ok {
			return id, true
		}
	}

	id, ok := m.jar.Get(r, m.config.Name)
	if !ok {
		return "", false
	}
	if err := ValidateID(id); err != nil {
		m.logger.Debug("Ignoring invalid session id cookie",
			zap.String("cookie", m.config.Name),
			zap.Int("length", len(id)),
		)
		return "", false
	}
	return id, true
}

// IssueID generates a new id, writes it to the response cookie and caches it
// in the request scope. Record data is not copied to the new id.
func (m *Manager) IssueID(w http.ResponseWriter, r *http.Request) (string, error) {
	id, err := m.generate(m.config.Length)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}

	opts := cookie.Options{
		MaxAge: m.config.Limit,
		Path:   m.config.Path,
	}
	if err := m.jar.Set(w, m.config.Name, id, opts); err != nil {
		return "", err
	}

	if s := scopeFrom(r.Context()); s != nil {
		s.set(m.config.Name, id)
	}

	metrics.SessionIDsIssuedTotal.Inc()
	m.logger.Debug("Session id issued", zap.String("cookie", m.config.Name))

	return id, nil
}

// ValidateID checks that id is safe to use as a file name and a cookie value
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidID, MaxIDLength)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-', c == '_':
		default:
			return fmt.Errorf("%w: unexpected character at offset %d", ErrInvalidID, i)
		}
	}
	return nil
}

// scope caches ids issued during one request, keyed by cookie name
type scope struct {
	mu  sync.Mutex
	ids map[string]string
}

func (s *scope) get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[name]
	return id, ok
}

func (s *scope) set(name, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[name] = id
}

type scopeKey struct{}

// WithScope returns r with a request-scoped id cache attached. Calling it on a
// request that already carries a scope returns r unchanged.
func WithScope(r *http.Request) *http.Request {
	if scopeFrom(r.Context()) != nil {
		return r
	}
	ctx := context.WithValue(r.Context(), scopeKey{}, &scope{ids: make(map[string]string)})
	return r.WithContext(ctx)
}

// HasScope reports whether r carries a request-scoped id cache
func HasScope(r *http.Request) bool {
	return scopeFrom(r.Context()) != nil
}

// Issued reports whether an id was issued while serving r. It is always false
// for requests without a scope.
func Issued(r *http.Request) bool {
	s := scopeFrom(r.Context())
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids) > 0
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}
