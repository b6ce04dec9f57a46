package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/sh03m2a5h/filesession-go/internal/identity"
	"github.com/sh03m2a5h/filesession-go/internal/session/backend"
	"go.uber.org/zap"
)

// tempPrefix marks in-flight writes. Valid ids never start with a dot.
const tempPrefix = "."

// Store implements backend.Backend with one file per session id
type Store struct {
	dir          string
	atomicWrite  bool
	fileMode     fs.FileMode
	dirMode      fs.FileMode
	logger       *zap.Logger
	totalSaved   atomic.Int64
	totalDeleted atomic.Int64
}

// Config holds file session store configuration
type Config struct {
	// RootPath is the base directory supplied by the host environment
	RootPath string
	// SessionsPath is the directory under RootPath holding record files
	SessionsPath string
	// AtomicWrite writes to a temp file and renames it over the record
	AtomicWrite bool
	// FileMode for record files
	FileMode fs.FileMode
	// DirMode for created directories
	DirMode fs.FileMode
}

// DefaultConfig returns a default file store configuration
func DefaultConfig() *Config {
	return &Config{
		RootPath:     ".",
		SessionsPath: "sessions",
		AtomicWrite:  true,
		FileMode:     0600,
		DirMode:      0700,
	}
}

// NewStore creates a new file session store. The sessions directory is
// created lazily on the first save.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RootPath == "" {
		return nil, fmt.Errorf("root path is required for file session store")
	}

	sessionsPath := config.SessionsPath
	if sessionsPath == "" {
		sessionsPath = "sessions"
	}
	fileMode := config.FileMode
	if fileMode == 0 {
		fileMode = 0600
	}
	dirMode := config.DirMode
	if dirMode == 0 {
		dirMode = 0700
	}

	return &Store{
		dir:         filepath.Join(config.RootPath, sessionsPath),
		atomicWrite: config.AtomicWrite,
		fileMode:    fileMode,
		dirMode:     dirMode,
		logger:      logger,
	}, nil
}

// Dir returns the directory holding record files
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the record file path for id
func (s *Store) Path(id string) (string, error) {
	if err := identity.ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id), nil
}

// Load reads the record file for id
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	s.logger.Debug("Session file read", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

// Save writes the record file for id, creating parent directories as needed
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, s.dirMode); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	if s.atomicWrite {
		err = s.writeAtomic(path, id, data)
	} else {
		err = os.WriteFile(path, data, s.fileMode)
	}
	if err != nil {
		return err
	}

	s.totalSaved.Add(1)
	s.logger.Debug("Session file written",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Bool("atomic", s.atomicWrite),
	)
	return nil
}

// writeAtomic writes data to a temp file in the same directory and renames it
// over path, so readers never observe a partial record
func (s *Store) writeAtomic(path, id string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, tempPrefix+id+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, s.fileMode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Delete removes the record file for id
func (s *Store) Delete(ctx context.Context, id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	s.totalDeleted.Add(1)
	s.logger.Debug("Session file deleted", zap.String("path", path))
	return nil
}

// Exists checks if a record file exists for id
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	path, err := s.Path(id)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat session file: %w", err)
	}
	return true, nil
}

// List returns the ids of all record files
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if identity.ValidateID(name) != nil {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

// Stats returns file store statistics
func (s *Store) Stats(ctx context.Context) (*backend.Stats, error) {
	ids, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	return &backend.Stats{
		ActiveSessions: int64(len(ids)),
		TotalSaved:     s.totalSaved.Load(),
		TotalDeleted:   s.totalDeleted.Load(),
		Store:          "file",
		Info:           fmt.Sprintf("dir=%s", s.dir),
	}, nil
}

// Close is a no-op; the file store holds no open handles between calls
func (s *Store) Close() error {
	s.logger.Debug("File session store closed")
	return nil
}
