package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/minertopia/rollout/internal/domain"
	"github.com/minertopia/rollout/internal/infra/filesystem/json"
	"github.com/minertopia/rollout/internal/logger"
)

type (
	reader interface {
		ReadJSON(path string, target any) error
	}
	writer interface {
		WriteJSON(path string, data any) error
	}

	// Store is the durable name -> address record of a rollout. It is single-writer:
	// Open takes an advisory lock so a concurrent run fails instead of racing.
	Store struct {
		path   string
		lock   *flock.Flock
		reader reader
		writer writer
		logger *slog.Logger
	}
)

// Open locks the record at path for the lifetime of the Store.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreLocked, path)
	}

	return &Store{
		path:   path,
		lock:   lock,
		reader: json.NewReader(),
		writer: json.NewWriter(),
		logger: logger.Named("config_store").With("path", path),
	}, nil
}

// Path returns the location of the record file.
func (s *Store) Path() string {
	return s.path
}

// Close releases the advisory lock.
func (s *Store) Close() error {
	return s.lock.Unlock()
}

// Read loads the full record. A missing file is domain.ErrNotFound.
func (s *Store) Read() (domain.Record, error) {
	var rec domain.Record
	if err := s.reader.ReadJSON(s.path, &rec); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, s.path)
		case errors.Is(err, json.ErrMalformed):
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreCorruption, err)
		default:
			return nil, err
		}
	}
	if rec == nil {
		rec = domain.Record{}
	}

	return rec, nil
}

// ReadOrEmpty is Read for first-time deployment, where no record yet is fine.
func (s *Store) ReadOrEmpty() (domain.Record, error) {
	rec, err := s.Read()
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("no record yet, starting empty")
		return domain.Record{}, nil
	}
	return rec, err
}

// Write replaces the whole record atomically.
func (s *Store) Write(rec domain.Record) error {
	if err := s.writer.WriteJSON(s.path, rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}

	s.logger.With("entries", len(rec)).Debug("record persisted")

	return nil
}

// JournalPath is where the wiring journal for the record at path lives.
func JournalPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".wired.json"
}
