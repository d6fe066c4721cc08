package prefs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps preferences in a single JSON document on disk. The
// document is read once when the store is opened and rewritten on every
// change.
type FileStore struct {
	path   string
	cache  *MemoryStore
	logger *slog.Logger
	mu     sync.Mutex // serialises writes to path
}

// NewFileStore opens the JSON document at path. A missing file starts an
// empty store; a corrupt file is discarded with a warning. The returned
// error only reports that the directory is unusable.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, StorageError{Op: "open", Cause: err}
	}
	s := &FileStore{
		path:   path,
		cache:  NewMemoryStore(),
		logger: logger,
	}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to read preferences", "path", s.path, "error", StorageError{Op: "read", Cause: err})
		return
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		s.logger.Warn("discarding corrupt preferences", "path", s.path, "error", StorageError{Op: "decode", Cause: err})
		return
	}
	for k, v := range values {
		s.cache.Set(k, v)
	}
}

func (s *FileStore) Get(key string) (string, bool) {
	return s.cache.Get(key)
}

func (s *FileStore) Set(key, value string) {
	s.cache.Set(key, value)
	s.flush(key)
}

func (s *FileStore) Remove(key string) {
	s.cache.Remove(key)
	s.flush(key)
}

// Path returns the location of the JSON document.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) flush(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(s.cache.snapshot()); err != nil {
		s.logger.Warn("failed to persist preference", "path", s.path, "error", StorageError{Op: "write", Key: key, Cause: err})
	}
}

func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
