package caching

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-redis/cache/v9"
)

// FileStore keeps one JSON-serialized value in a single file. Writes go
// through a temp file and rename so readers never observe a partial write.
// Staleness is judged by the caller from the returned modification time;
// the store itself never refuses a readable value.
type FileStore[T any] struct {
	path string
	mu   sync.Mutex
}

func NewFileStore[T any](path string) *FileStore[T] {
	return &FileStore[T]{path: path}
}

// Load returns the stored value and the time it was written. A missing or
// undecodable file is reported as cache.ErrCacheMiss.
func (s *FileStore[T]) Load(ctx context.Context) (T, time.Time, error) {
	var v T

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return v, time.Time{}, cache.ErrCacheMiss
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return v, time.Time{}, err
	}

	if err := json.Unmarshal(b, &v); err != nil {
		return v, time.Time{}, cache.ErrCacheMiss
	}

	return v, info.ModTime(), nil
}

func (s *FileStore[T]) Store(ctx context.Context, value T) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore[T]) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
