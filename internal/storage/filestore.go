package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one <key>.json file per record under <base>/<collection>/.
type FileStore struct {
	base string
}

// NewFileStore creates the base data directory if needed and returns a store
// rooted there.
func NewFileStore(base string) (*FileStore, error) {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", base, err)
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) path(collection, key string) (string, error) {
	if !validKey(collection) || !validKey(key) {
		return "", errInvalidKey
	}
	return filepath.Join(s.base, collection, key+".json"), nil
}

func (s *FileStore) Create(ctx context.Context, collection, key string, record any) error {
	p, err := s.path(collection, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	// O_EXCL is the uniqueness guarantee: an existing record is never
	// silently overwritten.
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create %s/%s: %w", collection, key, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return f.Close()
}

func (s *FileStore) Read(ctx context.Context, collection, key string, out any) error {
	p, err := s.path(collection, key)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %s/%s: %v", ErrDecode, collection, key, err)
	}
	return nil
}

func (s *FileStore) Update(ctx context.Context, collection, key string, record any) error {
	p, err := s.path(collection, key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	// O_TRUNC without O_CREATE: the record must already exist, and the new
	// content fully replaces the old.
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("open %s/%s: %w", collection, key, err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write %s/%s: %w", collection, key, err)
	}
	return f.Close()
}

func (s *FileStore) Delete(ctx context.Context, collection, key string) error {
	p, err := s.path(collection, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, collection string) ([]string, error) {
	if !validKey(collection) {
		return nil, errInvalidKey
	}
	entries, err := os.ReadDir(filepath.Join(s.base, collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// a collection nothing was ever written to is just empty
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}
