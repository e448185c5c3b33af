package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore implements Store using one JSON file per session:
//
//	<dir>/
//	  └── <session-name>.json
type FileStore struct {
	dir    string
	mu     sync.RWMutex
	closed bool
}

// NewFileStore creates a file-based session store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

// Load retrieves a session by name.
func (f *FileStore) Load(ctx context.Context, name string) (*Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path(name)) // #nosec G304 - name validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRecord(), nil
		}
		return nil, fmt.Errorf("read session %s: %w", name, err)
	}

	return decodeRecord(name, data), nil
}

// Save creates or fully overwrites a session.
func (f *FileStore) Save(ctx context.Context, name string, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}
	if err := validateName(name); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(f.path(name), data, 0600); err != nil {
		return fmt.Errorf("write session %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a session has been saved.
func (f *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, ErrStorageClosed
	}
	if err := validateName(name); err != nil {
		return false, err
	}

	_, err := os.Stat(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat session %s: %w", name, err)
	}
	return true, nil
}

// List returns all session names in lexicographic order.
func (f *FileStore) List(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes a session. Reports whether it existed.
func (f *FileStore) Delete(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false, ErrStorageClosed
	}
	if err := validateName(name); err != nil {
		return false, err
	}

	err := os.Remove(f.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete session %s: %w", name, err)
	}
	return true, nil
}

// Close releases any resources held by the backend.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}
