package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSummaryID is returned when a summary ID contains unsafe characters.
var ErrInvalidSummaryID = errors.New("invalid summary id: contains path separator or traversal sequence")

func validateID(id string) error {
	if id == "" {
		return errors.New("summary id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidSummaryID
	}
	return nil
}

// FileStore implements Store with one JSON file per summary:
//
//	<dir>/
//	  └── <uuid>.json
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a file-based summary store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("summary directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create summary directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save persists content under a fresh uuid.
func (s *FileStore) Save(content, originalFilename string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	id := uuid.NewString()

	rec := &Record{
		ID:        id,
		Timestamp: now,
		Content:   content,
		Metadata: Metadata{
			OriginalFilename: originalFilename,
			Timestamp:        now,
			SummaryID:        id,
		},
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	path := filepath.Join(s.dir, id+".json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	return rec, nil
}

// Load retrieves a summary by ID.
func (s *FileStore) Load(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json")) // #nosec G304 - id validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("read summary: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", id, err)
	}
	return &rec, nil
}

// List returns all summaries, newest first.
func (s *FileStore) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Record{}, nil
		}
		return nil, fmt.Errorf("read summary directory: %w", err)
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())) // #nosec G304 - names come from ReadDir
		if err != nil {
			log.Printf("warning: skipping unreadable summary %s: %v", entry.Name(), err)
			continue
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Printf("warning: skipping corrupt summary %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt().After(records[j].CreatedAt())
	})

	return records, nil
}

// Delete removes a summary. Reports whether it existed.
func (s *FileStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateID(id); err != nil {
		return false, err
	}

	err := os.Remove(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete summary: %w", err)
	}
	return true, nil
}
