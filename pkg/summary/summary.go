// Package summary persists document summaries produced from ingested
// PDFs. Summaries outlive chat sessions; a session references one by
// value, so deleting a stored summary never breaks an active chat.
package summary

import (
	"errors"
	"time"
)

// ErrSummaryNotFound is returned when a summary doesn't exist.
var ErrSummaryNotFound = errors.New("summary not found")

// Metadata describes where a summary came from.
type Metadata struct {
	OriginalFilename string `json:"original_filename"`
	Timestamp        string `json:"timestamp"`
	SummaryID        string `json:"summary_id"`
}

// Record is a stored summary.
type Record struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Content   string   `json:"content"`
	Metadata  Metadata `json:"metadata"`
}

// CreatedAt parses the record timestamp. Zero time if unparseable.
func (r *Record) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Store abstracts summary persistence.
type Store interface {
	// Save persists content with the given source filename, assigning
	// the record id and timestamp.
	Save(content, originalFilename string) (*Record, error)

	// Load retrieves a summary by ID.
	// Returns ErrSummaryNotFound if the summary doesn't exist.
	Load(id string) (*Record, error)

	// List returns all summaries, newest first. Unreadable records are
	// skipped with a warning.
	List() ([]*Record, error)

	// Delete removes a summary. Reports whether it existed.
	Delete(id string) (bool, error)
}
