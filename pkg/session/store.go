// Package session persists chat sessions. A session is a named record
// holding the chat history and the summary attached to it, if any.
// Loading never fails the chat: a missing session yields a fresh
// default record, and damaged fields are coerced back to usable values
// with a logged warning.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"github.com/docchat-dev/docchat/pkg/summary"
)

// Common errors for storage operations.
var (
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
	// ErrInvalidSessionName is returned when a session name contains unsafe characters.
	ErrInvalidSessionName = errors.New("invalid session name: contains path separator or traversal sequence")
)

// validateName checks that a session name is safe to use as a path or
// key component.
func validateName(name string) error {
	if name == "" {
		return errors.New("session name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrInvalidSessionName
	}
	return nil
}

// Message is one stored chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is the persisted state of one session.
type Record struct {
	ChatHistory           []Message         `json:"chat_history"`
	ActiveSummaryContent  string            `json:"active_api_summary_content,omitempty"`
	ActiveSummaryMetadata *summary.Metadata `json:"active_api_summary_metadata,omitempty"`
}

// DefaultRecord returns an empty session record.
func DefaultRecord() *Record {
	return &Record{ChatHistory: []Message{}}
}

// HasSummary reports whether a summary is attached.
func (r *Record) HasSummary() bool {
	return r.ActiveSummaryContent != ""
}

// Store abstracts session persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load retrieves a session by name. A missing session yields a
	// default record; damaged records are coerced with a warning.
	Load(ctx context.Context, name string) (*Record, error)

	// Save creates or fully overwrites a session.
	Save(ctx context.Context, name string, rec *Record) error

	// Exists reports whether a session has been saved.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns all session names in lexicographic order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a session. Reports whether it existed.
	Delete(ctx context.Context, name string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error
}

// decodeRecord parses stored session bytes, salvaging what it can.
// Field-level damage resets that field; undecodable payloads reset the
// whole record. Every coercion is logged.
func decodeRecord(name string, data []byte) *Record {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("warning: session %q is corrupt, starting fresh: %v", name, err)
		return DefaultRecord()
	}

	rec := DefaultRecord()

	if histRaw, ok := raw["chat_history"]; ok {
		var history []Message
		if err := json.Unmarshal(histRaw, &history); err != nil {
			log.Printf("warning: session %q has invalid chat history, resetting it: %v", name, err)
		} else if history != nil {
			rec.ChatHistory = history
		}
	}

	if contentRaw, ok := raw["active_api_summary_content"]; ok {
		var content string
		if err := json.Unmarshal(contentRaw, &content); err != nil {
			log.Printf("warning: session %q has invalid summary content, detaching summary: %v", name, err)
		} else {
			rec.ActiveSummaryContent = content
		}
	}

	if metaRaw, ok := raw["active_api_summary_metadata"]; ok {
		var meta *summary.Metadata
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			log.Printf("warning: session %q has invalid summary metadata, dropping it: %v", name, err)
		} else {
			rec.ActiveSummaryMetadata = meta
		}
	}

	// Metadata without content is stale; content decides attachment.
	if rec.ActiveSummaryContent == "" {
		rec.ActiveSummaryMetadata = nil
	}

	return rec
}
