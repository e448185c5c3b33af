// Package chat holds the conversation state machine: the in-memory
// session, the request assembler that enforces the token budget, and
// the controller that executes user commands against the stores.
package chat

import (
	"github.com/docchat-dev/docchat/pkg/session"
	"github.com/docchat-dev/docchat/pkg/summary"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    string
	Content string
}

// SessionState is the live state of the current session. The first
// history element is always the system turn once normalized.
type SessionState struct {
	Name            string
	History         []Turn
	SummaryContent  string
	SummaryMetadata *summary.Metadata
}

// NewSessionState returns a fresh session seeded with the system turn.
func NewSessionState(name, systemMessage string) *SessionState {
	return &SessionState{
		Name:    name,
		History: []Turn{{Role: RoleSystem, Content: systemMessage}},
	}
}

// Normalize restores the system-turn-first invariant. An empty history
// becomes the single system turn; a history led by a non-system turn
// gets the system turn prepended.
func (s *SessionState) Normalize(systemMessage string) {
	if len(s.History) == 0 {
		s.History = []Turn{{Role: RoleSystem, Content: systemMessage}}
		return
	}
	if s.History[0].Role != RoleSystem {
		s.History = append([]Turn{{Role: RoleSystem, Content: systemMessage}}, s.History...)
	}
}

// HasSummary reports whether a summary is attached.
func (s *SessionState) HasSummary() bool {
	return s.SummaryContent != ""
}

// AttachSummary copies the summary into the session. The session keeps
// this snapshot even if the stored record is later deleted.
func (s *SessionState) AttachSummary(rec *summary.Record) {
	meta := rec.Metadata
	s.SummaryContent = rec.Content
	s.SummaryMetadata = &meta
}

// DetachSummary removes the attached summary.
func (s *SessionState) DetachSummary() {
	s.SummaryContent = ""
	s.SummaryMetadata = nil
}

// StateFromRecord builds session state from a persisted record and
// normalizes it.
func StateFromRecord(name string, rec *session.Record, systemMessage string) *SessionState {
	state := &SessionState{
		Name:            name,
		History:         make([]Turn, 0, len(rec.ChatHistory)+1),
		SummaryContent:  rec.ActiveSummaryContent,
		SummaryMetadata: rec.ActiveSummaryMetadata,
	}
	for _, m := range rec.ChatHistory {
		state.History = append(state.History, Turn{Role: m.Role, Content: m.Content})
	}
	state.Normalize(systemMessage)
	return state
}

// Record converts the state to its persisted form.
func (s *SessionState) Record() *session.Record {
	rec := &session.Record{
		ChatHistory:          make([]session.Message, 0, len(s.History)),
		ActiveSummaryContent: s.SummaryContent,
	}
	if s.SummaryMetadata != nil {
		meta := *s.SummaryMetadata
		rec.ActiveSummaryMetadata = &meta
	}
	for _, t := range s.History {
		rec.ChatHistory = append(rec.ChatHistory, session.Message{Role: t.Role, Content: t.Content})
	}
	return rec
}
