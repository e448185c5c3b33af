package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/docchat-dev/docchat/pkg/config"
	"github.com/docchat-dev/docchat/pkg/llm/provider"
	"github.com/docchat-dev/docchat/pkg/pdf"
	"github.com/docchat-dev/docchat/pkg/session"
	"github.com/docchat-dev/docchat/pkg/summary"
	"github.com/docchat-dev/docchat/pkg/tokenizer"
)

// Controller errors surfaced to the command layer.
var (
	// ErrSessionNotFound is returned when a named session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrActiveSession is returned when deleting the current session.
	ErrActiveSession = errors.New("cannot delete the currently active session")
	// ErrIndexOutOfRange is returned for a list index outside the listing.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrEmptyArgument is returned when a required argument is missing.
	ErrEmptyArgument = errors.New("missing required argument")
)

// Safety margins for the summarization flow, in tokens. The prompt
// margin covers protocol overhead when sizing the truncation target;
// the final margin is the last check before submission.
const (
	promptSafetyMargin = 200
	finalSafetyMargin  = 100
)

const summarizeSystemPrompt = "You produce concise, faithful summaries of documents."

const summarizeUserInstruction = "Summarize the following document. Capture the " +
	"main topics, key facts, and conclusions so the summary can stand in for the " +
	"document in later questions. Document text:\n\n"

// ExtractFunc extracts plain text from a PDF file.
type ExtractFunc func(path string) (string, error)

// Controller owns the single current session and executes every
// command against the stores. All mutation of session state goes
// through its methods.
type Controller struct {
	cfg       *config.Config
	provider  provider.Provider
	sessions  session.Store
	summaries summary.Store
	exporter  *pdf.Exporter
	tok       tokenizer.Tokenizer
	assembler *Assembler
	extract   ExtractFunc

	state *SessionState
}

// NewController loads the default session and returns a ready
// controller.
func NewController(ctx context.Context, cfg *config.Config, prov provider.Provider, sessions session.Store, summaries summary.Store, exporter *pdf.Exporter, tok tokenizer.Tokenizer) (*Controller, error) {
	c := &Controller{
		cfg:       cfg,
		provider:  prov,
		sessions:  sessions,
		summaries: summaries,
		exporter:  exporter,
		tok:       tok,
		assembler: NewAssembler(tok, cfg.SummaryInstruction),
		extract:   pdf.ExtractText,
	}

	rec, err := sessions.Load(ctx, cfg.DefaultSession)
	if err != nil {
		return nil, fmt.Errorf("load default session: %w", err)
	}
	c.state = StateFromRecord(cfg.DefaultSession, rec, cfg.SystemMessage)

	return c, nil
}

// Current returns the live session state.
func (c *Controller) Current() *SessionState {
	return c.state
}

// Persist saves the current session.
func (c *Controller) Persist(ctx context.Context) error {
	return c.sessions.Save(ctx, c.state.Name, c.state.Record())
}

// Ask runs one question/answer exchange. On success the user and
// assistant turns are appended and the session persisted. An
// over-budget request or a provider failure leaves the session
// untouched so the user may retry.
func (c *Controller) Ask(ctx context.Context, question string) (string, error) {
	if question == "" {
		return "", ErrEmptyArgument
	}

	messages, err := c.assembler.BuildRequest(c.state, question, c.cfg.HistoryLimit, c.cfg.MaxTokenLimit)
	if err != nil {
		return "", err
	}

	resp, err := c.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages:    messages,
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	c.state.History = append(c.state.History,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: resp.Content},
	)

	if err := c.Persist(ctx); err != nil {
		return resp.Content, fmt.Errorf("save session: %w", err)
	}
	return resp.Content, nil
}

// IngestPDF extracts a PDF, summarizes it within the token budget,
// stores the summary, and attaches it to the current session.
func (c *Controller) IngestPDF(ctx context.Context, path string) (*summary.Record, error) {
	if path == "" {
		return nil, ErrEmptyArgument
	}

	text, err := c.extract(path)
	if err != nil {
		return nil, fmt.Errorf("pdf extraction failed: %w", err)
	}

	userContent := summarizeUserInstruction + text
	promptTokens := c.tok.CountConversation([]string{summarizeSystemPrompt, userContent})

	maxPromptTokens := c.cfg.MaxTokenLimit - c.cfg.SummaryMaxTokens - promptSafetyMargin
	if promptTokens > maxPromptTokens {
		log.Printf("document needs %d prompt tokens, truncating to %d", promptTokens, maxPromptTokens)
		text = c.tok.Truncate(text, maxPromptTokens)
		userContent = summarizeUserInstruction + text
		promptTokens = c.tok.CountConversation([]string{summarizeSystemPrompt, userContent})
	}

	if promptTokens > c.cfg.MaxTokenLimit-finalSafetyMargin {
		return nil, fmt.Errorf("document too large to summarize: %d tokens after truncation", promptTokens)
	}

	resp, err := c.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: RoleSystem, Content: summarizeSystemPrompt},
			{Role: RoleUser, Content: userContent},
		},
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.SummaryMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}

	rec, err := c.summaries.Save(resp.Content, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}

	c.attach(rec)
	if err := c.Persist(ctx); err != nil {
		return rec, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

// attach snapshots the summary into the session and records the event
// in the history.
func (c *Controller) attach(rec *summary.Record) {
	c.state.AttachSummary(rec)
	c.state.History = append(c.state.History, Turn{
		Role:    RoleSystem,
		Content: fmt.Sprintf("Summary of %q loaded into the conversation context.", rec.Metadata.OriginalFilename),
	})
}

// NewSession creates (or overwrites) a named session and switches to it.
func (c *Controller) NewSession(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyArgument
	}

	state := NewSessionState(name, c.cfg.SystemMessage)
	if err := c.sessions.Save(ctx, name, state.Record()); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.state = state
	return nil
}

// LoadSession saves the current session and switches to an existing one.
func (c *Controller) LoadSession(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyArgument
	}

	exists, err := c.sessions.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}

	if err := c.Persist(ctx); err != nil {
		return fmt.Errorf("save current session: %w", err)
	}

	rec, err := c.sessions.Load(ctx, name)
	if err != nil {
		return err
	}
	c.state = StateFromRecord(name, rec, c.cfg.SystemMessage)
	return nil
}

// ListSessions returns all saved session names.
func (c *Controller) ListSessions(ctx context.Context) ([]string, error) {
	return c.sessions.List(ctx)
}

// DeleteSession removes a saved session. The current session is
// protected.
func (c *Controller) DeleteSession(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyArgument
	}
	if name == c.state.Name {
		return ErrActiveSession
	}

	deleted, err := c.sessions.Delete(ctx, name)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}

// ListSummaries returns stored summaries, newest first.
func (c *Controller) ListSummaries() ([]*summary.Record, error) {
	return c.summaries.List()
}

// resolveSummary maps an id-or-index argument to a stored record.
func (c *Controller) resolveSummary(arg string) (*summary.Record, error) {
	res := Resolve(arg)
	switch res.Kind {
	case ByIndex:
		records, err := c.summaries.List()
		if err != nil {
			return nil, err
		}
		if res.Index < 1 || res.Index > len(records) {
			return nil, fmt.Errorf("%w: %d (have %d summaries)", ErrIndexOutOfRange, res.Index, len(records))
		}
		return records[res.Index-1], nil
	case ByID:
		return c.summaries.Load(res.ID)
	default:
		return nil, ErrEmptyArgument
	}
}

// LoadSummary attaches a stored summary to the current session by
// id or 1-based list index.
func (c *Controller) LoadSummary(ctx context.Context, arg string) (*summary.Record, error) {
	rec, err := c.resolveSummary(arg)
	if err != nil {
		return nil, err
	}

	c.attach(rec)
	if err := c.Persist(ctx); err != nil {
		return rec, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

// DeleteSummary removes a stored summary by id or 1-based list index.
// If it is attached to the current session it is detached first, so no
// dangling reference survives the delete.
func (c *Controller) DeleteSummary(ctx context.Context, arg string) error {
	rec, err := c.resolveSummary(arg)
	if err != nil {
		return err
	}

	detached := false
	if c.state.SummaryMetadata != nil && c.state.SummaryMetadata.SummaryID == rec.ID {
		c.state.DetachSummary()
		detached = true
	}

	deleted, err := c.summaries.Delete(rec.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", summary.ErrSummaryNotFound, rec.ID)
	}

	if detached {
		if err := c.Persist(ctx); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

// ClearContext resets the in-memory history to the system turn and
// detaches any summary. The stored record is untouched until the next
// persist.
func (c *Controller) ClearContext() {
	c.state.History = []Turn{{Role: RoleSystem, Content: c.cfg.SystemMessage}}
	c.state.DetachSummary()
}

// ExportChat renders the current conversation to a named PDF and
// returns the file path.
func (c *Controller) ExportChat(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyArgument
	}
	return c.exporter.Export(c.state.Name, name, c.state.Record().ChatHistory)
}

// ListExports lists exports for a session; empty means the current one.
func (c *Controller) ListExports(sessionName string) ([]string, error) {
	if sessionName == "" {
		sessionName = c.state.Name
	}
	return c.exporter.List(sessionName)
}

// ExportPath returns the file path of an existing export of the
// current session.
func (c *Controller) ExportPath(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyArgument
	}
	return c.exporter.Path(c.state.Name, name)
}

// DeleteExport removes an export of the current session.
func (c *Controller) DeleteExport(name string) error {
	if name == "" {
		return ErrEmptyArgument
	}

	deleted, err := c.exporter.Delete(c.state.Name, name)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", pdf.ErrExportNotFound, name)
	}
	return nil
}

// SetExtractor overrides the PDF text extractor. Tests use this to
// avoid real PDF parsing.
func (c *Controller) SetExtractor(fn ExtractFunc) {
	c.extract = fn
}
