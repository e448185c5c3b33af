package chat

import (
	"errors"

	"github.com/docchat-dev/docchat/pkg/llm/provider"
	"github.com/docchat-dev/docchat/pkg/tokenizer"
)

// ErrOverBudget is returned when an assembled request would exceed the
// token budget. The caller must not submit and must leave session
// state untouched.
var ErrOverBudget = errors.New("assembled request exceeds token budget")

// Assembler builds the exact message list submitted for a question.
type Assembler struct {
	tok      tokenizer.Tokenizer
	preamble string
}

// NewAssembler creates an assembler. preamble introduces the attached
// summary content when one is injected into a request.
func NewAssembler(tok tokenizer.Tokenizer, preamble string) *Assembler {
	return &Assembler{tok: tok, preamble: preamble}
}

// BuildRequest assembles the ordered message list for a new user
// question:
//
//	1. the summary preamble as a user message, if a summary is attached
//	2. the session's system turn
//	3. the trailing history window, at most historyLimit turns
//	4. the new user question
//
// The result is checked against tokenBudget; an oversized request
// returns ErrOverBudget rather than being truncated.
func (a *Assembler) BuildRequest(state *SessionState, userText string, historyLimit, tokenBudget int) ([]provider.Message, error) {
	messages := make([]provider.Message, 0, historyLimit+3)

	if state.HasSummary() {
		messages = append(messages, provider.Message{
			Role:    RoleUser,
			Content: a.preamble + "\n\n" + state.SummaryContent,
		})
	}

	if len(state.History) > 0 && state.History[0].Role == RoleSystem {
		messages = append(messages, provider.Message{
			Role:    RoleSystem,
			Content: state.History[0].Content,
		})
	}

	window := state.History
	if len(window) > 0 {
		window = window[1:]
	}
	if historyLimit >= 0 && len(window) > historyLimit {
		window = window[len(window)-historyLimit:]
	}
	for _, t := range window {
		messages = append(messages, provider.Message{Role: t.Role, Content: t.Content})
	}

	messages = append(messages, provider.Message{Role: RoleUser, Content: userText})

	contents := make([]string, len(messages))
	for i, m := range messages {
		contents[i] = m.Content
	}
	if a.tok.CountConversation(contents) > tokenBudget {
		return nil, ErrOverBudget
	}

	return messages, nil
}
