package chat

import (
	"errors"
	"strings"
	"testing"

	"github.com/docchat-dev/docchat/pkg/summary"
	"github.com/docchat-dev/docchat/pkg/tokenizer"
)

func TestBuildRequestOrdering(t *testing.T) {
	state := NewSessionState("s", "system prompt")
	state.History = append(state.History,
		Turn{Role: RoleUser, Content: "q1"},
		Turn{Role: RoleAssistant, Content: "a1"},
	)
	state.AttachSummary(&summary.Record{ID: "abc", Content: "doc summary"})

	a := NewAssembler(tokenizer.NewRuneTokenizer(), "context:")
	messages, err := a.BuildRequest(state, "q2", 15, 100000)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if len(messages) != 5 {
		t.Fatalf("len = %d, want 5", len(messages))
	}
	if messages[0].Role != RoleUser || !strings.Contains(messages[0].Content, "doc summary") {
		t.Errorf("message 0 should carry the summary, got %+v", messages[0])
	}
	if !strings.HasPrefix(messages[0].Content, "context:") {
		t.Errorf("summary message missing preamble: %q", messages[0].Content)
	}
	if messages[1].Role != RoleSystem || messages[1].Content != "system prompt" {
		t.Errorf("message 1 should be the system turn, got %+v", messages[1])
	}
	if messages[2].Content != "q1" || messages[3].Content != "a1" {
		t.Errorf("history window out of order: %+v", messages[2:4])
	}
	if messages[4].Role != RoleUser || messages[4].Content != "q2" {
		t.Errorf("last message should be the new question, got %+v", messages[4])
	}
}

func TestBuildRequestNoSummary(t *testing.T) {
	state := NewSessionState("s", "sys")

	a := NewAssembler(tokenizer.NewRuneTokenizer(), "context:")
	messages, err := a.BuildRequest(state, "hello", 15, 100000)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("len = %d, want 2", len(messages))
	}
	if messages[0].Role != RoleSystem {
		t.Errorf("first message should be system, got %+v", messages[0])
	}
}

func TestBuildRequestHistoryWindow(t *testing.T) {
	state := NewSessionState("s", "sys")
	for i := 0; i < 10; i++ {
		state.History = append(state.History,
			Turn{Role: RoleUser, Content: "u" + string(rune('0'+i))},
			Turn{Role: RoleAssistant, Content: "a" + string(rune('0'+i))},
		)
	}

	a := NewAssembler(tokenizer.NewRuneTokenizer(), "context:")
	messages, err := a.BuildRequest(state, "new", 4, 100000)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	// system + 4 window turns + new question
	if len(messages) != 6 {
		t.Fatalf("len = %d, want 6", len(messages))
	}
	// The window is the most recent turns in chronological order.
	want := []string{"u8", "a8", "u9", "a9"}
	for i, w := range want {
		if messages[1+i].Content != w {
			t.Errorf("window[%d] = %q, want %q", i, messages[1+i].Content, w)
		}
	}
}

func TestBuildRequestOverBudget(t *testing.T) {
	state := NewSessionState("s", "sys")

	a := NewAssembler(tokenizer.NewRuneTokenizer(), "context:")
	_, err := a.BuildRequest(state, strings.Repeat("x", 500), 15, 100)
	if !errors.Is(err, ErrOverBudget) {
		t.Fatalf("err = %v, want ErrOverBudget", err)
	}
}

func TestBuildRequestNeverExceedsBudgetOnSuccess(t *testing.T) {
	tok := tokenizer.NewRuneTokenizer()
	state := NewSessionState("s", "sys")
	state.History = append(state.History,
		Turn{Role: RoleUser, Content: "some question"},
		Turn{Role: RoleAssistant, Content: "some answer"},
	)

	a := NewAssembler(tok, "context:")
	budget := 200
	messages, err := a.BuildRequest(state, "follow-up", 15, budget)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	contents := make([]string, len(messages))
	for i, m := range messages {
		contents[i] = m.Content
	}
	if got := tok.CountConversation(contents); got > budget {
		t.Errorf("returned request costs %d tokens, budget %d", got, budget)
	}
}
