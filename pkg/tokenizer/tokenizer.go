// Package tokenizer counts and slices text in model tokens. Budget
// decisions elsewhere in docchat (history windows, prompt truncation)
// are made in tokens, not bytes, so they need the same tokenization the
// model applies.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Per-message framing overhead and the trailing assistant primer, as
// measured for the gpt-4o family of chat formats.
const (
	tokensPerMessage = 3
	tokensPerReply   = 3
)

// Tokenizer converts between text and model tokens.
type Tokenizer interface {
	// CountText returns the number of tokens in s.
	CountText(s string) int

	// CountConversation returns the total token cost of submitting the
	// given message contents, including per-message framing overhead.
	CountConversation(contents []string) int

	// Encode converts text to token ids.
	Encode(s string) []int

	// Decode converts token ids back to text.
	Decode(tokens []int) string

	// Truncate returns s cut to at most maxTokens tokens.
	Truncate(s string, maxTokens int) string
}

// Codec is a Tokenizer backed by a tiktoken encoding.
type Codec struct {
	enc *tiktoken.Tiktoken
}

// NewCodec returns a codec for the given model. Models the tiktoken
// tables do not know fall back to cl100k_base.
func NewCodec(model string) (*Codec, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load encoding: %w", err)
		}
	}
	return &Codec{enc: enc}, nil
}

// CountText returns the number of tokens in s
func (c *Codec) CountText(s string) int {
	if s == "" {
		return 0
	}
	return len(c.enc.Encode(s, nil, nil))
}

// CountConversation sums message costs plus the reply primer.
func (c *Codec) CountConversation(contents []string) int {
	return conversationCost(c.CountText, contents)
}

// Encode converts text to token ids
func (c *Codec) Encode(s string) []int {
	return c.enc.Encode(s, nil, nil)
}

// Decode converts token ids back to text
func (c *Codec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// Truncate cuts s to at most maxTokens tokens, decoding the prefix.
func (c *Codec) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := c.enc.Encode(s, nil, nil)
	if len(tokens) <= maxTokens {
		return s
	}
	return c.enc.Decode(tokens[:maxTokens])
}
