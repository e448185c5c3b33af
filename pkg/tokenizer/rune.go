package tokenizer

import "unicode/utf8"

// RuneTokenizer treats every rune as one token. It needs no encoding
// tables, which keeps tests hermetic and gives the CLI a working
// fallback when the tiktoken data cannot be loaded.
type RuneTokenizer struct{}

// NewRuneTokenizer returns a rune-per-token tokenizer
func NewRuneTokenizer() *RuneTokenizer {
	return &RuneTokenizer{}
}

// CountText returns the number of runes in s
func (r *RuneTokenizer) CountText(s string) int {
	return utf8.RuneCountInString(s)
}

// CountConversation sums message costs plus the reply primer.
func (r *RuneTokenizer) CountConversation(contents []string) int {
	return conversationCost(r.CountText, contents)
}

// Encode converts text to rune values
func (r *RuneTokenizer) Encode(s string) []int {
	tokens := make([]int, 0, len(s))
	for _, ru := range s {
		tokens = append(tokens, int(ru))
	}
	return tokens
}

// Decode converts rune values back to text
func (r *RuneTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, t := range tokens {
		runes[i] = rune(t)
	}
	return string(runes)
}

// Truncate cuts s to at most maxTokens runes
func (r *RuneTokenizer) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxTokens {
		return s
	}
	return string(runes[:maxTokens])
}

func conversationCost(count func(string) int, contents []string) int {
	total := 0
	for _, content := range contents {
		total += tokensPerMessage + count(content)
	}
	return total + tokensPerReply
}
