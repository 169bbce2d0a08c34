package contextengineering

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
)

// TokenCounter counts tokens with a tiktoken encoding, falling back to a
// character heuristic when the encoding cannot be loaded (e.g. offline).
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a counter for the given model. An empty model uses
// the cl100k_base encoding.
func NewTokenCounter(model string) *TokenCounter {
	var enc *tiktoken.Tiktoken
	var err error
	if model == "" {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	} else {
		enc, err = tiktoken.EncodingForModel(model)
	}
	if err != nil {
		enc = nil
	}
	return &TokenCounter{encoding: enc}
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	if c.encoding == nil {
		// Rough estimate: one token per four characters.
		return (len(text) + 3) / 4
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// CountMessages returns the total token count of a transcript.
func (c *TokenCounter) CountMessages(messages []llms.MessageContent) int {
	total := 0
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				total += c.Count(text.Text)
			}
		}
	}
	return total
}
