package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter provides token counting using tiktoken encodings
type TokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

// NewTokenCounter creates a new token counter
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encoders: make(map[string]*tiktoken.Tiktoken),
	}
}

// Message represents a conversation message for token counting
type Message struct {
	Role    string
	Content string
}

// Count counts tokens for a given text and model. If no encoding can be
// loaded it falls back to a character-based estimate.
func (tc *TokenCounter) Count(ctx context.Context, text string, model string) int {
	encoder, err := tc.getEncoder(model)
	if err != nil {
		slog.WarnContext(ctx, "Failed to get encoder, using fallback estimation",
			"model", model, "error", err)
		return fallbackEstimate(text)
	}
	return len(encoder.Encode(text, nil, nil))
}

// CountMessages counts tokens for a chat prompt
func (tc *TokenCounter) CountMessages(ctx context.Context, messages []Message, model string) int {
	total := 0
	for _, msg := range messages {
		// Role and per-message framing cost roughly four tokens.
		total += tc.Count(ctx, msg.Content, model) + tc.Count(ctx, msg.Role, model) + 4
	}
	// Reply priming.
	return total + 3
}

func (tc *TokenCounter) getEncoder(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if encoder, ok := tc.encoders[name]; ok {
		return encoder, nil
	}

	encoder, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	tc.encoders[name] = encoder
	return encoder, nil
}

// encodingName maps OpenAI model names to tiktoken encoding names
func encodingName(model string) string {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

// fallbackEstimate treats every CJK rune as one token and every three runes
// of anything else as one.
func fallbackEstimate(text string) int {
	runes := utf8.RuneCountInString(text)
	multibyte := 0
	for _, r := range text {
		if r >= 0x2E80 {
			multibyte++
		}
	}
	ascii := runes - multibyte
	return multibyte + ascii/3 + 1
}
