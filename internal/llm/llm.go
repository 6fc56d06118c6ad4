// Package llm is the inference boundary. Stages talk to a ChatModel and never
// see provider types.
package llm

import (
	"context"

	"github.com/8adimka/Go_Weather_Assistant/internal/tokens"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is one completion. When Tools is set the model may call them for up
// to MaxToolRounds rounds before it must answer.
type Request struct {
	Stage         string
	System        string
	Messages      []Message
	Tools         *registry.ToolRegistry
	MaxToolRounds int
	// SummarizeToolCalls ends the completion after the first round of tool
	// calls and answers with the tool outputs verbatim, one per line.
	SummarizeToolCalls bool
}

// Response is the final assistant text plus accounting.
type Response struct {
	Content          string
	ToolCalls        int
	PromptTokens     int64
	CompletionTokens int64
}

// ChatModel completes a prompt.
type ChatModel interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// TokenEstimator estimates prompt size before a request is sent.
type TokenEstimator interface {
	CountMessages(ctx context.Context, messages []tokens.Message, model string) int
}

// DefaultMaxToolRounds bounds the tool-calling loop.
const DefaultMaxToolRounds = 5
