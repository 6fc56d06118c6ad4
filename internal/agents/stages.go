// Package agents implements the conversation stages on top of a chat model.
package agents

import (
	"context"
	"fmt"

	"github.com/8adimka/Go_Weather_Assistant/internal/chat/model"
	"github.com/8adimka/Go_Weather_Assistant/internal/llm"
	"github.com/8adimka/Go_Weather_Assistant/internal/team"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
)

// PromptSource resolves a system prompt by stage name.
type PromptSource interface {
	GetPrompt(ctx context.Context, name string) (string, error)
}

// Stage is a team.Stage that asks the chat model for its next message.
type Stage struct {
	name      string
	model     llm.ChatModel
	prompts   PromptSource
	tools     *registry.ToolRegistry
	summarize bool
}

// NewIntentParser extracts city and time from the query. It has no tools.
func NewIntentParser(m llm.ChatModel, prompts PromptSource) *Stage {
	return &Stage{name: team.IntentParser, model: m, prompts: prompts}
}

// NewWeatherAgent calls the weather tools and answers with their raw output.
func NewWeatherAgent(m llm.ChatModel, prompts PromptSource, tools *registry.ToolRegistry) *Stage {
	return &Stage{name: team.WeatherAgent, model: m, prompts: prompts, tools: tools, summarize: true}
}

// NewFormatter rewrites the retrieved report into a friendly reply.
func NewFormatter(m llm.ChatModel, prompts PromptSource) *Stage {
	return &Stage{name: team.Formatter, model: m, prompts: prompts}
}

// NewWeatherBot answers on its own, calling tools and then replying in prose.
func NewWeatherBot(m llm.ChatModel, prompts PromptSource, tools *registry.ToolRegistry) *Stage {
	return &Stage{name: team.SingleAgent, model: m, prompts: prompts, tools: tools}
}

// TeamStages returns the three stages of the default pipeline.
func TeamStages(m llm.ChatModel, prompts PromptSource, tools *registry.ToolRegistry) []team.Stage {
	return []team.Stage{
		NewIntentParser(m, prompts),
		NewWeatherAgent(m, prompts, tools),
		NewFormatter(m, prompts),
	}
}

func (s *Stage) Name() string { return s.name }

func (s *Stage) Act(ctx context.Context, history []team.Message) (team.Message, error) {
	system, err := s.prompts.GetPrompt(ctx, s.promptName())
	if err != nil {
		return team.Message{}, err
	}

	resp, err := s.model.Complete(ctx, llm.Request{
		Stage:              s.name,
		System:             system,
		Messages:           toLLMMessages(s.name, history),
		Tools:              s.tools,
		SummarizeToolCalls: s.summarize,
	})
	if err != nil {
		return team.Message{}, fmt.Errorf("%s: %w", s.name, err)
	}
	return team.Message{Source: s.name, Content: resp.Content}, nil
}

func (s *Stage) promptName() string {
	switch s.name {
	case team.IntentParser:
		return model.PromptNameIntentParser
	case team.WeatherAgent:
		return model.PromptNameWeatherAgent
	case team.Formatter:
		return model.PromptNameFormatter
	default:
		return model.PromptNameWeatherBot
	}
}

// toLLMMessages presents the stage's own turns as assistant messages and
// everyone else's as user messages.
func toLLMMessages(self string, history []team.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Source == self {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
