package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
	"github.com/8adimka/Go_Weather_Assistant/internal/retry"
	"github.com/8adimka/Go_Weather_Assistant/internal/tokens"
	"github.com/8adimka/Go_Weather_Assistant/internal/tools/registry"
)

// ErrTooManyToolRounds is returned when the model keeps calling tools past the
// round limit.
var ErrTooManyToolRounds = errors.New("too many tool calls, unable to generate reply")

// OpenAIModel implements ChatModel on the Chat Completions API.
type OpenAIModel struct {
	cli              openai.Client
	model            string
	retryPolicy      retry.Policy
	metrics          *metrics.Metrics
	estimator        TokenEstimator
	maxContextTokens int
}

type Option func(*openAIOptions)

type openAIOptions struct {
	httpClient       *http.Client
	retryPolicy      retry.Policy
	metrics          *metrics.Metrics
	estimator        TokenEstimator
	maxContextTokens int
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *openAIOptions) { o.httpClient = c }
}

func WithRetry(p retry.Policy) Option {
	return func(o *openAIOptions) { o.retryPolicy = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *openAIOptions) { o.metrics = m }
}

// WithTokenEstimator enables prompt size accounting against maxContextTokens.
func WithTokenEstimator(e TokenEstimator, maxContextTokens int) Option {
	return func(o *openAIOptions) {
		o.estimator = e
		o.maxContextTokens = maxContextTokens
	}
}

// NewOpenAIModel builds a client. An empty baseURL keeps the SDK default, which
// lets OpenAI-compatible endpoints be swapped in through configuration.
func NewOpenAIModel(apiKey, baseURL, model string, opts ...Option) *OpenAIModel {
	o := openAIOptions{
		httpClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		retryPolicy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		// Retries are ours so they can be logged and bounded per stage.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIModel{
		cli:              openai.NewClient(reqOpts...),
		model:            model,
		retryPolicy:      o.retryPolicy,
		metrics:          o.metrics,
		estimator:        o.estimator,
		maxContextTokens: o.maxContextTokens,
	}
}

// Complete runs the prompt, executing tool calls through req.Tools until the
// model answers in text.
func (m *OpenAIModel) Complete(ctx context.Context, req Request) (Response, error) {
	msgs := m.buildMessages(ctx, req)
	tools := toolParams(req.Tools)

	rounds := req.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}

	policy := m.retryPolicy
	policy.OnRetry = func(ctx context.Context, attempt int, _ error) {
		m.metrics.RecordInferenceRetry(ctx, req.Stage, attempt)
	}

	var out Response
	for i := 0; i <= rounds; i++ {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(m.model),
			Messages: msgs,
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		start := time.Now()
		resp, err := retry.DoWithResult(ctx, policy, func() (*openai.ChatCompletion, error) {
			return m.cli.Chat.Completions.New(ctx, params)
		})
		duration := time.Since(start)
		m.metrics.RecordInference(ctx, req.Stage, m.model, duration, err)
		if err != nil {
			return out, fmt.Errorf("%s completion: %w", req.Stage, err)
		}
		if len(resp.Choices) == 0 {
			return out, fmt.Errorf("%s completion: no choices returned", req.Stage)
		}

		out.PromptTokens += resp.Usage.PromptTokens
		out.CompletionTokens += resp.Usage.CompletionTokens
		m.metrics.RecordTokenUsage(ctx, req.Stage, m.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		message := resp.Choices[0].Message
		slog.InfoContext(ctx, "OpenAI API call completed",
			"stage", req.Stage,
			"model", m.model,
			"round", i+1,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds(),
			"has_tool_calls", len(message.ToolCalls) > 0,
		)

		if len(message.ToolCalls) == 0 || req.Tools == nil {
			out.Content = message.Content
			return out, nil
		}

		msgs = append(msgs, message.ToParam())
		results := make([]string, 0, len(message.ToolCalls))
		for _, call := range message.ToolCalls {
			out.ToolCalls++
			slog.InfoContext(ctx, "Tool call received",
				"stage", req.Stage,
				"tool_name", call.Function.Name,
				"args", call.Function.Arguments,
			)

			result, err := req.Tools.Invoke(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				slog.ErrorContext(ctx, "Tool execution failed", "tool_name", call.Function.Name, "error", err)
				result = "工具执行失败: " + err.Error()
			}
			results = append(results, result)
			msgs = append(msgs, openai.ToolMessage(result, call.ID))
		}

		if req.SummarizeToolCalls {
			out.Content = strings.Join(results, "\n")
			return out, nil
		}
	}

	return out, ErrTooManyToolRounds
}

func (m *OpenAIModel) buildMessages(ctx context.Context, req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	counted := make([]tokens.Message, 0, len(req.Messages)+1)

	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
		counted = append(counted, tokens.Message{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(msg.Content))
		default:
			msgs = append(msgs, openai.UserMessage(msg.Content))
		}
		counted = append(counted, tokens.Message{Role: string(msg.Role), Content: msg.Content})
	}

	if m.estimator != nil {
		n := m.estimator.CountMessages(ctx, counted, m.model)
		m.metrics.RecordContextTokens(ctx, req.Stage, int64(n))
		if m.maxContextTokens > 0 && n > m.maxContextTokens {
			slog.WarnContext(ctx, "Prompt exceeds configured context budget",
				"stage", req.Stage, "estimated_tokens", n, "max_context_tokens", m.maxContextTokens)
		}
	}
	return msgs
}

func toolParams(reg *registry.ToolRegistry) []openai.ChatCompletionToolUnionParam {
	if reg == nil {
		return nil
	}
	var tools []openai.ChatCompletionToolUnionParam
	for _, tool := range reg.GetAll() {
		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Name(),
			Description: openai.String(tool.Description()),
			Parameters:  openai.FunctionParameters(tool.Parameters()),
		}))
	}
	return tools
}

var _ ChatModel = (*OpenAIModel)(nil)
