package team

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
	"github.com/8adimka/Go_Weather_Assistant/internal/metrics"
)

// FailureReply is the reply when no stage produced a message.
const FailureReply = "协作查询失败"

// Stage is one turn-taking participant.
type Stage interface {
	Name() string
	Act(ctx context.Context, history []Message) (Message, error)
}

// Result is the outcome of one run. On error it holds the partial transcript.
type Result struct {
	ID         string    `json:"id"`
	Messages   []Message `json:"messages"`
	StopReason Reason    `json:"stop_reason,omitempty"`
	Reply      string    `json:"reply"`
}

// Team drives a Coordinator over a fixed set of stages.
type Team struct {
	coordinator *Coordinator
	stages      map[string]Stage
	tracer      trace.Tracer
	metrics     *metrics.Metrics
}

type Option func(*Team)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Team) { t.metrics = m }
}

func WithTracer(tr trace.Tracer) Option {
	return func(t *Team) { t.tracer = tr }
}

// New checks that every stage the coordinator can route to is present.
func New(coordinator *Coordinator, stages []Stage, opts ...Option) (*Team, error) {
	t := &Team{
		coordinator: coordinator,
		stages:      make(map[string]Stage, len(stages)),
		tracer:      otel.Tracer("github.com/8adimka/Go_Weather_Assistant/internal/team"),
	}
	for _, s := range stages {
		t.stages[s.Name()] = s
	}
	for _, name := range coordinator.Config().Stages() {
		if _, ok := t.stages[name]; !ok {
			return nil, errorsx.Wrapf(errorsx.ErrConfiguration, "no stage registered for %q", name)
		}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Run answers task. A stage error or a protocol violation aborts the run;
// nothing is retried and the partial transcript is returned with the error.
func (t *Team) Run(ctx context.Context, task string) (*Result, error) {
	res := &Result{
		ID:       uuid.NewString(),
		Messages: []Message{{Source: SourceUser, Content: task}},
	}

	ctx, span := t.tracer.Start(ctx, "team.Run", trace.WithAttributes(attribute.String("run.id", res.ID)))
	defer span.End()

	logger := slog.With("run_id", res.ID)
	logger.InfoContext(ctx, "Conversation started")

	for turn := 0; ; turn++ {
		d, err := t.coordinator.SelectNext(res.Messages)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "protocol violation")
			logger.ErrorContext(ctx, "Conversation aborted", "turn", turn, "error", err)
			return t.finish(res), err
		}

		if d.Terminated() {
			t.metrics.RecordDecision(ctx, "terminate", string(d.Reason))
			res.StopReason = d.Reason
			logger.InfoContext(ctx, "Conversation finished", "reason", d.Reason, "messages", len(res.Messages))
			return t.finish(res), nil
		}
		t.metrics.RecordDecision(ctx, "route", d.Next)

		if err := ctx.Err(); err != nil {
			return t.finish(res), err
		}

		msg, err := t.act(ctx, t.stages[d.Next], res.Messages, turn)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stage failed")
			logger.ErrorContext(ctx, "Stage failed", "stage", d.Next, "turn", turn, "error", err)
			return t.finish(res), fmt.Errorf("stage %s: %w", d.Next, err)
		}
		res.Messages = append(res.Messages, msg)
	}
}

func (t *Team) act(ctx context.Context, stage Stage, history []Message, turn int) (Message, error) {
	ctx, span := t.tracer.Start(ctx, "team.turn", trace.WithAttributes(
		attribute.String("stage", stage.Name()),
		attribute.Int("turn", turn),
	))
	defer span.End()

	msg, err := stage.Act(ctx, append([]Message(nil), history...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return msg, err
}

func (t *Team) finish(res *Result) *Result {
	if len(res.Messages) > 1 {
		res.Reply = res.Messages[len(res.Messages)-1].Content
	} else {
		res.Reply = FailureReply
	}
	return res
}
