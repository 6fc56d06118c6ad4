package team

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

type scriptedStage struct {
	name    string
	reply   string
	source  string
	err     error
	calls   int
	lengths []int
}

func (s *scriptedStage) Name() string { return s.name }

func (s *scriptedStage) Act(_ context.Context, history []Message) (Message, error) {
	s.calls++
	s.lengths = append(s.lengths, len(history))
	if s.err != nil {
		return Message{}, s.err
	}
	source := s.name
	if s.source != "" || s.reply == "<no source>" {
		source = s.source
	}
	return Message{Source: source, Content: s.reply}, nil
}

func pipeline() (*scriptedStage, *scriptedStage, *scriptedStage) {
	return &scriptedStage{name: IntentParser, reply: "城市：上海\n时间：tomorrow\n查询：查询上海明天的天气"},
		&scriptedStage{name: WeatherAgent, reply: "📍 上海 2025-06-02"},
		&scriptedStage{name: Formatter, reply: "上海明天多云，适合出行～"}
}

func TestRunFullPipeline(t *testing.T) {
	intent, retrieval, format := pipeline()
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "上海明天天气")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, ReasonNoSuccessor, res.StopReason)
	assert.Equal(t, "上海明天多云，适合出行～", res.Reply)
	assert.Equal(t, []Message{
		{Source: SourceUser, Content: "上海明天天气"},
		{Source: IntentParser, Content: intent.reply},
		{Source: WeatherAgent, Content: retrieval.reply},
		{Source: Formatter, Content: format.reply},
	}, res.Messages)

	// History grows by exactly one per turn.
	assert.Equal(t, []int{1}, intent.lengths)
	assert.Equal(t, []int{2}, retrieval.lengths)
	assert.Equal(t, []int{3}, format.lengths)
}

func TestRunStopsOnExplicitPhrase(t *testing.T) {
	intent, retrieval, format := pipeline()
	retrieval.reply = "📍 上海 查询完成"
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "上海明天天气")
	require.NoError(t, err)

	assert.Equal(t, ReasonExplicitPhrase, res.StopReason)
	assert.Zero(t, format.calls)
	assert.Equal(t, "📍 上海 查询完成", res.Reply)
}

func TestRunStopsAtMaxMessages(t *testing.T) {
	intent, retrieval, format := pipeline()
	tm, err := New(NewCoordinator(Config{MaxMessages: 2}), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "今天天气怎么样？")
	require.NoError(t, err)

	assert.Equal(t, ReasonMaxMessages, res.StopReason)
	assert.Len(t, res.Messages, 2)
	assert.Zero(t, retrieval.calls)
}

func TestRunStageErrorAborts(t *testing.T) {
	intent, retrieval, format := pipeline()
	retrieval.err = errors.New("model unavailable")
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "今天天气怎么样？")
	require.Error(t, err)
	assert.Contains(t, err.Error(), WeatherAgent)

	require.NotNil(t, res)
	assert.Len(t, res.Messages, 2, "partial transcript is kept")
	assert.Empty(t, res.StopReason)
	assert.Zero(t, format.calls)
}

func TestRunProtocolViolation(t *testing.T) {
	intent, retrieval, format := pipeline()
	intent.reply = "<no source>"
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "今天天气怎么样？")

	assert.True(t, errorsx.IsProtocol(err), "got %v", err)
	assert.Zero(t, retrieval.calls)
	assert.Len(t, res.Messages, 2)
}

func TestRunNoStageSpoke(t *testing.T) {
	intent, retrieval, format := pipeline()
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "天气 查询完成")
	require.NoError(t, err)

	assert.Equal(t, ReasonExplicitPhrase, res.StopReason)
	assert.Equal(t, FailureReply, res.Reply)
	assert.Zero(t, intent.calls)
}

func TestRunCancelledContext(t *testing.T) {
	intent, retrieval, format := pipeline()
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := tm.Run(ctx, "今天天气怎么样？")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, intent.calls)
	assert.Equal(t, FailureReply, res.Reply)
}

func TestRunSingleStage(t *testing.T) {
	bot := &scriptedStage{name: SingleAgent, reply: "北京今天晴"}
	tm, err := New(NewCoordinator(SingleStageConfig(SingleAgent)), []Stage{bot})
	require.NoError(t, err)

	res, err := tm.Run(context.Background(), "今天天气怎么样？")
	require.NoError(t, err)
	assert.Equal(t, "北京今天晴", res.Reply)
	assert.Equal(t, 1, bot.calls)
}

func TestNewRequiresRoutedStages(t *testing.T) {
	intent, retrieval, _ := pipeline()

	_, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval})
	assert.ErrorIs(t, err, errorsx.ErrConfiguration)
}

func TestRunIDsAreUnique(t *testing.T) {
	bot := &scriptedStage{name: SingleAgent, reply: "ok"}
	tm, err := New(NewCoordinator(SingleStageConfig(SingleAgent)), []Stage{bot})
	require.NoError(t, err)

	a, _ := tm.Run(context.Background(), "q")
	b, _ := tm.Run(context.Background(), "q")
	assert.NotEqual(t, a.ID, b.ID)
}
