// Package team runs the multi-stage weather conversation: a pure coordinator
// decides who speaks next, and Team drives the turns.
package team

import (
	"slices"
	"strings"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

// Stage identifiers.
const (
	SourceUser    = "user"
	IntentParser  = "intent_parser"
	WeatherAgent  = "weather_agent"
	Formatter     = "formatter"
	SingleAgent   = "weather_bot"
	DefaultPhrase = "查询完成"
	DefaultMax    = 8
)

// Message is one entry of a conversation history.
type Message struct {
	Source  string `json:"source" bson:"source"`
	Content string `json:"content" bson:"content"`
}

// Reason explains why a conversation ended.
type Reason string

const (
	ReasonExplicitPhrase Reason = "explicit-phrase"
	ReasonMaxMessages    Reason = "max-messages-reached"
	ReasonNoSuccessor    Reason = "no-successor"
)

// Decision is either a route to a stage or a termination.
type Decision struct {
	Next   string
	Reason Reason
}

func RouteTo(stage string) Decision    { return Decision{Next: stage} }
func Terminate(reason Reason) Decision { return Decision{Reason: reason} }

// Terminated reports whether the decision ends the conversation.
func (d Decision) Terminated() bool { return d.Next == "" }

func (d Decision) String() string {
	if d.Terminated() {
		return "terminate(" + string(d.Reason) + ")"
	}
	return "route-to(" + d.Next + ")"
}

// Config holds the routing table and termination rules.
type Config struct {
	// TerminationPhrase ends the conversation when the last message contains it.
	TerminationPhrase string
	// MaxMessages ends the conversation once the history reaches this length.
	MaxMessages int
	// Entry is the stage that answers the opening user message.
	Entry string
	// Successors maps a speaker to the stage that follows it. Speakers
	// missing from the map have no successor.
	Successors map[string]string
}

// DefaultConfig is the intent → retrieval → format pipeline.
func DefaultConfig() Config {
	return Config{
		TerminationPhrase: DefaultPhrase,
		MaxMessages:       DefaultMax,
		Entry:             IntentParser,
		Successors: map[string]string{
			IntentParser: WeatherAgent,
			WeatherAgent: Formatter,
		},
	}
}

// SingleStageConfig routes the opening message to one stage and stops.
func SingleStageConfig(stage string) Config {
	cfg := DefaultConfig()
	cfg.Entry = stage
	cfg.Successors = nil
	return cfg
}

// Stages lists every stage the routing table can name, entry first.
func (c Config) Stages() []string {
	out := []string{c.Entry}
	seen := map[string]bool{c.Entry: true}
	for _, next := range c.Successors {
		if !seen[next] {
			seen[next] = true
			out = append(out, next)
		}
	}
	slices.Sort(out[1:])
	return out
}

// Trace observes each decision. It cannot influence routing.
type Trace func(history []Message, d Decision)

// Coordinator picks the next speaker from the history alone.
type Coordinator struct {
	cfg   Config
	trace Trace
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

func WithTrace(fn Trace) CoordinatorOption {
	return func(c *Coordinator) { c.trace = fn }
}

// NewCoordinator fills zero fields of cfg with the defaults.
func NewCoordinator(cfg Config, opts ...CoordinatorOption) *Coordinator {
	def := DefaultConfig()
	if cfg.TerminationPhrase == "" {
		cfg.TerminationPhrase = def.TerminationPhrase
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.Entry == "" {
		cfg.Entry = def.Entry
		if cfg.Successors == nil {
			cfg.Successors = def.Successors
		}
	}

	c := &Coordinator{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Config() Config { return c.cfg }

// SelectNext decides the next step. The explicit phrase is checked before the
// message limit, and both are checked before routing.
func (c *Coordinator) SelectNext(history []Message) (Decision, error) {
	for i, m := range history {
		if strings.TrimSpace(m.Source) == "" {
			return Decision{}, &errorsx.ProtocolError{Index: i, Reason: "message has no source"}
		}
	}

	d := c.decide(history)
	if c.trace != nil {
		c.trace(append([]Message(nil), history...), d)
	}
	return d, nil
}

func (c *Coordinator) decide(history []Message) Decision {
	if n := len(history); n > 0 && strings.Contains(history[n-1].Content, c.cfg.TerminationPhrase) {
		return Terminate(ReasonExplicitPhrase)
	}
	if len(history) >= c.cfg.MaxMessages {
		return Terminate(ReasonMaxMessages)
	}
	if len(history) <= 1 {
		return RouteTo(c.cfg.Entry)
	}
	if next, ok := c.cfg.Successors[history[len(history)-1].Source]; ok {
		return RouteTo(next)
	}
	return Terminate(ReasonNoSuccessor)
}
