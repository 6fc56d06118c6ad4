package team

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/8adimka/Go_Weather_Assistant/internal/errorsx"
)

func msgs(sources ...string) []Message {
	out := make([]Message, len(sources))
	for i, s := range sources {
		out[i] = Message{Source: s, Content: "content from " + s}
	}
	return out
}

func TestSelectNextRouting(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	tests := []struct {
		name    string
		history []Message
		want    Decision
	}{
		{"empty history", nil, RouteTo(IntentParser)},
		{"user only", msgs(SourceUser), RouteTo(IntentParser)},
		{"after intent", msgs(SourceUser, IntentParser), RouteTo(WeatherAgent)},
		{"after retrieval", msgs(SourceUser, IntentParser, WeatherAgent), RouteTo(Formatter)},
		{"after format", msgs(SourceUser, IntentParser, WeatherAgent, Formatter), Terminate(ReasonNoSuccessor)},
		{"unknown source", msgs(SourceUser, "stranger"), Terminate(ReasonNoSuccessor)},
		{"user speaks again", msgs(SourceUser, IntentParser, SourceUser), Terminate(ReasonNoSuccessor)},
		{
			"eight messages regardless of last source",
			msgs(SourceUser, IntentParser, WeatherAgent, Formatter, IntentParser, WeatherAgent, Formatter, IntentParser),
			Terminate(ReasonMaxMessages),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.SelectNext(tt.history)
			if err != nil {
				t.Fatalf("SelectNext failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSelectNextExplicitPhrase(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	history := msgs(SourceUser, IntentParser)
	history[1].Content = "城市：北京\n查询完成"

	got, err := c.SelectNext(history)
	if err != nil {
		t.Fatal(err)
	}
	if got != Terminate(ReasonExplicitPhrase) {
		t.Errorf("Expected explicit-phrase termination, got %s", got)
	}

	// Only the last message is inspected.
	history = append(history, Message{Source: WeatherAgent, Content: "📍 北京"})
	got, _ = c.SelectNext(history)
	if got != RouteTo(Formatter) {
		t.Errorf("Expected route to formatter, got %s", got)
	}
}

func TestSelectNextPhraseBeatsMaxMessages(t *testing.T) {
	c := NewCoordinator(Config{MaxMessages: 3})

	history := msgs(SourceUser, IntentParser, WeatherAgent)
	history[2].Content = "查询完成"

	got, _ := c.SelectNext(history)
	if got != Terminate(ReasonExplicitPhrase) {
		t.Errorf("Expected explicit-phrase to win, got %s", got)
	}
}

func TestSelectNextCustomConfig(t *testing.T) {
	c := NewCoordinator(Config{TerminationPhrase: "DONE", MaxMessages: 2})

	got, _ := c.SelectNext(msgs(SourceUser, IntentParser))
	if got != Terminate(ReasonMaxMessages) {
		t.Errorf("Expected max-messages at 2, got %s", got)
	}

	history := msgs(SourceUser)
	history[0].Content = "查询完成"
	got, _ = c.SelectNext(history)
	if got != RouteTo(IntentParser) {
		t.Errorf("Default phrase must not apply once overridden, got %s", got)
	}
}

func TestSelectNextMissingSource(t *testing.T) {
	c := NewCoordinator(DefaultConfig())

	history := msgs(SourceUser, IntentParser, WeatherAgent)
	history[1].Source = "  "

	_, err := c.SelectNext(history)
	if !errors.Is(err, errorsx.ErrProtocol) {
		t.Fatalf("Expected protocol error, got %v", err)
	}
	var pe *errorsx.ProtocolError
	if !errors.As(err, &pe) || pe.Index != 1 {
		t.Errorf("Expected error at index 1, got %v", err)
	}
}

func TestSelectNextIsPure(t *testing.T) {
	var traced []Decision
	verbose := NewCoordinator(DefaultConfig(), WithTrace(func(h []Message, d Decision) {
		traced = append(traced, d)
		// Mutating the traced copy must not leak into routing.
		for i := range h {
			h[i].Source = "tampered"
		}
	}))
	quiet := NewCoordinator(DefaultConfig())

	histories := [][]Message{
		msgs(SourceUser),
		msgs(SourceUser, IntentParser),
		msgs(SourceUser, IntentParser, WeatherAgent),
		msgs(SourceUser, IntentParser, WeatherAgent, Formatter),
	}

	for _, h := range histories {
		a, _ := verbose.SelectNext(h)
		b, _ := quiet.SelectNext(h)
		again, _ := verbose.SelectNext(h)
		if a != b || a != again {
			t.Errorf("Decisions differ for %d messages: %s, %s, %s", len(h), a, b, again)
		}
		for _, m := range h {
			if m.Source == "tampered" {
				t.Fatal("trace callback mutated the caller's history")
			}
		}
	}
	if len(traced) != 2*len(histories) {
		t.Errorf("Expected one trace per decision, got %d", len(traced))
	}
}

func TestSingleStageConfig(t *testing.T) {
	c := NewCoordinator(SingleStageConfig(SingleAgent))

	got, _ := c.SelectNext(msgs(SourceUser))
	if got != RouteTo(SingleAgent) {
		t.Errorf("Expected route to %s, got %s", SingleAgent, got)
	}
	got, _ = c.SelectNext(msgs(SourceUser, SingleAgent))
	if got != Terminate(ReasonNoSuccessor) {
		t.Errorf("Expected no-successor, got %s", got)
	}

	if diff := cmp.Diff([]string{SingleAgent}, c.Config().Stages()); diff != "" {
		t.Errorf("Stages mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigStages(t *testing.T) {
	got := DefaultConfig().Stages()
	want := []string{IntentParser, Formatter, WeatherAgent}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stages mismatch (-want +got):\n%s", diff)
	}
}

func TestDecisionString(t *testing.T) {
	if s := RouteTo(Formatter).String(); s != "route-to(formatter)" {
		t.Errorf("Unexpected %q", s)
	}
	if s := Terminate(ReasonMaxMessages).String(); !strings.Contains(s, "max-messages-reached") {
		t.Errorf("Unexpected %q", s)
	}
}
