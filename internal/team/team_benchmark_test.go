package team

import (
	"context"
	"testing"
)

// BenchmarkRun measures routing overhead with stages that answer instantly.
func BenchmarkRun(b *testing.B) {
	intent, retrieval, format := pipeline()
	tm, err := New(NewCoordinator(DefaultConfig()), []Stage{intent, retrieval, format})
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tm.Run(ctx, "广州未来3天天气"); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkCoordinatorNext(b *testing.B) {
	c := NewCoordinator(DefaultConfig())
	history := []Message{
		{Source: SourceUser, Content: "上海明天天气"},
		{Source: IntentParser, Content: "城市：上海\n时间：tomorrow"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.SelectNext(history)
	}
}
