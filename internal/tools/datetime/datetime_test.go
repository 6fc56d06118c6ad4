package datetime

import (
	"context"
	"testing"
	"time"
)

func TestExecuteUsesChinaTime(t *testing.T) {
	tool := New()
	// 2025-05-31 17:30 UTC is Sunday 01:30 in Beijing.
	tool.now = func() time.Time { return time.Date(2025, 5, 31, 17, 30, 0, 0, time.UTC) }

	got, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := "当前时间：2025-06-01 01:30（星期日）"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestToolMetadata(t *testing.T) {
	tool := New()
	if tool.Name() != "get_current_datetime" {
		t.Errorf("Unexpected name %q", tool.Name())
	}
	if tool.Parameters()["type"] != "object" {
		t.Errorf("Expected object schema")
	}
}
