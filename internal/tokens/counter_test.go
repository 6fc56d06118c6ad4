package tokens

import "testing"

func TestEncodingName(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":   "o200k_base",
		"GPT-4o":        "o200k_base",
		"gpt-4.1":       "o200k_base",
		"o3-mini":       "o200k_base",
		"gpt-4-turbo":   "cl100k_base",
		"gpt-3.5-turbo": "cl100k_base",
		"deepseek-chat": "cl100k_base",
	}
	for model, want := range tests {
		if got := encodingName(model); got != want {
			t.Errorf("encodingName(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestFallbackEstimate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abcdef", 3},
		{"北京明天天气", 7},
		{"上海 rain", 2 + 5/3 + 1},
	}
	for _, tt := range tests {
		if got := fallbackEstimate(tt.text); got != tt.want {
			t.Errorf("fallbackEstimate(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
