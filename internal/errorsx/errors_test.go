package errorsx

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/twitchtv/twirp"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		want    string
	}{
		{
			name:    "wrap error with message",
			err:     errors.New("dial tcp: timeout"),
			message: "geocode 三亚",
			want:    "geocode 三亚: dial tcp: timeout",
		},
		{
			name:    "wrap nil error returns nil",
			err:     nil,
			message: "geocode",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Wrap(tt.err, tt.message)
			if tt.want == "" && result != nil {
				t.Errorf("Expected nil, got %v", result)
			} else if tt.want != "" && result.Error() != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, result.Error())
			}
		})
	}
}

func TestWrapf(t *testing.T) {
	result := Wrapf(ErrRetrieval, "forecast %s days=%d", "北京", 3)
	expected := "forecast 北京 days=3: retrieval failed"
	if result.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, result.Error())
	}
	if !errors.Is(result, ErrRetrieval) {
		t.Error("Expected wrapped error to match ErrRetrieval")
	}

	if Wrapf(nil, "should not wrap") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestConfiguration(t *testing.T) {
	err := Configuration("CAIYUN_API_KEY")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "CAIYUN_API_KEY") {
		t.Errorf("Expected setting name in %q", err.Error())
	}
}

func TestRangeError(t *testing.T) {
	err := Wrap(&RangeError{City: "北京", Offset: 5}, "query today")

	re, ok := AsRangeError(err)
	if !ok {
		t.Fatal("Expected RangeError in chain")
	}
	if re.City != "北京" || re.Offset != 5 {
		t.Errorf("Expected 北京/5, got %s/%d", re.City, re.Offset)
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Error("Expected RangeError to unwrap to ErrOutOfRange")
	}
	if _, ok := AsRangeError(ErrNotFound); ok {
		t.Error("Expected no RangeError for ErrNotFound")
	}
}

func TestProtocolError(t *testing.T) {
	err := &ProtocolError{Index: 2, Reason: "missing source"}
	if !IsProtocol(err) {
		t.Error("Expected ProtocolError to match ErrProtocol")
	}
	if err.Error() != "message 2: missing source" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestToTwirpError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode twirp.ErrorCode
	}{
		{"nil error returns nil", nil, twirp.NoError},
		{"not found", ErrNotFound, twirp.NotFound},
		{"wrapped not found", fmt.Errorf("conversation: %w", ErrNotFound), twirp.NotFound},
		{"invalid input", ErrInvalidInput, twirp.InvalidArgument},
		{"range error", &RangeError{City: "上海", Offset: 3}, twirp.OutOfRange},
		{"rate limited", Wrap(ErrRateLimited, "caiyun"), twirp.ResourceExhausted},
		{"retrieval", Wrap(ErrRetrieval, "amap"), twirp.Unavailable},
		{"unauthorized", ErrUnauthorized, twirp.Unauthenticated},
		{"protocol", &ProtocolError{Index: 0, Reason: "missing source"}, twirp.FailedPrecondition},
		{"configuration", Configuration("AMAP_API_KEY"), twirp.FailedPrecondition},
		{"unknown error maps to Internal", errors.New("boom"), twirp.Internal},
		{"existing Twirp error is preserved", twirp.NotFoundError("already twirp"), twirp.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToTwirpError(tt.err)

			if tt.err == nil {
				if result != nil {
					t.Errorf("Expected nil, got %v", result)
				}
				return
			}

			var code twirp.ErrorCode
			if te, ok := result.(twirp.Error); ok {
				code = te.Code()
			}
			if code != tt.expectedCode {
				t.Errorf("Expected code %v, got %v", tt.expectedCode, code)
			}
		})
	}
}

func TestToTwirpErrorWithMeta(t *testing.T) {
	meta := map[string]string{
		"run_id": "abc123",
		"city":   "北京",
	}

	result := ToTwirpErrorWithMeta(ErrNotFound, meta)
	twirpErr, ok := result.(twirp.Error)
	if !ok {
		t.Fatal("Result is not a Twirp error")
	}
	if twirpErr.Code() != twirp.NotFound {
		t.Errorf("Expected NotFound code, got %v", twirpErr.Code())
	}
	for key, expectedValue := range meta {
		if actual := twirpErr.Meta(key); actual != expectedValue {
			t.Errorf("Meta %q: expected %q, got %q", key, expectedValue, actual)
		}
	}

	if ToTwirpErrorWithMeta(nil, meta) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		hit  error
		miss error
	}{
		{"IsNotFound", IsNotFound, Wrap(ErrNotFound, "geo"), ErrRetrieval},
		{"IsRetrieval", IsRetrieval, Wrap(ErrRetrieval, "geo"), ErrNotFound},
		{"IsRateLimited", IsRateLimited, Wrap(ErrRateLimited, "caiyun"), ErrRetrieval},
		{"IsInvalidInput", IsInvalidInput, ErrInvalidInput, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.fn(tt.hit) {
				t.Errorf("%s(%v) = false, want true", tt.name, tt.hit)
			}
			if tt.fn(tt.miss) {
				t.Errorf("%s(%v) = true, want false", tt.name, tt.miss)
			}
			if tt.fn(nil) {
				t.Errorf("%s(nil) = true, want false", tt.name)
			}
		})
	}
}
