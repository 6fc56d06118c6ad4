package retry

import (
	"time"

	"github.com/8adimka/Go_Weather_Assistant/internal/config"
)

// FromConfig reads the inference retry policy from RETRY_* settings.
func FromConfig(cfg *config.Config) Policy {
	return Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	}
}
