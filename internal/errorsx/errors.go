package errorsx

import (
	"errors"
	"fmt"

	"github.com/twitchtv/twirp"
)

// Error taxonomy for the weather pipeline
var (
	ErrNotFound      = errors.New("city not found")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrRateLimited   = errors.New("rate limited")
	ErrOutOfRange    = errors.New("forecast day out of range")
	ErrProtocol      = errors.New("conversation protocol violation")
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
)

// RangeError reports a day offset beyond the forecast data that came back.
type RangeError struct {
	City   string
	Offset int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("no forecast data for %s at day offset %d", e.City, e.Offset)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// ProtocolError marks a malformed conversation history.
type ProtocolError struct {
	Index  int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("message %d: %s", e.Index, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// Wrap wraps an error with additional context message
// Returns nil if the error is nil
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message
// Returns nil if the error is nil
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Configuration returns a configuration error naming the missing setting.
func Configuration(setting string) error {
	return fmt.Errorf("%w: %s is not set", ErrConfiguration, setting)
}

// ToTwirpError maps an internal error onto a Twirp error code.
func ToTwirpError(err error) error {
	if err == nil {
		return nil
	}

	if te, ok := err.(twirp.Error); ok {
		return te
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return twirp.NotFoundError(err.Error())
	case errors.Is(err, ErrInvalidInput):
		return twirp.InvalidArgumentError("input", err.Error())
	case errors.Is(err, ErrOutOfRange):
		return twirp.NewError(twirp.OutOfRange, err.Error())
	case errors.Is(err, ErrRateLimited):
		return twirp.NewError(twirp.ResourceExhausted, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return twirp.NewError(twirp.Unauthenticated, err.Error())
	case errors.Is(err, ErrRetrieval):
		return twirp.NewError(twirp.Unavailable, err.Error())
	case errors.Is(err, ErrProtocol), errors.Is(err, ErrConfiguration):
		return twirp.NewError(twirp.FailedPrecondition, err.Error())
	default:
		return twirp.InternalErrorWith(err)
	}
}

// ToTwirpErrorWithMeta converts an error to Twirp error and adds metadata
func ToTwirpErrorWithMeta(err error, meta map[string]string) error {
	if err == nil {
		return nil
	}

	twirpErr := ToTwirpError(err)
	if te, ok := twirpErr.(twirp.Error); ok {
		for key, value := range meta {
			te = te.WithMeta(key, value)
		}
		return te
	}
	return twirpErr
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsRetrieval(err error) bool { return errors.Is(err, ErrRetrieval) }

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

func IsProtocol(err error) bool { return errors.Is(err, ErrProtocol) }

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// AsRangeError extracts a RangeError from the chain.
func AsRangeError(err error) (*RangeError, bool) {
	var re *RangeError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
