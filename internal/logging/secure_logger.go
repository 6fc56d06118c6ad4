package logging

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// Key segments (split on _ - .) that mark an attribute as secret.
var sensitiveSegments = map[string]bool{
	"apikey":        true,
	"password":      true,
	"token":         true,
	"secret":        true,
	"authorization": true,
}

var valuePatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`), redacted},
	{regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`), redacted},
	{regexp.MustCompile(`([?&](?:key|api_key|token)=)[^&\s"]+`), "${1}" + redacted},
	{regexp.MustCompile(`(mongodb(?:\+srv)?://)[^:/@\s]+:[^@\s]+@`), "${1}" + redacted + "@"},
}

// RedactingHandler is a slog.Handler that masks secrets before records reach
// the wrapped handler. Attributes with sensitive keys are replaced wholesale;
// string values are scrubbed for known secret values and common credential
// shapes (bearer tokens, key query params, credentials in Mongo URIs).
type RedactingHandler struct {
	inner   slog.Handler
	secrets []string
}

// NewRedactingHandler wraps inner. Non-empty secrets are masked wherever they
// appear in messages or string attributes; the Caiyun key travels in the URL
// path, so it has to be passed here explicitly.
func NewRedactingHandler(inner slog.Handler, secrets ...string) *RedactingHandler {
	var s []string
	for _, v := range secrets {
		if len(v) >= 4 {
			s = append(s, v)
		}
	}
	return &RedactingHandler{inner: inner, secrets: s}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.scrub(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean), secrets: h.secrets}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), secrets: h.secrets}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]any, len(group))
		for i, g := range group {
			clean[i] = h.redactAttr(g)
		}
		return slog.Group(a.Key, clean...)
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, redacted)
	}
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.scrub(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.scrub(err.Error()))
		}
	}
	return a
}

func (h *RedactingHandler) scrub(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	for _, p := range valuePatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

func isSensitiveKey(key string) bool {
	segments := strings.FieldsFunc(strings.ToLower(key), func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	if len(segments) == 1 && segments[0] == "key" {
		return true
	}
	for i, seg := range segments {
		if sensitiveSegments[seg] {
			return true
		}
		if seg == "key" && i > 0 && segments[i-1] == "api" {
			return true
		}
	}
	return false
}

// Options configures New.
type Options struct {
	Verbose bool
	// Quiet raises the level to warn. Verbose wins when both are set.
	Quiet   bool
	JSON    bool
	Secrets []string
}

// New builds a redacting logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.Verbose:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if opts.JSON {
		inner = slog.NewJSONHandler(w, handlerOpts)
	} else {
		inner = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewRedactingHandler(inner, opts.Secrets...))
}
