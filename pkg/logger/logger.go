package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedKeys never reach the log output. The PBX secret travels in the
// originate query string and the webhook signature in the form body.
var redactedKeys = map[string]bool{
	"secret":          true,
	"password":        true,
	"authorization":   true,
	"vtigersignature": true,
}

// New returns the process logger: JSON on stdout.
func New(appEnv, level string) *slog.Logger {
	return NewTo(os.Stdout, appEnv, level)
}

// NewTo is New writing to w. An empty level means debug for local and dev, info otherwise.
func NewTo(w io.Writer, appEnv, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       Level(appEnv, level),
		ReplaceAttr: redact,
	})
	return slog.New(h)
}

// Level resolves the minimum level. Unknown names fall back to the env default.
func Level(appEnv, level string) slog.Level {
	var l slog.Level
	if level != "" && l.UnmarshalText([]byte(level)) == nil {
		return l
	}
	if appEnv == "local" || appEnv == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ForCall scopes the context logger to one call event.
func ForCall(ctx context.Context, callID, event string) *slog.Logger {
	return From(ctx).With("call_id", callID, "event", event)
}
