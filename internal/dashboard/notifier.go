package dashboard

import (
	"context"
	"log/slog"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message raised by a dashboard operation.
type Notice struct {
	Source  string `json:"source"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Notifier presents notices to the user. Every operation reports its
// user-visible failures through it.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// MultiNotifier delivers each notice to all of its members in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notice) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{"source", n.Source}
	if n.Err != nil {
		attrs = append(attrs, "error", n.Err)
	}
	l.Logger.Log(ctx, level, n.Message, attrs...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
