// Package events routes engine events to their sinks.
package events

import (
	"context"
	"log/slog"

	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
)

// Fanout delivers every event to each publisher in order.
type Fanout []engine.Publisher

func (f Fanout) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}

// LogNotifier writes notify events to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, ev domain.Event) {
	if ev.Type != domain.EventNotify || ev.Notification == nil {
		return
	}
	n.logger.Log(ctx, slogLevel(ev.Notification.Level), ev.Notification.Message,
		slog.String("notify_level", string(ev.Notification.Level)),
	)
}

func slogLevel(l domain.NotifyLevel) slog.Level {
	switch l {
	case domain.LevelError:
		return slog.LevelError
	case domain.LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
