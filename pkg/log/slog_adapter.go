package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes lifecycle events to an slog.Logger.
// Useful for development when you want to see events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
// State and control events log at Debug, errors at Warn.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("attempt_id", event.AttemptID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}
	if event.URL != "" {
		attrs = append(attrs, slog.String("url", event.URL))
	}

	level := slog.LevelDebug
	message := "connection event"

	switch {
	case event.StateChange != nil:
		message = "state change"
		attrs = append(attrs,
			slog.String("from", event.StateChange.From),
			slog.String("to", event.StateChange.To),
		)
		if event.StateChange.Retries > 0 {
			attrs = append(attrs, slog.Int("retries", event.StateChange.Retries))
		}
	case event.ControlMsg != nil:
		message = "control message"
		attrs = append(attrs, slog.String("kind", event.ControlMsg.Kind))
	case event.Buffer != nil:
		message = "buffer activity"
		attrs = append(attrs,
			slog.String("queue", event.Buffer.Queue),
			slog.String("action", event.Buffer.Action),
			slog.Int("length", event.Buffer.Length),
		)
	case event.Error != nil:
		message = "connection error"
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Error.Message))
	}

	a.logger.LogAttrs(context.Background(), level, message, attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
