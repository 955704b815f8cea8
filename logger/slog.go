package logger

import (
	"context"
	"log/slog"
)

type slogSink struct {
	logger *slog.Logger
}

// FromSlog adapts a structured logger to a Sink. The area is attached as an
// "area" attribute. A nil logger yields a Sink that drops everything.
func FromSlog(l *slog.Logger) Sink {
	if l == nil {
		return Discard
	}
	return slogSink{logger: l}
}

func (s slogSink) Log(area, text string, level Level) {
	s.logger.Log(context.Background(), slogLevel(level), text, slog.String("area", area))
}

func slogLevel(level Level) slog.Level {
	switch level {
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	}
	return slog.LevelInfo
}

type discard struct{}

func (discard) Log(string, string, Level) {}

// Discard is a Sink that drops every message.
var Discard Sink = discard{}
