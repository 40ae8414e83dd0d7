// Package sink holds the notification sinks other than webhooks.
package sink

import (
	"context"
	"log/slog"

	"hnwatch/internal/story"
)

// Log writes one structured log line per story.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(ctx context.Context, s story.Story) error {
	l.logger.InfoContext(ctx, "New matching story",
		"id", s.ID,
		"title", s.Title,
		"url", s.URL,
		"category", s.Category.String(),
		"score", s.Score,
		"by", s.By)
	return nil
}
