// Package sinks provides the built-in outcome sinks wired behind the
// report hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// LogSink writes one structured log line per outcome.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink logs outcomes through the given logger.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	for _, out := range outcomes {
		fields := []zap.Field{
			zap.String("url", out.URL),
			zap.String("domain", out.Domain()),
			zap.Int("attempts", out.Attempts),
			zap.Duration("duration", out.Duration),
		}
		if out.Success {
			s.logger.Info("scraped",
				append(fields,
					zap.Int("status", out.StatusCode),
					zap.Int64("bytes", out.Bytes),
					zap.String("title", out.Title))...)
			continue
		}
		s.logger.Warn("scrape failed",
			append(fields,
				zap.String("kind", string(out.FailureKind)),
				zap.String("error", out.ErrorMessage))...)
	}
	return nil
}

func (s *LogSink) Close(ctx context.Context) error { return nil }
