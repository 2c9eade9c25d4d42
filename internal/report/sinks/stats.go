package sinks

import (
	"context"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
	"github.com/LoayTarek5/Web-Scraper/internal/stats"
)

// StatsSink folds outcomes into the run tracker.
type StatsSink struct {
	tracker *stats.Tracker
}

// NewStatsSink feeds the given tracker.
func NewStatsSink(tracker *stats.Tracker) *StatsSink {
	return &StatsSink{tracker: tracker}
}

func (s *StatsSink) Name() string { return "stats" }

func (s *StatsSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	for _, out := range outcomes {
		s.tracker.Record(out)
	}
	return nil
}

func (s *StatsSink) Close(ctx context.Context) error { return nil }
