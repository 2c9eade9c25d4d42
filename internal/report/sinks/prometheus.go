package sinks

import (
	"context"

	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// PrometheusSink updates the outcome counters and duration histogram.
type PrometheusSink struct{}

// NewPrometheusSink registers the collectors if they are not yet.
func NewPrometheusSink() *PrometheusSink {
	metrics.Init()
	return &PrometheusSink{}
}

func (s *PrometheusSink) Name() string { return "prometheus" }

func (s *PrometheusSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	for _, out := range outcomes {
		metrics.ObserveOutcome(out.Domain(), out.Success, out.Duration)
	}
	return nil
}

func (s *PrometheusSink) Close(ctx context.Context) error { return nil }
