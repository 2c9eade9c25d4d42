// Package report fans terminal outcomes out to reporting sinks in
// batches: logs, Prometheus counters, the run tracker, Postgres, and
// Pub/Sub.
package report

import (
	"context"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Sink receives batches of terminal outcomes. Implementations must be
// safe for calls from the hub's single flusher goroutine and should
// honor the context deadline.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Consume processes one batch. An error is logged, not retried.
	Consume(ctx context.Context, outcomes []scraper.Outcome) error
	// Close flushes and releases resources.
	Close(ctx context.Context) error
}
