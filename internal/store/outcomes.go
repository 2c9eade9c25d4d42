// Package store defines persistence ports for scrape outcomes.
package store

import (
	"context"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// OutcomeRepository persists terminal outcomes.
type OutcomeRepository interface {
	// SaveBatch inserts a batch of outcomes. Partial failure fails the
	// whole batch.
	SaveBatch(ctx context.Context, outcomes []scraper.Outcome) error
	// Close releases the underlying connections.
	Close()
}
