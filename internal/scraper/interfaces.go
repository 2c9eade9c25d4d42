package scraper

import (
	"context"
	"time"
)

// Fetcher retrieves a single URL. Implementations must honor ctx and
// return an error for any transport-level failure; the retry loop treats
// every fetch error uniformly.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Payload, error)
}

// Extractor pulls structured fields out of a fetched payload. An
// extraction error never fails the page; it is attached to the outcome
// as metadata.
type Extractor interface {
	Extract(payload Payload) (Extracted, error)
}

// Admitter gates a request to a destination, blocking until per-domain
// pacing constraints admit it. It fails only on context cancellation.
type Admitter interface {
	Acquire(ctx context.Context, domain string) error
}

// OutcomeSink receives each terminal Outcome exactly once, in completion
// order. Implementations should return quickly; slow consumers buffer
// internally (see report.Hub).
type OutcomeSink interface {
	OnOutcome(outcome Outcome)
}

// Clock returns the current time (injectable for testing).
type Clock interface {
	Now() time.Time
}
