// Package worker executes a single scrape task: admission, fetch with
// retries, extraction. The dispatcher owns concurrency; a Runner owns
// the lifecycle of one URL.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Runner turns a Job into exactly one terminal Outcome. Fetch errors are
// retried with linear backoff; extraction errors never fail a task.
type Runner struct {
	Fetcher   scraper.Fetcher
	Extractor scraper.Extractor
	Admitter  scraper.Admitter
	Clock     scraper.Clock
	Logger    *zap.Logger

	// MaxRetries is the total attempt budget per task, not the count of
	// re-tries after the first attempt.
	MaxRetries int
	// BackoffBase scales the pause after a failed attempt: attempt n
	// waits n * BackoffBase.
	BackoffBase time.Duration
	// FetchTimeout bounds each individual attempt.
	FetchTimeout time.Duration
}

// Validate rejects a runner that could never produce a sound outcome.
func (r *Runner) Validate() error {
	if r.Fetcher == nil {
		return fmt.Errorf("runner: fetcher is required")
	}
	if r.Extractor == nil {
		return fmt.Errorf("runner: extractor is required")
	}
	if r.Admitter == nil {
		return fmt.Errorf("runner: admitter is required")
	}
	if r.Clock == nil {
		return fmt.Errorf("runner: clock is required")
	}
	if r.MaxRetries < 1 {
		return fmt.Errorf("runner: max retries must be at least 1, got %d", r.MaxRetries)
	}
	if r.BackoffBase < 0 {
		return fmt.Errorf("runner: backoff base must not be negative")
	}
	return nil
}

// Run processes one job to its terminal outcome. Admission is acquired
// once, before the first attempt; retries do not re-enter the rate
// limiter. A context cancellation at any point yields a shutdown
// outcome rather than an exhausted one.
func (r *Runner) Run(ctx context.Context, job scraper.Job) scraper.Outcome {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("url", job.URL))
	start := r.Clock.Now()

	if err := r.Admitter.Acquire(ctx, job.Domain()); err != nil {
		logger.Debug("admission aborted", zap.Error(err))
		return r.abort(job, start)
	}

	var lastErr error
	for attempt := 1; attempt <= r.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return r.abort(job, start)
		}
		if attempt > 1 {
			metrics.ObserveRetry()
		}
		job.Attempt = attempt

		payload, err := r.fetchOnce(ctx, job.URL)
		if err == nil {
			return r.finish(logger, job, payload, attempt, start)
		}
		if ctx.Err() != nil {
			return r.abort(job, start)
		}
		lastErr = err
		logger.Warn("fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.MaxRetries),
			zap.Error(err))

		if attempt < r.MaxRetries {
			if !r.backoff(ctx, attempt) {
				return r.abort(job, start)
			}
		}
	}

	logger.Error("retries exhausted", zap.Int("attempts", r.MaxRetries), zap.Error(lastErr))
	return scraper.FailureOutcome(job, scraper.FailureRetryExhausted,
		fmt.Sprintf("all %d attempts failed: %v", r.MaxRetries, lastErr),
		r.MaxRetries, r.Clock.Now().Sub(start), r.Clock.Now())
}

func (r *Runner) fetchOnce(ctx context.Context, url string) (scraper.Payload, error) {
	if r.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.FetchTimeout)
		defer cancel()
	}
	return r.Fetcher.Fetch(ctx, url)
}

// backoff sleeps attempt * BackoffBase. Returns false when the context
// ended the wait early.
func (r *Runner) backoff(ctx context.Context, attempt int) bool {
	pause := time.Duration(attempt) * r.BackoffBase
	if pause <= 0 {
		return true
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (r *Runner) finish(logger *zap.Logger, job scraper.Job, payload scraper.Payload, attempts int, start time.Time) scraper.Outcome {
	extracted, err := r.Extractor.Extract(payload)
	outcome := scraper.SuccessOutcome(job, payload, extracted, attempts, r.Clock.Now())
	outcome.Duration = r.Clock.Now().Sub(start)
	if err != nil {
		// Extraction problems are recorded but never fail the task.
		logger.Warn("extraction degraded", zap.Error(err))
		outcome.SetMetadata("extract_error", err.Error())
	}
	return outcome
}

func (r *Runner) abort(job scraper.Job, start time.Time) scraper.Outcome {
	// job.Attempt is 0 when shutdown hit before the first fetch.
	return scraper.FailureOutcome(job, scraper.FailureShutdown,
		"task aborted by shutdown", job.Attempt, r.Clock.Now().Sub(start), r.Clock.Now())
}
