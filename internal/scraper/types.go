// Package scraper defines the core types shared across the scrape pipeline.
package scraper

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of scheduled work: a URL plus the attempt counter the
// retry loop advances.
type Job struct {
	URL     string
	Attempt int
}

// Domain returns the job's host label, or "unknown" when the URL does
// not parse.
func (j Job) Domain() string {
	return ExtractDomain(j.URL)
}

// FailureKind classifies terminal failures carried by an Outcome.
type FailureKind string

// Terminal failure kinds.
const (
	// FailureNone is set on successful outcomes.
	FailureNone FailureKind = ""
	// FailureRetryExhausted means every fetch attempt failed.
	FailureRetryExhausted FailureKind = "retry_exhausted"
	// FailureShutdown means cancellation interrupted the task before a
	// terminal fetch result.
	FailureShutdown FailureKind = "shutdown_aborted"
)

// Payload is the raw result of a single successful fetch.
type Payload struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Extracted holds the structured fields pulled out of a fetched page.
type Extracted struct {
	Title string
	Text  string
	// Fields carries site-specific attributes keyed by name.
	Fields map[string]string
}

// Outcome is the immutable terminal record for one URL's crawl attempt.
// Exactly one Outcome is delivered to the sink per scheduled job.
type Outcome struct {
	// RunID identifies the dispatcher run that produced the outcome.
	RunID uuid.UUID
	URL   string

	Success      bool
	FailureKind  FailureKind
	ErrorMessage string

	Title    string
	Content  string
	Metadata map[string]string

	StatusCode int
	Bytes      int64
	Duration   time.Duration
	Attempts   int
	ScrapedAt  time.Time
}

// Domain returns the outcome's host label, or "unknown" when the URL does
// not parse.
func (o Outcome) Domain() string {
	return ExtractDomain(o.URL)
}

// SetMetadata stores a key/value pair, allocating the map on first use.
func (o *Outcome) SetMetadata(key, value string) {
	if o.Metadata == nil {
		o.Metadata = make(map[string]string)
	}
	o.Metadata[key] = value
}

// SuccessOutcome assembles a success record from a payload and its
// extracted fields.
func SuccessOutcome(job Job, payload Payload, extracted Extracted, attempts int, at time.Time) Outcome {
	out := Outcome{
		URL:        job.URL,
		Success:    true,
		Title:      extracted.Title,
		Content:    extracted.Text,
		Metadata:   extracted.Fields,
		StatusCode: payload.StatusCode,
		Bytes:      int64(len(payload.Body)),
		Duration:   payload.Duration,
		Attempts:   attempts,
		ScrapedAt:  at,
	}
	return out
}

// FailureOutcome assembles a terminal failure record.
func FailureOutcome(job Job, kind FailureKind, errMsg string, attempts int, dur time.Duration, at time.Time) Outcome {
	return Outcome{
		URL:          job.URL,
		Success:      false,
		FailureKind:  kind,
		ErrorMessage: errMsg,
		Duration:     dur,
		Attempts:     attempts,
		ScrapedAt:    at,
	}
}
