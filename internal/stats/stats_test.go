package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoayTarek5/Web-Scraper/internal/clock/system"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

func success(url string, bytes int64) scraper.Outcome {
	return scraper.Outcome{URL: url, Success: true, Bytes: bytes, Duration: 10 * time.Millisecond}
}

func failure(url, msg string) scraper.Outcome {
	return scraper.Outcome{URL: url, FailureKind: scraper.FailureRetryExhausted, ErrorMessage: msg}
}

func TestTrackerCounts(t *testing.T) {
	t.Parallel()

	tr := NewTracker(system.New())
	tr.Record(success("http://books.toscrape.com/", 2048))
	tr.Record(success("http://books.toscrape.com/page-2.html", 1024))
	tr.Record(failure("http://example.com/x", "all 3 attempts failed: connection refused"))

	s := tr.Snapshot()
	assert.EqualValues(t, 3, s.Total)
	assert.EqualValues(t, 2, s.Succeeded)
	assert.EqualValues(t, 1, s.Failed)
	assert.EqualValues(t, 3072, s.Bytes)
	assert.InDelta(t, 66.7, s.SuccessRate(), 0.1)

	require.Contains(t, s.Domains, "books.toscrape.com")
	assert.EqualValues(t, 2, s.Domains["books.toscrape.com"].Succeeded)
	assert.EqualValues(t, 1, s.Domains["example.com"].Failed)
	assert.EqualValues(t, 1, s.ErrorKinds["connection"])
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"context deadline exceeded":        "timeout",
		"fetch http 404 for url":           "not_found",
		"fetch http 403 for url":           "forbidden",
		"dial tcp: connection refused":     "connection",
		"x509: certificate signed by ...":  "tls",
		"something else entirely went bad": "other",
	}
	for msg, want := range cases {
		assert.Equal(t, want, categorize(failure("http://example.com", msg)), msg)
	}

	aborted := scraper.Outcome{URL: "http://example.com", FailureKind: scraper.FailureShutdown}
	assert.Equal(t, "shutdown", categorize(aborted))
}

func TestSummaryRendering(t *testing.T) {
	t.Parallel()

	tr := NewTracker(system.New())
	tr.Record(success("http://books.toscrape.com/", 4096))
	tr.Record(failure("http://example.com/x", "timeout"))

	summary := tr.Summary()
	assert.Contains(t, summary, "pages:      2")
	assert.Contains(t, summary, "books.toscrape.com")
	assert.Contains(t, summary, "timeout")

	progress := tr.Progress()
	assert.Contains(t, progress, "scraped=2")
	assert.Contains(t, progress, "ok=1")
}

func TestSnapshotDerived(t *testing.T) {
	t.Parallel()

	tr := NewTracker(system.New())
	tr.Record(success("http://books.toscrape.com/", 100))
	tr.Record(success("http://books.toscrape.com/page-2.html", 100))
	tr.Record(failure("http://example.com/x", "timeout"))
	tr.Record(failure("http://example.com/y", "timeout"))
	tr.Record(failure("http://example.com/z", "timeout"))

	s := tr.Snapshot()
	assert.Equal(t, 10*time.Millisecond, s.AvgFetchTime())
	assert.Equal(t, "example.com", s.BusiestDomain())
	assert.Equal(t, "example.com", s.MostFailingDomain())

	empty := NewTracker(system.New()).Snapshot()
	assert.Zero(t, empty.AvgFetchTime())
	assert.Empty(t, empty.BusiestDomain())
	assert.Empty(t, empty.MostFailingDomain())
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}
