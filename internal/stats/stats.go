// Package stats aggregates run counters from terminal outcomes.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// DomainCounts tallies one domain's terminal outcomes.
type DomainCounts struct {
	Succeeded int64
	Failed    int64
}

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	Total      int64
	Succeeded  int64
	Failed     int64
	Bytes      int64
	FetchTime  time.Duration
	Elapsed    time.Duration
	Domains    map[string]DomainCounts
	ErrorKinds map[string]int64
}

// SuccessRate returns the success percentage, or zero before any outcome.
func (s Snapshot) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// AvgFetchTime returns the mean fetch duration across successes.
func (s Snapshot) AvgFetchTime() time.Duration {
	if s.Succeeded == 0 {
		return 0
	}
	return s.FetchTime / time.Duration(s.Succeeded)
}

// BusiestDomain returns the domain with the most terminal outcomes.
// Ties break alphabetically so the result is stable.
func (s Snapshot) BusiestDomain() string {
	return s.topDomain(func(c DomainCounts) int64 { return c.Succeeded + c.Failed })
}

// MostFailingDomain returns the domain with the most failures, or ""
// when nothing failed.
func (s Snapshot) MostFailingDomain() string {
	return s.topDomain(func(c DomainCounts) int64 { return c.Failed })
}

func (s Snapshot) topDomain(score func(DomainCounts) int64) string {
	var (
		best     string
		bestGain int64
	)
	names := make([]string, 0, len(s.Domains))
	for d := range s.Domains {
		names = append(names, d)
	}
	sort.Strings(names)
	for _, d := range names {
		if n := score(s.Domains[d]); n > bestGain {
			best, bestGain = d, n
		}
	}
	return best
}

// Tracker accumulates counters across a run. Safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	startedAt  time.Time
	clock      scraper.Clock
	total      int64
	succeeded  int64
	failed     int64
	bytes      int64
	fetchTime  time.Duration
	domains    map[string]*DomainCounts
	errorKinds map[string]int64
}

// NewTracker starts the elapsed-time clock immediately.
func NewTracker(clock scraper.Clock) *Tracker {
	return &Tracker{
		startedAt:  clock.Now(),
		clock:      clock,
		domains:    make(map[string]*DomainCounts),
		errorKinds: make(map[string]int64),
	}
}

// Record folds one terminal outcome into the counters.
func (t *Tracker) Record(out scraper.Outcome) {
	domain := out.Domain()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	dc, ok := t.domains[domain]
	if !ok {
		dc = &DomainCounts{}
		t.domains[domain] = dc
	}
	if out.Success {
		t.succeeded++
		dc.Succeeded++
		t.bytes += out.Bytes
		t.fetchTime += out.Duration
		return
	}
	t.failed++
	dc.Failed++
	t.errorKinds[categorize(out)]++
}

// categorize buckets a failure by its message so the summary can show
// what went wrong without keeping every error string.
func categorize(out scraper.Outcome) string {
	if out.FailureKind == scraper.FailureShutdown {
		return "shutdown"
	}
	msg := strings.ToLower(out.ErrorMessage)
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "404"):
		return "not_found"
	case strings.Contains(msg, "403"):
		return "forbidden"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused") || strings.Contains(msg, "no such host"):
		return "connection"
	case strings.Contains(msg, "tls") || strings.Contains(msg, "certificate") || strings.Contains(msg, "x509"):
		return "tls"
	default:
		return "other"
	}
}

// Snapshot copies the counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	domains := make(map[string]DomainCounts, len(t.domains))
	for d, c := range t.domains {
		domains[d] = *c
	}
	kinds := make(map[string]int64, len(t.errorKinds))
	for k, n := range t.errorKinds {
		kinds[k] = n
	}
	return Snapshot{
		Total:      t.total,
		Succeeded:  t.succeeded,
		Failed:     t.failed,
		Bytes:      t.bytes,
		FetchTime:  t.fetchTime,
		Elapsed:    t.clock.Now().Sub(t.startedAt),
		Domains:    domains,
		ErrorKinds: kinds,
	}
}

// Progress returns a one-line counter string for periodic logging.
func (t *Tracker) Progress() string {
	s := t.Snapshot()
	return fmt.Sprintf("scraped=%d ok=%d failed=%d rate=%.1f%% bytes=%s",
		s.Total, s.Succeeded, s.Failed, s.SuccessRate(), formatBytes(s.Bytes))
}

// Summary renders the end-of-run report.
func (t *Tracker) Summary() string {
	s := t.Snapshot()
	var b strings.Builder

	fmt.Fprintf(&b, "scrape summary\n")
	fmt.Fprintf(&b, "  pages:      %d (ok %d, failed %d, %.1f%%)\n", s.Total, s.Succeeded, s.Failed, s.SuccessRate())
	fmt.Fprintf(&b, "  downloaded: %s\n", formatBytes(s.Bytes))
	fmt.Fprintf(&b, "  elapsed:    %s (fetch time %s, avg %s)\n",
		s.Elapsed.Round(time.Millisecond), s.FetchTime.Round(time.Millisecond),
		s.AvgFetchTime().Round(time.Millisecond))

	if len(s.Domains) > 0 {
		names := make([]string, 0, len(s.Domains))
		for d := range s.Domains {
			names = append(names, d)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "  domains:\n")
		for _, d := range names {
			c := s.Domains[d]
			fmt.Fprintf(&b, "    %-30s ok %d, failed %d\n", d, c.Succeeded, c.Failed)
		}
	}
	if len(s.ErrorKinds) > 0 {
		kinds := make([]string, 0, len(s.ErrorKinds))
		for k := range s.ErrorKinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Fprintf(&b, "  failures:\n")
		for _, k := range kinds {
			fmt.Fprintf(&b, "    %-12s %d\n", k, s.ErrorKinds[k])
		}
	}
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
