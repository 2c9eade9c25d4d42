// Package ratelimit provides per-domain admission control for outbound
// fetches. Each domain gets a fixed-window request quota plus a minimum
// spacing between consecutive requests; Acquire blocks until both allow
// the call through.
package ratelimit

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Rule bounds the request rate for one domain.
type Rule struct {
	// Requests allowed per Period. Zero disables the quota.
	Requests int
	// Period is the fixed quota window.
	Period time.Duration
	// MinDelay is the minimum spacing between consecutive admissions.
	MinDelay time.Duration
}

// Validate rejects rules that could never admit anything.
func (r Rule) Validate() error {
	if r.Requests < 0 {
		return fmt.Errorf("ratelimit: requests must not be negative, got %d", r.Requests)
	}
	if r.Requests > 0 && r.Period <= 0 {
		return fmt.Errorf("ratelimit: a quota of %d needs a positive period", r.Requests)
	}
	if r.MinDelay < 0 {
		return fmt.Errorf("ratelimit: min delay must not be negative")
	}
	return nil
}

// cell tracks one domain's window. Each cell carries its own mutex so a
// slow domain never blocks admissions for the others. The quota window
// is anchored at the last recorded access: once a full period passes
// without an admission the counter resets, which allows a burst of up
// to twice the quota to straddle a window boundary.
type cell struct {
	mu         sync.Mutex
	count      int
	lastAccess time.Time
}

// patternRule pairs a compiled domain regexp with its rule. Patterns
// are kept in insertion order; the first match wins.
type patternRule struct {
	expr string
	re   *regexp.Regexp
	rule Rule
}

// Limiter admits requests per domain according to the configured rules.
// Resolution order is exact domain, then the first matching pattern,
// then the default. Unknown domains fall back to the default rule. The
// zero value is not usable; call New.
type Limiter struct {
	mu           sync.RWMutex
	defaultRule  Rule
	domainRules  map[string]Rule
	patternRules []patternRule
	cells        map[string]*cell

	clock  scraper.Clock
	logger *zap.Logger
}

// New returns a Limiter that admits every domain under the default rule.
func New(defaultRule Rule, clock scraper.Clock, logger *zap.Logger) (*Limiter, error) {
	if err := defaultRule.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		return nil, fmt.Errorf("ratelimit: clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		defaultRule: defaultRule,
		domainRules: make(map[string]Rule),
		cells:       make(map[string]*cell),
		clock:       clock,
		logger:      logger,
	}, nil
}

// SetDefaultRule replaces the fallback rule for domains with no explicit
// rule. Existing window state is kept.
func (l *Limiter) SetDefaultRule(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaultRule = r
	return nil
}

// AddDomainRule pins a rule to an exact domain (case-insensitive).
func (l *Limiter) AddDomainRule(domain string, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.domainRules[strings.ToLower(domain)] = r
	return nil
}

// AddPatternRule pins a rule to a domain regexp such as
// `.*\.example\.com` or `(api|cdn)\.example\.com`. The expression must
// match the whole domain. Patterns are consulted in the order they were
// added, only when no exact domain rule matches; re-adding the same
// expression replaces its rule in place.
func (l *Limiter) AddPatternRule(pattern string, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if pattern == "" {
		return fmt.Errorf("ratelimit: pattern must not be empty")
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return fmt.Errorf("ratelimit: compile pattern %q: %w", pattern, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.patternRules {
		if l.patternRules[i].expr == pattern {
			l.patternRules[i].re = re
			l.patternRules[i].rule = r
			return nil
		}
	}
	l.patternRules = append(l.patternRules, patternRule{expr: pattern, re: re, rule: r})
	return nil
}

// AddRule routes a configured rule by its key: a plain hostname becomes
// an exact domain rule, anything with regexp metacharacters becomes a
// pattern rule.
func (l *Limiter) AddRule(expr string, r Rule) error {
	if isExactDomain(expr) {
		return l.AddDomainRule(expr, r)
	}
	return l.AddPatternRule(expr, r)
}

// isExactDomain reports whether expr is a literal hostname with no
// regexp metacharacters.
func isExactDomain(expr string) bool {
	if expr == "" {
		return false
	}
	for _, c := range expr {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.':
		default:
			return false
		}
	}
	return true
}

// ClearDomain forgets the window state for one domain. Its rule, if any,
// is kept.
func (l *Limiter) ClearDomain(domain string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cells, strings.ToLower(domain))
}

// Reset forgets all window state but keeps the rules.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cells = make(map[string]*cell)
}

// ruleFor resolves the rule for a domain: exact match, then the first
// matching pattern in insertion order, then the default.
func (l *Limiter) ruleFor(domain string) Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if r, ok := l.domainRules[domain]; ok {
		return r
	}
	for _, p := range l.patternRules {
		if p.re.MatchString(domain) {
			return p.rule
		}
	}
	return l.defaultRule
}

func (l *Limiter) cellFor(domain string) *cell {
	l.mu.RLock()
	c, ok := l.cells[domain]
	l.mu.RUnlock()
	if ok {
		return c
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok = l.cells[domain]; ok {
		return c
	}
	c = &cell{}
	l.cells[domain] = c
	return c
}

// waitFor computes how long the domain must wait as of now. When
// advance is true an elapsed window is reset in place; Acquire passes
// true, WaitTime passes false so it stays read-only.
func (c *cell) waitFor(r Rule, now time.Time, advance bool) time.Duration {
	count := c.count
	if !c.lastAccess.IsZero() && r.Period > 0 && now.Sub(c.lastAccess) >= r.Period {
		if advance {
			c.count = 0
		}
		count = 0
	}

	var wait time.Duration
	if r.Requests > 0 && count >= r.Requests {
		wait = c.lastAccess.Add(r.Period).Sub(now)
	}
	if r.MinDelay > 0 && !c.lastAccess.IsZero() {
		if d := c.lastAccess.Add(r.MinDelay).Sub(now); d > wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// record commits one admission at now.
func (c *cell) record(now time.Time) {
	c.count++
	c.lastAccess = now
}

// Acquire blocks until the domain's rule admits one more request, then
// records the admission. It returns the context error if ctx is done
// first. The admission is recorded at the moment the wait ends, never
// ahead of it.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	domain = strings.ToLower(domain)
	c := l.cellFor(domain)
	var waited time.Duration

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rule := l.ruleFor(domain)

		// Read the clock under the cell lock so a contended record can
		// never push lastAccess backwards.
		c.mu.Lock()
		now := l.clock.Now()
		wait := c.waitFor(rule, now, true)
		if wait <= 0 {
			c.record(now)
			c.mu.Unlock()
			if waited > time.Millisecond {
				metrics.ObserveRateLimitDelay(domain, waited)
				l.logger.Debug("rate limit wait",
					zap.String("domain", domain),
					zap.Duration("waited", waited))
			}
			return nil
		}
		c.mu.Unlock()

		// Sleep outside the cell lock so other goroutines waiting on
		// this domain, and every other domain, stay unblocked.
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		waited += wait
	}
}

// WaitTime reports how long Acquire would block for the domain right
// now, without mutating any state.
func (l *Limiter) WaitTime(domain string) time.Duration {
	domain = strings.ToLower(domain)
	c := l.cellFor(domain)
	rule := l.ruleFor(domain)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waitFor(rule, l.clock.Now(), false)
}
