// Package dispatcher schedules frontier URLs onto a bounded pool of
// workers and forwards every terminal outcome to the sink exactly once.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/frontier"
	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// State is the dispatcher lifecycle phase.
type State int32

// Lifecycle phases. Transitions only move forward.
const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned when Run is called on a dispatcher that
// has already run. A dispatcher is one-shot.
var ErrAlreadyStarted = errors.New("dispatcher: already started")

const defaultPollInterval = 5 * time.Second

// Config bounds a dispatcher run.
type Config struct {
	// Workers caps the number of concurrently executing tasks.
	Workers int
	// PollInterval is the safety-net wakeup for seeds added while the
	// dispatcher is blocked. Completions and Seed calls wake it sooner.
	PollInterval time.Duration
	// ShutdownGrace is how long in-flight tasks may finish after
	// cancellation before they are force-aborted.
	ShutdownGrace time.Duration
}

// Validate applies defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("dispatcher: workers must be at least 1, got %d", c.Workers)
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("dispatcher: shutdown grace must not be negative")
	}
	return nil
}

// TaskRunner executes one job to its terminal outcome.
type TaskRunner interface {
	Run(ctx context.Context, job scraper.Job) scraper.Outcome
}

// Dispatcher drives one scrape run. It is one-shot: construct, seed,
// Run, inspect. Seeding remains allowed while running.
type Dispatcher struct {
	cfg      Config
	frontier *frontier.Frontier
	runner   TaskRunner
	sink     scraper.OutcomeSink
	clock    scraper.Clock
	logger   *zap.Logger

	runID     uuid.UUID
	state     atomic.Int32
	delivered atomic.Int64
	wake      chan struct{}
}

// New validates the configuration and assembles a dispatcher.
func New(cfg Config, fr *frontier.Frontier, runner TaskRunner, sink scraper.OutcomeSink, clock scraper.Clock, logger *zap.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fr == nil {
		return nil, errors.New("dispatcher: frontier is required")
	}
	if runner == nil {
		return nil, errors.New("dispatcher: runner is required")
	}
	if sink == nil {
		return nil, errors.New("dispatcher: sink is required")
	}
	if clock == nil {
		return nil, errors.New("dispatcher: clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cfg:      cfg,
		frontier: fr,
		runner:   runner,
		sink:     sink,
		clock:    clock,
		logger:   logger,
		runID:    uuid.New(),
		wake:     make(chan struct{}, 1),
	}, nil
}

// RunID identifies this dispatcher run. It is stamped on every outcome.
func (d *Dispatcher) RunID() uuid.UUID { return d.runID }

// State returns the current lifecycle phase.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// Delivered returns how many outcomes have reached the sink so far.
func (d *Dispatcher) Delivered() int64 { return d.delivered.Load() }

// Seed adds URLs to the frontier and wakes the scheduler. Returns the
// number of URLs accepted after deduplication.
func (d *Dispatcher) Seed(urls []string) int {
	accepted := d.frontier.AddAll(urls)
	metrics.SetFrontierPending(d.frontier.Len())
	if accepted > 0 {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	return accepted
}

// Run schedules frontier URLs until the frontier drains and every task
// has completed, or until ctx is cancelled. On cancellation it stops
// admitting, gives in-flight tasks the grace period, then force-aborts
// the rest; their shutdown outcomes still reach the sink. Run returns
// nil on a drained frontier and the context error on cancellation.
// A second Run is a logged no-op on the scheduler; it additionally
// returns ErrAlreadyStarted so callers can tell nothing was scheduled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		d.logger.Warn("run ignored, dispatcher already started",
			zap.String("state", d.State().String()))
		return ErrAlreadyStarted
	}
	defer d.state.Store(int32(StateStopped))

	started := d.clock.Now()
	d.logger.Info("dispatcher starting",
		zap.String("run_id", d.runID.String()),
		zap.Int("workers", d.cfg.Workers),
		zap.Int("seeded", d.frontier.Len()))

	// Tasks get their own context so cancellation of ctx starts a drain
	// instead of killing them outright.
	taskCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	completions := make(chan scraper.Outcome, d.cfg.Workers)
	inFlight := 0

	poll := time.NewTicker(d.cfg.PollInterval)
	defer poll.Stop()

	admit := func() {
		for inFlight < d.cfg.Workers {
			url, ok := d.frontier.Take()
			if !ok {
				break
			}
			if !d.frontier.MarkVisited(url) {
				continue
			}
			inFlight++
			metrics.IncInFlight()
			go func(url string) {
				completions <- d.runner.Run(taskCtx, scraper.Job{URL: url})
			}(url)
		}
		metrics.SetFrontierPending(d.frontier.Len())
	}

	admit()
	for {
		if inFlight == 0 && d.frontier.Empty() {
			d.logger.Info("frontier drained",
				zap.String("run_id", d.runID.String()),
				zap.Int64("outcomes", d.delivered.Load()),
				zap.Duration("elapsed", d.clock.Now().Sub(started)))
			return nil
		}
		select {
		case out := <-completions:
			inFlight--
			metrics.DecInFlight()
			d.deliver(out)
			admit()
		case <-d.wake:
			admit()
		case <-poll.C:
			admit()
		case <-ctx.Done():
			d.drain(cancelTasks, completions, inFlight)
			return ctx.Err()
		}
	}
}

// drain waits out in-flight tasks after cancellation. No new work is
// admitted. When the grace period lapses the task context is cancelled
// and the remaining workers return shutdown outcomes.
func (d *Dispatcher) drain(cancelTasks context.CancelFunc, completions <-chan scraper.Outcome, inFlight int) {
	d.state.Store(int32(StateDraining))
	d.logger.Info("draining",
		zap.Int("in_flight", inFlight),
		zap.Duration("grace", d.cfg.ShutdownGrace),
		zap.Int("pending_dropped", d.frontier.Len()))

	grace := time.NewTimer(d.cfg.ShutdownGrace)
	defer grace.Stop()

	for inFlight > 0 {
		select {
		case out := <-completions:
			inFlight--
			metrics.DecInFlight()
			d.deliver(out)
		case <-grace.C:
			d.logger.Warn("shutdown grace elapsed, aborting in-flight tasks",
				zap.Int("in_flight", inFlight))
			cancelTasks()
		}
	}
}

func (d *Dispatcher) deliver(out scraper.Outcome) {
	out.RunID = d.runID
	d.delivered.Add(1)
	d.sink.OnOutcome(out)
}
