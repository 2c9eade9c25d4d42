package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

const (
	defaultBufferSize  = 1024
	defaultBatchSize   = 100
	defaultBatchWait   = 500 * time.Millisecond
	defaultSinkTimeout = 10 * time.Second
)

// Config controls hub buffering and batching.
type Config struct {
	// BufferSize is the capacity of the intake channel (default 1024).
	BufferSize int
	// BatchSize flushes once this many outcomes queue (default 100).
	BatchSize int
	// BatchWait flushes a partial batch after this delay (default 500ms).
	BatchWait time.Duration
	// SinkTimeout bounds each sink call during a flush (default 10s).
	SinkTimeout time.Duration
	Logger      *zap.Logger
}

// Hub implements scraper.OutcomeSink by batching outcomes and fanning
// each batch out to every registered sink. Delivery is lossless:
// OnOutcome blocks when the buffer is full rather than dropping, since
// every scheduled job owes the sinks exactly one outcome. A wedged sink
// is bounded by SinkTimeout, so intake keeps moving.
type Hub struct {
	cfg    Config
	sinks  []Sink
	intake chan scraper.Outcome
	logger *zap.Logger

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewHub starts the flusher goroutine. The hub accepts outcomes
// immediately.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = defaultBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		intake: make(chan scraper.Outcome, cfg.BufferSize),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go h.run()
	return h
}

// OnOutcome enqueues one outcome for batching. Blocks if the buffer is
// full; returns silently after Close.
func (h *Hub) OnOutcome(out scraper.Outcome) {
	select {
	case <-h.stopCh:
		h.logger.Warn("outcome arrived after hub close", zap.String("url", out.URL))
	case h.intake <- out:
	}
}

// Close drains buffered outcomes, flushes every sink, closes them, and
// waits for the flusher to exit. Safe to call more than once.
func (h *Hub) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("report hub close: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)

	batch := make([]scraper.Outcome, 0, h.cfg.BatchSize)
	ticker := time.NewTicker(h.cfg.BatchWait)
	defer ticker.Stop()

	for {
		select {
		case out := <-h.intake:
			batch = append(batch, out)
			if len(batch) >= h.cfg.BatchSize {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				h.flush(batch)
				batch = batch[:0]
			}
		case <-h.stopCh:
			batch = h.drainIntake(batch)
			if len(batch) > 0 {
				h.flush(batch)
			}
			h.closeSinks()
			return
		}
	}
}

// drainIntake empties whatever is buffered at close time, flushing full
// batches as it goes.
func (h *Hub) drainIntake(batch []scraper.Outcome) []scraper.Outcome {
	for {
		select {
		case out := <-h.intake:
			batch = append(batch, out)
			if len(batch) >= h.cfg.BatchSize {
				h.flush(batch)
				batch = batch[:0]
			}
		default:
			return batch
		}
	}
}

func (h *Hub) flush(batch []scraper.Outcome) {
	outcomes := append([]scraper.Outcome(nil), batch...)
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Consume(ctx, outcomes); err != nil {
			h.logger.Warn("outcome sink consume failed",
				zap.String("sink", sink.Name()),
				zap.Int("batch", len(outcomes)),
				zap.Error(err))
		}
		cancel()
	}
}

func (h *Hub) closeSinks() {
	for _, sink := range h.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("outcome sink close failed",
				zap.String("sink", sink.Name()),
				zap.Error(err))
		}
		cancel()
	}
}
