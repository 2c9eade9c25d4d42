package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

type memSink struct {
	mu       sync.Mutex
	name     string
	err      error
	outcomes []scraper.Outcome
	batches  int
	closed   bool
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.outcomes = append(s.outcomes, outcomes...)
	s.batches++
	return nil
}

func (s *memSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

func (s *memSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func outcome(url string) scraper.Outcome {
	return scraper.Outcome{URL: url, Success: true}
}

func TestHubFlushesOnBatchSize(t *testing.T) {
	t.Parallel()

	sink := &memSink{name: "mem"}
	h := NewHub(Config{BatchSize: 3, BatchWait: time.Hour, Logger: zap.NewNop()}, sink)

	for i := 0; i < 3; i++ {
		h.OnOutcome(outcome("http://example.com/a"))
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sink.batchCount())

	require.NoError(t, h.Close(context.Background()))
}

func TestHubFlushesOnTimer(t *testing.T) {
	t.Parallel()

	sink := &memSink{name: "mem"}
	h := NewHub(Config{BatchSize: 100, BatchWait: 20 * time.Millisecond, Logger: zap.NewNop()}, sink)

	h.OnOutcome(outcome("http://example.com/a"))
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close(context.Background()))
}

func TestHubCloseDrains(t *testing.T) {
	t.Parallel()

	sink := &memSink{name: "mem"}
	h := NewHub(Config{BatchSize: 100, BatchWait: time.Hour, Logger: zap.NewNop()}, sink)

	for i := 0; i < 7; i++ {
		h.OnOutcome(outcome("http://example.com/a"))
	}
	require.NoError(t, h.Close(context.Background()))

	assert.Equal(t, 7, sink.count(), "buffered outcomes flush on close")
	assert.True(t, sink.closed)

	require.NoError(t, h.Close(context.Background()), "second close is a no-op")
}

func TestHubSinkErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	bad := &memSink{name: "bad", err: errors.New("sink down")}
	good := &memSink{name: "good"}
	h := NewHub(Config{BatchSize: 1, BatchWait: time.Hour, Logger: zap.NewNop()}, bad, good)

	h.OnOutcome(outcome("http://example.com/a"))
	require.Eventually(t, func() bool { return good.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close(context.Background()))
}
