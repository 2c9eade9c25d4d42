package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/clock/system"
	"github.com/LoayTarek5/Web-Scraper/internal/dispatcher"
	"github.com/LoayTarek5/Web-Scraper/internal/frontier"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
	"github.com/LoayTarek5/Web-Scraper/internal/stats"
)

type noopRunner struct{}

func (noopRunner) Run(ctx context.Context, job scraper.Job) scraper.Outcome {
	return scraper.SuccessOutcome(job, scraper.Payload{}, scraper.Extracted{}, 1, time.Now())
}

type noopSink struct{}

func (noopSink) OnOutcome(scraper.Outcome) {}

func newTestServer(t *testing.T) (*Server, *stats.Tracker) {
	t.Helper()
	tracker := stats.NewTracker(system.New())
	disp, err := dispatcher.New(dispatcher.Config{Workers: 1}, frontier.New(nil), noopRunner{}, noopSink{}, system.New(), zap.NewNop())
	require.NoError(t, err)
	return New(0, tracker, disp, zap.NewNop()), tracker
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	t.Parallel()

	srv, tracker := newTestServer(t)
	tracker.Record(scraper.Outcome{URL: "http://books.toscrape.com/", Success: true, Bytes: 512})
	tracker.Record(scraper.Outcome{URL: "http://example.com/x", FailureKind: scraper.FailureRetryExhausted, ErrorMessage: "timeout"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body.State)
	assert.NotEmpty(t, body.RunID)
	assert.EqualValues(t, 2, body.Total)
	assert.EqualValues(t, 1, body.Succeeded)
	assert.EqualValues(t, 1, body.ErrorKinds["timeout"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
