package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

func testOutcome(success bool) scraper.Outcome {
	out := scraper.Outcome{
		RunID:      uuid.New(),
		URL:        "http://books.toscrape.com/",
		Success:    success,
		Title:      "Books",
		StatusCode: 200,
		Bytes:      2048,
		Duration:   120 * time.Millisecond,
		Attempts:   1,
		ScrapedAt:  time.Now().UTC(),
	}
	if !success {
		out.FailureKind = scraper.FailureRetryExhausted
		out.ErrorMessage = "all 3 attempts failed"
		out.StatusCode = 0
	}
	return out
}

func TestInitCreatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scrape_outcomes").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store := NewWithPool(mock, zap.NewNop())
	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchInsertsEachOutcome(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO scrape_outcomes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO scrape_outcomes").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewWithPool(mock, zap.NewNop())
	outcomes := []scraper.Outcome{testOutcome(true), testOutcome(false)}
	require.NoError(t, store.SaveBatch(context.Background(), outcomes))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewWithPool(mock, zap.NewNop())
	require.NoError(t, store.SaveBatch(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatchPropagatesInsertError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO scrape_outcomes").
		WillReturnError(errors.New("relation does not exist"))

	store := NewWithPool(mock, zap.NewNop())
	err = store.SaveBatch(context.Background(), []scraper.Outcome{testOutcome(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert scrape outcome")
}
