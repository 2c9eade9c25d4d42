// Package postgres persists scrape outcomes in a scrape_outcomes table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS scrape_outcomes (
    id            BIGSERIAL PRIMARY KEY,
    run_id        UUID        NOT NULL,
    url           TEXT        NOT NULL,
    success       BOOLEAN     NOT NULL,
    failure_kind  TEXT        NOT NULL DEFAULT '',
    error_message TEXT        NOT NULL DEFAULT '',
    title         TEXT        NOT NULL DEFAULT '',
    content       TEXT        NOT NULL DEFAULT '',
    metadata      JSONB,
    status_code   INTEGER     NOT NULL DEFAULT 0,
    bytes         BIGINT      NOT NULL DEFAULT 0,
    duration_ms   BIGINT      NOT NULL DEFAULT 0,
    attempts      INTEGER     NOT NULL DEFAULT 0,
    scraped_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scrape_outcomes_run_id_idx ON scrape_outcomes (run_id);
`

const insertSQL = `
INSERT INTO scrape_outcomes
    (run_id, url, success, failure_kind, error_message, title, content,
     metadata, status_code, bytes, duration_ms, attempts, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
	Close()
}

// OutcomeStore writes outcomes to Postgres in batches.
type OutcomeStore struct {
	pool   Pool
	logger *zap.Logger
}

// New connects to the database and verifies the connection.
func New(ctx context.Context, dsn string, logger *zap.Logger) (*OutcomeStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewWithPool(pool, logger), nil
}

// NewWithPool wraps an existing pool. Used by tests with pgxmock.
func NewWithPool(pool Pool, logger *zap.Logger) *OutcomeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeStore{pool: pool, logger: logger}
}

// Init creates the scrape_outcomes table when it does not exist yet.
func (s *OutcomeStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create scrape_outcomes table: %w", err)
	}
	return nil
}

// SaveBatch inserts the outcomes in one round trip.
func (s *OutcomeStore) SaveBatch(ctx context.Context, outcomes []scraper.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, out := range outcomes {
		var metadata []byte
		if len(out.Metadata) > 0 {
			var err error
			metadata, err = json.Marshal(out.Metadata)
			if err != nil {
				return fmt.Errorf("encode outcome metadata for %s: %w", out.URL, err)
			}
		}
		batch.Queue(insertSQL,
			out.RunID, out.URL, out.Success, string(out.FailureKind),
			out.ErrorMessage, out.Title, out.Content, metadata,
			out.StatusCode, out.Bytes, out.Duration.Milliseconds(),
			out.Attempts, out.ScrapedAt)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("close batch results", zap.Error(err))
		}
	}()

	for range outcomes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert scrape outcome: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (s *OutcomeStore) Close() {
	s.pool.Close()
}
