package sinks

import (
	"context"
	"fmt"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
	"github.com/LoayTarek5/Web-Scraper/internal/store"
)

// StoreSink persists each batch through an OutcomeRepository.
type StoreSink struct {
	repo store.OutcomeRepository
}

// NewStoreSink writes batches to the given repository.
func NewStoreSink(repo store.OutcomeRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Consume(ctx context.Context, outcomes []scraper.Outcome) error {
	if err := s.repo.SaveBatch(ctx, outcomes); err != nil {
		return fmt.Errorf("persist outcomes: %w", err)
	}
	return nil
}

func (s *StoreSink) Close(ctx context.Context) error {
	s.repo.Close()
	return nil
}
