package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/repository"
)

type discrepancyService struct {
	repo repository.DiscrepancyRepository
	tx   repository.TxRunner
}

func NewDiscrepancyService(repo repository.DiscrepancyRepository, tx repository.TxRunner) DiscrepancyServiceInterface {
	return &discrepancyService{repo: repo, tx: tx}
}

func (s *discrepancyService) List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error) {
	return s.repo.List(ctx, filter)
}

// Resolve closes a discrepancy and, when apply is set, adds its delta to the
// book's stock in the same unit of work. A discrepancy is applied at most once.
func (s *discrepancyService) Resolve(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID, apply bool) (*model.Discrepancy, error) {
	var resolved *model.Discrepancy

	err := s.tx.RunInTx(ctx, func(repos repository.Repos) error {
		d, err := repos.Discrepancies.MarkResolved(ctx, id, resolvedBy)
		if err != nil {
			return err
		}
		if apply {
			if _, err := repos.Ledger.AdjustStock(ctx, d.BookID, d.Delta); err != nil {
				return err
			}
		}
		resolved = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("discrepancy_id", id.String()).
		Str("book_id", resolved.BookID.String()).
		Bool("applied", apply).
		Msg("stock discrepancy resolved")
	return resolved, nil
}
