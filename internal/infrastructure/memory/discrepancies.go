package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"library-backend/internal/domains/lending/model"
	lendingrepo "library-backend/internal/domains/lending/repository"
)

// DiscrepancyRepository is the discrepancy ledger view of a Store.
type DiscrepancyRepository struct {
	s    *Store
	inTx bool
}

var _ lendingrepo.DiscrepancyRepository = (*DiscrepancyRepository)(nil)

func (r *DiscrepancyRepository) Create(ctx context.Context, d *model.Discrepancy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	d.CreatedAt = r.s.stamp()
	r.s.discrepancies[d.ID] = copyDiscrepancy(d)
	return nil
}

func (r *DiscrepancyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Discrepancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	d, ok := r.s.discrepancies[id]
	if !ok {
		return nil, model.ErrDiscrepancyNotFound
	}
	return copyDiscrepancy(d), nil
}

func (r *DiscrepancyRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	out := make([]model.Discrepancy, 0)
	for _, d := range r.s.discrepancies {
		if filter.OnlyOpen && d.Resolved() {
			continue
		}
		out = append(out, *copyDiscrepancy(d))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *DiscrepancyRepository) MarkResolved(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID) (*model.Discrepancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	d, ok := r.s.discrepancies[id]
	if !ok {
		return nil, model.ErrDiscrepancyNotFound
	}
	if d.Resolved() {
		return nil, model.ErrDiscrepancyResolved
	}

	now := r.s.stamp()
	d.ResolvedAt = &now
	if resolvedBy != nil {
		by := *resolvedBy
		d.ResolvedBy = &by
	}
	return copyDiscrepancy(d), nil
}
