package job

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/lending/model"
)

type fakeDiscrepancies struct {
	list    func(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error)
	resolve func(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID, apply bool) (*model.Discrepancy, error)
}

func (f *fakeDiscrepancies) List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error) {
	return f.list(ctx, filter)
}

func (f *fakeDiscrepancies) Resolve(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID, apply bool) (*model.Discrepancy, error) {
	return f.resolve(ctx, id, resolvedBy, apply)
}
