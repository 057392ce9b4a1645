package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/lending/model"
)

// ServiceInterface is the lending flow used by the HTTP layer.
type ServiceInterface interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID) error
	Return(ctx context.Context, userID, bookID uuid.UUID) error
}

// DiscrepancyServiceInterface lists and reconciles recorded stock discrepancies.
type DiscrepancyServiceInterface interface {
	List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error)
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID, apply bool) (*model.Discrepancy, error)
}
