package repository

import (
	"context"

	"github.com/google/uuid"

	bookmodel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/lending/model"
)

// StockLedger is the catalog's stock counter.
type StockLedger interface {
	DecrementStock(ctx context.Context, bookID uuid.UUID) error
	IncrementStock(ctx context.Context, bookID uuid.UUID) error
	AdjustStock(ctx context.Context, bookID uuid.UUID, delta int) (*bookmodel.Book, error)
}

// LoanRegistry is the per-account set of borrowed books.
type LoanRegistry interface {
	AddBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error
	RemoveBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error
}

type DiscrepancyRepository interface {
	Create(ctx context.Context, d *model.Discrepancy) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Discrepancy, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.Discrepancy, error)
	// MarkResolved stamps an open discrepancy. Returns model.ErrDiscrepancyResolved
	// when it was already closed.
	MarkResolved(ctx context.Context, id uuid.UUID, resolvedBy *uuid.UUID) (*model.Discrepancy, error)
}

// Repos are the lending stores bound to one unit of work.
type Repos struct {
	Ledger        StockLedger
	Registry      LoanRegistry
	Discrepancies DiscrepancyRepository
}

// TxRunner runs fn against stores that commit together or not at all.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(repos Repos) error) error
}
