package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
)

// RepositoryInterface is the catalog's data access contract.
// DecrementStock, IncrementStock and AdjustStock are the only writes to stock;
// each is a single atomic guarded update.
type RepositoryInterface interface {
	ListBooks(ctx context.Context) ([]model.Book, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error)
	FindByTitle(ctx context.Context, title string) ([]model.Book, error)
	FindByAuthor(ctx context.Context, author string) ([]model.Book, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Book, error)

	// Create inserts a book with zero stock.
	// Returns model.ErrBookAlreadyExists when title and author are taken.
	Create(ctx context.Context, book *model.Book) error
	// Delete removes a book no account is holding.
	// Returns model.ErrBookNotFound or model.ErrBookBorrowed.
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementStock takes one copy off the shelf only if stock > 0.
	// Returns model.ErrBookNotFound or model.ErrNoStockAvailable.
	DecrementStock(ctx context.Context, id uuid.UUID) error
	// IncrementStock puts one copy back. Returns model.ErrBookNotFound.
	IncrementStock(ctx context.Context, id uuid.UUID) error
	// AdjustStock applies an administrative delta that may not take stock below zero.
	// Returns model.ErrBookNotFound or model.ErrStockNegative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Book, error)
}
