package service

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
)

// ServiceInterface is the catalog business layer.
type ServiceInterface interface {
	ListBooks(ctx context.Context) ([]model.BookDetail, error)
	GetBook(ctx context.Context, id uuid.UUID) (*model.BookDetail, error)
	FindByTitle(ctx context.Context, title string) ([]model.BookDetail, error)
	FindByAuthor(ctx context.Context, author string) ([]model.BookDetail, error)

	// Admin
	CreateBook(ctx context.Context, req model.CreateBookRequest) (*model.BookDetail, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, req model.AdjustStockRequest) (*model.BookDetail, error)
}
