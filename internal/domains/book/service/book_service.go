package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/repository"
)

type bookService struct {
	repo repository.RepositoryInterface
}

func NewBookService(repo repository.RepositoryInterface) ServiceInterface {
	return &bookService{repo: repo}
}

func (s *bookService) ListBooks(ctx context.Context) ([]model.BookDetail, error) {
	books, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return model.ToDetails(books), nil
}

func (s *bookService) GetBook(ctx context.Context, id uuid.UUID) (*model.BookDetail, error) {
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := book.ToDetail()
	return &detail, nil
}

// FindByTitle matches the title exactly.
func (s *bookService) FindByTitle(ctx context.Context, title string) ([]model.BookDetail, error) {
	books, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return model.ToDetails(books), nil
}

// FindByAuthor matches the author exactly.
func (s *bookService) FindByAuthor(ctx context.Context, author string) ([]model.BookDetail, error) {
	books, err := s.repo.FindByAuthor(ctx, author)
	if err != nil {
		return nil, err
	}
	return model.ToDetails(books), nil
}

// ========================================
// ADMIN
// ========================================

// CreateBook adds a title with no copies on the shelf; restock with AdjustStock.
func (s *bookService) CreateBook(ctx context.Context, req model.CreateBookRequest) (*model.BookDetail, error) {
	book := &model.Book{
		ID:     uuid.New(),
		Title:  req.Title,
		Author: req.Author,
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	log.Info().Str("book_id", book.ID.String()).Str("title", book.Title).Msg("book created")
	detail := book.ToDetail()
	return &detail, nil
}

func (s *bookService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Str("book_id", id.String()).Msg("book deleted")
	return nil
}

func (s *bookService) AdjustStock(ctx context.Context, id uuid.UUID, req model.AdjustStockRequest) (*model.BookDetail, error) {
	book, err := s.repo.AdjustStock(ctx, id, req.Delta)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("book_id", id.String()).
		Int("delta", req.Delta).
		Int("stock", book.Stock).
		Msg("stock adjusted")
	detail := book.ToDetail()
	return &detail, nil
}
