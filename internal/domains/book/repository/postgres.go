package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"library-backend/internal/domains/book/model"
	"library-backend/pkg/cache"
	"library-backend/pkg/database"
)

const (
	tableBooks = "books"

	cacheKeyAllBooks = "books:all"
	cacheTTLDefault  = 5 * time.Minute
)

var bookColumns = []interface{}{"id", "title", "author", "stock", "created_at", "updated_at"}

type postgresRepository struct {
	db      database.DBTX
	cache   cache.Cache
	ttl     time.Duration
	dialect goqu.DialectWrapper
}

// NewPostgresRepository builds the catalog repository on a pool or a transaction.
// cache may be nil; catalog reads then always hit the database.
func NewPostgresRepository(db database.DBTX, c cache.Cache, ttl time.Duration) RepositoryInterface {
	if ttl <= 0 {
		ttl = cacheTTLDefault
	}
	return &postgresRepository{
		db:      db,
		cache:   c,
		ttl:     ttl,
		dialect: goqu.Dialect("postgres"),
	}
}

func bookCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("book:%s", id.String())
}

// ========================================
// READS
// ========================================

func (r *postgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	var cached []model.Book
	if r.cacheGet(ctx, cacheKeyAllBooks, &cached) {
		return cached, nil
	}

	books, err := r.selectBooks(ctx, r.dialect.From(tableBooks).Select(bookColumns...).Order(goqu.I("title").Asc(), goqu.I("author").Asc()))
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	r.cacheSet(ctx, cacheKeyAllBooks, books)
	return books, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	var cached model.Book
	if r.cacheGet(ctx, bookCacheKey(id), &cached) {
		return &cached, nil
	}

	books, err := r.selectBooks(ctx, r.dialect.From(tableBooks).Select(bookColumns...).Where(goqu.C("id").Eq(id.String())))
	if err != nil {
		return nil, fmt.Errorf("find book by id: %w", err)
	}
	if len(books) == 0 {
		return nil, model.ErrBookNotFound
	}

	r.cacheSet(ctx, bookCacheKey(id), books[0])
	return &books[0], nil
}

func (r *postgresRepository) FindByTitle(ctx context.Context, title string) ([]model.Book, error) {
	books, err := r.selectBooks(ctx, r.dialect.From(tableBooks).Select(bookColumns...).
		Where(goqu.C("title").Eq(title)).
		Order(goqu.I("author").Asc()))
	if err != nil {
		return nil, fmt.Errorf("find books by title: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) FindByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	books, err := r.selectBooks(ctx, r.dialect.From(tableBooks).Select(bookColumns...).
		Where(goqu.C("author").Eq(author)).
		Order(goqu.I("title").Asc()))
	if err != nil {
		return nil, fmt.Errorf("find books by author: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Book, error) {
	if len(ids) == 0 {
		return []model.Book{}, nil
	}

	idStrings := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrings = append(idStrings, id.String())
	}

	books, err := r.selectBooks(ctx, r.dialect.From(tableBooks).Select(bookColumns...).
		Where(goqu.C("id").In(idStrings)).
		Order(goqu.I("title").Asc()))
	if err != nil {
		return nil, fmt.Errorf("find books by ids: %w", err)
	}
	return books, nil
}

func (r *postgresRepository) selectBooks(ctx context.Context, ds *goqu.SelectDataset) ([]model.Book, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := make([]model.Book, 0)
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Stock, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ========================================
// ADMIN WRITES
// ========================================

func (r *postgresRepository) Create(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (id, title, author, stock, created_at, updated_at)
		VALUES ($1, $2, $3, 0, NOW(), NOW())
		ON CONFLICT (title, author) DO NOTHING
		RETURNING stock, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, book.ID, book.Title, book.Author).
		Scan(&book.Stock, &book.CreatedAt, &book.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrBookAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	r.invalidate(ctx, book.ID)
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM books
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM users WHERE $1 = ANY(borrowed_books))
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrBookNotFound
		}
		return model.ErrBookBorrowed
	}

	r.invalidate(ctx, id)
	return nil
}

// ========================================
// STOCK LEDGER
// ========================================

func (r *postgresRepository) DecrementStock(ctx context.Context, id uuid.UUID) error {
	// The stock > 0 predicate and the write are one statement, so two
	// concurrent borrowers of the last copy cannot both succeed.
	query := `
		UPDATE books
		SET stock = stock - 1, updated_at = NOW()
		WHERE id = $1
		  AND stock > 0
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrBookNotFound
		}
		return model.ErrNoStockAvailable
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *postgresRepository) IncrementStock(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE books
		SET stock = stock + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrBookNotFound
	}

	r.invalidate(ctx, id)
	return nil
}

func (r *postgresRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Book, error) {
	query := `
		UPDATE books
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		  AND stock + $2 >= 0
		RETURNING id, title, author, stock, created_at, updated_at
	`

	var b model.Book
	err := r.db.QueryRow(ctx, query, id, delta).
		Scan(&b.ID, &b.Title, &b.Author, &b.Stock, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		exists, existsErr := r.exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, model.ErrBookNotFound
		}
		return nil, model.ErrStockNegative
	}
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	r.invalidate(ctx, id)
	return &b, nil
}

// ========================================
// HELPERS
// ========================================

func (r *postgresRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check book exists: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.cache == nil {
		return false
	}
	found, err := r.cache.Get(ctx, key, dest)
	return err == nil && found
}

func (r *postgresRepository) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Set(ctx, key, value, r.ttl)
}

// invalidate drops every cached view that includes the book.
func (r *postgresRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Delete(ctx, bookCacheKey(id), cacheKeyAllBooks)
}
