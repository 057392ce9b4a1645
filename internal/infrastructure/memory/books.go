package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"library-backend/internal/domains/book/model"
	bookrepo "library-backend/internal/domains/book/repository"
	lendingrepo "library-backend/internal/domains/lending/repository"
)

// BookRepository is the catalog view of a Store.
type BookRepository struct {
	s    *Store
	inTx bool
}

var (
	_ bookrepo.RepositoryInterface = (*BookRepository)(nil)
	_ lendingrepo.StockLedger      = (*BookRepository)(nil)
)

func (r *BookRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	return r.filter(ctx, func(*model.Book) bool { return true })
}

func (r *BookRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	b, ok := r.s.books[id]
	if !ok {
		return nil, model.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *BookRepository) FindByTitle(ctx context.Context, title string) ([]model.Book, error) {
	return r.filter(ctx, func(b *model.Book) bool { return b.Title == title })
}

func (r *BookRepository) FindByAuthor(ctx context.Context, author string) ([]model.Book, error) {
	return r.filter(ctx, func(b *model.Book) bool { return b.Author == author })
}

func (r *BookRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Book, error) {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return r.filter(ctx, func(b *model.Book) bool {
		_, ok := wanted[b.ID]
		return ok
	})
}

func (r *BookRepository) Create(ctx context.Context, book *model.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	for _, b := range r.s.books {
		if b.Title == book.Title && b.Author == book.Author {
			return model.ErrBookAlreadyExists
		}
	}

	now := r.s.stamp()
	book.Stock = 0
	book.CreatedAt = now
	book.UpdatedAt = now

	cp := *book
	r.s.books[book.ID] = &cp
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	if _, ok := r.s.books[id]; !ok {
		return model.ErrBookNotFound
	}
	for _, u := range r.s.users {
		if u.HasBorrowed(id) {
			return model.ErrBookBorrowed
		}
	}

	delete(r.s.books, id)
	return nil
}

// ========================================
// STOCK LEDGER
// ========================================

func (r *BookRepository) DecrementStock(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	b, ok := r.s.books[id]
	if !ok {
		return model.ErrBookNotFound
	}
	if b.Stock <= 0 {
		return model.ErrNoStockAvailable
	}

	b.Stock--
	b.UpdatedAt = r.s.stamp()
	return nil
}

func (r *BookRepository) IncrementStock(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	b, ok := r.s.books[id]
	if !ok {
		return model.ErrBookNotFound
	}

	b.Stock++
	b.UpdatedAt = r.s.stamp()
	return nil
}

func (r *BookRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	b, ok := r.s.books[id]
	if !ok {
		return nil, model.ErrBookNotFound
	}
	if b.Stock+delta < 0 {
		return nil, model.ErrStockNegative
	}

	b.Stock += delta
	b.UpdatedAt = r.s.stamp()
	cp := *b
	return &cp, nil
}

func (r *BookRepository) filter(ctx context.Context, keep func(*model.Book) bool) ([]model.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	out := make([]model.Book, 0)
	for _, b := range r.s.books {
		if keep(b) {
			out = append(out, *b)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Author < out[j].Author
	})
	return out, nil
}
