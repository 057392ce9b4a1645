package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	lendingrepo "library-backend/internal/domains/lending/repository"
	"library-backend/internal/domains/user/model"
	userrepo "library-backend/internal/domains/user/repository"
)

// UserRepository is the account view of a Store.
type UserRepository struct {
	s    *Store
	inTx bool
}

var (
	_ userrepo.RepositoryInterface = (*UserRepository)(nil)
	_ lendingrepo.LoanRegistry     = (*UserRepository)(nil)
)

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return model.ErrEmailAlreadyExists
		}
	}

	now := r.s.stamp()
	user.TokenVersion = 0
	user.BorrowedBooks = []uuid.UUID{}
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	if len(u.BorrowedBooks) > 0 {
		return model.ErrUserHasBorrowedBooks
	}

	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	return r.update(ctx, id, func(u *model.User) error {
		u.IsAdmin = isAdmin
		return nil
	})
}

// ========================================
// SESSION VERSION
// ========================================

func (r *UserRepository) GetSessionState(ctx context.Context, id uuid.UUID) (*model.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock(r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &model.SessionState{TokenVersion: u.TokenVersion, IsAdmin: u.IsAdmin}, nil
}

func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	var version int
	err := r.update(ctx, id, func(u *model.User) error {
		u.TokenVersion++
		version = u.TokenVersion
		return nil
	})
	return version, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (int, error) {
	var version int
	err := r.update(ctx, id, func(u *model.User) error {
		u.PasswordHash = passwordHash
		u.TokenVersion++
		version = u.TokenVersion
		return nil
	})
	return version, err
}

// ========================================
// LOAN REGISTRY
// ========================================

func (r *UserRepository) AddBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	return r.update(ctx, userID, func(u *model.User) error {
		if u.HasBorrowed(bookID) {
			return model.ErrBookAlreadyBorrowed
		}
		if len(u.BorrowedBooks) >= model.MaxBorrowedBooks {
			return model.ErrBorrowLimitReached
		}
		u.BorrowedBooks = append(u.BorrowedBooks, bookID)
		return nil
	})
}

func (r *UserRepository) RemoveBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	err := r.update(ctx, userID, func(u *model.User) error {
		for i, id := range u.BorrowedBooks {
			if id == bookID {
				u.BorrowedBooks = append(u.BorrowedBooks[:i:i], u.BorrowedBooks[i+1:]...)
				return nil
			}
		}
		return model.ErrBookNotBorrowed
	})
	if errors.Is(err, model.ErrUserNotFound) {
		return model.ErrBookNotBorrowed
	}
	return err
}

// update applies fn to the stored account; fn's error leaves it unchanged.
func (r *UserRepository) update(ctx context.Context, id uuid.UUID, fn func(u *model.User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock(r.inTx)()

	u, ok := r.s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}

	next := copyUser(u)
	if err := fn(next); err != nil {
		return err
	}
	next.UpdatedAt = r.s.stamp()
	r.s.users[id] = next
	return nil
}
