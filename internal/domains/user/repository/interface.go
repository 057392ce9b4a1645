package repository

import (
	"context"

	"github.com/google/uuid"

	"library-backend/internal/domains/user/model"
)

// RepositoryInterface is the account store. It also owns the two
// per-account pieces of lending state: the borrowed-book set and the
// session token version.
type RepositoryInterface interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// Delete refuses while the account still holds books.
	Delete(ctx context.Context, id uuid.UUID) error
	SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error

	// Session version
	GetSessionState(ctx context.Context, id uuid.UUID) (*model.SessionState, error)
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
	// UpdatePassword stores a new hash and revokes every outstanding token in one write.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (int, error)

	// Loan registry
	AddBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error
	RemoveBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error
}
