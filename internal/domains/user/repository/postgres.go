package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"library-backend/internal/domains/user/model"
	"library-backend/pkg/database"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const userColumns = `id, email, username, password_hash, is_admin, token_version, borrowed_books::text[], created_at, updated_at`

type postgresRepository struct {
	db database.DBTX
}

// NewPostgresRepository builds the account repository on a pool or a transaction.
// Account rows are never cached: session checks must see the latest token version.
func NewPostgresRepository(db database.DBTX) RepositoryInterface {
	return &postgresRepository{db: db}
}

// ========================================
// ACCOUNTS
// ========================================

func (r *postgresRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, is_admin, token_version, borrowed_books, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, '{}', NOW(), NOW())
		ON CONFLICT (email) DO NOTHING
		RETURNING token_version, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.IsAdmin,
	).Scan(&user.TokenVersion, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isPgError(err, pgUniqueViolation) {
		return model.ErrEmailAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	user.BorrowedBooks = []uuid.UUID{}
	return nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.findOne(ctx, query, email)
}

func (r *postgresRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx,
		`DELETE FROM users WHERE id = $1 AND cardinality(borrowed_books) = 0`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrUserNotFound
		}
		return model.ErrUserHasBorrowedBooks
	}
	return nil
}

func (r *postgresRepository) SetAdmin(ctx context.Context, id uuid.UUID, isAdmin bool) error {
	result, err := r.db.Exec(ctx,
		`UPDATE users SET is_admin = $2, updated_at = NOW() WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// ========================================
// SESSION VERSION
// ========================================

func (r *postgresRepository) GetSessionState(ctx context.Context, id uuid.UUID) (*model.SessionState, error) {
	var state model.SessionState
	err := r.db.QueryRow(ctx,
		`SELECT token_version, is_admin FROM users WHERE id = $1`, id,
	).Scan(&state.TokenVersion, &state.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session state: %w", err)
	}
	return &state, nil
}

func (r *postgresRepository) IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error) {
	var version int
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING token_version
	`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment token version: %w", err)
	}
	return version, nil
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (int, error) {
	var version int
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $2, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING token_version
	`, id, passwordHash).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}
	return version, nil
}

// ========================================
// LOAN REGISTRY
// ========================================

func (r *postgresRepository) AddBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	// Membership, capacity and append are one statement, so concurrent
	// borrows by the same account cannot overshoot the limit.
	query := `
		UPDATE users
		SET borrowed_books = array_append(borrowed_books, $2), updated_at = NOW()
		WHERE id = $1
		  AND NOT ($2 = ANY(borrowed_books))
		  AND cardinality(borrowed_books) < $3
	`

	result, err := r.db.Exec(ctx, query, userID, bookID, model.MaxBorrowedBooks)
	if isPgError(err, pgCheckViolation) {
		return model.ErrBorrowLimitReached
	}
	if err != nil {
		return fmt.Errorf("add borrowed book: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var held bool
	var count int
	err = r.db.QueryRow(ctx,
		`SELECT $2 = ANY(borrowed_books), cardinality(borrowed_books) FROM users WHERE id = $1`,
		userID, bookID,
	).Scan(&held, &count)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("read borrowed books: %w", err)
	}

	return classifyRejectedAppend(held, count)
}

// classifyRejectedAppend explains why the guarded append touched no row, given
// the state read back afterwards. ErrConcurrentUpdate means the row changed
// between the two statements: a concurrent return or borrow moved it out of
// the rejecting state before the read.
func classifyRejectedAppend(held bool, count int) error {
	switch {
	case held:
		return model.ErrBookAlreadyBorrowed
	case count >= model.MaxBorrowedBooks:
		return model.ErrBorrowLimitReached
	default:
		return model.ErrConcurrentUpdate
	}
}

func (r *postgresRepository) RemoveBorrowedBook(ctx context.Context, userID, bookID uuid.UUID) error {
	query := `
		UPDATE users
		SET borrowed_books = array_remove(borrowed_books, $2), updated_at = NOW()
		WHERE id = $1
		  AND $2 = ANY(borrowed_books)
	`

	result, err := r.db.Exec(ctx, query, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove borrowed book: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrBookNotBorrowed
	}
	return nil
}

// ========================================
// HELPERS
// ========================================

func (r *postgresRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *postgresRepository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var borrowed []string
	if err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsAdmin,
		&u.TokenVersion, &borrowed, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.BorrowedBooks = make([]uuid.UUID, 0, len(borrowed))
	for _, s := range borrowed {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse borrowed book id %q: %w", s, err)
		}
		u.BorrowedBooks = append(u.BorrowedBooks, id)
	}
	return &u, nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
