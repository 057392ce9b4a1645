package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxBorrowedBooks caps how many distinct books one account may hold.
const MaxBorrowedBooks = 8

// User is an account. BorrowedBooks is duplicate-free and never longer than
// MaxBorrowedBooks. TokenVersion only ever grows; a token stamped with an
// older version is revoked.
type User struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	Username      string      `json:"username"`
	PasswordHash  string      `json:"-"`
	IsAdmin       bool        `json:"is_admin"`
	TokenVersion  int         `json:"-"`
	BorrowedBooks []uuid.UUID `json:"borrowed_books"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (u *User) HasBorrowed(bookID uuid.UUID) bool {
	for _, id := range u.BorrowedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}

// SessionState is what authentication needs to know about an account on every request.
type SessionState struct {
	TokenVersion int
	IsAdmin      bool
}

// UserInfo is the admin view of an account.
type UserInfo struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	Username      string      `json:"username"`
	IsAdmin       bool        `json:"is_admin"`
	BorrowedBooks []uuid.UUID `json:"borrowed_books"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (u *User) ToInfo() UserInfo {
	borrowed := u.BorrowedBooks
	if borrowed == nil {
		borrowed = []uuid.UUID{}
	}
	return UserInfo{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		IsAdmin:       u.IsAdmin,
		BorrowedBooks: borrowed,
		CreatedAt:     u.CreatedAt,
	}
}

// BorrowedBook is a held book as shown on the account's own profile.
type BorrowedBook struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// AboutMe is the profile of the authenticated account.
type AboutMe struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	Username      string         `json:"username"`
	IsAdmin       bool           `json:"is_admin"`
	BorrowedBooks []BorrowedBook `json:"borrowed_books"`
}
