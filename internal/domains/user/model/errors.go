package model

import "library-backend/internal/shared/apperror"

// Accounts
var (
	ErrUserNotFound         = apperror.NotFound("user not found")
	ErrEmailAlreadyExists   = apperror.Conflict("email already registered")
	ErrInvalidUserID        = apperror.BadRequest("invalid user id")
	ErrUserHasBorrowedBooks = apperror.BadRequest("user still has borrowed books")
)

// Authentication
var (
	ErrInvalidCredentials = apperror.Unauthorized("invalid username or password")
	ErrInvalidOldPassword = apperror.BadRequest("invalid old password")
	ErrSamePassword       = apperror.BadRequest("new password must differ from old password")
	ErrTooManyAttempts    = apperror.TooManyRequests("too many login attempts, please try again later")
	ErrTokenRevoked       = apperror.Unauthorized("token has been revoked")
)

// Loan registry
var (
	ErrBookAlreadyBorrowed = apperror.BadRequest("book already borrowed")
	ErrBorrowLimitReached  = apperror.BadRequest("borrow limit reached")
	ErrBookNotBorrowed     = apperror.BadRequest("book not borrowed by user")
	ErrConcurrentUpdate    = apperror.Conflict("borrowed books changed concurrently, please retry")
)
