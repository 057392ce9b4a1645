package model

import "library-backend/internal/shared/apperror"

var (
	ErrBookNotFound      = apperror.NotFound("book not found")
	ErrNoStockAvailable  = apperror.BadRequest("no stock available")
	ErrBookAlreadyExists = apperror.Conflict("book already exists")
	ErrStockNegative     = apperror.BadRequest("stock cannot go negative")
	ErrBookBorrowed      = apperror.BadRequest("book is currently borrowed and cannot be deleted")
	ErrInvalidBookID     = apperror.BadRequest("invalid book id")
)
