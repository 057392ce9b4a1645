package request

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/response"
)

var ErrInvalidBody = apperror.BadRequest("invalid request body")

type validatable interface {
	Validate() error
}

type normalizable interface {
	Normalize()
}

// BindAndValidate decodes the JSON body into dest, normalizes and validates it.
// On failure it writes a 400 and returns false.
func BindAndValidate(c *gin.Context, dest validatable) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, ErrInvalidBody)
		return false
	}

	if n, ok := dest.(normalizable); ok {
		n.Normalize()
	}

	if err := dest.Validate(); err != nil {
		response.Error(c, apperror.BadRequest(err.Error()))
		return false
	}
	return true
}

// UUIDParam parses a path parameter as a uuid. On failure it writes invalid and returns false.
func UUIDParam(c *gin.Context, name string, invalid error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, invalid)
		return uuid.Nil, false
	}
	return id, true
}
