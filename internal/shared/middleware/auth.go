package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/response"
	"library-backend/pkg/jwt"
)

const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

var (
	ErrAuthRequired     = apperror.Unauthorized("authentication required")
	ErrPermissionDenied = apperror.Forbidden("permission denied")
)

// TokenValidator verifies a bearer token's signature and expiry.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// SessionVerifier checks a token's version against the account's current one
// and reports the account's admin flag as stored right now.
type SessionVerifier interface {
	VerifySession(ctx context.Context, userID uuid.UUID, tokenVersion int) (isAdmin bool, err error)
}

// AuthMiddleware authenticates the bearer token and rejects revoked sessions.
// The session lookup is never cached: a logout or password change must take
// effect on the very next request.
func AuthMiddleware(tokens TokenValidator, sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Abort(c, ErrAuthRequired)
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Abort(c, ErrAuthRequired)
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			response.Abort(c, ErrAuthRequired)
			return
		}

		isAdmin, err := sessions.VerifySession(c.Request.Context(), userID, claims.TokenVersion)
		if err != nil {
			if apperror.KindOf(err) == apperror.KindNotFound {
				err = ErrAuthRequired
			}
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextIsAdmin, isAdmin)

		c.Next()
	}
}

// UserID returns the authenticated account id set by AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
