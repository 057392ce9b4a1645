package middleware

import (
	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/response"
)

// AdminMiddleware requires the admin flag that AuthMiddleware loaded from storage.
// It must be registered after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			response.Abort(c, ErrPermissionDenied)
			return
		}

		c.Next()
	}
}
