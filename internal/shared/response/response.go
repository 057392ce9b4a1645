package response

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"library-backend/internal/shared/apperror"
)

// Response is the envelope of every API reply.
type Response struct {
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Success writes {msg, data} with the given status.
func Success(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(statusCode, Response{Msg: msg, Data: data})
}

// Fail writes a bare {msg} with the given status.
func Fail(c *gin.Context, statusCode int, msg string) {
	c.JSON(statusCode, Response{Msg: msg})
}

// Error classifies err and writes it. Internal errors are logged with their cause.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.JSON(kind.HTTPStatus(), Response{Msg: apperror.PublicMessage(err)})
}

// Abort is Error for middleware: it also stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
