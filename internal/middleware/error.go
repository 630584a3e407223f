package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into consistent JSON error responses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// The last error is the most relevant in a middleware chain.
		WriteError(c, c.Errors.Last().Err)
	}
}

// WriteError renders err as {"error":{"code","message"}}. AppErrors keep
// their code and message; capability failures and unexpected errors are
// logged and rendered as a generic internal error.
func WriteError(c *gin.Context, err error) {
	log := logger.Get()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && !errors.Is(appErr, apperrors.ErrCapability) {
		if appErr.Internal != nil {
			log.Errorw("app error",
				"code", appErr.Code,
				"message", appErr.Message,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
				"request_id", c.GetString(RequestIDKey),
			)
		}
		c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	log.Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"request_id", c.GetString(RequestIDKey),
	)
	c.AbortWithStatusJSON(apperrors.ErrInternalServer.StatusCode, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrInternalServer.Code,
			"message": apperrors.ErrInternalServer.Message,
		},
	})
}
