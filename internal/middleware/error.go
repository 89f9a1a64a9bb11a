package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Handlers that already wrote a response are left alone. Anything that is not
// an AppError is reported as INTERNAL_ERROR.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.ErrInternalServer
		if !errors.As(err, &appErr) || appErr.Internal != nil {
			logger.Named("http").Errorw("request failed",
				"code", appErr.Code,
				"error", err.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", RequestID(c),
			)
		}
		abortWithAppError(c, appErr)
	}
}
