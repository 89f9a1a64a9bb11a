package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "valora/internal/errors"
	"valora/internal/logger"
	"valora/internal/models"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// clock returns today's date; tests replace it.
var clock = func() time.Time { return time.Now().UTC() }

// parseDate parses a YYYY-MM-DD value. An empty value means today (UTC).
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Day(clock()), nil
	}
	d, err := models.ParseDay(value)
	if err != nil {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid date "+value+", expected YYYY-MM-DD")
	}
	return d, nil
}

// parseOptionalDate is parseDate that keeps "not given" distinct from today.
func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, and message. Otherwise it
// logs the unexpected error and returns a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	status, detail := errorDetail(c, err)
	c.JSON(status, gin.H{"error": detail})
}

// respondWithResult writes a phase result. A non-nil err sets the status from
// the error and adds an error object next to the partial result.
func respondWithResult(c *gin.Context, status int, result any, err error) {
	if err == nil {
		c.JSON(status, result)
		return
	}
	errStatus, detail := errorDetail(c, err)
	c.JSON(errStatus, gin.H{"error": detail, "result": result})
}

func errorDetail(c *gin.Context, err error) (int, ErrorDetail) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		return appErr.StatusCode, ErrorDetail{Code: appErr.Code, Message: appErr.Message}
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	return apperrors.ErrInternalServer.StatusCode, ErrorDetail{
		Code:    apperrors.ErrInternalServer.Code,
		Message: apperrors.ErrInternalServer.Message,
	}
}

// countStatus maps a per-item run to 200 (all ok), 207 (some failed) or 502
// (items existed and none succeeded).
func countStatus(total, succeeded int) int {
	switch {
	case total > 0 && succeeded == 0:
		return http.StatusBadGateway
	case succeeded < total:
		return http.StatusMultiStatus
	default:
		return http.StatusOK
	}
}
