package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/logger"
	"treasury/internal/middleware"
	"treasury/internal/uuid"
)

// getActor extracts the authenticated caller from the Gin context.
// Returns ErrUnauthorized if not present.
func getActor(c *gin.Context) (authz.Actor, error) {
	v, exists := c.Get(middleware.ActorKey)
	if !exists {
		return authz.Actor{}, apperrors.ErrUnauthorized
	}
	actor, ok := v.(authz.Actor)
	if !ok {
		return authz.Actor{}, apperrors.ErrUnauthorized
	}
	return actor, nil
}

// parsePathID parses a UUID path parameter.
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.Validation("invalid " + param)
	}
	return id, nil
}

// optionalUUID parses an optional UUID query parameter.
func optionalUUID(c *gin.Context, param string) (*string, error) {
	v := c.Query(param)
	if v == "" {
		return nil, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, apperrors.Validation("invalid " + param)
	}
	return &id, nil
}

// parseDate accepts RFC3339 or YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, apperrors.Validation("invalid date " + s + ", use RFC3339 or YYYY-MM-DD")
	}
	return t, nil
}

// optionalDate parses an optional date string.
func optionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// bindError converts a binding failure into a validation error.
func bindError(err error) error {
	return apperrors.Validation(err.Error())
}

// bindOptionalJSON binds a request body that may be absent.
func bindOptionalJSON[T any](c *gin.Context) (T, bool) {
	var req T
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return req, false
	}
	return req, true
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, param string) (*int, error) {
	v := c.Query(param)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperrors.Validation("invalid " + param)
	}
	return &n, nil
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, message and details.
// Otherwise it returns a generic internal server error. Every error is logged
// at the severity its code calls for.
func respondWithError(c *gin.Context, err error) {
	logger.LogError(err, "request failed",
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternalServer
	}
	c.JSON(appErr.StatusCode, ErrorResponse{Error: ErrorDetail{
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
