package api

import (
	"errors"
	"net/http"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/authz"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	detailNotFound  = "Resource not found"
	detailForbidden = "Forbidden"
	detailInternal  = "Internal server error, contact admin or check logs"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(detail string) *ErrorResponse {
	return &ErrorResponse{Detail: detail}
}

// ErrorStatus maps an error to its status code and the detail shown to the
// client. Unexpected errors never expose their message.
func ErrorStatus(err error) (int, string) {
	var validation *accounting.ValidationError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.Is(err, authz.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, detailNotFound
	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden, detailForbidden
	case errors.As(err, &httpErr):
		if httpErr.Internal != nil && httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, detailInternal
		}
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	default:
		return http.StatusInternalServerError, detailInternal
	}
}

// NewHTTPErrorHandler returns the echo error handler that writes every
// error as a {detail} body
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, detail := ErrorStatus(err)
		if code >= http.StatusInternalServerError {
			zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, NewErrorResponse(detail))
		}
		if writeErr != nil {
			zerolog.Ctx(c.Request().Context()).Error().Err(writeErr).Msg("write error response")
		}
	}
}
