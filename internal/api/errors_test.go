package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/api"
	"github.com/LRZ-BADW/avina/internal/authz"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantDetail string
	}{
		{
			name:       "validation",
			err:        accounting.NewValidationError("bad input"),
			wantCode:   http.StatusBadRequest,
			wantDetail: "bad input",
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("check: %w", accounting.NewValidationError("bad input")),
			wantCode:   http.StatusBadRequest,
			wantDetail: "bad input",
		},
		{
			name:       "hidden entity",
			err:        authz.ErrNotFound,
			wantCode:   http.StatusNotFound,
			wantDetail: "Resource not found",
		},
		{
			name:       "missing row",
			err:        fmt.Errorf("select user: %w", store.ErrNotFound),
			wantCode:   http.StatusNotFound,
			wantDetail: "Resource not found",
		},
		{
			name:       "forbidden",
			err:        authz.ErrForbidden,
			wantCode:   http.StatusForbidden,
			wantDetail: "Forbidden",
		},
		{
			name:       "echo error",
			err:        echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token"),
			wantCode:   http.StatusUnauthorized,
			wantDetail: "invalid or expired token",
		},
		{
			name:       "unexpected",
			err:        errors.New("connection reset by peer"),
			wantCode:   http.StatusInternalServerError,
			wantDetail: "Internal server error, contact admin or check logs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, detail := api.ErrorStatus(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}
