package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apimiddleware "github.com/LRZ-BADW/avina/internal/api/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(apimiddleware.Logger(zerolog.New(&buf)))
	e.GET("/ping", func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside")
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "no coffee")
	})

	t.Run("handler logs through the request logger", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		e.ServeHTTP(httptest.NewRecorder(), req)

		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		require.Len(t, lines, 2)

		var inside, request map[string]any
		require.NoError(t, json.Unmarshal(lines[0], &inside))
		require.NoError(t, json.Unmarshal(lines[1], &request))
		assert.Equal(t, "/ping", inside["path"])
		assert.Equal(t, "request", request["message"])
		assert.Equal(t, float64(http.StatusOK), request["status"])
		assert.Equal(t, "GET", request["method"])
	})

	t.Run("errors are written before logging", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		var request map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &request))
		assert.Equal(t, float64(http.StatusTeapot), request["status"])
	})
}
