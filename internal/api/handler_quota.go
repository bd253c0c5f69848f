package api

import (
	"net/http"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// QuotaHandler handles flavor quota endpoints
type QuotaHandler struct {
	db      Database
	checker *accounting.QuotaChecker
}

// NewQuotaHandler creates a new quota handler. The checker and its cache
// are shared by every request.
func NewQuotaHandler(db Database, checker *accounting.QuotaChecker) *QuotaHandler {
	return &QuotaHandler{
		db:      db,
		checker: checker,
	}
}

// Check handles GET /api/quota/flavorquotas/check
func (h *QuotaHandler) Check(c echo.Context) error {
	ctx := c.Request().Context()

	params, err := parseFlavorQuotaCheckParams(c)
	if err != nil {
		return err
	}

	var result *types.FlavorQuotaCheck
	err = h.db.Read(ctx, func(src accounting.Reader) error {
		var err error
		result, err = h.checker.Check(ctx, src, params)
		return err
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Uint32("flavor", params.Flavor).
		Bool("underquota", result.Underquota).
		Msg("checked flavor quota")
	return c.JSON(http.StatusOK, result)
}
