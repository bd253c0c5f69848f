package api

import (
	"net/http"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/labstack/echo/v4"
)

// PricingHandler handles flavor price endpoints
type PricingHandler struct {
	db    Database
	clock clock.Clock
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(db Database, clk clock.Clock) *PricingHandler {
	return &PricingHandler{
		db:    db,
		clock: clk,
	}
}

// List handles GET /api/pricing/flavorprices
func (h *PricingHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	params, err := parseFlavorPriceListParams(c)
	if err != nil {
		return err
	}

	var prices []types.FlavorPrice
	err = h.db.Read(ctx, func(src accounting.Reader) error {
		var err error
		prices, err = accounting.ListFlavorPrices(ctx, src, params, h.clock.Now())
		return err
	})
	if err != nil {
		return err
	}
	if prices == nil {
		prices = []types.FlavorPrice{}
	}
	return c.JSON(http.StatusOK, prices)
}

// Get handles GET /api/pricing/flavorprices/:id
func (h *PricingHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	var id uint32
	if err := echo.PathParamsBinder(c).Uint32("id", &id).BindError(); err != nil {
		return bindError(err)
	}

	var price *types.FlavorPrice
	err := h.db.Read(ctx, func(src accounting.Reader) error {
		var err error
		price, err = src.FlavorPrice(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, price)
}
