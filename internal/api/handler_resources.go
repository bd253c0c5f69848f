package api

import (
	"fmt"
	"net/http"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/authz"
	"github.com/labstack/echo/v4"
)

// ResourcesHandler handles flavor group endpoints
type ResourcesHandler struct {
	db    Database
	limit int
}

// NewResourcesHandler creates a new resources handler running at most
// limit per-user usage queries at once
func NewResourcesHandler(db Database, limit int) *ResourcesHandler {
	return &ResourcesHandler{
		db:    db,
		limit: limit,
	}
}

// FlavorGroupUsage handles GET /api/resources/flavorgroups/usage
func (h *ResourcesHandler) FlavorGroupUsage(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	params, err := parseFlavorGroupUsageParams(c)
	if err != nil {
		return err
	}

	src := h.db.Concurrent()
	calc := accounting.NewUsageCalculator(src, h.limit)

	var usage accounting.FlavorGroupUsage
	switch {
	case params.All:
		if err := authz.RequireAdmin(caller); err != nil {
			return err
		}
		usage, err = calc.ForAll(ctx, params.Aggregate)

	case params.Project != nil:
		if err := authz.RequireMasterOrNotFound(caller, *params.Project); err != nil {
			return err
		}
		usage, err = calc.ForProject(ctx, *params.Project, params.Aggregate)

	case params.User != nil:
		user, err := src.User(ctx, *params.User)
		if err != nil {
			return fmt.Errorf("select user: %w", err)
		}
		if err := authz.RequireSelfOrMasterOrNotFound(caller, user.ID, user.Project); err != nil {
			return err
		}
		usage, err = calc.ForUser(ctx, user.ID, params.Aggregate)
		if err != nil {
			return err
		}

	default:
		usage, err = calc.ForUser(ctx, caller.ID, params.Aggregate)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usage)
}
