package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/authz"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/metrics"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/labstack/echo/v4"
)

// BudgetingHandler handles budget endpoints
type BudgetingHandler struct {
	db      Database
	clock   clock.Clock
	metrics *metrics.Metrics
}

// NewBudgetingHandler creates a new budgeting handler
func NewBudgetingHandler(db Database, clk clock.Clock, m *metrics.Metrics) *BudgetingHandler {
	return &BudgetingHandler{
		db:      db,
		clock:   clk,
		metrics: m,
	}
}

// BudgetOverTree handles GET /api/budgeting/budgetovertree
func (h *BudgetingHandler) BudgetOverTree(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	params, err := parseBudgetOverTreeParams(c)
	if err != nil {
		return err
	}
	end := h.clock.Now()
	if params.End != nil {
		end = *params.End
	}

	var tree *types.BudgetOverTree
	err = h.db.Read(ctx, func(src accounting.Reader) error {
		var err error
		engine := accounting.NewEngine(src, h.clock)
		start := time.Now()

		switch {
		case params.All:
			if err := authz.RequireAdmin(caller); err != nil {
				return err
			}
			defer h.observe(accounting.ScopeAll, start)
			tree, err = engine.BudgetOverTreeForAll(ctx, end)

		case params.Project != nil:
			if err := authz.RequireMasterOrNotFound(caller, *params.Project); err != nil {
				return err
			}
			defer h.observe(accounting.ScopeProject, start)
			tree, err = engine.BudgetOverTreeForProject(ctx, *params.Project, end)

		case params.User != nil:
			user, err := src.User(ctx, *params.User)
			if err != nil {
				return fmt.Errorf("select user: %w", err)
			}
			if err := authz.RequireSelfOrMasterOrNotFound(caller, user.ID, user.Project); err != nil {
				return err
			}
			defer h.observe(accounting.ScopeUser, start)
			tree, err = engine.BudgetOverTreeForUser(ctx, user.ID, end)
			return err

		default:
			defer h.observe(accounting.ScopeUser, start)
			tree, err = engine.BudgetOverTreeForUser(ctx, caller.ID, end)
		}
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *BudgetingHandler) observe(scope accounting.Scope, start time.Time) {
	h.metrics.ObserveCompute("budget_over_tree", string(scope), time.Since(start))
}
