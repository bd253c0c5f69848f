package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/authz"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/metrics"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AccountingHandler handles server cost and consumption endpoints
type AccountingHandler struct {
	db      Database
	clock   clock.Clock
	metrics *metrics.Metrics
}

// NewAccountingHandler creates a new accounting handler
func NewAccountingHandler(db Database, clk clock.Clock, m *metrics.Metrics) *AccountingHandler {
	return &AccountingHandler{
		db:      db,
		clock:   clk,
		metrics: m,
	}
}

// DefaultBegin is where cost windows start when no begin is given:
// January 1st, 01:00 UTC of now's year
func DefaultBegin(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 1, 0, 0, 0, time.UTC)
}

// window applies the defaults to an optional begin and end
func window(begin, end *time.Time, now time.Time) (time.Time, time.Time) {
	b, e := DefaultBegin(now), now
	if begin != nil {
		b = *begin
	}
	if end != nil {
		e = *end
	}
	return b, e
}

// target is what a cost or consumption request is about
type target struct {
	scope   accounting.Scope
	server  uuid.UUID
	user    uint32
	project uint32
}

// resolveTarget picks the scope of a request. The first selector present
// wins: all, project, user, server. Without one the caller's own servers
// are meant. Callers not allowed to see a user or project get not found.
func resolveTarget(ctx context.Context, src accounting.Reader, caller *types.User, p types.ServerCostParams) (target, error) {
	switch {
	case p.All:
		if err := authz.RequireAdmin(caller); err != nil {
			return target{}, err
		}
		return target{scope: accounting.ScopeAll}, nil

	case p.Project != nil:
		if err := authz.RequireMasterOrNotFound(caller, *p.Project); err != nil {
			return target{}, err
		}
		return target{scope: accounting.ScopeProject, project: *p.Project}, nil

	case p.User != nil:
		user, err := src.User(ctx, *p.User)
		if err != nil {
			return target{}, fmt.Errorf("select user: %w", err)
		}
		if err := authz.RequireSelfOrMasterOrNotFound(caller, user.ID, user.Project); err != nil {
			return target{}, err
		}
		return target{scope: accounting.ScopeUser, user: user.ID}, nil

	case p.Server != nil:
		state, err := src.LatestServerState(ctx, *p.Server)
		if err != nil {
			return target{}, fmt.Errorf("select server state: %w", err)
		}
		owner, err := src.User(ctx, state.User)
		if err != nil {
			return target{}, fmt.Errorf("select server owner: %w", err)
		}
		if err := authz.RequireSelfOrMasterOrNotFound(caller, owner.ID, owner.Project); err != nil {
			return target{}, err
		}
		return target{scope: accounting.ScopeServer, server: *p.Server}, nil

	default:
		return target{scope: accounting.ScopeUser, user: caller.ID}, nil
	}
}

// ServerCost handles GET /api/accounting/servercost
func (h *AccountingHandler) ServerCost(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	params, err := parseServerCostParams(c)
	if err != nil {
		return err
	}
	begin, end := window(params.Begin, params.End, h.clock.Now())

	var cost accounting.ServerCost
	err = h.db.Read(ctx, func(src accounting.Reader) error {
		t, err := resolveTarget(ctx, src, caller, params)
		if err != nil {
			return err
		}
		start := time.Now()
		defer func() {
			h.metrics.ObserveCompute("cost", string(t.scope), time.Since(start))
		}()

		engine := accounting.NewEngine(src, h.clock)
		switch t.scope {
		case accounting.ScopeAll:
			cost, err = engine.CostForAll(ctx, begin, end, params.Detail)
		case accounting.ScopeProject:
			cost, err = engine.CostForProject(ctx, t.project, begin, end, params.Detail)
		case accounting.ScopeServer:
			cost, err = engine.CostForServer(ctx, t.server, begin, end, params.Detail)
		default:
			cost, err = engine.CostForUser(ctx, t.user, begin, end, params.Detail)
		}
		return err
	})
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Str("scope", string(cost.Scope)).
		Time("begin", begin).
		Time("end", end).
		Float64("total", cost.Total()).
		Msg("computed server cost")
	return c.JSON(http.StatusOK, cost)
}

// ServerConsumption handles GET /api/accounting/serverconsumption
func (h *AccountingHandler) ServerConsumption(c echo.Context) error {
	ctx := c.Request().Context()

	caller, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	params, err := parseServerCostParams(c)
	if err != nil {
		return err
	}
	begin, end := window(params.Begin, params.End, h.clock.Now())

	var consumption accounting.ServerConsumption
	err = h.db.Read(ctx, func(src accounting.Reader) error {
		t, err := resolveTarget(ctx, src, caller, params)
		if err != nil {
			return err
		}
		start := time.Now()
		defer func() {
			h.metrics.ObserveCompute("consumption", string(t.scope), time.Since(start))
		}()

		engine := accounting.NewEngine(src, h.clock)
		switch t.scope {
		case accounting.ScopeAll:
			consumption, err = engine.ConsumptionForAll(ctx, begin, end, params.Detail)
		case accounting.ScopeProject:
			consumption, err = engine.ConsumptionForProject(ctx, t.project, begin, end, params.Detail)
		case accounting.ScopeServer:
			consumption, err = engine.ConsumptionForServer(ctx, t.server, begin, end)
		default:
			consumption, err = engine.ConsumptionForUser(ctx, t.user, begin, end, params.Detail)
		}
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, consumption)
}
