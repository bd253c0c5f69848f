package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// bindError turns a query binding failure into a validation error
func bindError(err error) error {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return accounting.NewValidationError(fmt.Sprintf("Invalid query parameter %s.", be.Field))
	}
	return accounting.NewValidationError("Invalid query parameters.")
}

// present returns &v only if the query carries name
func present[T any](c echo.Context, name string, v T) *T {
	if !c.QueryParams().Has(name) {
		return nil
	}
	return &v
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func parseServerCostParams(c echo.Context) (types.ServerCostParams, error) {
	var (
		p             types.ServerCostParams
		begin, end    time.Time
		server        uuid.UUID
		user, project uint32
	)
	err := echo.QueryParamsBinder(c).
		Time("begin", &begin, time.RFC3339).
		Time("end", &end, time.RFC3339).
		TextUnmarshaler("server", &server).
		Uint32("user", &user).
		Uint32("project", &project).
		Bool("all", &p.All).
		Bool("detail", &p.Detail).
		BindError()
	if err != nil {
		return p, bindError(err)
	}
	p.Begin = utc(present(c, "begin", begin))
	p.End = utc(present(c, "end", end))
	p.Server = present(c, "server", server)
	p.User = present(c, "user", user)
	p.Project = present(c, "project", project)
	if err := c.Validate(&p); err != nil {
		return p, err
	}
	return p, nil
}

func parseBudgetOverTreeParams(c echo.Context) (types.BudgetOverTreeParams, error) {
	var (
		p             types.BudgetOverTreeParams
		end           time.Time
		user, project uint32
	)
	err := echo.QueryParamsBinder(c).
		Time("end", &end, time.RFC3339).
		Uint32("user", &user).
		Uint32("project", &project).
		Bool("all", &p.All).
		BindError()
	if err != nil {
		return p, bindError(err)
	}
	p.End = utc(present(c, "end", end))
	p.User = present(c, "user", user)
	p.Project = present(c, "project", project)
	if err := c.Validate(&p); err != nil {
		return p, err
	}
	return p, nil
}

func parseFlavorPriceListParams(c echo.Context) (types.FlavorPriceListParams, error) {
	var (
		p     types.FlavorPriceListParams
		class types.UserClass
	)
	err := echo.QueryParamsBinder(c).
		TextUnmarshaler("user_class", &class).
		Bool("current", &p.Current).
		BindError()
	if err != nil {
		return p, bindError(err)
	}
	p.UserClass = present(c, "user_class", class)
	return p, nil
}

func parseFlavorQuotaCheckParams(c echo.Context) (types.FlavorQuotaCheckParams, error) {
	var (
		p           types.FlavorQuotaCheckParams
		user, count uint32
		openstack   string
	)
	err := echo.QueryParamsBinder(c).
		Uint32("user", &user).
		String("openstackproject", &openstack).
		Uint32("flavor", &p.Flavor).
		Uint32("flavorcount", &count).
		BindError()
	if err != nil {
		return p, bindError(err)
	}
	p.User = present(c, "user", user)
	p.OpenStackProject = present(c, "openstackproject", openstack)
	p.Count = present(c, "flavorcount", count)
	if err := c.Validate(&p); err != nil {
		return p, err
	}
	return p, nil
}

func parseFlavorGroupUsageParams(c echo.Context) (types.FlavorGroupUsageParams, error) {
	var (
		p             types.FlavorGroupUsageParams
		user, project uint32
	)
	err := echo.QueryParamsBinder(c).
		Uint32("user", &user).
		Uint32("project", &project).
		Bool("all", &p.All).
		Bool("aggregate", &p.Aggregate).
		BindError()
	if err != nil {
		return p, bindError(err)
	}
	p.User = present(c, "user", user)
	p.Project = present(c, "project", project)
	if err := c.Validate(&p); err != nil {
		return p, err
	}
	return p, nil
}
