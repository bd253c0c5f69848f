package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// Engine computes cost, consumption and budget comparisons over the data of
// one Source. An Engine is meant to live for one request and its Source is
// usually bound to one read-only transaction.
type Engine struct {
	src   Source
	clock clock.Clock
}

// NewEngine creates an engine reading from src
func NewEngine(src Source, clk clock.Clock) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{src: src, clock: clk}
}

// PricePeriods returns the price regimes of [begin, end)
func (e *Engine) PricePeriods(ctx context.Context, begin, end time.Time) ([]PricePeriod, error) {
	flavors, err := e.src.Flavors(ctx)
	if err != nil {
		return nil, fmt.Errorf("select flavors: %w", err)
	}
	rows, err := e.src.FlavorPricesForPeriod(ctx, begin, end)
	if err != nil {
		return nil, fmt.Errorf("select flavor prices: %w", err)
	}
	return BuildPricePeriods(flavors, rows, begin, end), nil
}

func (e *Engine) load(ctx context.Context, f StateFilter, begin, end time.Time) (*consumption, error) {
	states, err := e.src.ServerStatesInPeriod(ctx, f, begin, end)
	if err != nil {
		return nil, fmt.Errorf("select server states: %w", err)
	}
	return &consumption{states: states, now: e.clock.Now()}, nil
}

func (e *Engine) loadAll(ctx context.Context, begin, end time.Time) (*consumption, error) {
	c, err := e.load(ctx, StateFilter{}, begin, end)
	if err != nil {
		return nil, err
	}
	users, err := e.src.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	c.projectOf = make(map[uint32]string, len(users))
	for _, u := range users {
		c.projectOf[u.ID] = u.ProjectName
	}
	return c, nil
}

// CostForServer returns the cost of one server. A server whose user class
// cannot be resolved costs nothing.
func (e *Engine) CostForServer(ctx context.Context, server uuid.UUID, begin, end time.Time, detail bool) (ServerCost, error) {
	cost := ServerCost{Scope: ScopeServer}
	if detail {
		cost.Server = newCostServer()
	} else {
		cost.Simple = &types.ServerCostSimple{}
	}

	class, err := e.src.UserClassByServer(ctx, server)
	if err != nil {
		return cost, fmt.Errorf("select user class of server: %w", err)
	}
	if class == nil {
		return cost, nil
	}
	periods, err := e.PricePeriods(ctx, begin, end)
	if err != nil {
		return cost, err
	}
	states, err := e.load(ctx, ForServer(server), begin, end)
	if err != nil {
		return cost, err
	}

	for _, period := range periods {
		flavors := states.flavors(period.Start, period.End)
		if !detail {
			cost.Simple.Total += normalCost(flavors, period.Prices, *class)
			continue
		}
		addFlavorCosts(flavors, period.Prices, *class, serverNode(cost.Server))
	}
	return cost, nil
}

// CostForUser returns the cost of all servers of a user. A user whose user
// class cannot be resolved costs nothing.
func (e *Engine) CostForUser(ctx context.Context, userID uint32, begin, end time.Time, detail bool) (ServerCost, error) {
	cost := ServerCost{Scope: ScopeUser}
	if detail {
		cost.User = newCostUser()
	} else {
		cost.Simple = &types.ServerCostSimple{}
	}

	class, err := e.src.UserClassByUser(ctx, userID)
	if err != nil {
		return cost, fmt.Errorf("select user class of user: %w", err)
	}
	if class == nil {
		return cost, nil
	}
	periods, err := e.PricePeriods(ctx, begin, end)
	if err != nil {
		return cost, err
	}
	states, err := e.load(ctx, ForUser(userID), begin, end)
	if err != nil {
		return cost, err
	}

	for _, period := range periods {
		if !detail {
			flavors := states.flavors(period.Start, period.End)
			for _, flavor := range sortedKeys(flavors) {
				seconds := flavors[flavor]
				if seconds <= 0 {
					continue
				}
				cost.Simple.Total += flavorCost(seconds, period.Prices, *class, flavor)
			}
			continue
		}
		addUserCost(cost.User, states.user(period.Start, period.End), period.Prices, *class)
	}
	return cost, nil
}

// CostForProject returns the cost of all servers of a project. A project
// without a user class costs nothing.
func (e *Engine) CostForProject(ctx context.Context, projectID uint32, begin, end time.Time, detail bool) (ServerCost, error) {
	cost := ServerCost{Scope: ScopeProject}
	if detail {
		cost.Project = newCostProject()
	} else {
		cost.Simple = &types.ServerCostSimple{}
	}

	class, err := e.src.UserClassByProject(ctx, projectID)
	if err != nil {
		return cost, fmt.Errorf("select user class of project: %w", err)
	}
	if class == nil {
		return cost, nil
	}
	periods, err := e.PricePeriods(ctx, begin, end)
	if err != nil {
		return cost, err
	}
	states, err := e.load(ctx, ForProject(projectID), begin, end)
	if err != nil {
		return cost, err
	}

	for _, period := range periods {
		if !detail {
			flavors := states.flavors(period.Start, period.End)
			cost.Simple.Total += normalCost(flavors, period.Prices, *class)
			continue
		}
		addProjectCost(cost.Project, states.project(period.Start, period.End), period.Prices, *class)
	}
	return cost, nil
}

// CostForAll returns the cost of the whole cloud. Every project is priced
// with its own user class; servers of unknown projects are left out.
func (e *Engine) CostForAll(ctx context.Context, begin, end time.Time, detail bool) (ServerCost, error) {
	cost := ServerCost{Scope: ScopeAll}
	if detail {
		cost.All = newCostAll()
	} else {
		cost.Simple = &types.ServerCostSimple{}
	}

	periods, err := e.PricePeriods(ctx, begin, end)
	if err != nil {
		return cost, err
	}
	projectList, err := e.src.Projects(ctx)
	if err != nil {
		return cost, fmt.Errorf("select projects: %w", err)
	}
	projects := make(map[string]types.Project, len(projectList))
	for _, p := range projectList {
		projects[p.Name] = p
	}
	states, err := e.loadAll(ctx, begin, end)
	if err != nil {
		return cost, err
	}

	for _, period := range periods {
		consumption := states.all(period.Start, period.End)
		for _, name := range sortedKeys(consumption.Projects) {
			project, ok := projects[name]
			if !ok {
				continue
			}
			pc := consumption.Projects[name]
			if !detail {
				cost.Simple.Total += normalCost(pc.Total, period.Prices, project.UserClass)
				continue
			}
			addProjectCost(costProjectOf(cost.All, name), pc, period.Prices, project.UserClass, allNode(cost.All))
		}
	}
	return cost, nil
}

// normalCost sums the positive costs of a flat consumption. Flavors with no
// occupancy are skipped before pricing.
func normalCost(flavors types.ServerConsumptionFlavors, prices Prices, class types.UserClass) float64 {
	var total float64
	for _, flavor := range sortedKeys(flavors) {
		seconds := flavors[flavor]
		if seconds <= 0 {
			continue
		}
		c := flavorCost(seconds, prices, class, flavor)
		if c <= 0 {
			continue
		}
		total += c
	}
	return total
}

// costNode is one level of a detailed cost tree. Every flavor cost lands in
// the flavor map of each level, but only positive costs count towards the
// level totals.
type costNode struct {
	total   *float64
	flavors map[string]float64
}

func (n costNode) add(flavor string, c float64) {
	n.flavors[flavor] += c
	if c <= 0 {
		return
	}
	*n.total += c
}

func serverNode(s *types.ServerCostServer) costNode {
	return costNode{total: &s.Total, flavors: s.Flavors}
}

func userNode(u *types.ServerCostUser) costNode {
	return costNode{total: &u.Total, flavors: u.Flavors}
}

func projectNode(p *types.ServerCostProject) costNode {
	return costNode{total: &p.Total, flavors: p.Flavors}
}

func allNode(a *types.ServerCostAll) costNode {
	return costNode{total: &a.Total, flavors: a.Flavors}
}

func addFlavorCosts(flavors types.ServerConsumptionFlavors, prices Prices, class types.UserClass, nodes ...costNode) {
	for _, flavor := range sortedKeys(flavors) {
		c := flavorCost(flavors[flavor], prices, class, flavor)
		for _, n := range nodes {
			n.add(flavor, c)
		}
	}
}

func addUserCost(u *types.ServerCostUser, consumption *types.ServerConsumptionUser, prices Prices, class types.UserClass, parents ...costNode) {
	for _, id := range sortedServers(consumption.Servers) {
		nodes := append([]costNode{serverNode(costServerOf(u, id)), userNode(u)}, parents...)
		addFlavorCosts(consumption.Servers[id], prices, class, nodes...)
	}
}

func addProjectCost(p *types.ServerCostProject, consumption *types.ServerConsumptionProject, prices Prices, class types.UserClass, parents ...costNode) {
	parents = append([]costNode{projectNode(p)}, parents...)
	for _, name := range sortedKeys(consumption.Users) {
		addUserCost(costUserOf(p, name), consumption.Users[name], prices, class, parents...)
	}
}
