package accounting

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// overlaps reports whether s occupies any part of [begin, end)
func overlaps(s types.ServerState, begin, end time.Time) bool {
	return (s.End == nil || s.End.After(begin)) && s.Begin.Before(end)
}

// occupancy returns the seconds s occupies within [begin, end). Open states
// run until now.
func occupancy(s types.ServerState, begin, end, now time.Time) float64 {
	stop := now
	if s.End != nil {
		stop = *s.End
	}
	if stop.After(end) {
		stop = end
	}
	start := s.Begin
	if start.Before(begin) {
		start = begin
	}
	if !stop.After(start) {
		return 0
	}
	return stop.Sub(start).Seconds()
}

// consumption holds the server states of a whole window, fetched once, and
// slices them into per-flavor occupancy for sub-intervals of that window.
type consumption struct {
	states []types.ServerState
	now    time.Time
	// projectOf maps user ids to project names, only set for the all scope
	projectOf map[uint32]string
}

func (c *consumption) each(begin, end time.Time, fn func(s types.ServerState, seconds float64)) {
	for _, s := range c.states {
		if !overlaps(s, begin, end) {
			continue
		}
		fn(s, occupancy(s, begin, end, c.now))
	}
}

func (c *consumption) flavors(begin, end time.Time) types.ServerConsumptionFlavors {
	out := types.ServerConsumptionFlavors{}
	c.each(begin, end, func(s types.ServerState, seconds float64) {
		out[s.FlavorName] += seconds
	})
	return out
}

func newConsumptionUser() *types.ServerConsumptionUser {
	return &types.ServerConsumptionUser{
		Total:   types.ServerConsumptionFlavors{},
		Servers: map[uuid.UUID]types.ServerConsumptionFlavors{},
	}
}

func newConsumptionProject() *types.ServerConsumptionProject {
	return &types.ServerConsumptionProject{
		Total: types.ServerConsumptionFlavors{},
		Users: map[string]*types.ServerConsumptionUser{},
	}
}

func addToUser(u *types.ServerConsumptionUser, s types.ServerState, seconds float64) {
	u.Total[s.FlavorName] += seconds
	server, ok := u.Servers[s.InstanceID]
	if !ok {
		server = types.ServerConsumptionFlavors{}
		u.Servers[s.InstanceID] = server
	}
	server[s.FlavorName] += seconds
}

func addToProject(p *types.ServerConsumptionProject, s types.ServerState, seconds float64) {
	p.Total[s.FlavorName] += seconds
	u, ok := p.Users[s.Username]
	if !ok {
		u = newConsumptionUser()
		p.Users[s.Username] = u
	}
	addToUser(u, s, seconds)
}

func (c *consumption) user(begin, end time.Time) *types.ServerConsumptionUser {
	out := newConsumptionUser()
	c.each(begin, end, func(s types.ServerState, seconds float64) {
		addToUser(out, s, seconds)
	})
	return out
}

func (c *consumption) project(begin, end time.Time) *types.ServerConsumptionProject {
	out := newConsumptionProject()
	c.each(begin, end, func(s types.ServerState, seconds float64) {
		addToProject(out, s, seconds)
	})
	return out
}

// all groups by the project of each state's user. States of users without
// a project are left out.
func (c *consumption) all(begin, end time.Time) *types.ServerConsumptionAll {
	out := &types.ServerConsumptionAll{
		Total:    types.ServerConsumptionFlavors{},
		Projects: map[string]*types.ServerConsumptionProject{},
	}
	c.each(begin, end, func(s types.ServerState, seconds float64) {
		name, ok := c.projectOf[s.User]
		if !ok {
			return
		}
		out.Total[s.FlavorName] += seconds
		p, ok := out.Projects[name]
		if !ok {
			p = newConsumptionProject()
			out.Projects[name] = p
		}
		addToProject(p, s, seconds)
	})
	return out
}

// sortedKeys gives map iteration a fixed order so float sums are repeatable
func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedServers[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

// ConsumptionForServer returns the occupancy seconds of one server per flavor
func (e *Engine) ConsumptionForServer(ctx context.Context, server uuid.UUID, begin, end time.Time) (ServerConsumption, error) {
	c, err := e.load(ctx, ForServer(server), begin, end)
	if err != nil {
		return ServerConsumption{}, err
	}
	return ServerConsumption{Scope: ScopeServer, Flavors: c.flavors(begin, end)}, nil
}

// ConsumptionForUser returns the occupancy seconds of a user's servers
func (e *Engine) ConsumptionForUser(ctx context.Context, userID uint32, begin, end time.Time, detail bool) (ServerConsumption, error) {
	c, err := e.load(ctx, ForUser(userID), begin, end)
	if err != nil {
		return ServerConsumption{}, err
	}
	if detail {
		return ServerConsumption{Scope: ScopeUser, User: c.user(begin, end)}, nil
	}
	return ServerConsumption{Scope: ScopeUser, Flavors: c.flavors(begin, end)}, nil
}

// ConsumptionForProject returns the occupancy seconds of a project's servers
func (e *Engine) ConsumptionForProject(ctx context.Context, projectID uint32, begin, end time.Time, detail bool) (ServerConsumption, error) {
	c, err := e.load(ctx, ForProject(projectID), begin, end)
	if err != nil {
		return ServerConsumption{}, err
	}
	if detail {
		return ServerConsumption{Scope: ScopeProject, Project: c.project(begin, end)}, nil
	}
	return ServerConsumption{Scope: ScopeProject, Flavors: c.flavors(begin, end)}, nil
}

// ConsumptionForAll returns the occupancy seconds of every server that
// belongs to a user with a project
func (e *Engine) ConsumptionForAll(ctx context.Context, begin, end time.Time, detail bool) (ServerConsumption, error) {
	c, err := e.loadAll(ctx, begin, end)
	if err != nil {
		return ServerConsumption{}, err
	}
	all := c.all(begin, end)
	if detail {
		return ServerConsumption{Scope: ScopeAll, All: all}, nil
	}
	return ServerConsumption{Scope: ScopeAll, Flavors: all.Total}, nil
}
