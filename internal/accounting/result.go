package accounting

import (
	"encoding/json"
	"errors"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// Scope is the aggregation level of a cost or consumption result
type Scope string

const (
	ScopeServer  Scope = "server"
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeAll     Scope = "all"
)

var errEmptyResult = errors.New("empty result")

// ServerCost is one of the cost shapes. Simple is set for normal results,
// otherwise the detail shape of the scope is set. It encodes as the bare
// shape without a discriminant, so clients tell the variants apart by the
// fields present: {total} for normal and {total, flavors, ...} for detail.
type ServerCost struct {
	Scope   Scope
	Simple  *types.ServerCostSimple
	Server  *types.ServerCostServer
	User    *types.ServerCostUser
	Project *types.ServerCostProject
	All     *types.ServerCostAll
}

// Detail reports whether the result carries a breakdown
func (c ServerCost) Detail() bool {
	return c.Simple == nil
}

// Total returns the scalar total of either variant
func (c ServerCost) Total() float64 {
	switch {
	case c.Simple != nil:
		return c.Simple.Total
	case c.Server != nil:
		return c.Server.Total
	case c.User != nil:
		return c.User.Total
	case c.Project != nil:
		return c.Project.Total
	case c.All != nil:
		return c.All.Total
	}
	return 0
}

func (c ServerCost) MarshalJSON() ([]byte, error) {
	switch {
	case c.Simple != nil:
		return json.Marshal(c.Simple)
	case c.Server != nil:
		return json.Marshal(c.Server)
	case c.User != nil:
		return json.Marshal(c.User)
	case c.Project != nil:
		return json.Marshal(c.Project)
	case c.All != nil:
		return json.Marshal(c.All)
	}
	return nil, errEmptyResult
}

func newCostServer() *types.ServerCostServer {
	return &types.ServerCostServer{Flavors: map[string]float64{}}
}

func newCostUser() *types.ServerCostUser {
	return &types.ServerCostUser{
		Flavors: map[string]float64{},
		Servers: map[uuid.UUID]*types.ServerCostServer{},
	}
}

func newCostProject() *types.ServerCostProject {
	return &types.ServerCostProject{
		Flavors: map[string]float64{},
		Users:   map[string]*types.ServerCostUser{},
	}
}

func newCostAll() *types.ServerCostAll {
	return &types.ServerCostAll{
		Flavors:  map[string]float64{},
		Projects: map[string]*types.ServerCostProject{},
	}
}

func costServerOf(u *types.ServerCostUser, id uuid.UUID) *types.ServerCostServer {
	s, ok := u.Servers[id]
	if !ok {
		s = newCostServer()
		u.Servers[id] = s
	}
	return s
}

func costUserOf(p *types.ServerCostProject, name string) *types.ServerCostUser {
	u, ok := p.Users[name]
	if !ok {
		u = newCostUser()
		p.Users[name] = u
	}
	return u
}

func costProjectOf(a *types.ServerCostAll, name string) *types.ServerCostProject {
	p, ok := a.Projects[name]
	if !ok {
		p = newCostProject()
		a.Projects[name] = p
	}
	return p
}

// ServerConsumption is one of the consumption shapes, encoded like
// ServerCost. Flavors is set for normal results.
type ServerConsumption struct {
	Scope   Scope
	Flavors types.ServerConsumptionFlavors
	User    *types.ServerConsumptionUser
	Project *types.ServerConsumptionProject
	All     *types.ServerConsumptionAll
}

func (c ServerConsumption) MarshalJSON() ([]byte, error) {
	switch {
	case c.Flavors != nil:
		return json.Marshal(c.Flavors)
	case c.User != nil:
		return json.Marshal(c.User)
	case c.Project != nil:
		return json.Marshal(c.Project)
	case c.All != nil:
		return json.Marshal(c.All)
	}
	return nil, errEmptyResult
}

// FlavorGroupUsage is either the per-user or the per-group usage list
type FlavorGroupUsage struct {
	Simple    []types.FlavorGroupUsageSimple
	Aggregate []types.FlavorGroupUsageAggregate
}

func (u FlavorGroupUsage) MarshalJSON() ([]byte, error) {
	if u.Aggregate != nil {
		return json.Marshal(u.Aggregate)
	}
	if u.Simple == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(u.Simple)
}
