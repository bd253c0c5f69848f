// Package accountingtest provides an in-memory data source for tests of
// code built on the accounting engine.
package accountingtest

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// Memory implements accounting.Reader over plain slices. Fill the fields
// before use and do not modify them while it is in use; reads are then safe
// for concurrent use.
type Memory struct {
	FlavorList     []types.Flavor
	Groups         []types.FlavorGroup
	Prices         []types.FlavorPrice
	States         []types.ServerState
	UserList       []types.User
	ProjectList    []types.Project
	ProjectBudgets []types.ProjectBudget
	UserBudgets    []types.UserBudget
	Quotas         []types.FlavorQuota

	// Err is returned by every method when set
	Err error
}

var _ accounting.Reader = (*Memory)(nil)

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

func (m *Memory) Flavors(ctx context.Context) ([]types.Flavor, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return slices.Clone(m.FlavorList), nil
}

func (m *Memory) Flavor(ctx context.Context, id uint32) (*types.Flavor, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, f := range m.FlavorList {
		if f.ID == id {
			return &f, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) FlavorGroups(ctx context.Context) ([]types.FlavorGroup, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return slices.Clone(m.Groups), nil
}

func (m *Memory) FlavorPricesForPeriod(ctx context.Context, begin, end time.Time) ([]types.FlavorPrice, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.FlavorPrice{}
	for _, p := range m.Prices {
		if !p.StartTime.After(end) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b types.FlavorPrice) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return out, nil
}

func (m *Memory) FlavorPrices(ctx context.Context, class *types.UserClass) ([]types.FlavorPrice, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.FlavorPrice{}
	for _, p := range m.Prices {
		if class == nil || p.UserClass == *class {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) FlavorPrice(ctx context.Context, id uint32) (*types.FlavorPrice, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Prices {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) matches(f accounting.StateFilter, s types.ServerState) bool {
	if f.Server != nil && s.InstanceID != *f.Server {
		return false
	}
	if f.User != nil && s.User != *f.User {
		return false
	}
	if f.Project != nil {
		u := m.findUser(s.User)
		if u == nil || u.Project != *f.Project {
			return false
		}
	}
	return true
}

func (m *Memory) ServerStatesInPeriod(ctx context.Context, f accounting.StateFilter, begin, end time.Time) ([]types.ServerState, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.ServerState{}
	for _, s := range m.States {
		if !m.matches(f, s) {
			continue
		}
		if (s.End == nil || s.End.After(begin)) && s.Begin.Before(end) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b types.ServerState) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *Memory) UnfinishedServerStates(ctx context.Context, f accounting.StateFilter) ([]types.ServerState, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.ServerState{}
	for _, s := range m.States {
		if s.End == nil && m.matches(f, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) LatestServerState(ctx context.Context, server uuid.UUID) (*types.ServerState, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var latest *types.ServerState
	for i, s := range m.States {
		if s.InstanceID != server {
			continue
		}
		if latest == nil || s.Begin.After(latest.Begin) {
			latest = &m.States[i]
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (m *Memory) findUser(id uint32) *types.User {
	for i := range m.UserList {
		if m.UserList[i].ID == id {
			return &m.UserList[i]
		}
	}
	return nil
}

func (m *Memory) findProject(id uint32) *types.Project {
	for i := range m.ProjectList {
		if m.ProjectList[i].ID == id {
			return &m.ProjectList[i]
		}
	}
	return nil
}

func (m *Memory) UserClassByServer(ctx context.Context, server uuid.UUID) (*types.UserClass, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	state, err := m.LatestServerState(ctx, server)
	if err != nil {
		return nil, nil
	}
	return m.UserClassByUser(ctx, state.User)
}

func (m *Memory) UserClassByUser(ctx context.Context, userID uint32) (*types.UserClass, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	u := m.findUser(userID)
	if u == nil {
		return nil, nil
	}
	return m.UserClassByProject(ctx, u.Project)
}

func (m *Memory) UserClassByProject(ctx context.Context, projectID uint32) (*types.UserClass, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p := m.findProject(projectID)
	if p == nil {
		return nil, nil
	}
	class := p.UserClass
	return &class, nil
}

func (m *Memory) User(ctx context.Context, id uint32) (*types.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	u := m.findUser(id)
	if u == nil {
		return nil, store.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *Memory) UserByOpenStackID(ctx context.Context, openstackID string) (*types.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, u := range m.UserList {
		if u.OpenStackID == openstackID {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Memory) Users(ctx context.Context) ([]types.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return slices.Clone(m.UserList), nil
}

func (m *Memory) UsersByProject(ctx context.Context, projectID uint32) ([]types.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.User{}
	for _, u := range m.UserList {
		if u.Project == projectID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) Project(ctx context.Context, id uint32) (*types.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p := m.findProject(id)
	if p == nil {
		return nil, store.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) Projects(ctx context.Context) ([]types.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return slices.Clone(m.ProjectList), nil
}

func (m *Memory) ProjectBudget(ctx context.Context, projectID, year uint32) (*types.ProjectBudget, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, b := range m.ProjectBudgets {
		if b.Project == projectID && b.Year == year {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *Memory) ProjectBudgetsByYear(ctx context.Context, year uint32) ([]types.ProjectBudget, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.ProjectBudget{}
	for _, b := range m.ProjectBudgets {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) UserBudget(ctx context.Context, userID, year uint32) (*types.UserBudget, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, b := range m.UserBudgets {
		if b.User == userID && b.Year == year {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *Memory) UserBudgetsByProjectAndYear(ctx context.Context, projectID, year uint32) ([]types.UserBudget, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.UserBudget{}
	for _, b := range m.UserBudgets {
		u := m.findUser(b.User)
		if b.Year == year && u != nil && u.Project == projectID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) UserBudgetsByYear(ctx context.Context, year uint32) ([]types.UserBudget, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := []types.UserBudget{}
	for _, b := range m.UserBudgets {
		if b.Year == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) FlavorQuota(ctx context.Context, userID, groupID uint32) (*types.FlavorQuota, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, q := range m.Quotas {
		if q.User == userID && q.FlavorGroup == groupID {
			return &q, nil
		}
	}
	return nil, nil
}
