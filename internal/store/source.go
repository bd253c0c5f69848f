package store

import (
	"context"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// Source exposes a Store as the read surface of the accounting engine.
// A Source bound to the pool is safe for concurrent use; one bound to a
// transaction is not.
type Source struct {
	s *Store
}

var _ accounting.Reader = (*Source)(nil)

// Source returns the accounting view of the store
func (s *Store) Source() *Source {
	return &Source{s: s}
}

func (r *Source) Flavors(ctx context.Context) ([]types.Flavor, error) {
	return r.s.Flavors.List(ctx)
}

func (r *Source) Flavor(ctx context.Context, id uint32) (*types.Flavor, error) {
	return r.s.Flavors.GetByID(ctx, id)
}

func (r *Source) FlavorGroups(ctx context.Context) ([]types.FlavorGroup, error) {
	return r.s.FlavorGroups.List(ctx)
}

// FlavorPricesForPeriod ignores begin: the price in effect at begin may have
// started long before it
func (r *Source) FlavorPricesForPeriod(ctx context.Context, begin, end time.Time) ([]types.FlavorPrice, error) {
	return r.s.FlavorPrices.ListStartingBefore(ctx, end)
}

func (r *Source) FlavorPrices(ctx context.Context, class *types.UserClass) ([]types.FlavorPrice, error) {
	return r.s.FlavorPrices.List(ctx, class)
}

func (r *Source) FlavorPrice(ctx context.Context, id uint32) (*types.FlavorPrice, error) {
	return r.s.FlavorPrices.GetByID(ctx, id)
}

func (r *Source) ServerStatesInPeriod(ctx context.Context, f accounting.StateFilter, begin, end time.Time) ([]types.ServerState, error) {
	return r.s.ServerStates.ListInPeriod(ctx, f, begin, end)
}

func (r *Source) UnfinishedServerStates(ctx context.Context, f accounting.StateFilter) ([]types.ServerState, error) {
	return r.s.ServerStates.ListUnfinished(ctx, f)
}

func (r *Source) LatestServerState(ctx context.Context, server uuid.UUID) (*types.ServerState, error) {
	return r.s.ServerStates.Latest(ctx, server)
}

func (r *Source) UserClassByServer(ctx context.Context, server uuid.UUID) (*types.UserClass, error) {
	return r.s.Projects.UserClassOfServer(ctx, server)
}

func (r *Source) UserClassByUser(ctx context.Context, userID uint32) (*types.UserClass, error) {
	return r.s.Projects.UserClassOfUser(ctx, userID)
}

func (r *Source) UserClassByProject(ctx context.Context, projectID uint32) (*types.UserClass, error) {
	return r.s.Projects.UserClassOfProject(ctx, projectID)
}

func (r *Source) User(ctx context.Context, id uint32) (*types.User, error) {
	return r.s.Users.GetByID(ctx, id)
}

func (r *Source) UserByOpenStackID(ctx context.Context, openstackID string) (*types.User, error) {
	return r.s.Users.GetByOpenStackID(ctx, openstackID)
}

func (r *Source) Users(ctx context.Context) ([]types.User, error) {
	return r.s.Users.List(ctx)
}

func (r *Source) UsersByProject(ctx context.Context, projectID uint32) ([]types.User, error) {
	return r.s.Users.ListByProject(ctx, projectID)
}

func (r *Source) Project(ctx context.Context, id uint32) (*types.Project, error) {
	return r.s.Projects.GetByID(ctx, id)
}

func (r *Source) Projects(ctx context.Context) ([]types.Project, error) {
	return r.s.Projects.List(ctx)
}

func (r *Source) ProjectBudget(ctx context.Context, projectID, year uint32) (*types.ProjectBudget, error) {
	return r.s.Budgets.ProjectBudget(ctx, projectID, year)
}

func (r *Source) ProjectBudgetsByYear(ctx context.Context, year uint32) ([]types.ProjectBudget, error) {
	return r.s.Budgets.ProjectBudgetsByYear(ctx, year)
}

func (r *Source) UserBudget(ctx context.Context, userID, year uint32) (*types.UserBudget, error) {
	return r.s.Budgets.UserBudget(ctx, userID, year)
}

func (r *Source) UserBudgetsByProjectAndYear(ctx context.Context, projectID, year uint32) ([]types.UserBudget, error) {
	return r.s.Budgets.UserBudgetsByProjectAndYear(ctx, projectID, year)
}

func (r *Source) UserBudgetsByYear(ctx context.Context, year uint32) ([]types.UserBudget, error) {
	return r.s.Budgets.UserBudgetsByYear(ctx, year)
}

func (r *Source) FlavorQuota(ctx context.Context, userID, groupID uint32) (*types.FlavorQuota, error) {
	return r.s.Quotas.FlavorQuota(ctx, userID, groupID)
}
