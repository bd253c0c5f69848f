package accounting

import (
	"context"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// StateFilter restricts server states to one server, user or project.
// The zero value matches every state.
type StateFilter struct {
	Server  *uuid.UUID
	User    *uint32
	Project *uint32
}

// ForServer returns a filter matching one server
func ForServer(id uuid.UUID) StateFilter {
	return StateFilter{Server: &id}
}

// ForUser returns a filter matching the servers of one user
func ForUser(id uint32) StateFilter {
	return StateFilter{User: &id}
}

// ForProject returns a filter matching the servers of one project
func ForProject(id uint32) StateFilter {
	return StateFilter{Project: &id}
}

// PriceSource reads flavors and their effective-dated prices
type PriceSource interface {
	Flavors(ctx context.Context) ([]types.Flavor, error)
	// FlavorPricesForPeriod returns every price starting at or before end,
	// newest first.
	FlavorPricesForPeriod(ctx context.Context, begin, end time.Time) ([]types.FlavorPrice, error)
}

// StateSource reads server states
type StateSource interface {
	// ServerStatesInPeriod returns the states matching f that overlap
	// [begin, end), ordered by id.
	ServerStatesInPeriod(ctx context.Context, f StateFilter, begin, end time.Time) ([]types.ServerState, error)
	// UnfinishedServerStates returns the open states matching f
	UnfinishedServerStates(ctx context.Context, f StateFilter) ([]types.ServerState, error)
	// LatestServerState returns the newest state of a server
	LatestServerState(ctx context.Context, server uuid.UUID) (*types.ServerState, error)
}

// ClassSource resolves the user class that applies to an entity. A nil
// class without error means the entity has no resolvable class.
type ClassSource interface {
	UserClassByServer(ctx context.Context, server uuid.UUID) (*types.UserClass, error)
	UserClassByUser(ctx context.Context, userID uint32) (*types.UserClass, error)
	UserClassByProject(ctx context.Context, projectID uint32) (*types.UserClass, error)
}

// DirectorySource reads users and projects
type DirectorySource interface {
	User(ctx context.Context, id uint32) (*types.User, error)
	UserByOpenStackID(ctx context.Context, openstackID string) (*types.User, error)
	Users(ctx context.Context) ([]types.User, error)
	UsersByProject(ctx context.Context, projectID uint32) ([]types.User, error)
	Project(ctx context.Context, id uint32) (*types.Project, error)
	Projects(ctx context.Context) ([]types.Project, error)
}

// BudgetSource reads yearly budgets. The single-row lookups return nil
// without error when no budget exists.
type BudgetSource interface {
	ProjectBudget(ctx context.Context, projectID, year uint32) (*types.ProjectBudget, error)
	ProjectBudgetsByYear(ctx context.Context, year uint32) ([]types.ProjectBudget, error)
	UserBudget(ctx context.Context, userID, year uint32) (*types.UserBudget, error)
	UserBudgetsByProjectAndYear(ctx context.Context, projectID, year uint32) ([]types.UserBudget, error)
	UserBudgetsByYear(ctx context.Context, year uint32) ([]types.UserBudget, error)
}

// Source is everything the cost engine and budget comparator read
type Source interface {
	PriceSource
	StateSource
	ClassSource
	DirectorySource
	BudgetSource
}

// UsageSource is what flavor group usage reads. Implementations must be
// safe for concurrent use.
type UsageSource interface {
	Flavors(ctx context.Context) ([]types.Flavor, error)
	FlavorGroups(ctx context.Context) ([]types.FlavorGroup, error)
	UnfinishedServerStates(ctx context.Context, f StateFilter) ([]types.ServerState, error)
	DirectorySource
}

// QuotaSource is what the quota check reads
type QuotaSource interface {
	UsageSource
	Flavor(ctx context.Context, id uint32) (*types.Flavor, error)
	// FlavorQuota returns nil without error when the user has no quota
	// for the group.
	FlavorQuota(ctx context.Context, userID, groupID uint32) (*types.FlavorQuota, error)
}

// PriceListSource is what the flavor price list reads
type PriceListSource interface {
	FlavorPricesForPeriod(ctx context.Context, begin, end time.Time) ([]types.FlavorPrice, error)
	FlavorPrices(ctx context.Context, class *types.UserClass) ([]types.FlavorPrice, error)
	FlavorPrice(ctx context.Context, id uint32) (*types.FlavorPrice, error)
}

// Reader is the complete read surface of the accounting backend
type Reader interface {
	Source
	QuotaSource
	PriceListSource
}
