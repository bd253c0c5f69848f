package accounting

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/LRZ-BADW/avina/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultUsageConcurrency bounds the per-user fan-out of usage queries
const DefaultUsageConcurrency = 8

// UsageCalculator sums the flavor weights of running servers per flavor
// group. Project and cloud wide queries run one task per user.
type UsageCalculator struct {
	src   UsageSource
	limit int
}

// NewUsageCalculator creates a calculator running at most limit user
// queries at once. The source must be safe for concurrent use.
func NewUsageCalculator(src UsageSource, limit int) *UsageCalculator {
	if limit <= 0 {
		limit = DefaultUsageConcurrency
	}
	return &UsageCalculator{src: src, limit: limit}
}

type flavorIndex struct {
	groups  []types.FlavorGroup
	groupOf map[uint32]uint32
	weight  map[uint32]uint32
}

func (u *UsageCalculator) index(ctx context.Context) (*flavorIndex, error) {
	groups, err := u.src.FlavorGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("select flavor groups: %w", err)
	}
	flavors, err := u.src.Flavors(ctx)
	if err != nil {
		return nil, fmt.Errorf("select flavors: %w", err)
	}
	idx := &flavorIndex{
		groups:  slices.Clone(groups),
		groupOf: make(map[uint32]uint32, len(flavors)),
		weight:  make(map[uint32]uint32, len(flavors)),
	}
	slices.SortFunc(idx.groups, func(a, b types.FlavorGroup) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for _, f := range flavors {
		if f.Group == nil {
			continue
		}
		idx.groupOf[f.ID] = *f.Group
		idx.weight[f.ID] = f.Weight
	}
	return idx, nil
}

// userUsage returns one entry per flavor group for the user
func (u *UsageCalculator) userUsage(ctx context.Context, idx *flavorIndex, user types.User) ([]types.FlavorGroupUsageSimple, error) {
	states, err := u.src.UnfinishedServerStates(ctx, ForUser(user.ID))
	if err != nil {
		return nil, fmt.Errorf("select running servers of user %d: %w", user.ID, err)
	}
	sums := make(map[uint32]uint32)
	for _, s := range states {
		group, ok := idx.groupOf[s.Flavor]
		if !ok {
			continue
		}
		sums[group] += idx.weight[s.Flavor]
	}
	out := make([]types.FlavorGroupUsageSimple, 0, len(idx.groups))
	for _, g := range idx.groups {
		out = append(out, types.FlavorGroupUsageSimple{
			UserID:          user.ID,
			UserName:        user.Name,
			FlavorGroupID:   g.ID,
			FlavorGroupName: g.Name,
			Usage:           sums[g.ID],
		})
	}
	return out, nil
}

// usersUsage fans out one task per user. Each task writes only its own
// slot; the slots are merged after every task finished and the first error
// cancels the rest.
func (u *UsageCalculator) usersUsage(ctx context.Context, users []types.User) ([]types.FlavorGroupUsageSimple, error) {
	idx, err := u.index(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]types.FlavorGroupUsageSimple, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.limit)
	for i, user := range users {
		i, user := i, user
		g.Go(func() error {
			usage, err := u.userUsage(gctx, idx, user)
			if err != nil {
				return err
			}
			results[i] = usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []types.FlavorGroupUsageSimple{}
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// AggregateUsage sums simple usage entries per flavor group
func AggregateUsage(simple []types.FlavorGroupUsageSimple) []types.FlavorGroupUsageAggregate {
	byGroup := make(map[uint32]*types.FlavorGroupUsageAggregate)
	out := []types.FlavorGroupUsageAggregate{}
	order := []uint32{}
	for _, s := range simple {
		agg, ok := byGroup[s.FlavorGroupID]
		if !ok {
			agg = &types.FlavorGroupUsageAggregate{
				FlavorGroupID:   s.FlavorGroupID,
				FlavorGroupName: s.FlavorGroupName,
			}
			byGroup[s.FlavorGroupID] = agg
			order = append(order, s.FlavorGroupID)
		}
		agg.Usage += s.Usage
	}
	slices.Sort(order)
	for _, id := range order {
		out = append(out, *byGroup[id])
	}
	return out
}

func usageResult(simple []types.FlavorGroupUsageSimple, aggregate bool) FlavorGroupUsage {
	if aggregate {
		return FlavorGroupUsage{Aggregate: AggregateUsage(simple)}
	}
	return FlavorGroupUsage{Simple: simple}
}

// ForUser returns the flavor group usage of one user
func (u *UsageCalculator) ForUser(ctx context.Context, userID uint32, aggregate bool) (FlavorGroupUsage, error) {
	user, err := u.src.User(ctx, userID)
	if err != nil {
		return FlavorGroupUsage{}, fmt.Errorf("select user: %w", err)
	}
	simple, err := u.usersUsage(ctx, []types.User{*user})
	if err != nil {
		return FlavorGroupUsage{}, err
	}
	return usageResult(simple, aggregate), nil
}

// ForProject returns the flavor group usage of every user of a project
func (u *UsageCalculator) ForProject(ctx context.Context, projectID uint32, aggregate bool) (FlavorGroupUsage, error) {
	users, err := u.src.UsersByProject(ctx, projectID)
	if err != nil {
		return FlavorGroupUsage{}, fmt.Errorf("select users of project: %w", err)
	}
	simple, err := u.usersUsage(ctx, users)
	if err != nil {
		return FlavorGroupUsage{}, err
	}
	return usageResult(simple, aggregate), nil
}

// ForAll returns the flavor group usage of every user
func (u *UsageCalculator) ForAll(ctx context.Context, aggregate bool) (FlavorGroupUsage, error) {
	users, err := u.src.Users(ctx)
	if err != nil {
		return FlavorGroupUsage{}, fmt.Errorf("select users: %w", err)
	}
	simple, err := u.usersUsage(ctx, users)
	if err != nil {
		return FlavorGroupUsage{}, err
	}
	return usageResult(simple, aggregate), nil
}

// GroupUsage returns a user's usage of one flavor group
func (u *UsageCalculator) GroupUsage(ctx context.Context, user types.User, groupID uint32) (uint32, error) {
	idx, err := u.index(ctx)
	if err != nil {
		return 0, err
	}
	usage, err := u.userUsage(ctx, idx, user)
	if err != nil {
		return 0, err
	}
	for _, entry := range usage {
		if entry.FlavorGroupID == groupID {
			return entry.Usage, nil
		}
	}
	return 0, nil
}
