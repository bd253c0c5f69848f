package accounting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
)

// DefaultQuotaCacheTTL is how long a quota answer is reused
const DefaultQuotaCacheTTL = 5 * time.Second

// CacheObserver is told about every cache lookup
type CacheObserver interface {
	ObserveQuotaCache(hit bool)
}

type quotaEntry struct {
	underquota bool
	timestamp  time.Time
}

// QuotaCache remembers quota answers for a short time. It is shared across
// requests; the lock only covers the map access.
type QuotaCache struct {
	mu       sync.Mutex
	entries  map[string]quotaEntry
	ttl      time.Duration
	clock    clock.Clock
	observer CacheObserver
}

// NewQuotaCache creates a cache whose entries expire after ttl
func NewQuotaCache(ttl time.Duration, clk clock.Clock, observer CacheObserver) *QuotaCache {
	if ttl <= 0 {
		ttl = DefaultQuotaCacheTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &QuotaCache{
		entries:  make(map[string]quotaEntry),
		ttl:      ttl,
		clock:    clk,
		observer: observer,
	}
}

func quotaKey(username, flavor string, count uint32) string {
	return fmt.Sprintf("%s\x00%s\x00%d", username, flavor, count)
}

// Get returns a fresh answer. Stale entries are dropped on the way.
func (c *QuotaCache) Get(username, flavor string, count uint32) (bool, bool) {
	key := quotaKey(username, flavor, count)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.clock.Since(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ObserveQuotaCache(ok)
	}
	return entry.underquota, ok
}

// Set stores an answer
func (c *QuotaCache) Set(username, flavor string, count uint32, underquota bool) {
	key := quotaKey(username, flavor, count)

	c.mu.Lock()
	c.entries[key] = quotaEntry{underquota: underquota, timestamp: c.clock.Now()}
	c.mu.Unlock()
}

// Prune drops every stale entry and returns how many were dropped. Get
// only evicts the keys it is asked for.
func (c *QuotaCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for key, entry := range c.entries {
		if c.clock.Since(entry.timestamp) > c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored entries, fresh or not
func (c *QuotaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// QuotaChecker answers whether a user may start more servers of a flavor
type QuotaChecker struct {
	cache *QuotaCache
}

// NewQuotaChecker creates a checker backed by cache
func NewQuotaChecker(cache *QuotaCache) *QuotaChecker {
	return &QuotaChecker{cache: cache}
}

// Cache returns the cache shared by every check
func (q *QuotaChecker) Cache() *QuotaCache {
	return q.cache
}

// Check resolves the user and flavor of params and compares the weight of
// Count more servers plus the user's current usage with the user's quota
// for the flavor's group. Count defaults to 1.
func (q *QuotaChecker) Check(ctx context.Context, src QuotaSource, params types.FlavorQuotaCheckParams) (*types.FlavorQuotaCheck, error) {
	var (
		user *types.User
		err  error
	)
	switch {
	case params.User != nil:
		user, err = src.User(ctx, *params.User)
	case params.OpenStackProject != nil:
		user, err = src.UserByOpenStackID(ctx, *params.OpenStackProject)
	default:
		return nil, NewValidationError("Neither user ID nor Openstack UUID provided.")
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	flavor, err := src.Flavor(ctx, params.Flavor)
	if err != nil {
		return nil, fmt.Errorf("select flavor: %w", err)
	}
	count := uint32(1)
	if params.Count != nil {
		count = *params.Count
	}

	if underquota, ok := q.cache.Get(user.Name, flavor.Name, count); ok {
		return &types.FlavorQuotaCheck{Underquota: underquota}, nil
	}
	underquota, err := checkFlavorQuota(ctx, src, *user, *flavor, count)
	if err != nil {
		return nil, err
	}
	q.cache.Set(user.Name, flavor.Name, count, underquota)
	return &types.FlavorQuotaCheck{Underquota: underquota}, nil
}

func checkFlavorQuota(ctx context.Context, src QuotaSource, user types.User, flavor types.Flavor, count uint32) (bool, error) {
	if flavor.Group == nil {
		return false, nil
	}
	quota, err := src.FlavorQuota(ctx, user.ID, *flavor.Group)
	if err != nil {
		return false, fmt.Errorf("select flavor quota: %w", err)
	}
	if quota == nil {
		return false, nil
	}
	usage, err := NewUsageCalculator(src, 1).GroupUsage(ctx, user, *flavor.Group)
	if err != nil {
		return false, err
	}
	limit := uint64(0)
	if quota.Quota > 0 {
		limit = uint64(quota.Quota)
	}
	return uint64(usage)+uint64(count)*uint64(flavor.Weight) <= limit, nil
}
