package store

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/jackc/pgx/v5"
)

// QuotaStore handles flavor quota database operations
type QuotaStore struct {
	db Querier
}

// FlavorQuota retrieves a user's quota for a flavor group, or nil if the
// user has none
func (s *QuotaStore) FlavorQuota(ctx context.Context, userID, groupID uint32) (*types.FlavorQuota, error) {
	query := `
		SELECT q.id, u.id, u.name, q.quota, g.id, g.name
		FROM quota_flavorquota q
		JOIN user_user u ON u.id = q.user_id
		JOIN resources_flavorgroup g ON g.id = q.flavor_group_id
		WHERE q.user_id = $1 AND q.flavor_group_id = $2
	`

	var q types.FlavorQuota
	err := s.db.QueryRow(ctx, query, userID, groupID).Scan(
		&q.ID,
		&q.User,
		&q.Username,
		&q.Quota,
		&q.FlavorGroup,
		&q.FlavorGroupName,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flavor quota: %w", err)
	}
	return &q, nil
}
