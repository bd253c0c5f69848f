package store

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/jackc/pgx/v5"
)

// FlavorStore handles flavor database operations
type FlavorStore struct {
	db Querier
}

const flavorSelect = `
	SELECT f.id, f.name, f.openstack_id, f.group_id, g.name, f.weight
	FROM resources_flavor f
	LEFT JOIN resources_flavorgroup g ON g.id = f.group_id
`

func scanFlavor(row pgx.Row) (*types.Flavor, error) {
	var flavor types.Flavor
	err := row.Scan(
		&flavor.ID,
		&flavor.Name,
		&flavor.OpenStackID,
		&flavor.Group,
		&flavor.GroupName,
		&flavor.Weight,
	)
	if err != nil {
		return nil, err
	}
	return &flavor, nil
}

// GetByID retrieves a flavor by ID
func (s *FlavorStore) GetByID(ctx context.Context, id uint32) (*types.Flavor, error) {
	flavor, err := scanFlavor(s.db.QueryRow(ctx, flavorSelect+`WHERE f.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get flavor by id: %w", notFound(err))
	}
	return flavor, nil
}

// GetByName retrieves a flavor by name
func (s *FlavorStore) GetByName(ctx context.Context, name string) (*types.Flavor, error) {
	flavor, err := scanFlavor(s.db.QueryRow(ctx, flavorSelect+`WHERE f.name = $1`, name))
	if err != nil {
		return nil, fmt.Errorf("get flavor by name: %w", notFound(err))
	}
	return flavor, nil
}

// List retrieves all flavors
func (s *FlavorStore) List(ctx context.Context) ([]types.Flavor, error) {
	rows, err := s.db.Query(ctx, flavorSelect+`ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("list flavors: %w", err)
	}
	defer rows.Close()

	flavors := []types.Flavor{}
	for rows.Next() {
		flavor, err := scanFlavor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flavor: %w", err)
		}
		flavors = append(flavors, *flavor)
	}
	return flavors, rows.Err()
}

// Create inserts a flavor and sets its ID
func (s *FlavorStore) Create(ctx context.Context, flavor *types.Flavor) error {
	query := `
		INSERT INTO resources_flavor (name, openstack_id, group_id, weight)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query, flavor.Name, flavor.OpenStackID, flavor.Group, flavor.Weight).Scan(&flavor.ID)
	if err != nil {
		return fmt.Errorf("create flavor: %w", conflict(err))
	}
	return nil
}

// FlavorGroupStore handles flavor group database operations
type FlavorGroupStore struct {
	db Querier
}

// List retrieves all flavor groups with the ids of their flavors
func (s *FlavorGroupStore) List(ctx context.Context) ([]types.FlavorGroup, error) {
	query := `
		SELECT g.id, g.name, g.project_id,
			COALESCE(array_agg(f.id ORDER BY f.id) FILTER (WHERE f.id IS NOT NULL), '{}')
		FROM resources_flavorgroup g
		LEFT JOIN resources_flavor f ON f.group_id = g.id
		GROUP BY g.id, g.name, g.project_id
		ORDER BY g.id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list flavor groups: %w", err)
	}
	defer rows.Close()

	groups := []types.FlavorGroup{}
	for rows.Next() {
		var (
			group   types.FlavorGroup
			flavors []int32
		)
		if err := rows.Scan(&group.ID, &group.Name, &group.Project, &flavors); err != nil {
			return nil, fmt.Errorf("scan flavor group: %w", err)
		}
		group.Flavors = make([]uint32, 0, len(flavors))
		for _, id := range flavors {
			group.Flavors = append(group.Flavors, uint32(id))
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}
