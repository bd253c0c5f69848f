package store

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/jackc/pgx/v5"
)

// UserStore handles user database operations
type UserStore struct {
	db Querier
}

const userColumns = `
	u.id, u.name, u.openstack_id, u.project_id, p.name,
	u.role, u.is_staff, u.is_active
`

const userFrom = `
	FROM user_user u
	JOIN user_project p ON p.id = u.project_id
`

func scanUser(row pgx.Row) (*types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.OpenStackID,
		&user.Project,
		&user.ProjectName,
		&user.Role,
		&user.IsStaff,
		&user.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) list(ctx context.Context, query string, args ...any) ([]types.User, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id uint32) (*types.User, error) {
	query := `SELECT` + userColumns + userFrom + `WHERE u.id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", notFound(err))
	}
	return user, nil
}

// GetByOpenStackID retrieves a user by its OpenStack project id
func (s *UserStore) GetByOpenStackID(ctx context.Context, openstackID string) (*types.User, error) {
	query := `SELECT` + userColumns + userFrom + `WHERE u.openstack_id = $1`

	user, err := scanUser(s.db.QueryRow(ctx, query, openstackID))
	if err != nil {
		return nil, fmt.Errorf("get user by openstack id: %w", notFound(err))
	}
	return user, nil
}

// List retrieves all users
func (s *UserStore) List(ctx context.Context) ([]types.User, error) {
	query := `SELECT` + userColumns + userFrom + `ORDER BY u.id`

	users, err := s.list(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListByProject retrieves the users of one project
func (s *UserStore) ListByProject(ctx context.Context, projectID uint32) ([]types.User, error) {
	query := `SELECT` + userColumns + userFrom + `WHERE u.project_id = $1 ORDER BY u.id`

	users, err := s.list(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list users by project: %w", err)
	}
	return users, nil
}

// Create inserts a user and sets its ID
func (s *UserStore) Create(ctx context.Context, user *types.User) error {
	query := `
		INSERT INTO user_user (name, openstack_id, project_id, role, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		user.Name,
		user.OpenStackID,
		user.Project,
		user.Role,
		user.IsStaff,
		user.IsActive,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", conflict(err))
	}
	return nil
}
