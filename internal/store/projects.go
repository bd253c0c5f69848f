package store

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProjectStore handles project database operations
type ProjectStore struct {
	db Querier
}

const projectColumns = `id, name, openstack_id, user_class`

func scanProject(row pgx.Row) (*types.Project, error) {
	var (
		project types.Project
		class   int32
	)
	if err := row.Scan(&project.ID, &project.Name, &project.OpenStackID, &class); err != nil {
		return nil, err
	}
	project.UserClass = types.UserClass(class)
	return &project, nil
}

// GetByID retrieves a project by ID
func (s *ProjectStore) GetByID(ctx context.Context, id uint32) (*types.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM user_project WHERE id = $1`

	project, err := scanProject(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", notFound(err))
	}
	return project, nil
}

// List retrieves all projects
func (s *ProjectStore) List(ctx context.Context) ([]types.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM user_project ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []types.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// Create inserts a project and sets its ID
func (s *ProjectStore) Create(ctx context.Context, project *types.Project) error {
	query := `
		INSERT INTO user_project (name, openstack_id, user_class)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query, project.Name, project.OpenStackID, int32(project.UserClass)).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", conflict(err))
	}
	return nil
}

// UserClassOfProject returns the class of a project, or nil if the project
// does not exist
func (s *ProjectStore) UserClassOfProject(ctx context.Context, projectID uint32) (*types.UserClass, error) {
	return s.userClass(ctx, `SELECT user_class FROM user_project WHERE id = $1`, projectID)
}

// UserClassOfUser returns the class of a user's project
func (s *ProjectStore) UserClassOfUser(ctx context.Context, userID uint32) (*types.UserClass, error) {
	query := `
		SELECT p.user_class
		FROM user_user u
		JOIN user_project p ON p.id = u.project_id
		WHERE u.id = $1
	`
	return s.userClass(ctx, query, userID)
}

// UserClassOfServer returns the class of the project owning the latest
// state of a server
func (s *ProjectStore) UserClassOfServer(ctx context.Context, instanceID uuid.UUID) (*types.UserClass, error) {
	query := `
		SELECT p.user_class
		FROM accounting_serverstate s
		JOIN user_user u ON u.id = s.user_id
		JOIN user_project p ON p.id = u.project_id
		WHERE s.instance_id = $1
		ORDER BY s.begin_time DESC, s.id DESC
		LIMIT 1
	`
	return s.userClass(ctx, query, instanceID)
}

func (s *ProjectStore) userClass(ctx context.Context, query string, arg any) (*types.UserClass, error) {
	var class int32
	err := s.db.QueryRow(ctx, query, arg).Scan(&class)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user class: %w", err)
	}
	c := types.UserClass(class)
	return &c, nil
}
