package store

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/jackc/pgx/v5"
)

// BudgetStore handles project and user budget database operations
type BudgetStore struct {
	db Querier
}

const projectBudgetSelect = `
	SELECT b.id, p.id, p.name, b.year, b.amount
	FROM budgeting_projectbudget b
	JOIN user_project p ON p.id = b.project_id
`

const userBudgetSelect = `
	SELECT b.id, u.id, u.name, b.year, b.amount
	FROM budgeting_userbudget b
	JOIN user_user u ON u.id = b.user_id
`

func scanProjectBudget(row pgx.Row) (*types.ProjectBudget, error) {
	var b types.ProjectBudget
	if err := row.Scan(&b.ID, &b.Project, &b.ProjectName, &b.Year, &b.Amount); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanUserBudget(row pgx.Row) (*types.UserBudget, error) {
	var b types.UserBudget
	if err := row.Scan(&b.ID, &b.User, &b.Username, &b.Year, &b.Amount); err != nil {
		return nil, err
	}
	return &b, nil
}

// ProjectBudget retrieves a project's budget for a year, or nil if it has none
func (s *BudgetStore) ProjectBudget(ctx context.Context, projectID, year uint32) (*types.ProjectBudget, error) {
	query := projectBudgetSelect + `WHERE b.project_id = $1 AND b.year = $2`

	b, err := scanProjectBudget(s.db.QueryRow(ctx, query, projectID, year))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project budget: %w", err)
	}
	return b, nil
}

// ProjectBudgetsByYear retrieves every project budget of a year
func (s *BudgetStore) ProjectBudgetsByYear(ctx context.Context, year uint32) ([]types.ProjectBudget, error) {
	rows, err := s.db.Query(ctx, projectBudgetSelect+`WHERE b.year = $1 ORDER BY b.id`, year)
	if err != nil {
		return nil, fmt.Errorf("list project budgets: %w", err)
	}
	defer rows.Close()

	budgets := []types.ProjectBudget{}
	for rows.Next() {
		b, err := scanProjectBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// UserBudget retrieves a user's budget for a year, or nil if it has none
func (s *BudgetStore) UserBudget(ctx context.Context, userID, year uint32) (*types.UserBudget, error) {
	query := userBudgetSelect + `WHERE b.user_id = $1 AND b.year = $2`

	b, err := scanUserBudget(s.db.QueryRow(ctx, query, userID, year))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user budget: %w", err)
	}
	return b, nil
}

func (s *BudgetStore) userBudgets(ctx context.Context, query string, args ...any) ([]types.UserBudget, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user budgets: %w", err)
	}
	defer rows.Close()

	budgets := []types.UserBudget{}
	for rows.Next() {
		b, err := scanUserBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

// UserBudgetsByProjectAndYear retrieves the budgets of a project's users
func (s *BudgetStore) UserBudgetsByProjectAndYear(ctx context.Context, projectID, year uint32) ([]types.UserBudget, error) {
	return s.userBudgets(ctx, userBudgetSelect+`WHERE u.project_id = $1 AND b.year = $2 ORDER BY b.id`, projectID, year)
}

// UserBudgetsByYear retrieves every user budget of a year
func (s *BudgetStore) UserBudgetsByYear(ctx context.Context, year uint32) ([]types.UserBudget, error) {
	return s.userBudgets(ctx, userBudgetSelect+`WHERE b.year = $1 ORDER BY b.id`, year)
}
