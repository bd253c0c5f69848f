package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
)

// StartOfYear returns midnight UTC of January 1st
func StartOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// BudgetOverTreeForUser compares a user's cost since the start of end's year
// with the user's budget and the budget of the user's project. The tree holds
// the user's project with only that user in it.
func (e *Engine) BudgetOverTreeForUser(ctx context.Context, userID uint32, end time.Time) (*types.BudgetOverTree, error) {
	year := end.Year()
	begin := StartOfYear(year)

	user, err := e.src.User(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	projectBudget, err := e.src.ProjectBudget(ctx, user.Project, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select project budget: %w", err)
	}
	userBudget, err := e.src.UserBudget(ctx, user.ID, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select user budget: %w", err)
	}
	cost, err := e.CostForProject(ctx, user.Project, begin, end, true)
	if err != nil {
		return nil, err
	}

	total := cost.Project.Total
	tree := &types.BudgetOverTree{
		Cost:     &total,
		Projects: map[string]*types.BudgetOverTreeProject{},
	}
	project := overTreeProject(cost.Project, projectBudget)
	if userCost, ok := cost.Project.Users[user.Name]; ok {
		project.Users[user.Name] = overTreeUser(userCost, userBudget)
	}
	tree.Projects[user.ProjectName] = project
	return tree, nil
}

// BudgetOverTreeForProject compares a project's cost since the start of
// end's year with its budget, and every user's cost with the user's budget.
func (e *Engine) BudgetOverTreeForProject(ctx context.Context, projectID uint32, end time.Time) (*types.BudgetOverTree, error) {
	year := end.Year()
	begin := StartOfYear(year)

	p, err := e.src.Project(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("select project: %w", err)
	}
	projectBudget, err := e.src.ProjectBudget(ctx, projectID, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select project budget: %w", err)
	}
	budgets, err := e.src.UserBudgetsByProjectAndYear(ctx, projectID, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select user budgets: %w", err)
	}
	userBudgets := userBudgetsByName(budgets)
	cost, err := e.CostForProject(ctx, projectID, begin, end, true)
	if err != nil {
		return nil, err
	}

	total := cost.Project.Total
	tree := &types.BudgetOverTree{
		Cost:     &total,
		Projects: map[string]*types.BudgetOverTreeProject{},
	}
	project := overTreeProject(cost.Project, projectBudget)
	for name, userCost := range cost.Project.Users {
		project.Users[name] = overTreeUser(userCost, userBudgets[name])
	}
	tree.Projects[p.Name] = project
	return tree, nil
}

// BudgetOverTreeForAll compares every project and user with their budgets
func (e *Engine) BudgetOverTreeForAll(ctx context.Context, end time.Time) (*types.BudgetOverTree, error) {
	year := end.Year()
	begin := StartOfYear(year)

	pBudgets, err := e.src.ProjectBudgetsByYear(ctx, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select project budgets: %w", err)
	}
	projectBudgets := make(map[string]*types.ProjectBudget, len(pBudgets))
	for i := range pBudgets {
		projectBudgets[pBudgets[i].ProjectName] = &pBudgets[i]
	}
	uBudgets, err := e.src.UserBudgetsByYear(ctx, uint32(year))
	if err != nil {
		return nil, fmt.Errorf("select user budgets: %w", err)
	}
	userBudgets := userBudgetsByName(uBudgets)
	cost, err := e.CostForAll(ctx, begin, end, true)
	if err != nil {
		return nil, err
	}

	total := cost.All.Total
	tree := &types.BudgetOverTree{
		Cost:     &total,
		Projects: make(map[string]*types.BudgetOverTreeProject, len(cost.All.Projects)),
		Flavors:  cost.All.Flavors,
	}
	for projectName, projectCost := range cost.All.Projects {
		project := overTreeProject(projectCost, projectBudgets[projectName])
		for name, userCost := range projectCost.Users {
			project.Users[name] = overTreeUser(userCost, userBudgets[name])
		}
		tree.Projects[projectName] = project
	}
	return tree, nil
}

func userBudgetsByName(budgets []types.UserBudget) map[string]*types.UserBudget {
	out := make(map[string]*types.UserBudget, len(budgets))
	for i := range budgets {
		out[budgets[i].Username] = &budgets[i]
	}
	return out
}

// isOver counts reaching the budget exactly as being over it
func isOver(cost float64, amount uint64) bool {
	return cost >= float64(amount)
}

func overTreeProject(cost *types.ServerCostProject, budget *types.ProjectBudget) *types.BudgetOverTreeProject {
	p := &types.BudgetOverTreeProject{
		Cost:    cost.Total,
		Users:   map[string]*types.BudgetOverTreeUser{},
		Flavors: cost.Flavors,
	}
	if budget != nil {
		id, amount := budget.ID, budget.Amount
		p.BudgetID = &id
		p.Budget = &amount
		p.Over = isOver(cost.Total, amount)
	}
	return p
}

func overTreeUser(cost *types.ServerCostUser, budget *types.UserBudget) *types.BudgetOverTreeUser {
	u := &types.BudgetOverTreeUser{
		Cost:    cost.Total,
		Servers: make(map[uuid.UUID]*types.BudgetOverTreeServer, len(cost.Servers)),
		Flavors: cost.Flavors,
	}
	if budget != nil {
		id, amount := budget.ID, budget.Amount
		u.BudgetID = &id
		u.Budget = &amount
		u.Over = isOver(cost.Total, amount)
	}
	for id, server := range cost.Servers {
		u.Servers[id] = &types.BudgetOverTreeServer{
			Total:   server.Total,
			Flavors: server.Flavors,
		}
	}
	return u
}
