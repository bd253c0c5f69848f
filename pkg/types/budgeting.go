package types

import (
	"time"

	"github.com/google/uuid"
)

// ProjectBudget is the yearly spending ceiling of a project
type ProjectBudget struct {
	ID          uint32 `json:"id"`
	Project     uint32 `json:"project"`
	ProjectName string `json:"project_name"`
	Year        uint32 `json:"year"`
	Amount      uint64 `json:"amount"`
}

// UserBudget is the yearly spending ceiling of a user
type UserBudget struct {
	ID       uint32 `json:"id"`
	User     uint32 `json:"user"`
	Username string `json:"username"`
	Year     uint32 `json:"year"`
	Amount   uint64 `json:"amount"`
}

// BudgetOverTreeParams selects the scope of a budget over tree
type BudgetOverTreeParams struct {
	All     bool
	Project *uint32 `validate:"omitempty,gt=0"`
	User    *uint32 `validate:"omitempty,gt=0"`
	End     *time.Time
}

// BudgetOverTreeServer is the cost of one server inside a budget tree
type BudgetOverTreeServer struct {
	Total   float64            `json:"total"`
	Flavors map[string]float64 `json:"flavors"`
}

// BudgetOverTreeUser compares a user's cost with the user's budget.
// BudgetID and Budget are null when no budget exists for the year.
type BudgetOverTreeUser struct {
	Cost     float64                             `json:"cost"`
	BudgetID *uint32                             `json:"budget_id"`
	Budget   *uint64                             `json:"budget"`
	Over     bool                                `json:"over"`
	Servers  map[uuid.UUID]*BudgetOverTreeServer `json:"servers"`
	Flavors  map[string]float64                  `json:"flavors"`
}

// BudgetOverTreeProject compares a project's cost with its budget
type BudgetOverTreeProject struct {
	Cost     float64                        `json:"cost"`
	BudgetID *uint32                        `json:"budget_id"`
	Budget   *uint64                        `json:"budget"`
	Over     bool                           `json:"over"`
	Users    map[string]*BudgetOverTreeUser `json:"users"`
	Flavors  map[string]float64             `json:"flavors"`
}

// BudgetOverTree is the root of a budget comparison, keyed by project name
type BudgetOverTree struct {
	Cost     *float64                          `json:"cost,omitempty"`
	Projects map[string]*BudgetOverTreeProject `json:"projects"`
	Flavors  map[string]float64                `json:"flavors,omitempty"`
}
