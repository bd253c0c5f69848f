package cmd

import (
	"context"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/spf13/cobra"
)

var budgetFlags struct {
	end     string
	user    uint32
	project uint32
	all     bool
}

// computeBudgetOverTree selects all, project, then user. Without a
// selector the whole cloud is meant.
func computeBudgetOverTree(ctx context.Context, src accounting.Source, clk clock.Clock, p types.BudgetOverTreeParams, end time.Time) (*types.BudgetOverTree, error) {
	engine := accounting.NewEngine(src, clk)
	switch {
	case p.All:
		return engine.BudgetOverTreeForAll(ctx, end)
	case p.Project != nil:
		return engine.BudgetOverTreeForProject(ctx, *p.Project, end)
	case p.User != nil:
		return engine.BudgetOverTreeForUser(ctx, *p.User, end)
	default:
		return engine.BudgetOverTreeForAll(ctx, end)
	}
}

var budgetOverTreeCmd = &cobra.Command{
	Use:   "budget-over-tree",
	Short: "Compare this year's cost with the budgets",
	Long: `Print the budget over tree as JSON: the cost of every project and
user since January 1st of the year of --end, their budgets and whether the
cost reached them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := types.BudgetOverTreeParams{All: budgetFlags.all}
		if budgetFlags.user != 0 {
			p.User = &budgetFlags.user
		}
		if budgetFlags.project != 0 {
			p.Project = &budgetFlags.project
		}
		endTime, err := parseTime("end", budgetFlags.end)
		if err != nil {
			return err
		}
		clk := clock.Real{}
		end := clk.Now()
		if endTime != nil {
			end = *endTime
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var tree *types.BudgetOverTree
		err = st.ReadOnly(ctx, func(src *store.Source) error {
			tree, err = computeBudgetOverTree(ctx, src, clk, p, end)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), tree)
	},
}

func init() {
	budgetOverTreeCmd.Flags().StringVar(&budgetFlags.end, "end", "", "end of the period, RFC3339 (default now)")
	budgetOverTreeCmd.Flags().Uint32Var(&budgetFlags.user, "user", 0, "user id")
	budgetOverTreeCmd.Flags().Uint32Var(&budgetFlags.project, "project", 0, "project id")
	budgetOverTreeCmd.Flags().BoolVar(&budgetFlags.all, "all", false, "whole cloud")
}
