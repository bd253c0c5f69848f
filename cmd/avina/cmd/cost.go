package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/api"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// scopeFlags are the selectors shared by the cost and consumption commands.
// Zero ids and empty strings mean "not given".
type scopeFlags struct {
	begin   string
	end     string
	server  string
	user    uint32
	project uint32
	all     bool
	detail  bool
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.begin, "begin", "", "window start, RFC3339 (default January 1st 01:00 UTC of this year)")
	cmd.Flags().StringVar(&f.end, "end", "", "window end, RFC3339 (default now)")
	cmd.Flags().StringVar(&f.server, "server", "", "server instance UUID")
	cmd.Flags().Uint32Var(&f.user, "user", 0, "user id")
	cmd.Flags().Uint32Var(&f.project, "project", 0, "project id")
	cmd.Flags().BoolVar(&f.all, "all", false, "whole cloud")
	cmd.Flags().BoolVar(&f.detail, "detail", false, "break totals down by flavor and below")
}

func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	t = t.UTC()
	return &t, nil
}

func (f *scopeFlags) params() (types.ServerCostParams, error) {
	p := types.ServerCostParams{All: f.all, Detail: f.detail}
	var err error
	if p.Begin, err = parseTime("begin", f.begin); err != nil {
		return p, err
	}
	if p.End, err = parseTime("end", f.end); err != nil {
		return p, err
	}
	if f.server != "" {
		id, err := uuid.Parse(f.server)
		if err != nil {
			return p, fmt.Errorf("invalid --server: %w", err)
		}
		p.Server = &id
	}
	if f.user != 0 {
		p.User = &f.user
	}
	if f.project != 0 {
		p.Project = &f.project
	}
	return p, nil
}

func window(p types.ServerCostParams, now time.Time) (time.Time, time.Time) {
	begin, end := api.DefaultBegin(now), now
	if p.Begin != nil {
		begin = *p.Begin
	}
	if p.End != nil {
		end = *p.End
	}
	return begin, end
}

// computeCost runs the cost engine with admin rights: the first selector
// given wins in the order all, project, user, server. Without a selector
// the whole cloud is meant.
func computeCost(ctx context.Context, src accounting.Source, clk clock.Clock, p types.ServerCostParams, begin, end time.Time) (accounting.ServerCost, error) {
	engine := accounting.NewEngine(src, clk)
	switch {
	case p.All:
		return engine.CostForAll(ctx, begin, end, p.Detail)
	case p.Project != nil:
		return engine.CostForProject(ctx, *p.Project, begin, end, p.Detail)
	case p.User != nil:
		return engine.CostForUser(ctx, *p.User, begin, end, p.Detail)
	case p.Server != nil:
		return engine.CostForServer(ctx, *p.Server, begin, end, p.Detail)
	default:
		return engine.CostForAll(ctx, begin, end, p.Detail)
	}
}

// computeConsumption selects like computeCost
func computeConsumption(ctx context.Context, src accounting.Source, clk clock.Clock, p types.ServerCostParams, begin, end time.Time) (accounting.ServerConsumption, error) {
	engine := accounting.NewEngine(src, clk)
	switch {
	case p.All:
		return engine.ConsumptionForAll(ctx, begin, end, p.Detail)
	case p.Project != nil:
		return engine.ConsumptionForProject(ctx, *p.Project, begin, end, p.Detail)
	case p.User != nil:
		return engine.ConsumptionForUser(ctx, *p.User, begin, end, p.Detail)
	case p.Server != nil:
		return engine.ConsumptionForServer(ctx, *p.Server, begin, end)
	default:
		return engine.ConsumptionForAll(ctx, begin, end, p.Detail)
	}
}

var costFlags scopeFlags

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Print the cost of servers over a time window",
	Long: `Print the cost of a server, user, project or the whole cloud as JSON,
in the same shape the API returns. Without a selector the whole cloud is
printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := costFlags.params()
		if err != nil {
			return err
		}
		clk := clock.Real{}
		begin, end := window(p, clk.Now())

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var cost accounting.ServerCost
		err = st.ReadOnly(ctx, func(src *store.Source) error {
			cost, err = computeCost(ctx, src, clk, p, begin, end)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), cost)
	},
}

var consumptionFlags scopeFlags

var consumptionCmd = &cobra.Command{
	Use:   "consumption",
	Short: "Print the seconds servers occupied per flavor over a time window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := consumptionFlags.params()
		if err != nil {
			return err
		}
		clk := clock.Real{}
		begin, end := window(p, clk.Now())

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var consumption accounting.ServerConsumption
		err = st.ReadOnly(ctx, func(src *store.Source) error {
			consumption, err = computeConsumption(ctx, src, clk, p, begin, end)
			return err
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), consumption)
	},
}

func init() {
	costFlags.register(costCmd)
	consumptionFlags.register(consumptionCmd)
}
