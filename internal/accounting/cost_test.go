package accounting_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting"
	"github.com/LRZ-BADW/avina/internal/accounting/accountingtest"
	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delta = 1e-6

var (
	year2023 = accountingtest.Date(2023, time.January, 1)
	year2024 = accountingtest.Date(2024, time.January, 1)
	nov2023  = accountingtest.Date(2023, time.November, 1)
)

// days converts days of occupancy at a yearly price into money
func days(n, price float64) float64 {
	return n * 86400 * price / (365 * 86400)
}

func newEngine(src accounting.Source) *accounting.Engine {
	return accounting.NewEngine(src, clock.NewMock(accountingtest.Date(2024, time.June, 1)))
}

func TestEngine_CostForServer(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(accountingtest.Fixture())

	t.Run("charges the yearly price per second", func(t *testing.T) {
		cost, err := engine.CostForServer(ctx, accountingtest.ServerAlice, year2023, nov2023, false)
		require.NoError(t, err)
		require.NotNil(t, cost.Simple)
		assert.False(t, cost.Detail())
		assert.InDelta(t, 833.0, cost.Total(), 0.5)
		assert.InDelta(t, days(304, 1000), cost.Total(), delta)
	})

	t.Run("detail breaks the cost down by flavor", func(t *testing.T) {
		cost, err := engine.CostForServer(ctx, accountingtest.ServerAlice, year2023, nov2023, true)
		require.NoError(t, err)
		require.NotNil(t, cost.Server)
		assert.True(t, cost.Detail())
		assert.InDelta(t, days(304, 1000), cost.Server.Total, delta)
		assert.InDelta(t, days(304, 1000), cost.Server.Flavors["tiny"], delta)
	})

	t.Run("unknown server costs nothing", func(t *testing.T) {
		cost, err := engine.CostForServer(ctx, uuid.New(), year2023, nov2023, false)
		require.NoError(t, err)
		assert.Zero(t, cost.Total())
	})

	t.Run("open state runs until now", func(t *testing.T) {
		mar1 := accountingtest.Date(2023, time.March, 1)
		e := accounting.NewEngine(accountingtest.Fixture(), clock.NewMock(mar1.AddDate(0, 0, 10)))

		cost, err := e.CostForServer(ctx, accountingtest.ServerCarol, year2023, year2024, false)
		require.NoError(t, err)
		assert.InDelta(t, days(10, 2000), cost.Total(), delta)
	})
}

func TestEngine_CostForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("sums the servers of the user", func(t *testing.T) {
		src := accountingtest.Fixture()
		second := uuid.MustParse("44444444-4444-4444-8444-444444444444")
		src.States = append(src.States, types.ServerState{
			ID: 10, Begin: year2023, End: &nov2023, InstanceID: second,
			Flavor: 1, FlavorName: "tiny", User: accountingtest.Alice, Username: "alice",
		})
		engine := newEngine(src)

		cost, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, false)
		require.NoError(t, err)
		assert.InDelta(t, 1666.0, cost.Total(), 0.5)

		detail, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, true)
		require.NoError(t, err)
		require.NotNil(t, detail.User)
		assert.Len(t, detail.User.Servers, 2)
		assert.InDelta(t, cost.Total(), detail.Total(), delta)
	})

	t.Run("user without a resolvable class costs nothing", func(t *testing.T) {
		src := accountingtest.Fixture()
		src.UserList[0].Project = 99
		engine := newEngine(src)

		cost, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, true)
		require.NoError(t, err)
		assert.Zero(t, cost.Total())
		assert.Empty(t, cost.User.Servers)
	})

	t.Run("free flavors show up in detail with zero cost", func(t *testing.T) {
		src := accountingtest.Fixture()
		src.States[0].Flavor = 3
		src.States[0].FlavorName = "free"
		engine := newEngine(src)

		cost, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, true)
		require.NoError(t, err)
		assert.Zero(t, cost.Total())
		require.Contains(t, cost.User.Flavors, "free")
		assert.Zero(t, cost.User.Flavors["free"])
	})
}

func TestEngine_CostForProject(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(accountingtest.Fixture())

	cost, err := engine.CostForProject(ctx, accountingtest.Alpha, year2023, year2024, false)
	require.NoError(t, err)
	assert.InDelta(t, 2*days(304, 1000), cost.Total(), delta)

	detail, err := engine.CostForProject(ctx, accountingtest.Alpha, year2023, year2024, true)
	require.NoError(t, err)
	require.NotNil(t, detail.Project)
	assert.ElementsMatch(t, []string{"alice", "bob"}, keys(detail.Project.Users))
	assert.InDelta(t, cost.Total(), detail.Total(), delta)
	assert.InDelta(t, days(304, 1000), detail.Project.Users["bob"].Servers[accountingtest.ServerBob].Total, delta)
}

func TestEngine_CostForAll(t *testing.T) {
	ctx := context.Background()
	alpha := 2 * days(304, 1000)
	beta := days(306, 2000)

	t.Run("prices every project with its own class", func(t *testing.T) {
		engine := newEngine(accountingtest.Fixture())

		cost, err := engine.CostForAll(ctx, year2023, year2024, false)
		require.NoError(t, err)
		assert.InDelta(t, alpha+beta, cost.Total(), delta)

		detail, err := engine.CostForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)
		require.NotNil(t, detail.All)
		assert.InDelta(t, cost.Total(), detail.Total(), delta)
		assert.InDelta(t, alpha, detail.All.Projects["alpha"].Total, delta)
		assert.InDelta(t, beta, detail.All.Projects["beta"].Total, delta)
		assert.InDelta(t, beta, detail.All.Flavors["large"], delta)
	})

	t.Run("skips servers of unknown projects", func(t *testing.T) {
		src := accountingtest.Fixture()
		src.UserList = append(src.UserList, types.User{ID: 9, Name: "ghost", Project: 99, ProjectName: "ghost"})
		src.States = append(src.States, types.ServerState{
			ID: 10, Begin: year2023, End: &nov2023, InstanceID: uuid.New(),
			Flavor: 1, FlavorName: "tiny", User: 9, Username: "ghost",
		})
		engine := newEngine(src)

		cost, err := engine.CostForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)
		assert.InDelta(t, alpha+beta, cost.Total(), delta)
		assert.NotContains(t, cost.All.Projects, "ghost")
	})
}

func TestEngine_PriceChanges(t *testing.T) {
	ctx := context.Background()
	jul1 := accountingtest.Date(2023, time.July, 1)
	src := accountingtest.Fixture()
	src.Prices = append(src.Prices, types.FlavorPrice{
		ID: 10, Flavor: 1, FlavorName: "tiny", UserClass: types.UserClassUC1, UnitPrice: 2000, StartTime: jul1,
	})
	engine := newEngine(src)

	t.Run("applies each price to its own period", func(t *testing.T) {
		cost, err := engine.CostForServer(ctx, accountingtest.ServerAlice, year2023, nov2023, false)
		require.NoError(t, err)
		assert.InDelta(t, days(181, 1000)+days(123, 2000), cost.Total(), delta)
	})

	t.Run("splitting the window does not change the sum", func(t *testing.T) {
		mid := accountingtest.Date(2023, time.June, 15)
		whole, err := engine.CostForProject(ctx, accountingtest.Alpha, year2023, nov2023, false)
		require.NoError(t, err)
		first, err := engine.CostForProject(ctx, accountingtest.Alpha, year2023, mid, false)
		require.NoError(t, err)
		second, err := engine.CostForProject(ctx, accountingtest.Alpha, mid, nov2023, false)
		require.NoError(t, err)
		assert.InDelta(t, whole.Total(), first.Total()+second.Total(), delta)
	})

	t.Run("detail and normal totals agree", func(t *testing.T) {
		normal, err := engine.CostForAll(ctx, year2023, year2024, false)
		require.NoError(t, err)
		detail, err := engine.CostForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)
		assert.InDelta(t, normal.Total(), detail.Total(), delta)
	})
}

func TestEngine_CostWithoutConsumption(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(accountingtest.Fixture())
	begin := accountingtest.Date(2021, time.January, 1)
	end := accountingtest.Date(2022, time.January, 1)

	cost, err := engine.CostForProject(ctx, accountingtest.Alpha, begin, end, true)
	require.NoError(t, err)
	assert.Zero(t, cost.Total())
	assert.Empty(t, cost.Project.Flavors)
	assert.Empty(t, cost.Project.Users)
}

func TestServerCost_MarshalJSON(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(accountingtest.Fixture())

	t.Run("normal result encodes only the total", func(t *testing.T) {
		cost, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, false)
		require.NoError(t, err)

		data, err := json.Marshal(cost)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Len(t, decoded, 1)
		assert.Contains(t, decoded, "total")
	})

	t.Run("detail result encodes the breakdown", func(t *testing.T) {
		cost, err := engine.CostForUser(ctx, accountingtest.Alice, year2023, nov2023, true)
		require.NoError(t, err)

		data, err := json.Marshal(cost)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Contains(t, decoded, "flavors")
		assert.Contains(t, decoded, "servers")
	})

	t.Run("repeated queries encode identically", func(t *testing.T) {
		first, err := engine.CostForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)
		second, err := engine.CostForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	})

	t.Run("empty result fails to encode", func(t *testing.T) {
		_, err := json.Marshal(accounting.ServerCost{})
		assert.Error(t, err)
	})
}

func TestEngine_SourceErrors(t *testing.T) {
	ctx := context.Background()
	boom := assert.AnError
	engine := newEngine(&accountingtest.Memory{Err: boom})

	_, err := engine.CostForProject(ctx, accountingtest.Alpha, year2023, year2024, false)
	assert.ErrorIs(t, err, boom)
	_, err = engine.CostForAll(ctx, year2023, year2024, true)
	assert.ErrorIs(t, err, boom)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
