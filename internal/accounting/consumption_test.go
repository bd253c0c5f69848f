package accounting_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/accounting/accountingtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Consumption(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(accountingtest.Fixture())
	day := 86400.0

	t.Run("server consumption is clipped to the window", func(t *testing.T) {
		begin := accountingtest.Date(2023, time.October, 1)
		end := accountingtest.Date(2023, time.December, 1)

		c, err := engine.ConsumptionForServer(ctx, accountingtest.ServerAlice, begin, end)
		require.NoError(t, err)
		assert.InDelta(t, 31*day, c.Flavors["tiny"], delta)
	})

	t.Run("user detail keys servers by instance id", func(t *testing.T) {
		c, err := engine.ConsumptionForUser(ctx, accountingtest.Alice, year2023, year2024, true)
		require.NoError(t, err)
		require.NotNil(t, c.User)
		assert.InDelta(t, 304*day, c.User.Total["tiny"], delta)
		assert.InDelta(t, 304*day, c.User.Servers[accountingtest.ServerAlice]["tiny"], delta)
	})

	t.Run("project normal sums every user", func(t *testing.T) {
		c, err := engine.ConsumptionForProject(ctx, accountingtest.Alpha, year2023, year2024, false)
		require.NoError(t, err)
		assert.InDelta(t, 2*304*day, c.Flavors["tiny"], delta)
	})

	t.Run("all detail groups by project name", func(t *testing.T) {
		c, err := engine.ConsumptionForAll(ctx, year2023, year2024, true)
		require.NoError(t, err)
		require.NotNil(t, c.All)
		assert.InDelta(t, 306*day, c.All.Projects["beta"].Users["carol"].Total["large"], delta)
		assert.InDelta(t, 2*304*day, c.All.Total["tiny"], delta)
	})

	t.Run("empty window encodes as an empty object", func(t *testing.T) {
		begin := accountingtest.Date(2020, time.January, 1)
		c, err := engine.ConsumptionForUser(ctx, accountingtest.Alice, begin, begin.AddDate(0, 1, 0), false)
		require.NoError(t, err)

		data, err := json.Marshal(c)
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})
}
