package pricing_test

import (
	"testing"
	"time"

	"github.com/LRZ-BADW/avina/internal/pricing"
	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolver(flavors ...types.Flavor) pricing.FlavorResolver {
	return func(name string) (*types.Flavor, error) {
		for _, f := range flavors {
			if f.Name == name {
				return &f, nil
			}
		}
		return nil, store.ErrNotFound
	}
}

func TestLoader_Load(t *testing.T) {
	loader := pricing.NewLoader()

	t.Run("loads the example sheet", func(t *testing.T) {
		sheet, err := loader.Load("testdata/prices.yaml")
		require.NoError(t, err)
		require.Len(t, sheet.Prices, 3)

		prices, err := sheet.FlavorPrices(resolver(
			types.Flavor{ID: 1, Name: "tiny"},
			types.Flavor{ID: 2, Name: "large"},
		))
		require.NoError(t, err)
		require.Len(t, prices, 3)

		assert.Equal(t, uint32(1), prices[0].Flavor)
		assert.Equal(t, types.UserClassUC1, prices[0].UserClass)
		assert.Equal(t, 1000.0, prices[0].UnitPrice)
		assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), prices[0].StartTime)

		assert.Equal(t, types.UserClassUC3, prices[2].UserClass)
		assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), prices[2].StartTime)
	})

	t.Run("returns error for non-existent sheet", func(t *testing.T) {
		_, err := loader.Load("testdata/missing.yaml")
		assert.Error(t, err)
	})

	t.Run("unknown flavors fail the conversion", func(t *testing.T) {
		sheet, err := loader.Load("testdata/prices.yaml")
		require.NoError(t, err)
		_, err = sheet.FlavorPrices(resolver(types.Flavor{ID: 1, Name: "tiny"}))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestLoader_Parse(t *testing.T) {
	loader := pricing.NewLoader()

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "rejects an empty sheet",
			yaml: `prices: []`,
		},
		{
			name: "rejects unknown user classes",
			yaml: `
start_time: 2024-01-01T00:00:00Z
prices:
  - {flavor: tiny, user_class: UC9, unit_price: 1}
`,
		},
		{
			name: "rejects negative prices",
			yaml: `
start_time: 2024-01-01T00:00:00Z
prices:
  - {flavor: tiny, user_class: UC1, unit_price: -1}
`,
		},
		{
			name: "rejects entries without a start time",
			yaml: `
prices:
  - {flavor: tiny, user_class: UC1, unit_price: 1}
`,
		},
		{
			name: "rejects duplicates",
			yaml: `
start_time: 2024-01-01T00:00:00Z
prices:
  - {flavor: tiny, user_class: UC1, unit_price: 1}
  - {flavor: tiny, user_class: "1", unit_price: 2}
`,
		},
		{
			name: "rejects malformed YAML",
			yaml: `prices: [`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
