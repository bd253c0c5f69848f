package pricing

import (
	"context"
	"fmt"

	"github.com/LRZ-BADW/avina/internal/store"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/rs/zerolog"
)

// Import writes every price of sheet in one transaction. Unknown flavors
// and prices that already exist abort the whole import.
func Import(ctx context.Context, s *store.Store, sheet *Sheet) ([]types.FlavorPrice, error) {
	var prices []types.FlavorPrice
	err := s.WithTx(ctx, func(tx *store.Store) error {
		var err error
		prices, err = sheet.FlavorPrices(func(name string) (*types.Flavor, error) {
			return tx.Flavors.GetByName(ctx, name)
		})
		if err != nil {
			return err
		}

		for i := range prices {
			if err := tx.FlavorPrices.Create(ctx, &prices[i]); err != nil {
				return fmt.Errorf("import price of %s for %s: %w", prices[i].FlavorName, prices[i].UserClass, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int("count", len(prices)).Msg("imported flavor prices")
	return prices, nil
}
