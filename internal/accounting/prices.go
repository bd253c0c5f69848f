package accounting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
)

// ListFlavorPrices lists prices. With Current set only the price in effect
// at now is kept per flavor and class, so prices starting in the future are
// left out. UserClass narrows the list to one class.
func ListFlavorPrices(ctx context.Context, src PriceListSource, params types.FlavorPriceListParams, now time.Time) ([]types.FlavorPrice, error) {
	var (
		prices []types.FlavorPrice
		err    error
	)
	if params.Current {
		prices, err = src.FlavorPricesForPeriod(ctx, now, now)
		if err != nil {
			return nil, fmt.Errorf("select flavor prices: %w", err)
		}
		prices = latestPrices(prices, now)
		if params.UserClass != nil {
			prices = slices.DeleteFunc(prices, func(p types.FlavorPrice) bool {
				return p.UserClass != *params.UserClass
			})
		}
	} else {
		prices, err = src.FlavorPrices(ctx, params.UserClass)
		if err != nil {
			return nil, fmt.Errorf("select flavor prices: %w", err)
		}
	}
	slices.SortFunc(prices, func(a, b types.FlavorPrice) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return prices, nil
}
