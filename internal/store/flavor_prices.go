package store

import (
	"context"
	"fmt"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/jackc/pgx/v5"
)

// FlavorPriceStore handles flavor price database operations
type FlavorPriceStore struct {
	db Querier
}

const flavorPriceSelect = `
	SELECT fp.id, f.id, f.name, fp.user_class, fp.unit_price, fp.start_time
	FROM pricing_flavorprice fp
	JOIN resources_flavor f ON f.id = fp.flavor_id
`

func scanFlavorPrice(row pgx.Row) (*types.FlavorPrice, error) {
	var (
		price types.FlavorPrice
		class int32
	)
	err := row.Scan(
		&price.ID,
		&price.Flavor,
		&price.FlavorName,
		&class,
		&price.UnitPrice,
		&price.StartTime,
	)
	if err != nil {
		return nil, err
	}
	price.UserClass = types.UserClass(class)
	price.StartTime = price.StartTime.UTC()
	return &price, nil
}

func (s *FlavorPriceStore) list(ctx context.Context, query string, args ...any) ([]types.FlavorPrice, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := []types.FlavorPrice{}
	for rows.Next() {
		price, err := scanFlavorPrice(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, *price)
	}
	return prices, rows.Err()
}

// GetByID retrieves a flavor price by ID
func (s *FlavorPriceStore) GetByID(ctx context.Context, id uint32) (*types.FlavorPrice, error) {
	price, err := scanFlavorPrice(s.db.QueryRow(ctx, flavorPriceSelect+`WHERE fp.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get flavor price by id: %w", notFound(err))
	}
	return price, nil
}

// List retrieves all prices, optionally of one user class
func (s *FlavorPriceStore) List(ctx context.Context, class *types.UserClass) ([]types.FlavorPrice, error) {
	var (
		prices []types.FlavorPrice
		err    error
	)
	if class == nil {
		prices, err = s.list(ctx, flavorPriceSelect+`ORDER BY fp.id`)
	} else {
		prices, err = s.list(ctx, flavorPriceSelect+`WHERE fp.user_class = $1 ORDER BY fp.id`, int32(*class))
	}
	if err != nil {
		return nil, fmt.Errorf("list flavor prices: %w", err)
	}
	return prices, nil
}

// ListStartingBefore retrieves every price starting at or before end,
// newest first
func (s *FlavorPriceStore) ListStartingBefore(ctx context.Context, end time.Time) ([]types.FlavorPrice, error) {
	query := flavorPriceSelect + `WHERE fp.start_time <= $1 ORDER BY fp.start_time DESC, fp.id DESC`

	prices, err := s.list(ctx, query, end)
	if err != nil {
		return nil, fmt.Errorf("list flavor prices for period: %w", err)
	}
	return prices, nil
}

// Create inserts a price and sets its ID. A second price for the same
// flavor, class and start time is a conflict.
func (s *FlavorPriceStore) Create(ctx context.Context, price *types.FlavorPrice) error {
	query := `
		INSERT INTO pricing_flavorprice (flavor_id, user_class, unit_price, start_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		price.Flavor,
		int32(price.UserClass),
		price.UnitPrice,
		price.StartTime,
	).Scan(&price.ID)
	if err != nil {
		return fmt.Errorf("create flavor price: %w", conflict(err))
	}
	return nil
}
