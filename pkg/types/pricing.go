package types

import "time"

// FlavorPrice is the unit price of a flavor for one user class, effective
// from StartTime until the next price of the same flavor and class.
type FlavorPrice struct {
	ID         uint32    `json:"id"`
	Flavor     uint32    `json:"flavor"`
	FlavorName string    `json:"flavor_name"`
	UserClass  UserClass `json:"user_class"`
	UnitPrice  float64   `json:"unit_price"`
	StartTime  time.Time `json:"start_time"`
}

// FlavorPriceListParams filters the flavor price list
type FlavorPriceListParams struct {
	UserClass *UserClass
	Current   bool
}
