package accounting

import (
	"cmp"
	"slices"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
)

// secondsPerYear normalizes yearly unit prices. Leap years are not special.
const secondsPerYear = 365 * 24 * 60 * 60

// Prices is a complete price table: user class -> flavor name -> unit price
type Prices map[types.UserClass]map[string]float64

func newPrices(flavors []types.Flavor) Prices {
	p := make(Prices, len(types.UserClasses))
	for _, class := range types.UserClasses {
		p[class] = make(map[string]float64, len(flavors))
		for _, flavor := range flavors {
			p[class][flavor.Name] = 0
		}
	}
	return p
}

func (p Prices) set(price types.FlavorPrice) {
	byFlavor, ok := p[price.UserClass]
	if !ok {
		byFlavor = make(map[string]float64)
		p[price.UserClass] = byFlavor
	}
	byFlavor[price.FlavorName] = price.UnitPrice
}

func (p Prices) clone() Prices {
	c := make(Prices, len(p))
	for class, byFlavor := range p {
		c[class] = make(map[string]float64, len(byFlavor))
		for flavor, price := range byFlavor {
			c[class][flavor] = price
		}
	}
	return c
}

// Price returns the unit price of a flavor for a class
func (p Prices) Price(class types.UserClass, flavor string) (float64, bool) {
	price, ok := p[class][flavor]
	return price, ok
}

// PricePeriod is a slice of time [Start, End) with a stable price table
type PricePeriod struct {
	Start  time.Time
	End    time.Time
	Prices Prices
}

type priceKey struct {
	class  types.UserClass
	flavor string
}

func byStartTime(a, b types.FlavorPrice) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// latestPrices keeps, per flavor and class, every price starting after
// begin plus the most recent one starting at or before begin. The result is
// ordered by start time.
func latestPrices(rows []types.FlavorPrice, begin time.Time) []types.FlavorPrice {
	effective := make(map[priceKey]types.FlavorPrice)
	out := make([]types.FlavorPrice, 0, len(rows))
	for _, row := range rows {
		if row.StartTime.After(begin) {
			out = append(out, row)
			continue
		}
		key := priceKey{class: row.UserClass, flavor: row.FlavorName}
		if cur, ok := effective[key]; !ok || byStartTime(row, cur) > 0 {
			effective[key] = row
		}
	}
	for _, row := range effective {
		out = append(out, row)
	}
	slices.SortFunc(out, byStartTime)
	return out
}

// BuildPricePeriods splits [begin, end) at every instant a price changes.
// The first period starts at begin with the prices in effect at begin;
// prices starting exactly at begin belong to it. Prices sharing a start time
// open a single period. Flavors without a price cost 0.
func BuildPricePeriods(flavors []types.Flavor, rows []types.FlavorPrice, begin, end time.Time) []PricePeriod {
	current := newPrices(flavors)

	prices := latestPrices(rows, begin)
	i := 0
	for ; i < len(prices) && !prices[i].StartTime.After(begin); i++ {
		current.set(prices[i])
	}

	periods := []PricePeriod{{Start: begin, Prices: current.clone()}}
	for i < len(prices) && !prices[i].StartTime.After(end) {
		start := prices[i].StartTime
		for ; i < len(prices) && prices[i].StartTime.Equal(start); i++ {
			current.set(prices[i])
		}
		periods = append(periods, PricePeriod{Start: start, Prices: current.clone()})
	}

	for j := range periods {
		if j+1 < len(periods) {
			periods[j].End = periods[j+1].Start
		} else {
			periods[j].End = end
		}
	}
	return periods
}

// flavorCost converts occupancy seconds into money. A missing price is free.
func flavorCost(seconds float64, prices Prices, class types.UserClass, flavor string) float64 {
	price, ok := prices.Price(class, flavor)
	if !ok {
		return 0
	}
	return seconds * price / secondsPerYear
}
