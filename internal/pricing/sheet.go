// Package pricing loads flavor price sheets and imports them as flavor
// prices.
package pricing

import (
	"fmt"
	"os"
	"time"

	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sheet is a YAML price sheet. StartTime applies to every entry that does
// not carry its own.
type Sheet struct {
	StartTime *time.Time `yaml:"start_time"`
	Prices    []Entry    `yaml:"prices" validate:"required,min=1,dive"`
}

// Entry is the yearly unit price of one flavor for one user class
type Entry struct {
	Flavor    string     `yaml:"flavor" validate:"required"`
	UserClass string     `yaml:"user_class" validate:"required,userclass"`
	UnitPrice float64    `yaml:"unit_price" validate:"gte=0"`
	StartTime *time.Time `yaml:"start_time"`
}

// Loader reads and validates price sheets
type Loader struct {
	validate *validator.Validate
}

// NewLoader creates a new price sheet loader
func NewLoader() *Loader {
	v := validator.New()

	v.RegisterValidation("userclass", func(fl validator.FieldLevel) bool {
		_, err := types.ParseUserClass(fl.Field().String())
		return err == nil
	})

	return &Loader{validate: v}
}

// Load reads a price sheet file
func (l *Loader) Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read price sheet %s: %w", path, err)
	}

	sheet, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load price sheet %s: %w", path, err)
	}
	return sheet, nil
}

// Parse decodes and validates a price sheet
func (l *Loader) Parse(data []byte) (*Sheet, error) {
	var sheet Sheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("parse price sheet YAML: %w", err)
	}

	if err := l.Validate(&sheet); err != nil {
		return nil, err
	}
	return &sheet, nil
}

type entryKey struct {
	flavor string
	class  types.UserClass
	start  time.Time
}

// Validate validates a sheet against its schema
func (l *Loader) Validate(sheet *Sheet) error {
	if err := l.validate.Struct(sheet); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	seen := make(map[entryKey]bool, len(sheet.Prices))
	for i, entry := range sheet.Prices {
		class, err := types.ParseUserClass(entry.UserClass)
		if err != nil {
			return fmt.Errorf("price %d: %w", i, err)
		}
		start := sheet.start(entry)
		if start == nil {
			return fmt.Errorf("price %d: no start_time for flavor %s", i, entry.Flavor)
		}
		key := entryKey{flavor: entry.Flavor, class: class, start: start.UTC()}
		if seen[key] {
			return fmt.Errorf("price %d: duplicate price for flavor %s, class %s at %s",
				i, entry.Flavor, class, start.UTC().Format(time.RFC3339))
		}
		seen[key] = true
	}

	return nil
}

func (s *Sheet) start(entry Entry) *time.Time {
	if entry.StartTime != nil {
		return entry.StartTime
	}
	return s.StartTime
}

// FlavorResolver maps flavor names to flavors
type FlavorResolver func(name string) (*types.Flavor, error)

// FlavorPrices converts a validated sheet into flavor prices
func (s *Sheet) FlavorPrices(resolve FlavorResolver) ([]types.FlavorPrice, error) {
	prices := make([]types.FlavorPrice, 0, len(s.Prices))
	for _, entry := range s.Prices {
		flavor, err := resolve(entry.Flavor)
		if err != nil {
			return nil, fmt.Errorf("resolve flavor %s: %w", entry.Flavor, err)
		}
		class, err := types.ParseUserClass(entry.UserClass)
		if err != nil {
			return nil, err
		}
		start := s.start(entry)
		if start == nil {
			return nil, fmt.Errorf("no start_time for flavor %s", entry.Flavor)
		}
		prices = append(prices, types.FlavorPrice{
			Flavor:     flavor.ID,
			FlavorName: flavor.Name,
			UserClass:  class,
			UnitPrice:  entry.UnitPrice,
			StartTime:  start.UTC(),
		})
	}
	return prices, nil
}
