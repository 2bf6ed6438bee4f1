package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/matthieukhl/spatula/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/seed.yaml
var defaultFixture []byte

// Fixture is a seed data set. Records reference each other by key.
type Fixture struct {
	Customers []struct {
		Key     string `yaml:"key"`
		Name    string `yaml:"name"`
		ZipCode int    `yaml:"zip_code"`
	} `yaml:"customers"`
	ShippingLocations []struct {
		Key      string `yaml:"key"`
		Name     string `yaml:"name"`
		ZipCode  int    `yaml:"zip_code"`
		Customer string `yaml:"customer"`
	} `yaml:"shipping_locations"`
	Spatulas []struct {
		Key   string `yaml:"key"`
		Color string `yaml:"color"`
		Price string `yaml:"price"`
	} `yaml:"spatulas"`
	Orders []struct {
		OrderNumber string `yaml:"order_number"`
		Customer    string `yaml:"customer"`
		Lines       []struct {
			Quantity         int    `yaml:"quantity"`
			Spatula          string `yaml:"spatula"`
			ShippingLocation string `yaml:"shipping_location"`
		} `yaml:"lines"`
	} `yaml:"orders"`
}

// SeedSummary counts the rows written by Seed.
type SeedSummary struct {
	Customers         int
	ShippingLocations int
	Spatulas          int
	Orders            int
	OrderLines        int
}

// DefaultFixture parses the built-in sample data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Seed replaces all existing rows with the fixture, in one transaction.
func (db *DB) Seed(ctx context.Context, f *Fixture) (*SeedSummary, error) {
	var sum SeedSummary
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := (&DB{tx}).CleanupData(); err != nil {
			return err
		}

		customers := make(map[string]uint)
		for _, c := range f.Customers {
			rec := models.Customer{Name: c.Name, ZipCode: c.ZipCode}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to create customer %s: %w", c.Key, err)
			}
			customers[c.Key] = rec.ID
			sum.Customers++
		}

		locations := make(map[string]uint)
		for _, l := range f.ShippingLocations {
			customerID, err := lookup(customers, "customer", l.Customer)
			if err != nil {
				return err
			}
			rec := models.ShippingLocation{Name: l.Name, ZipCode: l.ZipCode, CustomerID: customerID}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to create shipping location %s: %w", l.Key, err)
			}
			locations[l.Key] = rec.ID
			sum.ShippingLocations++
		}

		spatulas := make(map[string]uint)
		for _, s := range f.Spatulas {
			price, err := decimal.NewFromString(s.Price)
			if err != nil {
				return fmt.Errorf("invalid price for spatula %s: %w", s.Key, err)
			}
			rec := models.Spatula{Color: s.Color, Price: price}
			if err := tx.Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to create spatula %s: %w", s.Key, err)
			}
			spatulas[s.Key] = rec.ID
			sum.Spatulas++
		}

		for _, o := range f.Orders {
			customerID, err := lookup(customers, "customer", o.Customer)
			if err != nil {
				return err
			}
			order := models.Order{OrderNumber: o.OrderNumber, CustomerID: customerID}
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("failed to create order %s: %w", o.OrderNumber, err)
			}
			sum.Orders++

			for _, l := range o.Lines {
				spatulaID, err := lookup(spatulas, "spatula", l.Spatula)
				if err != nil {
					return err
				}
				locationID, err := lookup(locations, "shipping location", l.ShippingLocation)
				if err != nil {
					return err
				}
				line := models.OrderLine{
					OrderID:            order.ID,
					Quantity:           l.Quantity,
					SpatulaID:          spatulaID,
					ShippingLocationID: locationID,
				}
				if err := tx.Create(&line).Error; err != nil {
					return fmt.Errorf("failed to create line of order %s: %w", o.OrderNumber, err)
				}
				sum.OrderLines++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func lookup(ids map[string]uint, kind, key string) (uint, error) {
	id, ok := ids[key]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q in fixture", kind, key)
	}
	return id, nil
}
