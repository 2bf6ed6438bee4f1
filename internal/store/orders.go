package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStore persists orders together with their nested order lines.
type OrderStore struct {
	*Repository[models.Order, models.OrderParams]
}

func NewOrderStore(db *database.DB) *OrderStore {
	return &OrderStore{Repository: NewRepository[models.Order, models.OrderParams](db, validateOrder)}
}

// validateOrder requires the owning customer to exist.
func validateOrder(tx *gorm.DB, o *models.Order) error {
	verr := &ValidationError{}
	if o.CustomerID == 0 {
		verr.Add("customer_id", "is required")
		return verr
	}
	ok, err := exists[models.Customer](tx, o.CustomerID)
	if err != nil {
		return err
	}
	if !ok {
		verr.Add("customer_id", "must exist")
	}
	return verr.orNil()
}

// Create inserts the order and every nested line as one unit. If any insert
// fails nothing is kept.
func (s *OrderStore) Create(ctx context.Context, params models.OrderParams) (*models.Order, error) {
	var order models.Order
	params.Apply(&order)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateOrder(tx, &order); err != nil {
			return err
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return createLines(tx, params.Lines(order.ID))
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update applies the order's own attributes and appends any nested lines.
func (s *OrderStore) Update(ctx context.Context, id uint, params models.OrderParams) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = find[models.Order](tx, id)
		if err != nil {
			return err
		}
		params.Apply(order)
		if err := validateOrder(tx, order); err != nil {
			return err
		}
		if err := tx.Save(order).Error; err != nil {
			return fmt.Errorf("failed to update order %d: %w", id, err)
		}
		return createLines(tx, params.Lines(order.ID))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func createLines(tx *gorm.DB, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	if err := tx.Create(&lines).Error; err != nil {
		return fmt.Errorf("failed to create order lines: %w", err)
	}
	return nil
}

func (s *OrderStore) ListOrderLinesForOrder(ctx context.Context, orderID uint) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lines of order %d: %w", orderID, err)
	}
	return lines, nil
}

func (s *OrderStore) ListForCustomer(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of customer %d: %w", customerID, err)
	}
	return orders, nil
}

// Detail is an order with its lines and the records they reference.
type Detail struct {
	Order     models.Order
	Customer  *models.Customer
	Lines     []models.OrderLine
	Spatulas  map[uint]models.Spatula
	Locations map[uint]models.ShippingLocation
}

// Detail loads an order with its lines. Referenced spatulas and shipping
// locations are included even when soft-deleted.
func (s *OrderStore) Detail(ctx context.Context, id uint) (*Detail, error) {
	order, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.ListOrderLinesForOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Order:     *order,
		Lines:     lines,
		Spatulas:  make(map[uint]models.Spatula),
		Locations: make(map[uint]models.ShippingLocation),
	}

	db := s.db.WithContext(ctx)
	if d.Customer, err = find[models.Customer](db, order.CustomerID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var spatulaIDs, locationIDs []uint
	for _, l := range lines {
		spatulaIDs = append(spatulaIDs, l.SpatulaID)
		locationIDs = append(locationIDs, l.ShippingLocationID)
	}
	if len(lines) == 0 {
		return d, nil
	}

	var spatulas []models.Spatula
	if err := db.Unscoped().Where("id IN ?", spatulaIDs).Find(&spatulas).Error; err != nil {
		return nil, fmt.Errorf("failed to load spatulas of order %d: %w", id, err)
	}
	for _, sp := range spatulas {
		d.Spatulas[sp.ID] = sp
	}

	var locations []models.ShippingLocation
	if err := db.Unscoped().Where("id IN ?", locationIDs).Find(&locations).Error; err != nil {
		return nil, fmt.Errorf("failed to load shipping locations of order %d: %w", id, err)
	}
	for _, loc := range locations {
		d.Locations[loc.ID] = loc
	}

	return d, nil
}

// Total prices every line at its spatula's current price.
func (d *Detail) Total() decimal.Decimal {
	prices := make(map[uint]decimal.Decimal, len(d.Spatulas))
	for id, sp := range d.Spatulas {
		prices[id] = sp.Price
	}
	return models.Total(d.Lines, prices)
}
