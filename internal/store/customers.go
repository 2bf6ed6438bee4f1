package store

import (
	"context"
	"fmt"

	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/models"
)

type CustomerStore struct {
	*Repository[models.Customer, models.CustomerParams]
}

func NewCustomerStore(db *database.DB) *CustomerStore {
	return &CustomerStore{Repository: NewRepository[models.Customer, models.CustomerParams](db, nil)}
}

// ListShippingLocationsForCustomer returns the customer's non-deleted locations.
func (s *CustomerStore) ListShippingLocationsForCustomer(ctx context.Context, customerID uint) ([]models.ShippingLocation, error) {
	var locations []models.ShippingLocation
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Find(&locations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping locations of customer %d: %w", customerID, err)
	}
	return locations, nil
}

func NewShippingLocationStore(db *database.DB) *Repository[models.ShippingLocation, models.ShippingLocationParams] {
	return NewRepository[models.ShippingLocation, models.ShippingLocationParams](db, nil)
}

func NewSpatulaStore(db *database.DB) *Repository[models.Spatula, models.SpatulaParams] {
	return NewRepository[models.Spatula, models.SpatulaParams](db, nil)
}
