package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/plugin/soft_delete"
)

// Customer places orders and owns shipping locations.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	ZipCode   int       `json:"zip_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShippingLocation is a named address an order line can ship to.
type ShippingLocation struct {
	ID         uint                  `json:"id" gorm:"primaryKey"`
	Name       string                `json:"name"`
	ZipCode    int                   `json:"zip_code"`
	CustomerID uint                  `json:"customer_id" gorm:"type:bigint;index"`
	Deleted    soft_delete.DeletedAt `json:"deleted" gorm:"column:deleted;type:tinyint(1);not null;default:0;softDelete:flag"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Spatula is the catalog item.
type Spatula struct {
	ID        uint                  `json:"id" gorm:"primaryKey"`
	Color     string                `json:"color"`
	Price     decimal.Decimal       `json:"price" gorm:"type:decimal(10,2)"`
	Deleted   soft_delete.DeletedAt `json:"deleted" gorm:"column:deleted;type:tinyint(1);not null;default:0;softDelete:flag"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type Order struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	OrderNumber string    `json:"order_number"`
	CustomerID  uint      `json:"customer_id" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OrderLine struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	OrderID            uint      `json:"order_id" gorm:"index"`
	Quantity           int       `json:"quantity"`
	SpatulaID          uint      `json:"spatula_id" gorm:"index"`
	ShippingLocationID uint      `json:"shipping_location_id" gorm:"index"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// All lists every entity in dependency order, parents first.
func All() []any {
	return []any{&Customer{}, &ShippingLocation{}, &Spatula{}, &Order{}, &OrderLine{}}
}

// SoftDeletable is implemented by entities that are flagged instead of removed.
type SoftDeletable interface {
	IsDeleted() bool
}

func (l ShippingLocation) IsDeleted() bool { return l.Deleted != 0 }

func (s Spatula) IsDeleted() bool { return s.Deleted != 0 }

// MarshalJSON reports the deleted flag as a boolean.
func (l ShippingLocation) MarshalJSON() ([]byte, error) {
	type shippingLocation ShippingLocation
	return json.Marshal(struct {
		shippingLocation
		Deleted bool `json:"deleted"`
	}{shippingLocation(l), l.IsDeleted()})
}

// MarshalJSON reports the deleted flag as a boolean.
func (s Spatula) MarshalJSON() ([]byte, error) {
	type spatula Spatula
	return json.Marshal(struct {
		spatula
		Deleted bool `json:"deleted"`
	}{spatula(s), s.IsDeleted()})
}

// Subtotal is the line's quantity times the unit price.
func (l OrderLine) Subtotal(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums the subtotals of lines, pricing each through prices keyed by
// spatula id. Lines whose spatula is missing from prices count as zero.
func Total(lines []OrderLine, prices map[uint]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if p, ok := prices[l.SpatulaID]; ok {
			total = total.Add(l.Subtotal(p))
		}
	}
	return total
}
