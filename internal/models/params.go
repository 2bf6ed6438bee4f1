package models

import "github.com/shopspring/decimal"

// The params types below are the only attributes external input may set on
// an entity. Anything else a client submits never reaches a model.

type CustomerParams struct {
	Name    string `form:"name" json:"name"`
	ZipCode int    `form:"zip_code" json:"zip_code"`
}

func (p CustomerParams) Apply(c *Customer) {
	c.Name = p.Name
	c.ZipCode = p.ZipCode
}

// ShippingLocationParams deliberately omits customer_id.
type ShippingLocationParams struct {
	Name    string `form:"name" json:"name"`
	ZipCode int    `form:"zip_code" json:"zip_code"`
}

func (p ShippingLocationParams) Apply(l *ShippingLocation) {
	l.Name = p.Name
	l.ZipCode = p.ZipCode
}

type SpatulaParams struct {
	Color string          `form:"color" json:"color"`
	Price decimal.Decimal `form:"price" json:"price"`
}

func (p SpatulaParams) Apply(s *Spatula) {
	s.Color = p.Color
	s.Price = p.Price
}

type OrderParams struct {
	OrderNumber string            `form:"order_number" json:"order_number"`
	CustomerID  uint              `form:"customer_id" json:"customer_id" binding:"required"`
	OrderLines  []OrderLineParams `form:"-" json:"order_lines_attributes" binding:"dive"`
}

// Apply sets the order's own attributes. Nested lines are built separately
// with Lines once the order has an id.
func (p OrderParams) Apply(o *Order) {
	o.OrderNumber = p.OrderNumber
	o.CustomerID = p.CustomerID
}

// Lines returns one new order line per nested attribute set, linked to orderID.
func (p OrderParams) Lines(orderID uint) []OrderLine {
	lines := make([]OrderLine, 0, len(p.OrderLines))
	for _, lp := range p.OrderLines {
		line := OrderLine{OrderID: orderID}
		lp.Apply(&line)
		lines = append(lines, line)
	}
	return lines
}

type OrderLineParams struct {
	Quantity           int  `form:"quantity" json:"quantity"`
	SpatulaID          uint `form:"spatula_id" json:"spatula_id"`
	ShippingLocationID uint `form:"shipping_location_id" json:"shipping_location_id"`
}

func (p OrderLineParams) Apply(l *OrderLine) {
	l.Quantity = p.Quantity
	l.SpatulaID = p.SpatulaID
	l.ShippingLocationID = p.ShippingLocationID
}

// Blank reports whether no attribute was supplied at all.
func (p OrderLineParams) Blank() bool {
	return p == OrderLineParams{}
}
