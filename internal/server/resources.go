package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/matthieukhl/spatula/internal/models"
	"github.com/matthieukhl/spatula/internal/store"
)

// blankLineRows is how many empty order line rows a form offers.
const blankLineRows = 3

func itoa(n int) string { return strconv.Itoa(n) }

func utoa(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func deletedLabel(deleted bool) string {
	if deleted {
		return "deleted"
	}
	return ""
}

func (s *Server) customerResource() *Resource[models.Customer, models.CustomerParams] {
	return &Resource[models.Customer, models.CustomerParams]{
		Name:     "customer",
		Title:    "Customers",
		Singular: "Customer",
		Store:    s.customers,
		ID:       func(c *models.Customer) uint { return c.ID },
		Columns: []Column[models.Customer]{
			{"Name", func(c *models.Customer) string { return c.Name }},
			{"Zip code", func(c *models.Customer) string { return itoa(c.ZipCode) }},
		},
		Fields: func(p models.CustomerParams) []field {
			return []field{
				{Name: "name", Label: "Name", Type: "text", Value: p.Name},
				{Name: "zip_code", Label: "Zip code", Type: "number", Value: itoa(p.ZipCode)},
			}
		},
		Params: func(c *models.Customer) models.CustomerParams {
			return models.CustomerParams{Name: c.Name, ZipCode: c.ZipCode}
		},
		Related: s.customerSections,
	}
}

func (s *Server) customerSections(ctx context.Context, c *models.Customer) ([]section, error) {
	locations, err := s.customers.ListShippingLocationsForCustomer(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListForCustomer(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	locs := section{Title: "Shipping locations", Link: "shipping_location", Headers: []string{"Name", "Zip code"}}
	for _, l := range locations {
		locs.Rows = append(locs.Rows, row{ID: l.ID, Cells: []string{l.Name, itoa(l.ZipCode)}})
	}
	ords := section{Title: "Orders", Link: "order", Headers: []string{"Order number", "Placed"}}
	for _, o := range orders {
		ords.Rows = append(ords.Rows, row{ID: o.ID, Cells: []string{o.OrderNumber, o.CreatedAt.Format("2006-01-02")}})
	}
	return []section{locs, ords}, nil
}

func (s *Server) shippingLocationResource() *Resource[models.ShippingLocation, models.ShippingLocationParams] {
	return &Resource[models.ShippingLocation, models.ShippingLocationParams]{
		Name:     "shipping_location",
		Title:    "Shipping locations",
		Singular: "Shipping location",
		Store:    s.locations,
		Deleter:  s.locations,
		ID:       func(l *models.ShippingLocation) uint { return l.ID },
		Deleted:  func(l *models.ShippingLocation) bool { return l.IsDeleted() },
		Columns: []Column[models.ShippingLocation]{
			{"Name", func(l *models.ShippingLocation) string { return l.Name }},
			{"Zip code", func(l *models.ShippingLocation) string { return itoa(l.ZipCode) }},
			{"Customer", func(l *models.ShippingLocation) string { return utoa(l.CustomerID) }},
			{"Status", func(l *models.ShippingLocation) string { return deletedLabel(l.IsDeleted()) }},
		},
		Fields: func(p models.ShippingLocationParams) []field {
			return []field{
				{Name: "name", Label: "Name", Type: "text", Value: p.Name},
				{Name: "zip_code", Label: "Zip code", Type: "number", Value: itoa(p.ZipCode)},
			}
		},
		Params: func(l *models.ShippingLocation) models.ShippingLocationParams {
			return models.ShippingLocationParams{Name: l.Name, ZipCode: l.ZipCode}
		},
	}
}

func (s *Server) spatulaResource() *Resource[models.Spatula, models.SpatulaParams] {
	return &Resource[models.Spatula, models.SpatulaParams]{
		Name:     "spatula",
		Title:    "Spatulas",
		Singular: "Spatula",
		Store:    s.spatulas,
		Deleter:  s.spatulas,
		ID:       func(sp *models.Spatula) uint { return sp.ID },
		Deleted:  func(sp *models.Spatula) bool { return sp.IsDeleted() },
		Columns: []Column[models.Spatula]{
			{"Color", func(sp *models.Spatula) string { return sp.Color }},
			{"Price", func(sp *models.Spatula) string { return formatPrice(sp.Price) }},
			{"Status", func(sp *models.Spatula) string { return deletedLabel(sp.IsDeleted()) }},
		},
		Fields: func(p models.SpatulaParams) []field {
			return []field{
				{Name: "color", Label: "Color", Type: "text", Value: p.Color},
				{Name: "price", Label: "Price", Type: "text", Value: p.Price.StringFixed(2)},
			}
		},
		Params: func(sp *models.Spatula) models.SpatulaParams {
			return models.SpatulaParams{Color: sp.Color, Price: sp.Price}
		},
	}
}

func (s *Server) orderResource() *Resource[models.Order, models.OrderParams] {
	return &Resource[models.Order, models.OrderParams]{
		Name:     "order",
		Title:    "Orders",
		Singular: "Order",
		Store:    s.orders,
		ID:       func(o *models.Order) uint { return o.ID },
		Columns: []Column[models.Order]{
			{"Order number", func(o *models.Order) string { return o.OrderNumber }},
			{"Customer", func(o *models.Order) string { return utoa(o.CustomerID) }},
		},
		Fields: func(p models.OrderParams) []field {
			return []field{
				{Name: "order_number", Label: "Order number", Type: "text", Value: p.OrderNumber},
				{Name: "customer_id", Label: "Customer id", Type: "number", Value: utoa(p.CustomerID)},
			}
		},
		Params: func(o *models.Order) models.OrderParams {
			return models.OrderParams{OrderNumber: o.OrderNumber, CustomerID: o.CustomerID}
		},
		Bind:    bindOrder,
		Nested:  orderLinesForm,
		Related: s.orderSections,
	}
}

func (s *Server) orderSections(ctx context.Context, o *models.Order) ([]section, error) {
	d, err := s.orders.Detail(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	var sections []section
	if d.Customer != nil {
		sections = append(sections, section{
			Title:   "Customer",
			Link:    "customer",
			Headers: []string{"Name", "Zip code"},
			Rows:    []row{{ID: d.Customer.ID, Cells: []string{d.Customer.Name, itoa(d.Customer.ZipCode)}}},
		})
	}

	lines := section{
		Title:   "Order lines",
		Headers: []string{"Spatula", "Shipping location", "Quantity", "Subtotal"},
		Footer:  "Total " + formatPrice(d.Total()),
	}
	for _, l := range d.Lines {
		sp := d.Spatulas[l.SpatulaID]
		loc := d.Locations[l.ShippingLocationID]
		lines.Rows = append(lines.Rows, row{ID: l.ID, Cells: []string{
			sp.Color, loc.Name, itoa(l.Quantity), formatPrice(l.Subtotal(sp.Price)),
		}})
	}
	return append(sections, lines), nil
}

// orderLineForm carries nested order lines posted from the HTML form as
// parallel columns, one entry per row.
type orderLineForm struct {
	Quantity           []string `form:"line_quantity"`
	SpatulaID          []string `form:"line_spatula_id"`
	ShippingLocationID []string `form:"line_shipping_location_id"`
}

func at(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}

// params converts the posted rows, skipping rows left entirely blank.
func (f orderLineForm) params() ([]models.OrderLineParams, error) {
	n := max(len(f.Quantity), len(f.SpatulaID), len(f.ShippingLocationID))
	verr := &store.ValidationError{}
	var lines []models.OrderLineParams
	for i := 0; i < n; i++ {
		q, sp, loc := at(f.Quantity, i), at(f.SpatulaID, i), at(f.ShippingLocationID, i)
		if q == "" && sp == "" && loc == "" {
			continue
		}
		var lp models.OrderLineParams
		var err error
		prefix := fmt.Sprintf("order_lines[%d].", i)
		if lp.Quantity, err = parseInt(q); err != nil {
			verr.Add(prefix+"quantity", "is not a number")
		}
		if lp.SpatulaID, err = parseID(sp); err != nil {
			verr.Add(prefix+"spatula_id", "is not a valid id")
		}
		if lp.ShippingLocationID, err = parseID(loc); err != nil {
			verr.Add(prefix+"shipping_location_id", "is not a valid id")
		}
		lines = append(lines, lp)
	}
	if len(verr.Fields) > 0 {
		return lines, verr
	}
	return lines, nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseID(s string) (uint, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 0)
	return uint(n), err
}

// bindOrder decodes an order and its nested lines. JSON bodies carry lines
// in order_lines_attributes; forms use the parallel line_* columns.
func bindOrder(c *gin.Context, params *models.OrderParams) error {
	if err := c.ShouldBind(params); err != nil {
		return err
	}
	if c.ContentType() == binding.MIMEJSON {
		return nil
	}

	var lf orderLineForm
	if err := c.ShouldBindWith(&lf, binding.Form); err != nil {
		return err
	}
	lines, err := lf.params()
	params.OrderLines = append(params.OrderLines, lines...)
	return err
}

// orderLinesForm offers the posted rows back, padded with blank rows.
func orderLinesForm(c *gin.Context) *nestedForm {
	var quantities, spatulas, locations []string
	if c.Request.Method != "GET" {
		quantities = c.PostFormArray("line_quantity")
		spatulas = c.PostFormArray("line_spatula_id")
		locations = c.PostFormArray("line_shipping_location_id")
	}

	n := max(len(quantities), len(spatulas), len(locations))
	form := &nestedForm{
		Title:   "Order lines",
		Headers: []string{"Quantity", "Spatula id", "Shipping location id"},
	}
	for i := 0; i < n+blankLineRows; i++ {
		form.Rows = append(form.Rows, []field{
			{Name: "line_quantity", Type: "number", Value: at(quantities, i)},
			{Name: "line_spatula_id", Type: "number", Value: at(spatulas, i)},
			{Name: "line_shipping_location_id", Type: "number", Value: at(locations, i)},
		})
	}
	return form
}
