package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/matthieukhl/spatula/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

var printer = message.NewPrinter(language.AmericanEnglish)

// formatPrice renders a price with its currency symbol, rounded to cents.
// Whole units and cents are formatted separately so no float is involved.
func formatPrice(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	return printer.Sprintf("%v %s%v.%02d",
		currency.Symbol(currency.USD), sign, number.Decimal(whole.IntPart()), cents)
}

type row struct {
	ID      uint
	Cells   []string
	Deleted bool
}

type attr struct {
	Label string
	Value string
}

// section is a table of related records shown under a record.
type section struct {
	Title   string
	Link    string // resource the rows link to; empty for no links
	Headers []string
	Rows    []row
	Footer  string
}

type field struct {
	Name  string
	Label string
	Type  string
	Value string
}

// nestedForm is a repeated group of inputs, one row per child record.
type nestedForm struct {
	Title   string
	Headers []string
	Rows    [][]field
}

type page struct {
	Title     string
	Name      string
	Resources []navItem
}

type navItem struct {
	Name  string
	Title string
}

var nav = []navItem{
	{Name: "order", Title: "Orders"},
	{Name: "customer", Title: "Customers"},
	{Name: "shipping_location", Title: "Shipping locations"},
	{Name: "spatula", Title: "Spatulas"},
}

type indexView struct {
	page
	Headers   []string
	Rows      []row
	CanDelete bool
}

type showView struct {
	page
	ID        uint
	Attrs     []attr
	Sections  []section
	Deleted   bool
	CanDelete bool
}

type formView struct {
	page
	Action string
	Method string
	Submit string
	Fields []field
	Nested *nestedForm
	Errors []string
}

type errorView struct {
	page
	Status  int
	Message string
}

// wantsJSON reports whether the client prefers JSON over HTML.
func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(binding.MIMEHTML, binding.MIMEJSON) == binding.MIMEJSON
}

func render(c *gin.Context, status int, name string, view any, data any) {
	c.Negotiate(status, gin.Negotiate{
		Offered:  []string{binding.MIMEHTML, binding.MIMEJSON},
		HTMLName: name,
		HTMLData: view,
		JSONData: data,
	})
}

func renderError(c *gin.Context, status int, msg string) {
	render(c, status, "error.html",
		errorView{page: page{Title: http.StatusText(status), Resources: nav}, Status: status, Message: msg},
		gin.H{"error": msg})
}

func notFound(c *gin.Context) {
	renderError(c, http.StatusNotFound, "record not found")
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	renderError(c, http.StatusInternalServerError, "something went wrong")
}

// useFormNames makes validator report fields by their form names.
func useFormNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validationError converts a binding failure into field messages.
func validationError(err error) *store.ValidationError {
	verr := &store.ValidationError{}
	var ve validator.ValidationErrors
	var se *store.ValidationError
	switch {
	case errors.As(err, &se):
		return se
	case errors.As(err, &ve):
		for _, fe := range ve {
			name := fe.Field()
			if name == "" {
				name = fe.StructField()
			}
			switch fe.Tag() {
			case "required":
				verr.Add(name, "is required")
			default:
				verr.Add(name, "is invalid")
			}
		}
	default:
		verr.Add("input", "could not be read: "+err.Error())
	}
	return verr
}
