package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/database/dbtest"
	"github.com/matthieukhl/spatula/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, seed bool) (*Server, *database.DB) {
	t.Helper()
	db := dbtest.Open(t)
	if seed {
		dbtest.Seed(t, db)
	}
	return NewServer(db), db
}

func (s *Server) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func (s *Server) doJSON(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(data)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestIndexPages(t *testing.T) {
	srv, _ := newTestServer(t, false)

	for _, name := range []string{"customer", "shipping_location", "spatula", "order"} {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/" + name, "/" + name + "/index"} {
				w := srv.do(t, http.MethodGet, path, nil)
				assert.Equal(t, http.StatusOK, w.Code, path)
				assert.Contains(t, w.Body.String(), "Nothing here yet.")
			}
		})
	}
}

func TestRootRedirectsToOrders(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := srv.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/order/index", w.Header().Get("Location"))
}

func TestCreateCustomerThenShow(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := srv.do(t, http.MethodPost, "/customer", url.Values{
		"name":     {"Barry Allen"},
		"zip_code": {"12345"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/customer/1", w.Header().Get("Location"))

	w = srv.do(t, http.MethodGet, "/customer/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Barry Allen")
	assert.Contains(t, w.Body.String(), "12345")

	w = srv.do(t, http.MethodGet, "/customer/show?id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Barry Allen")

	w = srv.do(t, http.MethodGet, "/customer/index", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Barry Allen")
}

func TestCreateDropsUnpermittedFields(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodPost, "/shipping_location", url.Values{
		"name":        {"Jitters"},
		"zip_code":    {"54321"},
		"customer_id": {"2"},
		"id":          {"99"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/shipping_location/4", w.Header().Get("Location"))

	var loc models.ShippingLocation
	require.NoError(t, db.Unscoped().First(&loc, 4).Error)
	assert.Equal(t, "Jitters", loc.Name)
	assert.Equal(t, 54321, loc.ZipCode)
	assert.Zero(t, loc.CustomerID)
}

func TestShowAndEditMissingRecord(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for _, path := range []string{
		"/customer/999",
		"/customer/abc",
		"/customer/show",
		"/customer/show?id=999",
		"/spatula/999/edit",
		"/spatula/edit?id=999",
		"/order/update",
		"/nowhere",
	} {
		w := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := srv.do(t, http.MethodPatch, "/customer/999", url.Values{"name": {"Nobody"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditForm(t *testing.T) {
	srv, _ := newTestServer(t, true)

	for _, path := range []string{"/customer/1/edit", "/customer/edit?id=1", "/customer/update?id=1"} {
		w := srv.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := w.Body.String()
		assert.Contains(t, body, `value="Barry Allen"`)
		assert.Contains(t, body, `action="/customer/1"`)
		assert.Contains(t, body, `name="_method" value="PATCH"`)
	}
}

func TestUpdateCustomer(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodPatch, "/customer/1", url.Values{"name": {"The Flash"}, "zip_code": {"11111"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/customer/1", w.Header().Get("Location"))

	// HTML forms reach the same route through _method.
	w = srv.do(t, http.MethodPost, "/customer/2", url.Values{
		"_method":  {"put"},
		"name":     {"Detective West"},
		"zip_code": {"22222"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	var flash, joe models.Customer
	require.NoError(t, db.First(&flash, 1).Error)
	assert.Equal(t, "The Flash", flash.Name)
	assert.Equal(t, 11111, flash.ZipCode)
	require.NoError(t, db.First(&joe, 2).Error)
	assert.Equal(t, "Detective West", joe.Name)
}

func TestUpdateKeepsUnsubmittedAttributes(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.doJSON(t, http.MethodPatch, "/customer/1", map[string]any{"name": "Flash"})
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodPatch, "/customer/2", url.Values{"name": {"Joe"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = srv.do(t, http.MethodPatch, "/spatula/1", url.Values{"color": {"Scarlet"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = srv.doJSON(t, http.MethodPatch, "/order/1", map[string]any{"order_number": "9999"})
	require.Equal(t, http.StatusOK, w.Code)

	var barry, joe models.Customer
	require.NoError(t, db.First(&barry, 1).Error)
	assert.Equal(t, "Flash", barry.Name)
	assert.Equal(t, 12345, barry.ZipCode)
	require.NoError(t, db.First(&joe, 2).Error)
	assert.Equal(t, "Joe", joe.Name)
	assert.Equal(t, 12345, joe.ZipCode)

	var sp models.Spatula
	require.NoError(t, db.First(&sp, 1).Error)
	assert.Equal(t, "Scarlet", sp.Color)
	assert.Equal(t, "8.00", sp.Price.StringFixed(2))

	var order models.Order
	require.NoError(t, db.First(&order, 1).Error)
	assert.Equal(t, "9999", order.OrderNumber)
	assert.EqualValues(t, 1, order.CustomerID)

	var lines int64
	require.NoError(t, db.Model(&models.OrderLine{}).Where("order_id = ?", 1).Count(&lines).Error)
	assert.EqualValues(t, 2, lines)
}

func TestFormatPrice(t *testing.T) {
	for in, want := range map[string]string{
		"8":        "$ 8.00",
		"0.30":     "$ 0.30",
		"1234.565": "$ 1,234.57",
		"-5":       "$ -5.00",
		"0.005":    "$ 0.01",
	} {
		assert.Equal(t, want, formatPrice(decimal.RequireFromString(in)), in)
	}
}

func TestSoftDeleteSpatula(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodDelete, "/spatula/1", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/spatula/index", w.Header().Get("Location"))

	w = srv.do(t, http.MethodPost, "/spatula/2", url.Values{"_method": {"DELETE"}})
	require.Equal(t, http.StatusFound, w.Code)

	// still reachable by id
	w = srv.do(t, http.MethodGet, "/spatula/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This record has been deleted.")

	w = srv.doJSON(t, http.MethodGet, "/spatula/index", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Purple", listed[0]["color"])
	assert.Equal(t, false, listed[0]["deleted"])

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Spatula{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	w = srv.doJSON(t, http.MethodDelete, "/spatula/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodDelete, "/spatula/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSoftDeleteShippingLocationKeepsOrders(t *testing.T) {
	srv, _ := newTestServer(t, true)

	w := srv.do(t, http.MethodDelete, "/shipping_location/2", nil)
	require.Equal(t, http.StatusFound, w.Code)

	w = srv.do(t, http.MethodGet, "/order/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CCPD")

	w = srv.do(t, http.MethodGet, "/customer/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "CCPD")
}

func TestDestroyNotRoutedForCustomersAndOrders(t *testing.T) {
	srv, db := newTestServer(t, true)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/customer/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/order/1", nil).Code)

	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestCreateRejectedInputIsShownBack(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := srv.do(t, http.MethodPost, "/spatula", url.Values{
		"color": {"Green"},
		"price": {"cheap"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="Green"`)
	assert.Contains(t, body, `value="cheap"`)
	assert.Contains(t, body, "could not be read")

	w = srv.doJSON(t, http.MethodGet, "/spatula", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateOrderWithLinesFromForm(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodPost, "/order", url.Values{
		"order_number":              {"2001"},
		"customer_id":               {"1"},
		"line_quantity":             {"2", "", "3"},
		"line_spatula_id":           {"1", "", "2"},
		"line_shipping_location_id": {"1", "", "1"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/order/4", w.Header().Get("Location"))

	var lines []models.OrderLine
	require.NoError(t, db.Where("order_id = ?", 4).Order("id").Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.EqualValues(t, 2, lines[1].SpatulaID)

	w = srv.do(t, http.MethodGet, "/order/4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	// 2 x 8.00 + 3 x 6.00
	assert.Contains(t, w.Body.String(), "34.00")
	assert.Contains(t, w.Body.String(), "Barry Allen")
}

func TestCreateOrderFromJSON(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.doJSON(t, http.MethodPost, "/order", map[string]any{
		"order_number": "2002",
		"customer_id":  2,
		"order_lines_attributes": []map[string]any{
			{"quantity": 1, "spatula_id": 3, "shipping_location_id": 2},
			{"quantity": 4, "spatula_id": 1, "shipping_location_id": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "2002", order.OrderNumber)

	var count int64
	require.NoError(t, db.Model(&models.OrderLine{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateOrderForUnknownCustomer(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodPost, "/order", url.Values{
		"order_number":              {"2003"},
		"customer_id":               {"999"},
		"line_quantity":             {"1"},
		"line_spatula_id":           {"1"},
		"line_shipping_location_id": {"1"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "customer_id must exist")
	assert.Contains(t, body, `value="2003"`)

	w = srv.doJSON(t, http.MethodPost, "/order", map[string]any{"order_number": "2004"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"errors": {"customer_id": ["is required"]}}`, w.Body.String())

	var orders, lines int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderLine{}).Count(&lines).Error)
	assert.EqualValues(t, 3, orders)
	assert.EqualValues(t, 6, lines)
}

func TestCreateOrderWithMalformedLine(t *testing.T) {
	srv, db := newTestServer(t, true)

	w := srv.do(t, http.MethodPost, "/order", url.Values{
		"order_number":              {"2005"},
		"customer_id":               {"1"},
		"line_quantity":             {"many"},
		"line_spatula_id":           {"1"},
		"line_shipping_location_id": {"1"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "order_lines[0].quantity is not a number")
	assert.Contains(t, w.Body.String(), `value="many"`)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 3, orders)
}

func TestNewOrderFormOffersBlankLines(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := srv.do(t, http.MethodGet, "/order/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, blankLineRows, strings.Count(w.Body.String(), `name="line_quantity"`))
	assert.NotContains(t, w.Body.String(), `name="_method"`)
}

func TestShowOrderDetail(t *testing.T) {
	srv, _ := newTestServer(t, true)

	w := srv.do(t, http.MethodGet, "/order/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Barry Allen")
	assert.Contains(t, body, "Blue")
	assert.Contains(t, body, "Picture News")
	assert.Contains(t, body, "10.00")
}

func TestJSONShow(t *testing.T) {
	srv, _ := newTestServer(t, true)

	w := srv.doJSON(t, http.MethodGet, "/customer/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c models.Customer
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "Iris West", c.Name)

	w = srv.doJSON(t, http.MethodGet, "/customer/42", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "record not found"}`, w.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, false)

	w := srv.do(t, http.MethodGet, "/spatula", nil)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/spatula", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHealthCheck(t *testing.T) {
	srv, db := newTestServer(t, false)

	w := srv.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "service": "spatula", "version": "0.1.0"}`, w.Body.String())

	require.NoError(t, db.Close())
	w = srv.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t, false)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
