package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/spatula/internal/store"
)

// Store is the persistence surface every resource needs.
type Store[T any, P any] interface {
	List(ctx context.Context) ([]T, error)
	Find(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, params P) (*T, error)
	Update(ctx context.Context, id uint, params P) (*T, error)
}

type SoftDeleter interface {
	SoftDelete(ctx context.Context, id uint) error
}

// Column renders one attribute of T as text.
type Column[T any] struct {
	Label string
	Value func(*T) string
}

// Resource turns HTTP requests into store operations for one entity and
// renders the results. Every entity is served by the same handlers.
type Resource[T any, P any] struct {
	Name     string // path segment, e.g. "shipping_location"
	Title    string
	Singular string

	Store Store[T, P]
	// Deleter enables the destroy action when set.
	Deleter SoftDeleter

	ID      func(*T) uint
	Deleted func(*T) bool
	Columns []Column[T]

	// Fields lists the form inputs for params.
	Fields func(P) []field
	// Params pre-fills the edit form from a stored record.
	Params func(*T) P
	// Bind decodes the request over params. Defaults to gin binding.
	Bind func(*gin.Context, *P) error
	// Nested adds a repeated child group to the form.
	Nested func(*gin.Context) *nestedForm
	// Related lists records shown beneath the record on its page.
	Related func(context.Context, *T) ([]section, error)
}

func (r *Resource[T, P]) path(id uint) string {
	return fmt.Sprintf("/%s/%d", r.Name, id)
}

func (r *Resource[T, P]) page(title string) page {
	return page{Title: title, Name: r.Name, Resources: nav}
}

func (r *Resource[T, P]) row(rec *T) row {
	cells := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		cells[i] = col.Value(rec)
	}
	out := row{ID: r.ID(rec), Cells: cells}
	if r.Deleted != nil {
		out.Deleted = r.Deleted(rec)
	}
	return out
}

func (r *Resource[T, P]) headers() []string {
	h := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		h[i] = col.Label
	}
	return h
}

func (r *Resource[T, P]) index(c *gin.Context) {
	records, err := r.Store.List(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	view := indexView{page: r.page(r.Title), Headers: r.headers(), CanDelete: r.Deleter != nil}
	for i := range records {
		view.Rows = append(view.Rows, r.row(&records[i]))
	}
	if records == nil {
		records = []T{}
	}
	render(c, http.StatusOK, "index.html", view, records)
}

func (r *Resource[T, P]) show(c *gin.Context) {
	rec, ok := r.load(c)
	if !ok {
		return
	}

	view := showView{
		page:      r.page(fmt.Sprintf("%s #%d", r.Singular, r.ID(rec))),
		ID:        r.ID(rec),
		CanDelete: r.Deleter != nil,
	}
	for _, col := range r.Columns {
		view.Attrs = append(view.Attrs, attr{Label: col.Label, Value: col.Value(rec)})
	}
	if r.Deleted != nil {
		view.Deleted = r.Deleted(rec)
	}
	if r.Related != nil {
		sections, err := r.Related(c.Request.Context(), rec)
		if err != nil {
			internalError(c, err)
			return
		}
		view.Sections = sections
	}
	render(c, http.StatusOK, "show.html", view, rec)
}

func (r *Resource[T, P]) newForm(c *gin.Context) {
	var params P
	r.renderForm(c, http.StatusOK, 0, params, nil)
}

func (r *Resource[T, P]) create(c *gin.Context) {
	var zero P
	params, err := r.bind(c, zero)
	if err != nil {
		r.renderForm(c, http.StatusUnprocessableEntity, 0, params, validationError(err))
		return
	}

	rec, err := r.Store.Create(c.Request.Context(), params)
	if errors.Is(err, store.ErrValidation) {
		r.renderForm(c, http.StatusUnprocessableEntity, 0, params, validationError(err))
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, rec)
		return
	}
	c.Redirect(http.StatusFound, r.path(r.ID(rec)))
}

func (r *Resource[T, P]) edit(c *gin.Context) {
	rec, ok := r.load(c)
	if !ok {
		return
	}
	r.renderForm(c, http.StatusOK, r.ID(rec), r.Params(rec), nil)
}

// update only changes the attributes that were submitted; the rest keep
// their stored values.
func (r *Resource[T, P]) update(c *gin.Context) {
	rec, ok := r.load(c)
	if !ok {
		return
	}
	id := r.ID(rec)

	params, err := r.bind(c, r.Params(rec))
	if err != nil {
		r.renderForm(c, http.StatusUnprocessableEntity, id, params, validationError(err))
		return
	}

	rec, err = r.Store.Update(c.Request.Context(), id, params)
	switch {
	case errors.Is(err, store.ErrNotFound):
		notFound(c)
		return
	case errors.Is(err, store.ErrValidation):
		r.renderForm(c, http.StatusUnprocessableEntity, id, params, validationError(err))
		return
	case err != nil:
		internalError(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, rec)
		return
	}
	c.Redirect(http.StatusFound, r.path(id))
}

func (r *Resource[T, P]) destroy(c *gin.Context) {
	id, ok := r.id(c)
	if !ok {
		return
	}

	err := r.Deleter.SoftDelete(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusFound, "/"+r.Name+"/index")
}

// id reads the record id from the path or, failing that, the query string.
// A missing or malformed id answers 404.
func (r *Resource[T, P]) id(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		notFound(c)
		return 0, false
	}
	return uint(id), true
}

func (r *Resource[T, P]) load(c *gin.Context) (*T, bool) {
	id, ok := r.id(c)
	if !ok {
		return nil, false
	}
	rec, err := r.Store.Find(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c)
		return nil, false
	}
	if err != nil {
		internalError(c, err)
		return nil, false
	}
	return rec, true
}

// bind decodes the request on top of params. Keys absent from the request
// leave their field untouched.
func (r *Resource[T, P]) bind(c *gin.Context, params P) (P, error) {
	if r.Bind != nil {
		err := r.Bind(c, &params)
		return params, err
	}
	err := c.ShouldBind(&params)
	return params, err
}

// renderForm shows the new form (id == 0) or the edit form. Submitted values
// win over params so rejected input is shown back as typed.
func (r *Resource[T, P]) renderForm(c *gin.Context, status int, id uint, params P, verr *store.ValidationError) {
	view := formView{Fields: r.Fields(params)}
	if id == 0 {
		view.page = r.page("New " + r.Singular)
		view.Action = "/" + r.Name
		view.Method = http.MethodPost
		view.Submit = "Create"
	} else {
		view.page = r.page(fmt.Sprintf("Edit %s #%d", r.Singular, id))
		view.Action = r.path(id)
		view.Method = http.MethodPatch
		view.Submit = "Update"
	}
	if c.Request.Method != http.MethodGet {
		for i := range view.Fields {
			if v, ok := c.GetPostForm(view.Fields[i].Name); ok {
				view.Fields[i].Value = v
			}
		}
	}
	if r.Nested != nil {
		view.Nested = r.Nested(c)
	}

	var data any = params
	if verr != nil {
		view.Errors = verr.Messages()
		data = gin.H{"errors": verr.Fields}
	}
	render(c, status, "form.html", view, data)
}
