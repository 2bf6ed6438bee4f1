package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type action string

const (
	actionIndex   action = "index"
	actionShow    action = "show"
	actionNew     action = "new"
	actionCreate  action = "create"
	actionEdit    action = "edit"
	actionUpdate  action = "update"
	actionDestroy action = "destroy"
)

type route struct {
	Method string
	Path   string // relative to /<resource>
	Action action
}

// resourceRoutes is mounted once per resource.
var resourceRoutes = []route{
	{http.MethodGet, "", actionIndex},
	{http.MethodGet, "/index", actionIndex},
	{http.MethodGet, "/new", actionNew},
	{http.MethodGet, "/show", actionShow},
	{http.MethodGet, "/edit", actionEdit},
	{http.MethodGet, "/update", actionEdit},
	{http.MethodPost, "", actionCreate},
	{http.MethodGet, "/:id", actionShow},
	{http.MethodGet, "/:id/edit", actionEdit},
	{http.MethodPut, "/:id", actionUpdate},
	{http.MethodPatch, "/:id", actionUpdate},
	{http.MethodDelete, "/:id", actionDestroy},
}

func (r *Resource[T, P]) handler(a action) gin.HandlerFunc {
	switch a {
	case actionIndex:
		return r.index
	case actionShow:
		return r.show
	case actionNew:
		return r.newForm
	case actionCreate:
		return r.create
	case actionEdit:
		return r.edit
	case actionUpdate:
		return r.update
	case actionDestroy:
		if r.Deleter == nil {
			return nil
		}
		return r.destroy
	}
	return nil
}

// mount registers the route table for r under /<r.Name>.
func mount[T any, P any](engine *gin.Engine, r *Resource[T, P]) {
	group := engine.Group("/" + r.Name)
	for _, rt := range resourceRoutes {
		h := r.handler(rt.Action)
		if h == nil {
			continue
		}
		group.Handle(rt.Method, rt.Path, h)
	}
}
