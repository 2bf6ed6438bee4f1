package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matthieukhl/spatula/internal/database"
	"github.com/matthieukhl/spatula/internal/models"
	"github.com/matthieukhl/spatula/internal/store"
)

type Server struct {
	router *gin.Engine
	db     *database.DB
	http   *http.Server

	customers *store.CustomerStore
	locations *store.Repository[models.ShippingLocation, models.ShippingLocationParams]
	spatulas  *store.Repository[models.Spatula, models.SpatulaParams]
	orders    *store.OrderStore
}

// NewServer creates a new server instance
func NewServer(db *database.DB) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog())
	router.SetHTMLTemplate(loadTemplates())
	useFormNames()

	server := &Server{
		router:    router,
		db:        db,
		customers: store.NewCustomerStore(db),
		locations: store.NewShippingLocationStore(db),
		spatulas:  store.NewSpatulaStore(db),
		orders:    store.NewOrderStore(db),
	}

	server.setupRoutes()
	server.http = &http.Server{Handler: server.Handler()}
	return server
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	mount(s.router, s.customerResource())
	mount(s.router, s.shippingLocationResource())
	mount(s.router, s.spatulaResource())
	mount(s.router, s.orderResource())

	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/order/index")
	})
	s.router.NoRoute(notFound)

	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
	}
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "spatula",
		"version": "0.1.0",
	})
}

// Handler returns the root handler, including the _method override.
func (s *Server) Handler() http.Handler {
	return methodOverride(s.router)
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Called before Start, it makes Start return at once.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
