package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/funnel"
	"agrofunnel/internal/service/booking"
	"agrofunnel/internal/service/catalog"
	"agrofunnel/internal/service/discount"
	"agrofunnel/internal/service/session"
	"agrofunnel/internal/tools"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sessionService interface {
	Start(ctx context.Context, language string) (*session.Started, error)
	Authenticate(token string) (string, error)
	Load(ctx context.Context, id string) (*domain.Session, error)
	Advance(ctx context.Context, id string, intent funnel.Intent) (*domain.Session, error)
}

type toolRegistry interface {
	List() []tools.Descriptor
	Call(ctx context.Context, sessionID, name string, args json.RawMessage) tools.Result
}

type catalogService interface {
	Search(ctx context.Context, in catalog.SearchInput) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
}

type customerService interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Update(ctx context.Context, id string, in domain.CustomerUpdate) (*domain.Customer, error)
}

type bookingService interface {
	Schedule(ctx context.Context, in booking.Input) (*booking.Result, error)
}

type discountService interface {
	Generate(ctx context.Context, in discount.Input) (*discount.Result, error)
}

type orderLister interface {
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// Deps are the collaborators the HTTP layer talks to.
type Deps struct {
	Sessions  sessionService
	Tools     toolRegistry
	Catalog   catalogService
	Customers customerService
	Bookings  bookingService
	Discounts discountService
	Orders    orderLister
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready          func(ctx context.Context) error
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Tools == nil || deps.Catalog == nil || deps.Customers == nil {
		return nil, errors.New("httpserver: sessions, tools, catalog and customers are required")
	}

	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))
	router.Use(corsMiddleware(deps.CORSOrigins))
	if deps.RateLimitRPS > 0 {
		router.Use(newRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst).middleware())
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	h := &handlers{deps: deps, logger: logger}
	v1 := router.Group("/v1")
	v1.POST("/sessions", h.startSession)
	v1.GET("/products", h.searchProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/categories", h.listCategories)

	authed := v1.Group("", sessionAuth(deps.Sessions))
	authed.GET("/tools", h.listTools)

	sess := authed.Group("/session")
	sess.GET("", h.getSession)
	sess.POST("/intents", h.advance)
	sess.POST("/identify", h.toolFacade("identify_customer"))
	sess.GET("/cart", h.toolFacade("get_cart_summary"))
	sess.POST("/cart/items", h.toolFacade("add_to_cart"))
	sess.DELETE("/cart/items/:productId", h.removeCartItem)
	sess.POST("/cart/discount-codes", h.toolFacade("apply_discount_code"))
	sess.POST("/checkout", h.toolFacade("process_checkout"))
	sess.POST("/tools/:name", h.callTool)

	customers := authed.Group("/customers/:id", customerScope(deps.Sessions))
	customers.GET("", h.getCustomer)
	customers.PATCH("", h.updateCustomer)
	customers.POST("/bookings", h.scheduleService)
	customers.POST("/discount-codes", h.generateDiscountCode)
	customers.GET("/orders", h.listOrders)

	return router, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
