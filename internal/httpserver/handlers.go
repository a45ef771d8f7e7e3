package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"agrofunnel/internal/domain"
	"agrofunnel/internal/funnel"
	"agrofunnel/internal/service/booking"
	"agrofunnel/internal/service/catalog"
	"agrofunnel/internal/service/discount"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type handlers struct {
	deps   Deps
	logger *zap.Logger
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// bindJSON decodes the request body into v; an empty body leaves v untouched.
func bindJSON(c *gin.Context, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeError(c, domain.NewError(domain.KindInvalidArguments, "could not read request body"))
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(c, domain.NewError(domain.KindInvalidArguments, "invalid JSON body: %v", err))
		return false
	}
	return true
}

func (h *handlers) startSession(c *gin.Context) {
	var req struct {
		Language string `json:"language"`
	}
	if !bindJSON(c, &req) {
		return
	}
	started, err := h.deps.Sessions.Start(c.Request.Context(), req.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, gin.H{
		"sessionId":  started.Session.ID,
		"token":      started.Token,
		"expiresAt":  started.ExpiresAt,
		"funnelStep": started.Session.Step,
	})
}

func (h *handlers) getSession(c *gin.Context) {
	sess, err := h.deps.Sessions.Load(c.Request.Context(), c.GetString(ctxSessionID))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"session":        sess,
		"allowedIntents": funnel.Allowed(sess.Step),
	})
}

func (h *handlers) advance(c *gin.Context) {
	var req struct {
		Intent funnel.Intent `json:"intent"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !funnel.Known(req.Intent) {
		writeError(c, domain.NewError(domain.KindInvalidArguments, "unknown intent %q", req.Intent))
		return
	}
	sess, err := h.deps.Sessions.Advance(c.Request.Context(), c.GetString(ctxSessionID), req.Intent)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"funnelStep":     sess.Step,
		"allowedIntents": funnel.Allowed(sess.Step),
	})
}

func (h *handlers) listTools(c *gin.Context) {
	writeData(c, http.StatusOK, h.deps.Tools.List())
}

// callTool always answers 200: failures travel inside the tool envelope.
func (h *handlers) callTool(c *gin.Context) {
	args, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		writeError(c, domain.NewError(domain.KindInvalidArguments, "could not read request body"))
		return
	}
	res := h.deps.Tools.Call(c.Request.Context(), c.GetString(ctxSessionID), c.Param("name"), args)
	c.JSON(http.StatusOK, res)
}

// toolFacade exposes a tool as a REST endpoint with HTTP status codes.
func (h *handlers) toolFacade(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		args, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			writeError(c, domain.NewError(domain.KindInvalidArguments, "could not read request body"))
			return
		}
		writeResult(c, h.deps.Tools.Call(c.Request.Context(), c.GetString(ctxSessionID), name, args))
	}
}

func (h *handlers) removeCartItem(c *gin.Context) {
	args, _ := json.Marshal(map[string]string{"product_id": c.Param("productId")})
	writeResult(c, h.deps.Tools.Call(c.Request.Context(), c.GetString(ctxSessionID), "remove_from_cart", args))
}

func (h *handlers) searchProducts(c *gin.Context) {
	in := catalog.SearchInput{
		Query:    c.Query("query"),
		Category: c.Query("category"),
	}
	var err error
	if in.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		writeError(c, err)
		return
	}
	if in.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		writeError(c, err)
		return
	}
	if raw := c.Query("limit"); raw != "" {
		if in.Limit, err = strconv.Atoi(raw); err != nil {
			writeError(c, domain.NewError(domain.KindInvalidArguments, "limit must be an integer"))
			return
		}
	}

	products, err := h.deps.Catalog.Search(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidArguments, "%s must be a number", key)
	}
	return &d, nil
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, p)
}

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.deps.Catalog.Categories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, categories)
}

func (h *handlers) getCustomer(c *gin.Context) {
	cust, err := h.deps.Customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, cust)
}

func (h *handlers) updateCustomer(c *gin.Context) {
	var in domain.CustomerUpdate
	if !bindJSON(c, &in) {
		return
	}
	cust, err := h.deps.Customers.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusOK, cust)
}

func (h *handlers) scheduleService(c *gin.Context) {
	if h.deps.Bookings == nil {
		writeError(c, errInternal)
		return
	}
	var in booking.Input
	if !bindJSON(c, &in) {
		return
	}
	in.CustomerID = c.Param("id")
	res, err := h.deps.Bookings.Schedule(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, res)
}

func (h *handlers) generateDiscountCode(c *gin.Context) {
	if h.deps.Discounts == nil {
		writeError(c, errInternal)
		return
	}
	var in discount.Input
	if !bindJSON(c, &in) {
		return
	}
	in.CustomerID = c.Param("id")
	res, err := h.deps.Discounts.Generate(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, http.StatusCreated, res)
}

func (h *handlers) listOrders(c *gin.Context) {
	if h.deps.Orders == nil {
		writeError(c, errInternal)
		return
	}
	orders, err := h.deps.Orders.ListByCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("list orders failed", zap.String("customer_id", c.Param("id")), zap.Error(err))
		writeError(c, domain.Persistence(err))
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeData(c, http.StatusOK, orders)
}
