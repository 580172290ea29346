// Package httpapi exposes the order entry and market data API over
// HTTP. It is a thin wrapper: every write goes through the engine's
// owner loop, every read through an epoch-guarded query.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"matchbook/domain/orderbook"
	"matchbook/engine"
)

type Handler struct {
	svc *engine.OrderService
}

func NewHandler(svc *engine.OrderService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up the gin routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", h.SubmitOrder)
		v1.DELETE("/orders/:id", h.CancelOrder)
		v1.GET("/book/bbo", h.GetBBO)
		v1.GET("/book/depth", h.GetDepth)
		v1.GET("/book/orders", h.GetResting)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "matchbook",
	})
}

// SubmitOrderRequest is the body of POST /v1/orders.
type SubmitOrderRequest struct {
	OrderID uint64 `json:"order_id" binding:"required"`
	Side    string `json:"side" binding:"required"`
	Type    string `json:"type"`
	Price   uint64 `json:"price"`
	Shares  uint64 `json:"shares" binding:"required,gt=0"`
}

type fillView struct {
	MakerID uint64 `json:"maker_id"`
	TakerID uint64 `json:"taker_id"`
	Price   uint64 `json:"price"`
	Qty     uint64 `json:"qty"`
}

// SubmitOrder handles POST /v1/orders.
func (h *Handler) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		OrdersTotal.WithLabelValues("submit", "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		OrdersTotal.WithLabelValues("submit", "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be 'bid' or 'ask'"})
		return
	}
	otype, ok := parseType(req.Type)
	if !ok {
		OrdersTotal.WithLabelValues("submit", "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order type"})
		return
	}

	fills, seq, err := h.svc.Submit(orderbook.Request{
		ID:     orderbook.OrderID(req.OrderID),
		Side:   side,
		Type:   otype,
		Price:  req.Price,
		Shares: req.Shares,
	})

	unfilled := errors.Is(err, orderbook.ErrUnfilled)
	if err != nil && !unfilled {
		OrdersTotal.WithLabelValues("submit", "rejected").Inc()
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	OrdersTotal.WithLabelValues("submit", "accepted").Inc()
	views := make([]fillView, 0, len(fills))
	var volume uint64
	for _, f := range fills {
		views = append(views, fillView{
			MakerID: uint64(f.MakerID),
			TakerID: uint64(f.TakerID),
			Price:   f.Price,
			Qty:     f.Qty,
		})
		volume += f.Qty
	}
	FillsTotal.Add(float64(len(fills)))
	FilledShares.Add(float64(volume))
	EngineSeq.Set(float64(seq))
	h.updateDepthGauges()

	c.JSON(http.StatusCreated, gin.H{
		"seq":      seq,
		"fills":    views,
		"unfilled": unfilled,
	})
}

// CancelOrder handles DELETE /v1/orders/:id.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		OrdersTotal.WithLabelValues("cancel", "bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be numeric"})
		return
	}

	seq, err := h.svc.Cancel(orderbook.OrderID(id))
	if err != nil {
		OrdersTotal.WithLabelValues("cancel", "rejected").Inc()
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	OrdersTotal.WithLabelValues("cancel", "accepted").Inc()
	EngineSeq.Set(float64(seq))
	h.updateDepthGauges()
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "order_id": id, "seq": seq})
}

// GetBBO handles GET /v1/book/bbo.
func (h *Handler) GetBBO(c *gin.Context) {
	resp := gin.H{}
	if bid, ok := h.svc.BestBid(); ok {
		resp["bid"] = gin.H{"price": bid.Price, "shares": bid.TotalShares}
	}
	if ask, ok := h.svc.BestAsk(); ok {
		resp["ask"] = gin.H{"price": ask.Price, "shares": ask.TotalShares}
	}
	c.JSON(http.StatusOK, resp)
}

// GetDepth handles GET /v1/book/depth?side=bid&price=100.
func (h *Handler) GetDepth(c *gin.Context) {
	side, ok := parseSide(c.Query("side"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be 'bid' or 'ask'"})
		return
	}
	price, err := strconv.ParseUint(c.Query("price"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must be numeric"})
		return
	}

	depth, ok := h.svc.DepthAt(side, price)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no level at price"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_count":    depth.OrderCount,
		"total_shares":   depth.TotalShares,
		"total_notional": depth.TotalNotional,
	})
}

// GetResting handles GET /v1/book/orders.
func (h *Handler) GetResting(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Resting())
}

func (h *Handler) updateDepthGauges() {
	BookDepth.WithLabelValues("bid").Set(float64(h.svc.Levels(orderbook.Bid)))
	BookDepth.WithLabelValues("ask").Set(float64(h.svc.Levels(orderbook.Ask)))
}

func parseSide(s string) (orderbook.Side, bool) {
	switch s {
	case "bid", "buy":
		return orderbook.Bid, true
	case "ask", "sell":
		return orderbook.Ask, true
	default:
		return 0, false
	}
}

func parseType(s string) (orderbook.OrderType, bool) {
	switch s {
	case "", "limit":
		return orderbook.Limit, true
	case "market":
		return orderbook.Market, true
	case "ioc":
		return orderbook.IOC, true
	case "fok":
		return orderbook.FOK, true
	case "post_only":
		return orderbook.PostOnly, true
	default:
		return 0, false
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, orderbook.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, orderbook.ErrDuplicateOrderID):
		return http.StatusConflict
	case errors.Is(err, orderbook.ErrWouldCross),
		errors.Is(err, orderbook.ErrUnfillable):
		return http.StatusConflict
	case errors.Is(err, orderbook.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
