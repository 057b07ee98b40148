package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/goshop-api/internal/adapter/http/middleware"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	checkout *usecase.Checkout
	orders   *usecase.Orders
}

func NewOrderHandler(checkout *usecase.Checkout, orders *usecase.Orders) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type orderLineResp struct {
	ProductID       string `json:"productId"`
	Quantity        int64  `json:"quantity"`
	PriceAtPurchase int64  `json:"priceCentsAtPurchase"`
}

type orderResp struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Status     string          `json:"status"`
	TotalCents int64           `json:"totalCents"`
	CreatedAt  time.Time       `json:"createdAt"`
	Items      []orderLineResp `json:"items"`
}

func toOrderResp(o *usecase.OrderRecord) orderResp {
	lines := make([]orderLineResp, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResp{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			PriceAtPurchase: l.UnitPriceCents,
		})
	}
	return orderResp{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
		Items:      lines,
	}
}

// Checkout converts the caller's cart into a confirmed order.
// POST /v1/orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.checkout.Execute(ctx, usecase.CheckoutInput{
		UserID:         middleware.CurrentUserID(c),
		UserEmail:      middleware.CurrentUserEmail(c),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"), // prevent duplicated requests
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "order created successfully",
		"data":    toOrderResp(order),
	})
}

// GET /v1/orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	order, err := h.orders.GetByID(ctx, c.Param("id"),
		middleware.CurrentUserID(c), middleware.IsAdmin(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toOrderResp(order)})
}

// GET /v1/orders?page=&limit=
func (h *OrderHandler) ListMine(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	page, err := h.orders.ListByUser(ctx, middleware.CurrentUserID(c),
		intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOrderPage(c, page)
}

// GET /v1/admin/orders?status=&page=&limit= (admin)
func (h *OrderHandler) ListAll(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	page, err := h.orders.ListAll(ctx, c.Query("status"),
		intQuery(c, "page", 1), intQuery(c, "limit", 10))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOrderPage(c, page)
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /v1/admin/orders/:id/status (admin)
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	order, err := h.orders.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toOrderResp(order)})
}

func writeOrderPage(c *gin.Context, page *usecase.OrderPage) {
	items := make([]orderResp, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toOrderResp(&page.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"total": page.Total,
			"page":  page.Page,
			"limit": page.Limit,
			"pages": page.Pages,
		},
	})
}
