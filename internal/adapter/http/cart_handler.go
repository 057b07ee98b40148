package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/goshop-api/internal/adapter/http/middleware"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	cart *usecase.Cart
}

func NewCartHandler(cart *usecase.Cart) *CartHandler {
	return &CartHandler{cart: cart}
}

type cartItemResp struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	Name       string `json:"name,omitempty"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"priceCents,omitempty"`
}

// GET /v1/cart
func (h *CartHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	view, err := h.cart.Get(ctx, middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]cartItemResp, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, cartItemResp{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Name:       it.ProductName,
			Quantity:   it.Quantity,
			PriceCents: it.UnitPrice,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": view.Cart.ID, "items": items}})
}

type addItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// POST /v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	item, err := h.cart.AddItem(ctx, middleware.CurrentUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": cartItemResp{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}})
}

type updateItemReq struct {
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// PUT /v1/cart/items/:itemId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	item, err := h.cart.UpdateItem(ctx, middleware.CurrentUserID(c), c.Param("itemId"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cartItemResp{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}})
}

// DELETE /v1/cart/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.cart.RemoveItem(ctx, middleware.CurrentUserID(c), c.Param("itemId")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed from cart"})
}

// DELETE /v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.cart.Clear(ctx, middleware.CurrentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
