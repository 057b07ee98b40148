package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type ProductHandler struct {
	catalog *usecase.Catalog
}

func NewProductHandler(catalog *usecase.Catalog) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productResp struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"priceCents"`
	Stock      int64  `json:"stockQuantity"`
	Version    int64  `json:"version"`
}

func toProductResp(p *domain.Product) productResp {
	return productResp{
		ID:         p.ID,
		Name:       p.Name,
		Category:   p.Category,
		PriceCents: p.PriceCents,
		Stock:      p.Stock,
		Version:    p.Version,
	}
}

// GET /v1/products?category=&sortBy=&sortOrder=&page=&limit=
func (h *ProductHandler) List(c *gin.Context) {
	f := usecase.ProductFilter{
		Category:  c.Query("category"),
		SortBy:    c.DefaultQuery("sortBy", "name"),
		SortOrder: c.DefaultQuery("sortOrder", "asc"),
		Page:      intQuery(c, "page", 1),
		Limit:     intQuery(c, "limit", 10),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	page, err := h.catalog.List(ctx, f)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]productResp, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toProductResp(&page.Items[i]))
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

// GET /v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.catalog.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toProductResp(p)})
}

type productReq struct {
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category" binding:"required"`
	PriceCents int64  `json:"priceCents" binding:"required,gt=0"`
	Stock      int64  `json:"stockQuantity" binding:"gte=0"`
}

// POST /v1/products (admin)
func (h *ProductHandler) Create(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.catalog.Create(ctx, &domain.Product{
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": toProductResp(p)})
}

// PUT /v1/products/:id (admin)
func (h *ProductHandler) Update(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.catalog.Update(ctx, &domain.Product{
		ID:         c.Param("id"),
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      req.Stock,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toProductResp(p)})
}

// DELETE /v1/products/:id (admin)
func (h *ProductHandler) Delete(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.catalog.Delete(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
