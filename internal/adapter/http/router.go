package http

import (
	"github.com/aq2208/goshop-api/internal/adapter/http/middleware"
	"github.com/aq2208/goshop-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(ph *ProductHandler, ch *CartHandler, oh *OrderHandler, th *TokenHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Info("health check")
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	v1 := r.Group("/v1")
	{
		// catalog reads are public
		v1.GET("/products", ph.List)
		v1.GET("/products/:id", ph.Get)

		v1.POST("/products", authz.Require("products.write"), ph.Create)
		v1.PUT("/products/:id", authz.Require("products.write"), ph.Update)
		v1.DELETE("/products/:id", authz.Require("products.write"), ph.Delete)

		v1.GET("/cart", authz.Require("cart.write"), ch.Get)
		v1.POST("/cart/items", authz.Require("cart.write"), ch.AddItem)
		v1.PUT("/cart/items/:itemId", authz.Require("cart.write"), ch.UpdateItem)
		v1.DELETE("/cart/items/:itemId", authz.Require("cart.write"), ch.RemoveItem)
		v1.DELETE("/cart", authz.Require("cart.write"), ch.Clear)

		v1.POST("/orders", authz.Require("orders.write"), oh.Checkout)
		v1.GET("/orders", authz.Require("orders.read"), oh.ListMine)
		v1.GET("/orders/:id", authz.Require("orders.read"), oh.GetByID)

		v1.GET("/admin/orders", authz.Require("admin"), oh.ListAll)
		v1.PATCH("/admin/orders/:id/status", authz.Require("admin"), oh.UpdateStatus)
	}

	return r
}
