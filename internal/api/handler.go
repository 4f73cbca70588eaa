package api

import (
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	auth     *service.AuthService
	products *service.ProductService
	cart     *service.CartService
	orders   *service.OrderService
	env      string
	tokenTTL time.Duration
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	products *service.ProductService,
	cart *service.CartService,
	orders *service.OrderService,
	env string,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		auth:     auth,
		products: products,
		cart:     cart,
		orders:   orders,
		env:      env,
		tokenTTL: tokenTTL,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.requireAuth(), h.logout)
	}

	products := api.Group("/products")
	{
		products.GET("/", h.listProducts)
		products.GET("/:id", h.getProduct)

		admin := products.Group("", h.requireAuth(), h.requireAdmin())
		{
			admin.POST("/", h.createProduct)
			admin.PUT("/:id", h.updateProduct)
			admin.DELETE("/:id", h.deleteProduct)
		}
	}

	cart := api.Group("/cart", h.requireAuth())
	{
		cart.GET("/", h.getCart)
		cart.POST("/add", h.addToCart)
		cart.PUT("/update/:cartItemId", h.updateCartItem)
		cart.DELETE("/remove/:cartItemId", h.removeCartItem)
		cart.DELETE("/clear", h.clearCart)
	}

	orders := api.Group("/orders", h.requireAuth())
	{
		orders.POST("/create", h.createOrder)
		orders.GET("/", h.listOrders)
		orders.GET("/:orderId", h.getOrder)
		orders.PATCH("/:orderId/cancel", h.cancelOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
