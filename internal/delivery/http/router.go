package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/metrics"
)

const maxMultipartMemory = 8 << 20

// NewRouter builds the gin engine. m may be nil, which disables /metrics.
func NewRouter(h *Handler, m *metrics.ServerMetrics) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery(), requestLogger(), enableCORS())
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	{
		accounts := api.Group("/accounts")
		{
			accounts.POST("/register", h.register)
			accounts.POST("/login", h.login)
			accounts.POST("/logout", h.requireSession(), h.logout)
			accounts.GET("/me", h.requireSession(), h.dashboard)
			accounts.PUT("/me", h.requireSession(), h.updateProfile)
		}

		listings := api.Group("/listings")
		{
			listings.GET("", h.searchListings)
			listings.GET("/:slug", h.getListing)
			listings.POST("", h.requireSession(), h.createListing)
			listings.PUT("/:id", h.requireSession(), h.updateListing)
			listings.DELETE("/:id", h.requireSession(), h.deleteListing)
		}

		cart := api.Group("/cart", h.requireSession())
		{
			cart.GET("", h.getCart)
			cart.POST("/add", h.addToCart)
			cart.POST("/update", h.updateCart)
			cart.POST("/remove", h.removeFromCart)
		}

		api.POST("/checkout", h.requireSession(), h.placeOrder)

		orders := api.Group("/orders", h.requireSession())
		{
			orders.GET("", h.listOrders)
			orders.GET("/:id", h.getOrder)
		}
	}

	return router
}
