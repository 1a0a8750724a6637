package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
)

// POST /api/checkout
func (h *Handler) placeOrder(c *gin.Context) {
	order, err := h.checkout.Checkout(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order.View())
}

// GET /api/orders
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]entity.OrderView, len(orders))
	for i := range orders {
		views[i] = orders[i].View()
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// GET /api/orders/:id
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order.View())
}
