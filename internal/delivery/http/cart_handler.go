package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ListingID string `form:"product_id" json:"product_id"`
	Qty       *int   `form:"qty" json:"qty"`
}

type updateCartRequest struct {
	ItemID string `form:"item_id" json:"item_id"`
	Qty    int    `form:"qty" json:"qty"`
}

type removeFromCartRequest struct {
	ItemID string `form:"item_id" json:"item_id"`
}

// GET /api/cart
func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.carts.List(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// POST /api/cart/add
// qty defaults to 1. A merge over stock is clamped and reported.
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Enter a valid quantity.")
		return
	}
	if req.ListingID == "" {
		badRequest(c, "product_id is required.")
		return
	}
	qty := 1
	if req.Qty != nil {
		qty = *req.Qty
	}

	result, err := h.carts.Add(c.Request.Context(), accountID(c), req.ListingID, qty)
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Clamped {
		slog.Info("Cart quantity clamped to stock", "listing_id", req.ListingID, "qty", result.Entry.Qty)
	}
	c.JSON(http.StatusOK, result)
}

// POST /api/cart/update
func (h *Handler) updateCart(c *gin.Context) {
	var req updateCartRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "Enter a valid quantity.")
		return
	}
	if req.ItemID == "" {
		badRequest(c, "item_id is required.")
		return
	}

	entry, err := h.carts.Update(c.Request.Context(), accountID(c), req.ItemID, req.Qty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// POST /api/cart/remove
func (h *Handler) removeFromCart(c *gin.Context) {
	var req removeFromCartRequest
	if err := c.ShouldBind(&req); err != nil || req.ItemID == "" {
		badRequest(c, "item_id is required.")
		return
	}

	if err := h.carts.Remove(c.Request.Context(), accountID(c), req.ItemID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
