package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// getCart handles GET /api/cart/
func (h *Handler) getCart(c *gin.Context) {
	view, err := h.cart.GetCart(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"cart": view})
}

// addToCart handles POST /api/cart/add
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.cart.AddItem(c.Request.Context(), userID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Item added to cart successfully", gin.H{"cartItem": item})
}

// updateCartItem handles PUT /api/cart/update/:cartItemId
func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("cartItemId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid cart item ID")
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}

	item, err := h.cart.UpdateItem(c.Request.Context(), userID(c), itemID, req.Quantity)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Cart item updated successfully", gin.H{"cartItem": item})
}

// removeCartItem handles DELETE /api/cart/remove/:cartItemId
func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("cartItemId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid cart item ID")
		return
	}

	if err := h.cart.RemoveItem(c.Request.Context(), userID(c), itemID); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Item removed from cart successfully", nil)
}

// clearCart handles DELETE /api/cart/clear
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), userID(c)); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Cart cleared successfully", nil)
}
