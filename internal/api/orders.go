package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type createOrderRequest struct {
	CartID        int64  `json:"cart_id" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// createOrder handles POST /api/orders/create
func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "cart_id and paymentMethod are required")
		return
	}

	detail, err := h.orders.PlaceOrder(c.Request.Context(), userID(c), req.CartID, req.PaymentMethod)
	if err != nil {
		h.fail(c, err)
		return
	}

	ok(c, http.StatusCreated, "Order created successfully", gin.H{
		"order": gin.H{
			"id":            detail.Order.ID,
			"user_id":       detail.Order.UserID,
			"total":         detail.Order.Total,
			"status":        detail.Order.Status,
			"paymentMethod": detail.Order.PaymentMethod,
			"created_at":    detail.Order.CreatedAt,
			"itemCount":     detail.ItemCount,
			"items":         detail.Items,
		},
	})
}

// listOrders handles GET /api/orders/
func (h *Handler) listOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	status := c.Query("status")

	orders, pagination, err := h.orders.ListOrders(c.Request.Context(), userID(c), status, page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	ok(c, http.StatusOK, "", gin.H{
		"orders":     orders,
		"pagination": pagination,
	})
}

// getOrder handles GET /api/orders/:orderId
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid order ID")
		return
	}

	detail, err := h.orders.GetOrder(c.Request.Context(), userID(c), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"order": detail})
}

// cancelOrder handles PATCH /api/orders/:orderId/cancel
func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		badRequest(c, "Invalid order ID")
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), userID(c), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}

	ok(c, http.StatusOK, "Order cancelled successfully", gin.H{
		"order": gin.H{
			"id":        order.ID,
			"status":    order.Status,
			"updatedAt": order.UpdatedAt,
		},
	})
}
