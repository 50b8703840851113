package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/presentation/http/dto/response"
)

// OrderHandler exposes kitchen order state on the loopback API
type OrderHandler struct {
	orders *service.OrderService
	sync   *service.SyncService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, sync *service.SyncService) *OrderHandler {
	return &OrderHandler{orders: orders, sync: sync}
}

// Open lists every locally known sale with open kitchen orders.
func (h *OrderHandler) Open(c *gin.Context) {
	sales, err := h.orders.OpenOrders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Open orders", sales)
}

// MarkReceived flags a sale's orders as received on this kitchen display.
func (h *OrderHandler) MarkReceived(c *gin.Context) {
	if err := h.orders.MarkReceived(c.Request.Context(), c.Param("ref")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Orders marked received", nil)
}

// Remove drops one kitchen order from a sale.
func (h *OrderHandler) Remove(c *gin.Context) {
	var req struct {
		OrderID int64 `json:"orderId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid order removal payload")
		return
	}

	if err := h.sync.RemoveOrder(c.Request.Context(), c.Param("ref"), req.OrderID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Order removed", nil)
}
