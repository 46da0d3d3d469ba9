package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apppurchasing "github.com/opsdash/purchasing/internal/application/purchasing"
)

// PurchaseOrderHandler serves the purchase order endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orderService *apppurchasing.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *apppurchasing.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{orderService: orderService}
}

// listQuery is the query string of GET /purchase-orders
type listQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at updated_at expected_date order_number status"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Status     string `form:"status"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
	Search     string `form:"search" binding:"max=100"`
}

// Create creates a draft order
// POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req apppurchasing.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), req, caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	setETag(c, order.Version)
	h.Created(c, order)
}

// List returns a page of orders
// GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter := apppurchasing.ListFilter{
		Page:     q.Page,
		PageSize: q.PageSize,
		OrderBy:  q.OrderBy,
		OrderDir: q.OrderDir,
		Status:   q.Status,
		Search:   q.Search,
	}
	if q.SupplierID != "" {
		id := uuid.MustParse(q.SupplierID)
		filter.SupplierID = &id
	}

	page, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetStatusSummary counts orders per status
// GET /purchase-orders/summary
func (h *PurchaseOrderHandler) GetStatusSummary(c *gin.Context) {
	summary, err := h.orderService.GetStatusSummary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetByID returns one order with items, totals and history
// GET /purchase-orders/:id
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	setETag(c, order.Version)
	h.Success(c, order)
}

// GetHistory returns the audit log of an order
// GET /purchase-orders/:id/history
func (h *PurchaseOrderHandler) GetHistory(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	history, err := h.orderService.GetHistory(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// AddItem adds a line to a draft order
// POST /purchase-orders/:id/items
func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apppurchasing.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	h.respond(c, func() (*apppurchasing.OrderView, error) {
		return h.orderService.AddItem(c.Request.Context(), orderID, req, caller)
	})
}

// UpdateItem edits a line of a draft order
// PUT /purchase-orders/:id/items/:itemId
func (h *PurchaseOrderHandler) UpdateItem(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "itemId")
	if !ok {
		return
	}
	var req apppurchasing.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	h.respond(c, func() (*apppurchasing.OrderView, error) {
		return h.orderService.UpdateItem(c.Request.Context(), orderID, itemID, req, caller)
	})
}

// RemoveItem deletes a line from a draft order
// DELETE /purchase-orders/:id/items/:itemId
func (h *PurchaseOrderHandler) RemoveItem(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.parseID(c, "itemId")
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	h.respond(c, func() (*apppurchasing.OrderView, error) {
		return h.orderService.RemoveItem(c.Request.Context(), orderID, itemID, caller)
	})
}

// Send sends a draft order to its supplier
// POST /purchase-orders/:id/send
func (h *PurchaseOrderHandler) Send(c *gin.Context) {
	h.transition(c, h.orderService.Send)
}

// Confirm records the supplier's confirmation
// POST /purchase-orders/:id/confirm
func (h *PurchaseOrderHandler) Confirm(c *gin.Context) {
	h.transition(c, h.orderService.Confirm)
}

// Cancel cancels an order. The body with a reason is optional.
// POST /purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apppurchasing.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.ValidationError(c, err)
			return
		}
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	h.respond(c, func() (*apppurchasing.OrderView, error) {
		return h.orderService.Cancel(c.Request.Context(), orderID, req, caller)
	})
}

// Receive records delivered quantities
// POST /purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req apppurchasing.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	receipt, err := h.orderService.Receive(c.Request.Context(), orderID, req, caller)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	setETag(c, receipt.Order.Version)
	h.Success(c, receipt)
}

func (h *PurchaseOrderHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, caller apppurchasing.Caller) (*apppurchasing.OrderView, error)) {
	orderID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	h.respond(c, func() (*apppurchasing.OrderView, error) {
		return fn(c.Request.Context(), orderID, caller)
	})
}

func (h *PurchaseOrderHandler) respond(c *gin.Context, fn func() (*apppurchasing.OrderView, error)) {
	order, err := fn()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	setETag(c, order.Version)
	h.Success(c, order)
}

// RegisterRoutes mounts the order endpoints under rg
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/summary", h.GetStatusSummary)
	orders.GET("/:id", h.GetByID)
	orders.GET("/:id/history", h.GetHistory)
	orders.POST("/:id/items", h.AddItem)
	orders.PUT("/:id/items/:itemId", h.UpdateItem)
	orders.DELETE("/:id/items/:itemId", h.RemoveItem)
	orders.POST("/:id/send", h.Send)
	orders.POST("/:id/confirm", h.Confirm)
	orders.POST("/:id/cancel", h.Cancel)
	orders.POST("/:id/receive", h.Receive)
}
