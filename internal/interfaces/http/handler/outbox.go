package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/opsdash/purchasing/internal/application/event"
)

// OutboxHandler exposes dead letter management of the event outbox
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// RetryAllResponse reports how many entries were requeued
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

// ListDead returns a page of dead letter entries
// GET /system/outbox/dead
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter event.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.ValidationError(c, err)
		return
	}

	page, err := h.outboxService.ListDead(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetEntry returns one outbox entry
// GET /system/outbox/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDead requeues a dead letter entry
// POST /system/outbox/:id/retry
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDead requeues every dead letter entry
// POST /system/outbox/dead/retry-all
func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	count, err := h.outboxService.RetryAllDead(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

// Stats counts outbox entries per status
// GET /system/outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.outboxService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// RegisterRoutes mounts the outbox endpoints under rg
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	outbox.GET("/stats", h.Stats)
	outbox.GET("/dead", h.ListDead)
	outbox.POST("/dead/retry-all", h.RetryAllDead)
	outbox.GET("/:id", h.GetEntry)
	outbox.POST("/:id/retry", h.RetryDead)
}
