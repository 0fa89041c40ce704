package handlers

import (
	"net/http"

	"ticketboss/internal/logger"
	"ticketboss/internal/models"

	"github.com/gin-gonic/gin"
)

// ResetEvent - POST /admin/reset
// Сбросить событие в начальное состояние
func (h *Handlers) ResetEvent(c *gin.Context) {
	cancelled, err := h.services.Reset.ResetEvent(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to reset event", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to reset event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":                "Event reset successfully",
		"cancelled_reservations": cancelled,
	})
}
