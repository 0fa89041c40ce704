package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"ticketboss/internal/database"
	apperrors "ticketboss/internal/errors"
	"ticketboss/internal/logger"
	"ticketboss/internal/models"
	"ticketboss/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	msgMissingFields    = "Missing partnerId or seats"
	msgInvalidBody      = "Invalid request body"
	msgNotEnoughSeats   = "Not enough seats left"
	msgNotFound         = "Reservation not found or already cancelled"
	msgInternal         = "Internal Server Error"
	msgServiceUnhealthy = "Service unavailable"
)

// HealthChecker reports database health for /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.HealthCheck
}

type Handlers struct {
	services *service.Services
	health   HealthChecker
}

func NewHandlers(services *service.Services, health HealthChecker) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
	}
}

// Welcome - GET /
// Приветствие и подсказка по API
func (h *Handlers) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":       "Welcome to TicketBoss API",
		"documentation": "See POST/GET /reservations",
	})
}

// Reservations handlers

// Reserve - POST /reservations
// Забронировать места на событие
func (h *Handlers) Reserve(c *gin.Context) {
	var req models.ReserveSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) || errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgMissingFields})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return
	}

	response, err := h.services.Reservations.Reserve(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, apperrors.ErrConflict):
			c.JSON(http.StatusConflict, models.ErrorResponse{Error: msgNotEnoughSeats})
		default:
			logger.WithContext(c.Request.Context()).Error("Failed to reserve seats", "error", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgInternal})
		}
		return
	}

	c.JSON(http.StatusCreated, response)
}

// CancelReservation - DELETE /reservations/:reservationId
// Отменить бронирование и вернуть места
func (h *Handlers) CancelReservation(c *gin.Context) {
	reservationID := c.Param("reservationId")

	err := h.services.Reservations.Cancel(c.Request.Context(), reservationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgNotFound})
			return
		}
		logger.WithContext(c.Request.Context()).Error("Failed to cancel reservation",
			"reservation_id", reservationID, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgInternal})
		return
	}

	c.Status(http.StatusNoContent)
}

// Summary - GET /reservations
// Получить сводку по событию
func (h *Handlers) Summary(c *gin.Context) {
	summary, err := h.services.Reservations.Summary(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to get summary", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: msgInternal})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "ticketboss-api"})
		return
	}

	check := h.health.HealthCheck(c.Request.Context())
	if !check.Healthy() {
		slog.Warn("Health check failed", "error", check.Error)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"service":  "ticketboss-api",
			"error":    msgServiceUnhealthy,
			"database": check,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"service":  "ticketboss-api",
		"database": check,
	})
}
