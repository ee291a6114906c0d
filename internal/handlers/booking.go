package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/booking"
	"planengine/internal/models"
)

// CreateBookingRequest is the request payload for creating a booking.
// IdempotencyKey is required (spec.md §4.5).
type CreateBookingRequest struct {
	ItemID         *uuid.UUID         `json:"item_id,omitempty"`
	ProviderID     string             `json:"provider_id" binding:"required"`
	ProviderItemID string             `json:"provider_item_id" binding:"required"`
	Date           string             `json:"date" binding:"required"`
	TimeSlot       *string            `json:"time_slot,omitempty"`
	Travelers      models.Travelers   `json:"travelers"`
	ContactInfo    models.ContactInfo `json:"contact_info"`
	IdempotencyKey string             `json:"idempotency_key" binding:"required"`
}

// CreateBooking creates (or, on idempotency-key replay, returns) a booking.
func (s *Server) CreateBooking(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}

	b, err := s.Booking.Create(c.Request.Context(), booking.CreateRequest{
		TripID:         tripID,
		ItemID:         req.ItemID,
		ProviderID:     req.ProviderID,
		ProviderItemID: req.ProviderItemID,
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		Travelers:      req.Travelers,
		ContactInfo:    req.ContactInfo,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

// RetryBookingRequest carries the fresh provider-call inputs for a retry.
type RetryBookingRequest struct {
	ProviderItemID string           `json:"provider_item_id" binding:"required"`
	Date           string           `json:"date" binding:"required"`
	TimeSlot       *string          `json:"time_slot,omitempty"`
	Travelers      models.Travelers `json:"travelers"`
}

// RetryBooking retries a failed booking with a fresh idempotency key.
func (s *Server) RetryBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid booking id"))
		return
	}
	var req RetryBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	b, err := s.Booking.Retry(c.Request.Context(), bookingID, req.ProviderItemID, req.Date, req.TimeSlot, req.Travelers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// CancelBooking cancels a confirmed booking.
func (s *Server) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid booking id"))
		return
	}
	b, err := s.Booking.Cancel(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// GetBooking returns a single booking by id.
func (s *Server) GetBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid booking id"))
		return
	}
	b, err := s.Store.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// Alternatives returns up to three ranked alternatives for a failed booking.
func (s *Server) Alternatives(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("bookingId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid booking id"))
		return
	}
	alts, err := s.Booking.FindAlternatives(c.Request.Context(), bookingID, 3)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alternatives": alts})
}

// Webhook ingests a provider's raw webhook payload.
func (s *Server) Webhook(c *gin.Context) {
	providerID := c.Param("providerId")
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		writeError(c, apperr.Validation("could not read webhook body"))
		return
	}
	if err := s.Booking.HandleWebhook(c.Request.Context(), providerID, payload); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
