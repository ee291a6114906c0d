package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
)

// CreateTripRequest is the request payload for creating a trip and its
// 1:1 preferences record in one call.
type CreateTripRequest struct {
	OwnerKind        models.OwnerKind   `json:"owner_kind" binding:"required"`
	OwnerID          string             `json:"owner_id" binding:"required"`
	Destination      string             `json:"destination" binding:"required"`
	StartDate        string             `json:"start_date" binding:"required"`
	EndDate          string             `json:"end_date" binding:"required"`
	Travelers        models.Travelers   `json:"travelers"`
	Budget           models.Budget      `json:"budget"`
	Style            string             `json:"style"`
	DailyWindowStart string             `json:"daily_window_start" binding:"required"`
	DailyWindowEnd   string             `json:"daily_window_end" binding:"required"`
	Constraints      models.Constraints `json:"constraints"`
}

// CreateTrip creates a draft trip and its preferences record.
func (s *Server) CreateTrip(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	if req.Travelers.Adults < 1 {
		writeError(c, apperr.Validation("travelers.adults must be at least 1"))
		return
	}

	trip := &models.Trip{
		ID:        uuid.New(),
		OwnerKind: req.OwnerKind,
		OwnerID:   req.OwnerID,
		Status:    models.TripDraft,
		ShareCode: uuid.NewString()[:8],
	}
	if err := s.Store.CreateTrip(c.Request.Context(), trip); err != nil {
		writeError(c, err)
		return
	}

	prefs := &models.TripPreferences{
		TripID:           trip.ID,
		Destination:      req.Destination,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Travelers:        req.Travelers,
		Budget:           req.Budget,
		Style:            req.Style,
		DailyWindowStart: req.DailyWindowStart,
		DailyWindowEnd:   req.DailyWindowEnd,
		Constraints:      req.Constraints,
	}
	if err := s.Store.CreateTripPreferences(c.Request.Context(), prefs); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"trip": trip, "preferences": prefs})
}

// GetTrip returns a trip and its preferences.
func (s *Server) GetTrip(c *gin.Context) {
	id, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	trip, err := s.Store.GetTrip(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	prefs, err := s.Store.GetTripPreferences(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": trip, "preferences": prefs})
}
