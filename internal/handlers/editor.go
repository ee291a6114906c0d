package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
)

func parseTripAndDay(c *gin.Context) (uuid.UUID, int, error) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		return uuid.Nil, 0, apperr.Validation("invalid trip id")
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		return uuid.Nil, 0, apperr.Validation("invalid day")
	}
	return tripID, day, nil
}

// ReorderRequest carries the day's items in their new order.
type ReorderRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids" binding:"required"`
}

// Reorder sets each item's order to its position in the request.
func (s *Server) Reorder(c *gin.Context) {
	tripID, day, err := parseTripAndDay(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	if err := s.Editor.Reorder(c.Request.Context(), tripID, day, req.ItemIDs); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TogglePinRequest sets an item's pinned flag.
type TogglePinRequest struct {
	Pinned bool `json:"pinned"`
}

// TogglePin pins or unpins an item.
func (s *Server) TogglePin(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid item id"))
		return
	}
	var req TogglePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	if err := s.Editor.TogglePin(c.Request.Context(), tripID, itemID, req.Pinned); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStartTimeRequest sets an item's start time; the editor recomputes
// its end time and re-flows the day.
type SetStartTimeRequest struct {
	StartTime string `json:"start_time" binding:"required"`
}

// SetStartTime moves an item to a new start time within its day.
func (s *Server) SetStartTime(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid item id"))
		return
	}
	var req SetStartTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	if err := s.Editor.SetStartTime(c.Request.Context(), tripID, itemID, req.StartTime); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveItem deletes a non-pinned item and re-flows its day.
func (s *Server) RemoveItem(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid item id"))
		return
	}
	if err := s.Editor.Remove(c.Request.Context(), tripID, itemID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItemRequest appends a POI as a new item on the given day.
type AddItemRequest struct {
	PlaceID   string  `json:"poi_place_id" binding:"required"`
	StartTime *string `json:"start_time,omitempty"`
}

// AddItem appends a catalog POI as a new item on the given day.
func (s *Server) AddItem(c *gin.Context) {
	tripID, day, err := parseTripAndDay(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	poi, err := s.Catalog.Get(c.Request.Context(), req.PlaceID)
	if err != nil {
		writeError(c, apperr.NotFoundf("poi %q not found in catalog", req.PlaceID))
		return
	}
	item, err := s.Editor.Add(c.Request.Context(), tripID, day, poi, req.StartTime)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}
