package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/replan"
)

// IngestEventRequest is the ingest payload for a disruption signal.
type IngestEventRequest struct {
	Type     models.EventType    `json:"type" binding:"required"`
	Severity models.Severity     `json:"severity" binding:"required"`
	Location models.Location     `json:"location"`
	Start    time.Time           `json:"start" binding:"required"`
	End      time.Time           `json:"end" binding:"required"`
	Details  models.EventDetails `json:"details"`
}

// IngestEvent ingests a disruption signal, persists its EventSignal, and
// — if it meets the trigger thresholds — emits a ReplanTrigger. Both are
// published to the event bus after the pipeline has durably committed
// them, so the out-of-scope notification-delivery collaborator has
// something to consume.
func (s *Server) IngestEvent(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	var req IngestEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	event, trigger, err := s.Replan.Ingest(ctx, replan.IngestInput{
		TripID:   tripID,
		Type:     req.Type,
		Severity: req.Severity,
		Location: req.Location,
		TimeSlot: models.TimeSlot{Start: req.Start, End: req.End},
		Details:  req.Details,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if s.Events != nil {
		if pubErr := s.Events.PublishEventSignal(ctx, *event); pubErr != nil {
			c.Set("publish_warning", pubErr.Error())
		}
		if trigger != nil {
			_ = s.Events.PublishReplanTrigger(ctx, *trigger)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"event": event, "trigger": trigger})
}
