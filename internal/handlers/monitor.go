package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
)

// StartMonitoring starts a background disruption-signal check loop for
// the trip (SPEC_FULL.md "Supplemented Features": grounded on the
// teacher's MonitorTrip/StopMonitoring).
func (s *Server) StartMonitoring(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	s.Monitor.Start(tripID)
	c.Status(http.StatusNoContent)
}

// StopMonitoring cancels the background check loop for the trip, if any.
func (s *Server) StopMonitoring(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	s.Monitor.Stop(tripID)
	c.Status(http.StatusNoContent)
}
