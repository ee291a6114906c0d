package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
)

// ProposeRequest selects how many ranked proposals to generate.
type ProposeRequest struct {
	MaxProposals int `json:"max_proposals"`
}

// Propose generates up to MaxProposals (default 3) ranked candidate
// fixes for a trigger.
func (s *Server) Propose(c *gin.Context) {
	triggerID, err := uuid.Parse(c.Param("triggerId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trigger id"))
		return
	}
	var req ProposeRequest
	_ = c.ShouldBindJSON(&req)
	max := req.MaxProposals
	if max <= 0 {
		max = 3
	}
	proposals, err := s.Replan.Propose(c.Request.Context(), triggerID, max)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// ApplyRequest carries the caller-supplied idempotency key (spec.md §4.6;
// enforced here — see SPEC_FULL.md §9).
type ApplyRequest struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

// Apply atomically materializes a proposal's changes into the itinerary.
func (s *Server) Apply(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("proposalId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid proposal id"))
		return
	}
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}
	application, err := s.Replan.Apply(c.Request.Context(), proposalID, req.IdempotencyKey)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": application})
}

// Rollback restores the itinerary to the pre-apply snapshot, if the
// rollback window has not closed and the application hasn't already
// been rolled back.
func (s *Server) Rollback(c *gin.Context) {
	applicationID, err := uuid.Parse(c.Param("applicationId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid application id"))
		return
	}
	application, err := s.Replan.Rollback(c.Request.Context(), applicationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": application})
}

// ReplanHistory lists past ReplanApplications for a trip, newest first —
// grounded on the teacher's DynamicReplanningService.GetReplanHistory
// (see SPEC_FULL.md "Supplemented Features").
func (s *Server) ReplanHistory(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	history, err := s.Store.ListReplanHistory(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	c.JSON(http.StatusOK, gin.H{"applications": history})
}
