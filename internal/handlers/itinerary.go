package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/generator"
	"planengine/internal/models"
)

// GenerateRequest selects the POIs to distribute across days and
// whether to preserve pinned items from a prior itinerary.
type GenerateRequest struct {
	POIIDs         []string `json:"poi_ids" binding:"required"`
	PreservePinned bool     `json:"preserve_pinned"`
	Incremental    bool     `json:"incremental"`
}

// Generate produces a fresh itinerary for the trip from the selected POIs.
func (s *Server) Generate(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	pois := make([]models.POI, 0, len(req.POIIDs))
	for _, id := range req.POIIDs {
		poi, err := s.Catalog.Get(ctx, id)
		if err != nil {
			writeError(c, apperr.NotFoundf("poi %q not found in catalog", id))
			return
		}
		pois = append(pois, poi)
	}
	if len(pois) == 0 {
		writeError(c, apperr.Validation("at least one resolvable poi is required"))
		return
	}

	mode := generator.ModeFull
	if req.Incremental {
		mode = generator.ModeIncremental
	}

	items, err := s.Gen.Generate(ctx, tripID, pois, req.PreservePinned, mode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItinerary lists the trip's current items ordered by (day, order).
func (s *Server) GetItinerary(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	items, err := s.Store.ListItems(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListVersions returns every snapshot recorded for the trip, oldest first.
func (s *Server) ListVersions(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	versions, err := s.Store.ListVersions(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// Validate runs the editor's validator over the trip's current itinerary.
func (s *Server) Validate(c *gin.Context) {
	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		writeError(c, apperr.Validation("invalid trip id"))
		return
	}
	result, err := s.Editor.Validate(c.Request.Context(), tripID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
