// Package routes wires the HTTP surface's route groups to their
// handlers, in the teacher's gin route-group style.
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"planengine/internal/handlers"
)

// Setup registers every route group against the given engine.
func Setup(router *gin.Engine, h *handlers.Server) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "planengine"})
	})

	v1 := router.Group("/api/v1")

	trips := v1.Group("/trips")
	{
		trips.POST("", h.CreateTrip)
		trips.GET("/:tripId", h.GetTrip)

		trips.POST("/:tripId/itinerary/generate", h.Generate)
		trips.GET("/:tripId/itinerary", h.GetItinerary)
		trips.GET("/:tripId/itinerary/validate", h.Validate)
		trips.GET("/:tripId/itinerary/versions", h.ListVersions)

		trips.PUT("/:tripId/days/:day/reorder", h.Reorder)
		trips.POST("/:tripId/days/:day/items", h.AddItem)
		trips.PATCH("/:tripId/items/:itemId/pin", h.TogglePin)
		trips.PATCH("/:tripId/items/:itemId/start-time", h.SetStartTime)
		trips.DELETE("/:tripId/items/:itemId", h.RemoveItem)

		trips.POST("/:tripId/bookings", h.CreateBooking)
		trips.POST("/:tripId/events", h.IngestEvent)
		trips.GET("/:tripId/replan/history", h.ReplanHistory)
		trips.POST("/:tripId/monitoring/start", h.StartMonitoring)
		trips.POST("/:tripId/monitoring/stop", h.StopMonitoring)
	}

	bookings := v1.Group("/bookings")
	{
		bookings.GET("/:bookingId", h.GetBooking)
		bookings.POST("/:bookingId/retry", h.RetryBooking)
		bookings.POST("/:bookingId/cancel", h.CancelBooking)
		bookings.GET("/:bookingId/alternatives", h.Alternatives)
	}

	v1.POST("/webhooks/:providerId", h.Webhook)

	replanGroup := v1.Group("/replan")
	{
		replanGroup.POST("/triggers/:triggerId/propose", h.Propose)
		replanGroup.POST("/proposals/:proposalId/apply", h.Apply)
		replanGroup.POST("/applications/:applicationId/rollback", h.Rollback)
	}
}
