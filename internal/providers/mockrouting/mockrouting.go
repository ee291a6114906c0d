// Package mockrouting is a RoutingProvider backed by the pure Haversine
// calculation plus a fixed speed assumption, used where a real routing
// API is not configured.
package mockrouting

import (
	"context"
	"time"

	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/timegeo"
)

// walkingKmPerHour is the assumed walking speed used to derive a
// duration estimate from distance when no real routing provider is
// wired in.
const walkingKmPerHour = 4.5

// Provider computes routes from great-circle distance; it never calls
// out to the network.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) ComputeRoute(ctx context.Context, from, to models.Location, mode models.RouteMode, departureTime *time.Time) (providers.RouteResult, error) {
	distanceKm := timegeo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)

	speedKmh := walkingKmPerHour
	switch mode {
	case models.ModeTransit:
		speedKmh = 20
	case models.ModeTaxi, models.ModeDrive:
		speedKmh = 30
	}

	durationMinutes := int((distanceKm / speedKmh) * 60)
	if durationMinutes < 1 {
		durationMinutes = 1
	}

	return providers.RouteResult{
		DistanceKm:      distanceKm,
		DurationMinutes: durationMinutes,
	}, nil
}
