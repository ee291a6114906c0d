// Package generator builds a fresh itinerary for a trip from its
// preferences and a selected POI list, round-robining POIs across days
// and packing each day against opening hours and the daily time window.
package generator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/store"
	"planengine/internal/timegeo"
)

// defaultTravelBufferMinutes is the fixed buffer added after estimated
// travel time (and, for a day's first item, on its own) before the next
// item starts. Used when New is called with bufferMinutes <= 0.
const defaultTravelBufferMinutes = 15

// placeholderTravelMinutes is used when no routing provider is wired, or
// the provider call fails; only the great-circle distance is real.
const placeholderTravelMinutes = 20

// defaultMaxItinerarySlots caps the number of POIs a single Generate
// call will place when New is called with maxItinerarySlots <= 0.
const defaultMaxItinerarySlots = 200

// Generator produces itinerary days and persists them as a new version.
type Generator struct {
	store         store.Store
	routing       providers.RoutingProvider
	bufferMinutes int
	maxSlots      int
}

// New builds a Generator. bufferMinutes is the leading/travel buffer
// (config.PlanConfig's ItemBufferMinutes); maxItinerarySlots caps the
// number of POIs placed per Generate call (config.PlanConfig's
// MaxItinerarySlots). Either <= 0 falls back to its default.
func New(st store.Store, routing providers.RoutingProvider, bufferMinutes, maxItinerarySlots int) *Generator {
	if bufferMinutes <= 0 {
		bufferMinutes = defaultTravelBufferMinutes
	}
	if maxItinerarySlots <= 0 {
		maxItinerarySlots = defaultMaxItinerarySlots
	}
	return &Generator{store: st, routing: routing, bufferMinutes: bufferMinutes, maxSlots: maxItinerarySlots}
}

// RegenerateMode selects the change_type recorded for the resulting
// version snapshot.
type RegenerateMode string

const (
	ModeFull        RegenerateMode = "full"
	ModeIncremental RegenerateMode = "incremental"
)

// Generate produces a fresh set of itinerary items for tripID from pois,
// preserving pinned items from the prior itinerary when preservePinned is
// set, and persists the result as a new ItineraryVersion.
func (g *Generator) Generate(ctx context.Context, tripID uuid.UUID, pois []models.POI, preservePinned bool, mode RegenerateMode) ([]models.ItineraryItem, error) {
	trip, err := g.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	prefs, err := g.store.GetTripPreferences(ctx, tripID)
	if err != nil {
		return nil, err
	}

	numDays, err := timegeo.DaysBetween(prefs.StartDate, prefs.EndDate)
	if err != nil {
		return nil, err
	}

	pinnedByDay := map[int][]models.ItineraryItem{}
	if preservePinned {
		existing, err := g.store.ListItems(ctx, tripID)
		if err != nil {
			return nil, err
		}
		for _, item := range existing {
			if item.IsPinned {
				pinnedByDay[item.Day] = append(pinnedByDay[item.Day], item)
			}
		}
	}

	if len(pois) == 0 && len(pinnedByDay) == 0 {
		return nil, apperr.Validation("no resolvable POIs for itinerary generation")
	}

	if len(pois) > g.maxSlots {
		log.Warn().Int("requested", len(pois)).Int("max_itinerary_slots", g.maxSlots).
			Msg("truncating POI selection to the configured itinerary slot budget")
		pois = pois[:g.maxSlots]
	}

	buckets := make([][]models.POI, numDays)
	for i, poi := range pois {
		d := i % numDays
		buckets[d] = append(buckets[d], poi)
	}

	var built []models.ItineraryItem
	for dayIdx := 0; dayIdx < numDays; dayIdx++ {
		day := dayIdx + 1
		date, err := timegeo.AddDays(prefs.StartDate, dayIdx)
		if err != nil {
			return nil, err
		}
		dow, err := timegeo.DayOfWeek(date)
		if err != nil {
			return nil, err
		}
		items, err := g.buildDay(ctx, trip.ID, day, dow, prefs.DailyWindowStart, prefs.DailyWindowEnd, pinnedByDay[day], buckets[dayIdx])
		if err != nil {
			return nil, err
		}
		built = append(built, items...)
	}

	changeType := models.ChangeGenerate
	if mode == ModeIncremental {
		changeType = models.ChangeEdit
	}

	var result []models.ItineraryItem
	err = g.store.Transact(ctx, tripID, func(ctx context.Context) error {
		if err := g.store.DeleteNonPinnedItems(ctx, tripID); err != nil {
			return err
		}
		nonPinned := make([]models.ItineraryItem, 0, len(built))
		for _, item := range built {
			if !item.IsPinned {
				nonPinned = append(nonPinned, item)
			}
		}
		if len(nonPinned) > 0 {
			if err := g.store.CreateItems(ctx, nonPinned); err != nil {
				return err
			}
		}

		all, err := g.store.ListItems(ctx, tripID)
		if err != nil {
			return err
		}
		result = all

		prior, err := g.store.LatestVersion(ctx, tripID)
		if err != nil {
			return err
		}
		version := &models.ItineraryVersion{
			TripID:     tripID,
			Version:    prior + 1,
			ChangeType: changeType,
			Snapshot:   snapshotByDay(all),
		}
		if err := g.store.CreateVersion(ctx, version); err != nil {
			return err
		}
		return g.store.SetCurrentVersion(ctx, tripID, prior+1, time.Now())
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildDay places pinned items first, then round-robin POIs, advancing a
// cursor and rejecting placements that would fall outside opening hours
// or the daily window.
func (g *Generator) buildDay(ctx context.Context, tripID uuid.UUID, day int, dow, windowStart, windowEnd string, pinned []models.ItineraryItem, pois []models.POI) ([]models.ItineraryItem, error) {
	cursor := timegeo.TimeOfDay(windowStart)
	var placed []models.ItineraryItem
	order := 0

	for _, p := range pinned {
		placed = append(placed, p)
		order++
		if timegeo.Before(cursor, timegeo.TimeOfDay(p.EndTime)) {
			cursor = timegeo.TimeOfDay(p.EndTime)
		}
	}

	for _, poi := range pois {
		hours, hasHours := poi.Hours[dow]
		if hasHours && hours.Closed {
			log.Warn().Str("poi", poi.Name).Str("day_of_week", dow).Msg("poi closed on this day, skipping")
			continue
		}

		openTime := cursor
		closeTime := timegeo.TimeOfDay("")
		if hasHours && hours.Open != "" {
			if timegeo.Before(cursor, timegeo.TimeOfDay(hours.Open)) {
				openTime = timegeo.TimeOfDay(hours.Open)
			}
		}
		if hasHours {
			closeTime = timegeo.TimeOfDay(hours.Close)
		}

		candidateStart := openTime
		var routeSeg *models.RouteSegment
		if len(placed) > 0 {
			prev := placed[len(placed)-1]
			if prev.Location != nil {
				distanceKm, travelMinutes := g.estimateTravel(ctx, *prev.Location, poi.Location)
				var err error
				candidateStart, err = timegeo.AddMinutes(candidateStart, travelMinutes+g.bufferMinutes)
				if err != nil {
					continue
				}
				routeSeg = &models.RouteSegment{
					FromItemID:      &prev.ID,
					Mode:            models.ModeWalking,
					DistanceKm:      distanceKm,
					DurationMinutes: travelMinutes,
				}
			}
		} else {
			var err error
			candidateStart, err = timegeo.AddMinutes(candidateStart, g.bufferMinutes)
			if err != nil {
				continue
			}
		}

		candidateEnd, err := timegeo.AddMinutes(candidateStart, poi.AvgDurationMinutes)
		if err != nil {
			continue
		}
		if closeTime != "" && timegeo.Before(closeTime, candidateEnd) {
			continue
		}
		if timegeo.Before(timegeo.TimeOfDay(windowEnd), candidateEnd) {
			continue
		}

		poiID := poi.ID
		loc := poi.Location
		item := models.ItineraryItem{
			TripID:          tripID,
			Day:             day,
			Type:            models.ItemPOI,
			POIID:           &poiID,
			Name:            poi.Name,
			Location:        &loc,
			StartTime:       string(candidateStart),
			EndTime:         string(candidateEnd),
			DurationMinutes: poi.AvgDurationMinutes,
			IsPinned:        false,
			Order:           order,
			Notes:           "",
		}
		if routeSeg != nil {
			item.RouteFromPrevious = routeSeg
		}
		if poi.PriceRangeLowCents != nil && poi.PriceRangeHighCents != nil {
			mid := (*poi.PriceRangeLowCents + *poi.PriceRangeHighCents) / 2
			item.CostEstimate = &models.CostEstimate{
				Money:      models.Money{AmountCents: mid},
				Confidence: models.CostEstimated,
			}
		}
		placed = append(placed, item)
		order++
		cursor = candidateEnd
	}

	return placed, nil
}

func (g *Generator) estimateTravel(ctx context.Context, from, to models.Location) (distanceKm float64, durationMinutes int) {
	if g.routing != nil {
		route, err := g.routing.ComputeRoute(ctx, from, to, models.ModeWalking, nil)
		if err == nil {
			return route.DistanceKm, route.DurationMinutes
		}
		log.Warn().Err(err).Msg("routing provider failed, falling back to placeholder travel estimate")
	}
	return timegeo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng), placeholderTravelMinutes
}

func snapshotByDay(items []models.ItineraryItem) []models.DaySnapshot {
	byDay := map[int][]models.ItineraryItem{}
	var days []int
	for _, item := range items {
		if _, ok := byDay[item.Day]; !ok {
			days = append(days, item.Day)
		}
		byDay[item.Day] = append(byDay[item.Day], item)
	}
	for i := 1; i < len(days); i++ {
		for j := i; j > 0 && days[j-1] > days[j]; j-- {
			days[j-1], days[j] = days[j], days[j-1]
		}
	}
	snapshots := make([]models.DaySnapshot, 0, len(days))
	for _, d := range days {
		snapshots = append(snapshots, models.DaySnapshot{Day: d, Items: byDay[d]})
	}
	return snapshots
}
