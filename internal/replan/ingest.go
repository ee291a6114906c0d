// Package replan implements the event ingest, proposal, apply, and
// rollback stages of the disruption-response pipeline.
package replan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/store"
	"planengine/internal/timegeo"
)

// outdoorKeywords is the heuristic set used to decide whether an item
// "looks outdoor" from its name, since itinerary items do not carry the
// POI's own tags.
var outdoorKeywords = []string{"outdoor", "park", "beach", "hiking", "walking", "tour", "market"}

const (
	weatherAffectRadiusKm = 5.0
	closureAffectRadiusKm = 0.5
)

// Pipeline wires the replan stages to the store and the provider
// capabilities they consume.
type Pipeline struct {
	store   store.Store
	routing providers.RoutingProvider
	catalog providers.POICatalog

	rollbackWindow  time.Duration
	maxProposalsCap int
}

// New builds a Pipeline. rollbackWindow is how long an applied replan
// stays reversible (config.PlanConfig's RollbackWindow; <= 0 falls back
// to defaultRollbackWindow). maxProposalsCap optionally tightens how
// many proposals a single Propose call may return below the spec.md §3
// hard ceiling of 3 per trigger (config.PlanConfig's ReplanBatchSize;
// <= 0 disables the extra clamp).
func New(st store.Store, routing providers.RoutingProvider, catalog providers.POICatalog, rollbackWindow time.Duration, maxProposalsCap int) *Pipeline {
	if rollbackWindow <= 0 {
		rollbackWindow = defaultRollbackWindow
	}
	if maxProposalsCap <= 0 {
		maxProposalsCap = defaultMaxProposals
	}
	return &Pipeline{store: st, routing: routing, catalog: catalog, rollbackWindow: rollbackWindow, maxProposalsCap: maxProposalsCap}
}

// IngestInput carries the raw event fields passed to Ingest.
type IngestInput struct {
	TripID   uuid.UUID
	Type     models.EventType
	Severity models.Severity
	Location models.Location
	TimeSlot models.TimeSlot
	Details  models.EventDetails
}

// Ingest computes affected items, persists the EventSignal, and — when
// the event meets the trigger thresholds — emits a ReplanTrigger.
func (p *Pipeline) Ingest(ctx context.Context, in IngestInput) (*models.EventSignal, *models.ReplanTrigger, error) {
	prefs, err := p.store.GetTripPreferences(ctx, in.TripID)
	if err != nil {
		return nil, nil, err
	}
	items, err := p.store.ListItems(ctx, in.TripID)
	if err != nil {
		return nil, nil, err
	}

	affected := p.computeAffectedItems(prefs, items, in)

	event := &models.EventSignal{
		TripID:   in.TripID,
		Type:     in.Type,
		Severity: in.Severity,
		Location: in.Location,
		TimeSlot: in.TimeSlot,
		Details:  in.Details,
	}
	for _, id := range affected {
		event.AffectedItems = append(event.AffectedItems, id)
	}
	if err := p.store.CreateEventSignal(ctx, event); err != nil {
		return nil, nil, err
	}

	trigger, reason := p.triggerFor(in)
	if !trigger {
		if err := p.store.MarkEventProcessed(ctx, event.ID, false); err != nil {
			return event, nil, err
		}
		return event, nil, nil
	}

	rt := &models.ReplanTrigger{
		TripID:        in.TripID,
		EventSignalID: event.ID,
		Reason:        reason,
		Priority:      in.Severity,
	}
	if err := p.store.CreateReplanTrigger(ctx, rt); err != nil {
		return event, nil, err
	}
	if err := p.store.MarkEventProcessed(ctx, event.ID, true); err != nil {
		return event, rt, err
	}
	return event, rt, nil
}

func (p *Pipeline) triggerFor(in IngestInput) (bool, string) {
	if in.Type == models.EventWeather && in.Severity == models.SeverityHigh &&
		in.Details.Weather != nil && in.Details.Weather.Condition == models.ConditionHeavyRain {
		return true, "heavy rain forecast overlaps outdoor itinerary items"
	}
	if in.Type == models.EventClosure && (in.Severity == models.SeverityMedium || in.Severity == models.SeverityHigh) {
		return true, "a scheduled item's location has been reported closed"
	}
	return false, ""
}

func (p *Pipeline) computeAffectedItems(prefs *models.TripPreferences, items []models.ItineraryItem, in IngestInput) []uuid.UUID {
	eventDate := in.TimeSlot.Start.Format("2006-01-02")
	eventStart := timegeo.TimeOfDay(in.TimeSlot.Start.Format("15:04"))
	eventEnd := timegeo.TimeOfDay(in.TimeSlot.End.Format("15:04"))

	var affected []uuid.UUID
	for _, item := range items {
		date, err := timegeo.AddDays(prefs.StartDate, item.Day-1)
		if err != nil || date != eventDate {
			continue
		}
		if item.Location == nil {
			continue
		}
		if !overlaps(timegeo.TimeOfDay(item.StartTime), timegeo.TimeOfDay(item.EndTime), eventStart, eventEnd) {
			continue
		}

		distanceKm := timegeo.HaversineKm(item.Location.Lat, item.Location.Lng, in.Location.Lat, in.Location.Lng)
		switch in.Type {
		case models.EventWeather:
			if distanceKm <= weatherAffectRadiusKm && looksOutdoor(item.Name) {
				affected = append(affected, item.ID)
			}
		case models.EventClosure:
			if distanceKm <= closureAffectRadiusKm {
				affected = append(affected, item.ID)
			}
		}
	}
	return affected
}

func overlaps(aStart, aEnd, bStart, bEnd timegeo.TimeOfDay) bool {
	return timegeo.Before(aStart, bEnd) && timegeo.Before(bStart, aEnd)
}

func looksOutdoor(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range outdoorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
