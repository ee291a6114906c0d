// Package editor implements the itinerary mutation operations (reorder,
// pin toggling, time edits, add/remove) and the validator that checks an
// itinerary against opening hours, the daily window, walking distance,
// and budget.
package editor

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/store"
	"planengine/internal/timegeo"
)

// defaultAddBufferMinutes is used when New is called with bufferMinutes
// <= 0.
const defaultAddBufferMinutes = 15

// Editor mutates a trip's itinerary items and re-flows affected days.
// catalog is optional; when nil, opening-hours validation is skipped.
type Editor struct {
	store         store.Store
	catalog       providers.POICatalog
	bufferMinutes int
}

// New builds an Editor. bufferMinutes is the gap inserted between an
// appended item and the end of the preceding one (config.PlanConfig's
// ItemBufferMinutes); <= 0 falls back to defaultAddBufferMinutes.
func New(st store.Store, catalog providers.POICatalog, bufferMinutes int) *Editor {
	if bufferMinutes <= 0 {
		bufferMinutes = defaultAddBufferMinutes
	}
	return &Editor{store: st, catalog: catalog, bufferMinutes: bufferMinutes}
}

// Reorder sets each item's order to its position in orderedIDs, which
// must be a permutation of the day's current item ids, then re-flows the
// day's times.
func (e *Editor) Reorder(ctx context.Context, tripID uuid.UUID, day int, orderedIDs []uuid.UUID) error {
	return e.store.Transact(ctx, tripID, func(ctx context.Context) error {
		dayItems, err := e.dayItems(ctx, tripID, day)
		if err != nil {
			return err
		}
		if len(dayItems) != len(orderedIDs) {
			return apperr.Validation("ordered ids must be a permutation of the day's items")
		}
		byID := make(map[uuid.UUID]models.ItineraryItem, len(dayItems))
		for _, item := range dayItems {
			byID[item.ID] = item
		}
		for _, id := range orderedIDs {
			if _, ok := byID[id]; !ok {
				return apperr.Validation("ordered ids must be a permutation of the day's items")
			}
		}
		for pos, id := range orderedIDs {
			item := byID[id]
			item.Order = pos
			if err := e.store.UpdateItem(ctx, &item); err != nil {
				return err
			}
		}
		if err := e.reflowDay(ctx, tripID, day); err != nil {
			return err
		}
		return e.snapshot(ctx, tripID, "reorder")
	})
}

// TogglePin sets is_pinned on an item.
func (e *Editor) TogglePin(ctx context.Context, tripID, itemID uuid.UUID, pinned bool) error {
	return e.store.Transact(ctx, tripID, func(ctx context.Context) error {
		item, err := e.store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.TripID != tripID {
			return apperr.NotFound("item not found")
		}
		item.IsPinned = pinned
		if err := e.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		return e.snapshot(ctx, tripID, "togglePin")
	})
}

// SetStartTime sets an item's start time (and recomputes its end time
// from its duration), then re-flows the item's day.
func (e *Editor) SetStartTime(ctx context.Context, tripID, itemID uuid.UUID, startTime string) error {
	return e.store.Transact(ctx, tripID, func(ctx context.Context) error {
		item, err := e.store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.TripID != tripID {
			return apperr.NotFound("item not found")
		}
		endTime, err := timegeo.AddMinutes(timegeo.TimeOfDay(startTime), item.DurationMinutes)
		if err != nil {
			return err
		}
		item.StartTime = startTime
		item.EndTime = string(endTime)
		if err := e.store.UpdateItem(ctx, item); err != nil {
			return err
		}
		if err := e.reflowDay(ctx, tripID, item.Day); err != nil {
			return err
		}
		return e.snapshot(ctx, tripID, "setStartTime")
	})
}

// Remove deletes an item and re-flows its day. A pinned item must be
// unpinned first.
func (e *Editor) Remove(ctx context.Context, tripID, itemID uuid.UUID) error {
	return e.store.Transact(ctx, tripID, func(ctx context.Context) error {
		item, err := e.store.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item.TripID != tripID {
			return apperr.NotFound("item not found")
		}
		if item.IsPinned {
			return apperr.Validation("unpin first")
		}
		day := item.Day
		if err := e.store.DeleteItems(ctx, []uuid.UUID{itemID}); err != nil {
			return err
		}
		if err := e.reflowDay(ctx, tripID, day); err != nil {
			return err
		}
		return e.snapshot(ctx, tripID, "remove")
	})
}

// Add appends a POI as a new item on the given day. When startTime is
// nil, it defaults to the last item's end plus the travel buffer, or the
// daily window start if the day is empty.
func (e *Editor) Add(ctx context.Context, tripID uuid.UUID, day int, poi models.POI, startTime *string) (*models.ItineraryItem, error) {
	var created *models.ItineraryItem
	err := e.store.Transact(ctx, tripID, func(ctx context.Context) error {
		prefs, err := e.store.GetTripPreferences(ctx, tripID)
		if err != nil {
			return err
		}
		dayItems, err := e.dayItems(ctx, tripID, day)
		if err != nil {
			return err
		}

		var start timegeo.TimeOfDay
		if startTime != nil {
			start = timegeo.TimeOfDay(*startTime)
		} else if len(dayItems) > 0 {
			last := dayItems[len(dayItems)-1]
			s, err := timegeo.AddMinutes(timegeo.TimeOfDay(last.EndTime), e.bufferMinutes)
			if err != nil {
				return err
			}
			start = s
		} else {
			start = timegeo.TimeOfDay(prefs.DailyWindowStart)
		}

		end, err := timegeo.AddMinutes(start, poi.AvgDurationMinutes)
		if err != nil {
			return err
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
			StartTime:       string(start),
			EndTime:         string(end),
			DurationMinutes: poi.AvgDurationMinutes,
			Order:           len(dayItems),
		}
		if err := e.store.CreateItems(ctx, []models.ItineraryItem{item}); err != nil {
			return err
		}
		created = &item
		if err := e.reflowDay(ctx, tripID, day); err != nil {
			return err
		}
		return e.snapshot(ctx, tripID, "add")
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Editor) dayItems(ctx context.Context, tripID uuid.UUID, day int) ([]models.ItineraryItem, error) {
	all, err := e.store.ListItems(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ItineraryItem, 0, len(all))
	for _, item := range all {
		if item.Day == day {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// reflowDay applies the re-flow policy: pinned items whose start time has
// drifted from the cursor keep their own times and advance the cursor;
// everything else is packed back-to-back from the cursor.
func (e *Editor) reflowDay(ctx context.Context, tripID uuid.UUID, day int) error {
	prefs, err := e.store.GetTripPreferences(ctx, tripID)
	if err != nil {
		return err
	}
	items, err := e.dayItems(ctx, tripID, day)
	if err != nil {
		return err
	}

	cursor := timegeo.TimeOfDay(prefs.DailyWindowStart)
	for i := range items {
		item := items[i]
		if item.IsPinned && item.StartTime != string(cursor) {
			if timegeo.Before(cursor, timegeo.TimeOfDay(item.EndTime)) {
				cursor = timegeo.TimeOfDay(item.EndTime)
			}
			continue
		}
		newEnd, err := timegeo.AddMinutes(cursor, item.DurationMinutes)
		if err != nil {
			return err
		}
		if item.StartTime == string(cursor) && item.EndTime == string(newEnd) {
			cursor = newEnd
			continue
		}
		item.StartTime = string(cursor)
		item.EndTime = string(newEnd)
		if err := e.store.UpdateItem(ctx, &item); err != nil {
			return err
		}
		cursor = newEnd
	}
	return nil
}

func (e *Editor) snapshot(ctx context.Context, tripID uuid.UUID, op string) error {
	all, err := e.store.ListItems(ctx, tripID)
	if err != nil {
		return err
	}
	prior, err := e.store.LatestVersion(ctx, tripID)
	if err != nil {
		return err
	}
	version := &models.ItineraryVersion{
		TripID:     tripID,
		Version:    prior + 1,
		ChangeType: models.ChangeEdit,
		ChangedBy:  op,
		Snapshot:   snapshotByDay(all),
	}
	if err := e.store.CreateVersion(ctx, version); err != nil {
		return err
	}
	return e.store.SetCurrentVersion(ctx, tripID, prior+1, time.Now())
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
	sort.Ints(days)
	snapshots := make([]models.DaySnapshot, 0, len(days))
	for _, d := range days {
		snapshots = append(snapshots, models.DaySnapshot{Day: d, Items: byDay[d]})
	}
	return snapshots
}
