package replan

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"planengine/internal/editor"
	"planengine/internal/models"
	"planengine/internal/timegeo"
)

// reflowDay repacks one day's items back-to-back after a replan mutation,
// the same re-flow policy the itinerary editor applies: pinned items
// anchor their own start time and everything else is packed immediately
// after the running cursor.
func (p *Pipeline) reflowDay(ctx context.Context, tripID uuid.UUID, day int) error {
	items, err := p.store.ListItems(ctx, tripID)
	if err != nil {
		return err
	}
	var dayItems []models.ItineraryItem
	for _, item := range items {
		if item.Day == day {
			dayItems = append(dayItems, item)
		}
	}
	sort.Slice(dayItems, func(i, j int) bool { return dayItems[i].Order < dayItems[j].Order })

	prefs, err := p.store.GetTripPreferences(ctx, tripID)
	if err != nil {
		return err
	}
	cursor := timegeo.TimeOfDay(prefs.DailyWindowStart)

	for i := range dayItems {
		item := &dayItems[i]
		start := cursor
		if item.IsPinned && item.StartTime != string(cursor) {
			start = timegeo.TimeOfDay(item.StartTime)
		}
		end, err := timegeo.AddMinutes(start, item.DurationMinutes)
		if err != nil {
			return err
		}
		if timegeo.Before(cursor, end) {
			cursor = end
		}
		if string(start) == item.StartTime && string(end) == item.EndTime {
			continue
		}
		item.StartTime = string(start)
		item.EndTime = string(end)
		if err := p.store.UpdateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func addMinutesClamped(start string, minutes int) (string, error) {
	end, err := timegeo.AddMinutes(timegeo.TimeOfDay(start), minutes)
	if err != nil {
		return "", err
	}
	return string(end), nil
}

func groupByDay(items []models.ItineraryItem) []models.DaySnapshot {
	byDay := map[int][]models.ItineraryItem{}
	var days []int
	for _, item := range items {
		if _, ok := byDay[item.Day]; !ok {
			days = append(days, item.Day)
		}
		byDay[item.Day] = append(byDay[item.Day], item)
	}
	sort.Ints(days)
	var out []models.DaySnapshot
	for _, d := range days {
		out = append(out, models.DaySnapshot{Day: d, Items: byDay[d]})
	}
	return out
}

// validatePostApply runs the itinerary validator after a commit and logs
// any issues found. Issues are advisory only: the replan is never
// reverted because of them.
func (p *Pipeline) validatePostApply(ctx context.Context, tripID uuid.UUID) {
	result, err := editor.New(p.store, p.catalog, 0).Validate(ctx, tripID)
	if err != nil {
		log.Warn().Err(err).Str("trip_id", tripID.String()).Msg("post-replan validation failed to run")
		return
	}
	if !result.Valid {
		for _, issue := range result.Issues {
			log.Warn().Str("trip_id", tripID.String()).Str("issue_type", string(issue.Type)).Msg(issue.Message)
		}
	}
}
