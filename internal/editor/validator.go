package editor

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"planengine/internal/models"
	"planengine/internal/timegeo"
)

// IssueType enumerates the kinds of problems the validator reports.
type IssueType string

const (
	IssueTimeConflict IssueType = "time_conflict"
	IssueOpeningHours IssueType = "opening_hours"
	IssueTimeWindow   IssueType = "time_window"
	IssueDistance     IssueType = "distance"
	IssueBudget       IssueType = "budget"
)

// IssueSeverity distinguishes issues that make an itinerary invalid from
// ones that are merely advisory.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding from Validate.
type Issue struct {
	Type       IssueType     `json:"type"`
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	ItemID     *uuid.UUID    `json:"item_id,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// Result is the outcome of Validate: valid iff no error-severity issue
// was found.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Validate checks every day of the trip's current itinerary against
// ordering, opening hours, the daily window, walking distance, and
// budget, and returns the combined list of issues.
func (e *Editor) Validate(ctx context.Context, tripID uuid.UUID) (Result, error) {
	prefs, err := e.store.GetTripPreferences(ctx, tripID)
	if err != nil {
		return Result{}, err
	}
	all, err := e.store.ListItems(ctx, tripID)
	if err != nil {
		return Result{}, err
	}

	byDay := map[int][]models.ItineraryItem{}
	var days []int
	for _, item := range all {
		if _, ok := byDay[item.Day]; !ok {
			days = append(days, item.Day)
		}
		byDay[item.Day] = append(byDay[item.Day], item)
	}
	sort.Ints(days)

	var issues []Issue
	for _, day := range days {
		items := byDay[day]
		sort.Slice(items, func(i, j int) bool { return items[i].Order < items[j].Order })
		issues = append(issues, e.validateDay(ctx, prefs, day, items)...)
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			valid = false
			break
		}
	}
	return Result{Valid: valid, Issues: issues}, nil
}

func (e *Editor) validateDay(ctx context.Context, prefs *models.TripPreferences, day int, items []models.ItineraryItem) []Issue {
	var issues []Issue

	date, dateErr := timegeo.AddDays(prefs.StartDate, day-1)
	var dow string
	if dateErr == nil {
		dow, _ = timegeo.DayOfWeek(date)
	}

	var prevEnd timegeo.TimeOfDay
	var distanceKm float64
	var costCents int64

	for i := range items {
		item := items[i]
		id := item.ID

		if i > 0 && timegeo.Before(timegeo.TimeOfDay(item.StartTime), prevEnd) {
			issues = append(issues, Issue{
				Type:     IssueTimeConflict,
				Severity: SeverityError,
				Message:  fmt.Sprintf("item %q starts before the previous item ends", item.Name),
				ItemID:   &id,
			})
		}
		prevEnd = timegeo.TimeOfDay(item.EndTime)

		if timegeo.Before(timegeo.TimeOfDay(item.StartTime), timegeo.TimeOfDay(prefs.DailyWindowStart)) ||
			timegeo.Before(timegeo.TimeOfDay(prefs.DailyWindowEnd), timegeo.TimeOfDay(item.EndTime)) {
			issues = append(issues, Issue{
				Type:     IssueTimeWindow,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("item %q falls outside the daily window", item.Name),
				ItemID:   &id,
			})
		}

		if e.catalog != nil && item.POIID != nil && dow != "" {
			poi, err := e.catalog.Get(ctx, item.POIID.String())
			if err != nil {
				log.Warn().Err(err).Str("poi_id", item.POIID.String()).Msg("validator could not resolve poi, skipping opening-hours check")
			} else if hours, ok := poi.Hours[dow]; ok {
				switch {
				case hours.Closed:
					issues = append(issues, Issue{
						Type:     IssueOpeningHours,
						Severity: SeverityError,
						Message:  fmt.Sprintf("%q is closed on %s", item.Name, dow),
						ItemID:   &id,
					})
				case hours.Open != "" && timegeo.Before(timegeo.TimeOfDay(item.StartTime), timegeo.TimeOfDay(hours.Open)):
					fallthrough
				case hours.Close != "" && timegeo.Before(timegeo.TimeOfDay(hours.Close), timegeo.TimeOfDay(item.EndTime)):
					issues = append(issues, Issue{
						Type:     IssueOpeningHours,
						Severity: SeverityError,
						Message:  fmt.Sprintf("%q is scheduled outside its opening hours", item.Name),
						ItemID:   &id,
					})
				}
			}
		}

		if item.RouteFromPrevious != nil && item.RouteFromPrevious.Mode == models.ModeWalking {
			distanceKm += item.RouteFromPrevious.DistanceKm
		}
		if item.CostEstimate != nil {
			costCents += item.CostEstimate.AmountCents
		}
	}

	if prefs.Constraints.MaxWalkingKmPerDay != nil && distanceKm > *prefs.Constraints.MaxWalkingKmPerDay {
		issues = append(issues, Issue{
			Type:     IssueDistance,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("day %d walking distance %.1fkm exceeds the %.1fkm limit", day, distanceKm, *prefs.Constraints.MaxWalkingKmPerDay),
		})
	}

	if prefs.Budget.PerDayCents != nil && costCents > *prefs.Budget.PerDayCents {
		issues = append(issues, Issue{
			Type:     IssueBudget,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("day %d estimated cost exceeds the per-day budget", day),
		})
	}

	return issues
}
