package replan

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"planengine/internal/models"
	"planengine/internal/timegeo"
)

const (
	defaultMaxProposals  = 3
	nearbyIndoorRadiusKm = 3.0
	nearbySimilarKm      = 2.0
	slotShiftBufferMin   = 15
)

// Propose generates up to maxProposals candidate ReplanProposals for a
// trigger, one per applicable strategy that yields a non-empty change
// set, persists all of them, and returns the top maxProposals by score.
func (p *Pipeline) Propose(ctx context.Context, triggerID uuid.UUID, maxProposals int) ([]models.ReplanProposal, error) {
	if maxProposals <= 0 {
		maxProposals = defaultMaxProposals
	}
	if p.maxProposalsCap > 0 && maxProposals > p.maxProposalsCap {
		maxProposals = p.maxProposalsCap
	}
	// spec.md §3: ReplanProposal rows are generated in batches of ≤3 per
	// trigger regardless of what a caller or the configured batch cap
	// requests.
	if maxProposals > defaultMaxProposals {
		maxProposals = defaultMaxProposals
	}
	trigger, err := p.store.GetReplanTrigger(ctx, triggerID)
	if err != nil {
		return nil, err
	}
	event, err := p.store.GetEventSignal(ctx, trigger.EventSignalID)
	if err != nil {
		return nil, err
	}
	items, err := p.store.ListItems(ctx, event.TripID)
	if err != nil {
		return nil, err
	}
	prefs, err := p.store.GetTripPreferences(ctx, event.TripID)
	if err != nil {
		return nil, err
	}

	affected := affectedItems(items, event.AffectedItems)

	type strategy struct {
		run func() models.ProposalChanges
		why string
	}
	var strategies []strategy
	switch {
	case event.Type == models.EventWeather && event.Severity == models.SeverityHigh:
		strategies = []strategy{
			{func() models.ProposalChanges { return p.replaceWithIndoor(ctx, affected) }, "replace affected outdoor items with nearby indoor alternatives"},
			{func() models.ProposalChanges { return p.moveToDifferentDay(items, prefs, affected) }, "move affected items to a different day"},
			{func() models.ProposalChanges { return removeItemsChange(affected) }, "remove the affected items"},
		}
	case event.Type == models.EventClosure:
		strategies = []strategy{
			{func() models.ProposalChanges { return p.replaceWithSimilar(ctx, affected) }, "replace the closed item with a similar nearby alternative"},
			{func() models.ProposalChanges { return p.moveToDifferentSlot(items, prefs, affected, event) }, "move the affected items to a different time slot the same day"},
		}
	}

	var proposals []models.ReplanProposal
	for _, st := range strategies {
		changes := st.run()
		if isEmptyChanges(changes) {
			continue
		}
		impact := p.computeImpact(ctx, items, changes)
		proposal := models.ReplanProposal{
			TripID:      event.TripID,
			TriggerID:   triggerID,
			Explanation: st.why,
			Changes:     changes,
			Impact:      impact,
			Score:       scoreFor(impact),
		}
		if err := p.store.CreateReplanProposal(ctx, &proposal); err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].Score > proposals[j].Score })
	if len(proposals) > maxProposals {
		proposals = proposals[:maxProposals]
	}
	return proposals, nil
}

func affectedItems(items []models.ItineraryItem, ids []uuid.UUID) []models.ItineraryItem {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.ItineraryItem
	for _, item := range items {
		if want[item.ID] && !item.IsPinned {
			out = append(out, item)
		}
	}
	return out
}

func isEmptyChanges(c models.ProposalChanges) bool {
	return len(c.Replaced) == 0 && len(c.Moved) == 0 && len(c.Removed) == 0 && len(c.Added) == 0
}

func removeItemsChange(affected []models.ItineraryItem) models.ProposalChanges {
	var c models.ProposalChanges
	for _, item := range affected {
		c.Removed = append(c.Removed, item.ID)
	}
	return c
}

// replaceWithIndoor replaces each affected item with the nearest
// indoor-tagged POI within nearbyIndoorRadiusKm.
func (p *Pipeline) replaceWithIndoor(ctx context.Context, affected []models.ItineraryItem) models.ProposalChanges {
	var c models.ProposalChanges
	if p.catalog == nil {
		return c
	}
	candidates, err := p.catalog.Search(ctx, map[string]interface{}{"tag": "indoor"})
	if err != nil {
		return c
	}
	for _, item := range affected {
		if item.Location == nil {
			continue
		}
		poi, ok := nearestPOI(candidates, *item.Location, item.POIID, nearbyIndoorRadiusKm)
		if !ok {
			continue
		}
		newItem := cloneItemForPOI(item, poi)
		c.Replaced = append(c.Replaced, models.ReplacedItem{OldItemID: item.ID, NewItem: newItem})
	}
	return c
}

// replaceWithSimilar replaces each affected item with the nearest POI
// sharing one of its original tags.
func (p *Pipeline) replaceWithSimilar(ctx context.Context, affected []models.ItineraryItem) models.ProposalChanges {
	var c models.ProposalChanges
	if p.catalog == nil {
		return c
	}
	for _, item := range affected {
		if item.POIID == nil || item.Location == nil {
			continue
		}
		original, err := p.catalog.Get(ctx, item.POIID.String())
		if err != nil || len(original.Tags) == 0 {
			continue
		}
		candidates, err := p.catalog.Search(ctx, map[string]interface{}{"tag": original.Tags[0]})
		if err != nil {
			continue
		}
		poi, ok := nearestPOI(candidates, *item.Location, item.POIID, nearbySimilarKm)
		if !ok {
			continue
		}
		newItem := cloneItemForPOI(item, poi)
		c.Replaced = append(c.Replaced, models.ReplacedItem{OldItemID: item.ID, NewItem: newItem})
	}
	return c
}

func cloneItemForPOI(old models.ItineraryItem, poi models.POI) models.ItineraryItem {
	poiID := poi.ID
	loc := poi.Location
	end, err := timegeo.AddMinutes(timegeo.TimeOfDay(old.StartTime), poi.AvgDurationMinutes)
	endTime := old.EndTime
	if err == nil {
		endTime = string(end)
	}
	item := models.ItineraryItem{
		ID:              uuid.New(),
		TripID:          old.TripID,
		Day:             old.Day,
		Type:            models.ItemPOI,
		POIID:           &poiID,
		Name:            poi.Name,
		Location:        &loc,
		StartTime:       old.StartTime,
		EndTime:         endTime,
		DurationMinutes: poi.AvgDurationMinutes,
		Order:           old.Order,
	}
	if poi.PriceRangeLowCents != nil && poi.PriceRangeHighCents != nil {
		mid := (*poi.PriceRangeLowCents + *poi.PriceRangeHighCents) / 2
		item.CostEstimate = &models.CostEstimate{Money: models.Money{AmountCents: mid}, Confidence: models.CostEstimated}
	}
	return item
}

func nearestPOI(candidates []models.POI, loc models.Location, excludeID *uuid.UUID, maxKm float64) (models.POI, bool) {
	var best models.POI
	bestDist := maxKm
	found := false
	for _, poi := range candidates {
		if excludeID != nil && poi.ID == *excludeID {
			continue
		}
		d := timegeo.HaversineKm(loc.Lat, loc.Lng, poi.Location.Lat, poi.Location.Lng)
		if d <= maxKm && d <= bestDist {
			best = poi
			bestDist = d
			found = true
		}
	}
	return best, found
}

// moveToDifferentDay finds, for each affected item, a different day with
// room at the end of its schedule within the trip's configured window.
func (p *Pipeline) moveToDifferentDay(items []models.ItineraryItem, prefs *models.TripPreferences, affected []models.ItineraryItem) models.ProposalChanges {
	var c models.ProposalChanges
	numDays, err := timegeo.DaysBetween(prefs.StartDate, prefs.EndDate)
	if err != nil {
		return c
	}
	lastEndByDay := map[int]timegeo.TimeOfDay{}
	for _, item := range items {
		end := timegeo.TimeOfDay(item.EndTime)
		if cur, ok := lastEndByDay[item.Day]; !ok || timegeo.Before(cur, end) {
			lastEndByDay[item.Day] = end
		}
	}

	for _, item := range affected {
		for day := 1; day <= numDays; day++ {
			if day == item.Day {
				continue
			}
			cursor, ok := lastEndByDay[day]
			if !ok {
				cursor = timegeo.TimeOfDay(prefs.DailyWindowStart)
			}
			start, err := timegeo.AddMinutes(cursor, slotShiftBufferMin)
			if err != nil {
				continue
			}
			end, err := timegeo.AddMinutes(start, item.DurationMinutes)
			if err != nil {
				continue
			}
			if timegeo.Before(timegeo.TimeOfDay(prefs.DailyWindowEnd), end) {
				continue
			}
			c.Moved = append(c.Moved, models.MovedItem{ItemID: item.ID, NewDay: day, NewStart: string(start)})
			lastEndByDay[day] = end
			break
		}
	}
	return c
}

// moveToDifferentSlot shifts each affected item to start after the
// event's time slot ends, on the same day.
func (p *Pipeline) moveToDifferentSlot(items []models.ItineraryItem, prefs *models.TripPreferences, affected []models.ItineraryItem, event *models.EventSignal) models.ProposalChanges {
	var c models.ProposalChanges
	eventEnd := timegeo.TimeOfDay(event.TimeSlot.End.Format("15:04"))
	for _, item := range affected {
		start, err := timegeo.AddMinutes(eventEnd, slotShiftBufferMin)
		if err != nil {
			continue
		}
		end, err := timegeo.AddMinutes(start, item.DurationMinutes)
		if err != nil {
			continue
		}
		if timegeo.Before(timegeo.TimeOfDay(prefs.DailyWindowEnd), end) {
			continue
		}
		c.Moved = append(c.Moved, models.MovedItem{ItemID: item.ID, NewDay: item.Day, NewStart: string(start)})
	}
	return c
}

// computeImpact scores a proposal's changes. Time and cost deltas are
// computed over replaced items; distance delta uses the registered
// routing provider (falling back to great-circle distance) comparing
// each replaced item's neighbor-to-new-location hop against the original
// neighbor-to-old-location hop.
func (p *Pipeline) computeImpact(ctx context.Context, items []models.ItineraryItem, changes models.ProposalChanges) models.ProposalImpact {
	byID := make(map[uuid.UUID]models.ItineraryItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var timeChange int
	var costChange int64
	var distanceChange float64

	for _, r := range changes.Replaced {
		old, ok := byID[r.OldItemID]
		if !ok {
			continue
		}
		timeChange += r.NewItem.DurationMinutes - old.DurationMinutes

		var oldCost, newCost int64
		if old.CostEstimate != nil {
			oldCost = old.CostEstimate.AmountCents
		}
		if r.NewItem.CostEstimate != nil {
			newCost = r.NewItem.CostEstimate.AmountCents
		}
		costChange += newCost - oldCost

		if neighbor, ok := neighborBefore(items, old); ok && neighbor.Location != nil && old.Location != nil && r.NewItem.Location != nil {
			oldDist := p.distanceBetween(ctx, *neighbor.Location, *old.Location)
			newDist := p.distanceBetween(ctx, *neighbor.Location, *r.NewItem.Location)
			distanceChange += newDist - oldDist
		}
	}

	disruption := 0.3*float64(len(changes.Replaced)) + 0.2*float64(len(changes.Moved)) +
		0.4*float64(len(changes.Removed)) + 0.1*float64(len(changes.Added))
	if disruption > 1 {
		disruption = 1
	}

	return models.ProposalImpact{
		TimeChangeMinutes: timeChange,
		CostChangeCents:   costChange,
		DistanceChangeKm:  distanceChange,
		DisruptionScore:   disruption,
	}
}

func neighborBefore(items []models.ItineraryItem, item models.ItineraryItem) (models.ItineraryItem, bool) {
	var best models.ItineraryItem
	found := false
	for _, candidate := range items {
		if candidate.Day != item.Day || candidate.ID == item.ID {
			continue
		}
		if candidate.Order >= item.Order {
			continue
		}
		if !found || candidate.Order > best.Order {
			best = candidate
			found = true
		}
	}
	return best, found
}

func (p *Pipeline) distanceBetween(ctx context.Context, from, to models.Location) float64 {
	if p.routing != nil {
		if route, err := p.routing.ComputeRoute(ctx, from, to, models.ModeWalking, nil); err == nil {
			return route.DistanceKm
		}
	}
	return timegeo.HaversineKm(from.Lat, from.Lng, to.Lat, to.Lng)
}

func scoreFor(impact models.ProposalImpact) float64 {
	score := 1.0
	score -= 0.5 * impact.DisruptionScore
	switch {
	case impact.CostChangeCents < 0:
		score += 0.2
	case impact.CostChangeCents > 0:
		score -= 0.1
	}
	if abs(impact.TimeChangeMinutes) > 60 {
		score -= 0.1
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
