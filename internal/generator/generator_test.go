package generator

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"planengine/internal/models"
	"planengine/internal/providers/mockrouting"
	"planengine/internal/store/storefake"
)

func setupTrip(t *testing.T, st *storefake.Store, startDate, endDate string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	trip := &models.Trip{OwnerKind: models.OwnerGuest, OwnerID: "guest-1", Status: models.TripPlanning}
	if err := st.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	prefs := &models.TripPreferences{
		TripID:           trip.ID,
		Destination:      "Bangkok",
		StartDate:        startDate,
		EndDate:          endDate,
		DailyWindowStart: "09:00",
		DailyWindowEnd:   "20:00",
	}
	if err := st.CreateTripPreferences(ctx, prefs); err != nil {
		t.Fatalf("CreateTripPreferences: %v", err)
	}
	return trip.ID
}

func samplePOIs() []models.POI {
	hours := map[string]models.DayHours{
		"saturday": {Open: "09:00", Close: "18:00"},
		"sunday":   {Open: "09:00", Close: "18:00"},
	}
	return []models.POI{
		{ID: uuid.New(), Name: "Grand Palace", Location: models.Location{Lat: 13.7500, Lng: 100.4913}, Hours: hours, AvgDurationMinutes: 90},
		{ID: uuid.New(), Name: "Wat Arun", Location: models.Location{Lat: 13.7437, Lng: 100.4888}, Hours: hours, AvgDurationMinutes: 60},
		{ID: uuid.New(), Name: "Chatuchak Market", Location: models.Location{Lat: 13.7999, Lng: 100.5500}, Hours: hours, AvgDurationMinutes: 120},
	}
}

func TestGenerateDistributesAcrossDays(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID := setupTrip(t, st, "2025-03-01", "2025-03-02")

	gen := New(st, mockrouting.New(), 0, 0)
	items, err := gen.Generate(ctx, tripID, samplePOIs(), false, ModeFull)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected at least one item")
	}

	byDay := map[int]int{}
	for _, item := range items {
		if item.Day < 1 || item.Day > 2 {
			t.Fatalf("item on unexpected day %d", item.Day)
		}
		byDay[item.Day]++
	}
	if len(byDay) != 2 {
		t.Fatalf("items on %d day(s), expected items spread across both days", len(byDay))
	}

	version, err := st.LatestVersion(ctx, tripID)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestGenerateRejectsWhenNoPOIsResolvable(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID := setupTrip(t, st, "2025-03-01", "2025-03-02")

	gen := New(st, mockrouting.New(), 0, 0)
	_, err := gen.Generate(ctx, tripID, nil, false, ModeFull)
	if err == nil {
		t.Fatal("expected validation error for empty POI list")
	}
}

func TestGeneratePreservesPinnedItems(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID := setupTrip(t, st, "2025-03-01", "2025-03-01")

	pinned := models.ItineraryItem{
		TripID:    tripID,
		Day:       1,
		Type:      models.ItemHotel,
		Name:      "Hotel Check-in",
		StartTime: "09:00",
		EndTime:   "09:30",
		IsPinned:  true,
		Order:     0,
	}
	if err := st.CreateItems(ctx, []models.ItineraryItem{pinned}); err != nil {
		t.Fatalf("CreateItems: %v", err)
	}

	gen := New(st, mockrouting.New(), 0, 0)
	items, err := gen.Generate(ctx, tripID, samplePOIs(), true, ModeFull)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	found := false
	for _, item := range items {
		if item.Name == "Hotel Check-in" && item.IsPinned {
			found = true
		}
	}
	if !found {
		t.Error("expected pinned item to survive regeneration")
	}
}

// TestGenerateAppliesLeadingBuffer pins spec.md scenario 1 (§8) literally:
// a two-day trip, window 10:00-20:00, POI A (120min, open 09:00-17:00,
// 500 THB) selected alone for day 1 and POI B (90min, open 09:00-18:00,
// 200 THB) alone for day 2 must each start at windowStart+15, the
// leading travel buffer, not at windowStart itself.
func TestGenerateAppliesLeadingBuffer(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID := setupTrip(t, st, "2025-03-01", "2025-03-02")
	prefs, err := st.GetTripPreferences(ctx, tripID)
	if err != nil {
		t.Fatalf("GetTripPreferences: %v", err)
	}
	prefs.DailyWindowStart = "10:00"
	prefs.DailyWindowEnd = "20:00"
	if err := st.UpdateTripPreferences(ctx, prefs); err != nil {
		t.Fatalf("UpdateTripPreferences: %v", err)
	}

	hoursA := map[string]models.DayHours{
		"saturday": {Open: "09:00", Close: "17:00"},
		"sunday":   {Open: "09:00", Close: "17:00"},
	}
	hoursB := map[string]models.DayHours{
		"saturday": {Open: "09:00", Close: "18:00"},
		"sunday":   {Open: "09:00", Close: "18:00"},
	}
	priceA := int64(50000)
	priceB := int64(20000)
	pois := []models.POI{
		{ID: uuid.New(), Name: "A", Hours: hoursA, AvgDurationMinutes: 120, PriceRangeLowCents: &priceA, PriceRangeHighCents: &priceA},
		{ID: uuid.New(), Name: "B", Hours: hoursB, AvgDurationMinutes: 90, PriceRangeLowCents: &priceB, PriceRangeHighCents: &priceB},
	}

	gen := New(st, mockrouting.New(), 0, 0)
	items, err := gen.Generate(ctx, tripID, pois, false, ModeFull)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	byName := map[string]models.ItineraryItem{}
	for _, item := range items {
		byName[item.Name] = item
	}

	a, ok := byName["A"]
	if !ok {
		t.Fatal("expected POI A to be placed")
	}
	if a.Day != 1 || a.StartTime != "10:15" || a.EndTime != "12:15" {
		t.Errorf("A = day %d %s-%s, want day 1 10:15-12:15", a.Day, a.StartTime, a.EndTime)
	}
	if a.CostEstimate == nil || a.CostEstimate.AmountCents != priceA {
		t.Errorf("A cost estimate = %+v, want %d cents", a.CostEstimate, priceA)
	}

	b, ok := byName["B"]
	if !ok {
		t.Fatal("expected POI B to be placed")
	}
	if b.Day != 2 || b.StartTime != "10:15" || b.EndTime != "11:45" {
		t.Errorf("B = day %d %s-%s, want day 2 10:15-11:45", b.Day, b.StartTime, b.EndTime)
	}
}
