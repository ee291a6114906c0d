package editor

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"planengine/internal/models"
	"planengine/internal/store/storefake"
)

func newFixture(t *testing.T) (*Editor, *storefake.Store, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	st := storefake.New()

	trip := &models.Trip{OwnerKind: models.OwnerGuest, OwnerID: "guest-1", Status: models.TripPlanning}
	if err := st.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	maxWalk := 10.0
	prefs := &models.TripPreferences{
		TripID:           trip.ID,
		StartDate:        "2025-03-01",
		EndDate:          "2025-03-01",
		DailyWindowStart: "09:00",
		DailyWindowEnd:   "20:00",
		Constraints:      models.Constraints{MaxWalkingKmPerDay: &maxWalk},
	}
	if err := st.CreateTripPreferences(ctx, prefs); err != nil {
		t.Fatalf("CreateTripPreferences: %v", err)
	}

	items := []models.ItineraryItem{
		{TripID: trip.ID, Day: 1, Type: models.ItemPOI, Name: "A", StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60, Order: 0},
		{TripID: trip.ID, Day: 1, Type: models.ItemPOI, Name: "B", StartTime: "10:15", EndTime: "11:15", DurationMinutes: 60, Order: 1},
	}
	if err := st.CreateItems(ctx, items); err != nil {
		t.Fatalf("CreateItems: %v", err)
	}

	return New(st, nil, 0), st, trip.ID
}

func TestReorderSwapsOrderAndReflows(t *testing.T) {
	ctx := context.Background()
	e, st, tripID := newFixture(t)

	items, err := st.ListItems(ctx, tripID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	var aID, bID uuid.UUID
	for _, item := range items {
		if item.Name == "A" {
			aID = item.ID
		}
		if item.Name == "B" {
			bID = item.ID
		}
	}

	if err := e.Reorder(ctx, tripID, 1, []uuid.UUID{bID, aID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}

	items, err = st.ListItems(ctx, tripID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if items[0].Name != "B" || items[0].StartTime != "09:00" {
		t.Errorf("expected B first at 09:00, got %+v", items[0])
	}
	if items[1].Name != "A" || items[1].StartTime != "10:00" {
		t.Errorf("expected A second at 10:00, got %+v", items[1])
	}
}

func TestReorderRejectsNonPermutation(t *testing.T) {
	ctx := context.Background()
	e, _, tripID := newFixture(t)

	if err := e.Reorder(ctx, tripID, 1, []uuid.UUID{uuid.New()}); err == nil {
		t.Fatal("expected error for non-permutation ids")
	}
}

func TestSetStartTimeRecomputesEndAndReflows(t *testing.T) {
	ctx := context.Background()
	e, st, tripID := newFixture(t)

	items, _ := st.ListItems(ctx, tripID)
	var aID uuid.UUID
	for _, item := range items {
		if item.Name == "A" {
			aID = item.ID
		}
	}

	if err := e.SetStartTime(ctx, tripID, aID, "09:30"); err != nil {
		t.Fatalf("SetStartTime: %v", err)
	}

	items, _ = st.ListItems(ctx, tripID)
	for _, item := range items {
		if item.Name == "A" && item.EndTime != "10:00" {
			t.Errorf("A end time = %s, want 10:00 (re-flow packs unpinned A back to the 09:00 window start)", item.EndTime)
		}
	}
}

func TestRemoveRejectsPinnedItem(t *testing.T) {
	ctx := context.Background()
	e, st, tripID := newFixture(t)

	items, _ := st.ListItems(ctx, tripID)
	var aID uuid.UUID
	for _, item := range items {
		if item.Name == "A" {
			aID = item.ID
		}
	}
	if err := e.TogglePin(ctx, tripID, aID, true); err != nil {
		t.Fatalf("TogglePin: %v", err)
	}
	if err := e.Remove(ctx, tripID, aID); err == nil {
		t.Fatal("expected error removing a pinned item")
	}
}

func TestAddAppendsAfterLastItem(t *testing.T) {
	ctx := context.Background()
	e, st, tripID := newFixture(t)

	poi := models.POI{ID: uuid.New(), Name: "C", AvgDurationMinutes: 30}
	item, err := e.Add(ctx, tripID, 1, poi, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if item.StartTime != "11:30" {
		t.Errorf("new item start = %s, want 11:30 (11:15 + 15min buffer)", item.StartTime)
	}

	all, _ := st.ListItems(ctx, tripID)
	if len(all) != 3 {
		t.Errorf("expected 3 items, got %d", len(all))
	}
}

func TestValidateFlagsTimeConflict(t *testing.T) {
	ctx := context.Background()
	_, st, tripID := newFixture(t)

	// Directly persist an overlapping third item, bypassing the editor's
	// mutators (which always re-flow and would resolve the overlap).
	overlapping := models.ItineraryItem{
		TripID: tripID, Day: 1, Type: models.ItemPOI, Name: "C",
		StartTime: "09:30", EndTime: "09:45", DurationMinutes: 15, Order: 2,
	}
	if err := st.CreateItems(ctx, []models.ItineraryItem{overlapping}); err != nil {
		t.Fatalf("CreateItems: %v", err)
	}

	e := New(st, nil, 0)
	result, err := e.Validate(ctx, tripID)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected validation to fail on overlapping items")
	}
	found := false
	for _, issue := range result.Issues {
		if issue.Type == IssueTimeConflict {
			found = true
		}
	}
	if !found {
		t.Error("expected a time_conflict issue")
	}
}
