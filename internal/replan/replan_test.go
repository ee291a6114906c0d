package replan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/providers/mockcatalog"
	"planengine/internal/providers/mockrouting"
	"planengine/internal/store/storefake"
)

func setupTripWithItem(t *testing.T, st *storefake.Store) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	trip := &models.Trip{OwnerKind: models.OwnerGuest, OwnerID: "guest-1", Status: models.TripPlanning}
	if err := st.CreateTrip(ctx, trip); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	prefs := &models.TripPreferences{
		TripID:           trip.ID,
		Destination:      "Bangkok",
		StartDate:        "2025-03-01",
		EndDate:          "2025-03-02",
		DailyWindowStart: "09:00",
		DailyWindowEnd:   "20:00",
	}
	if err := st.CreateTripPreferences(ctx, prefs); err != nil {
		t.Fatalf("CreateTripPreferences: %v", err)
	}

	loc := models.Location{Lat: 13.7500, Lng: 100.5000}
	item := models.ItineraryItem{
		TripID:          trip.ID,
		Day:             1,
		Type:            models.ItemPOI,
		Name:            "Riverside Park Walking Tour",
		Location:        &loc,
		StartTime:       "10:00",
		EndTime:         "11:30",
		DurationMinutes: 90,
		Order:           0,
	}
	if err := st.CreateItems(ctx, []models.ItineraryItem{item}); err != nil {
		t.Fatalf("CreateItems: %v", err)
	}

	items, err := st.ListItems(ctx, trip.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if err := st.CreateVersion(ctx, &models.ItineraryVersion{
		TripID:     trip.ID,
		Version:    1,
		ChangeType: models.ChangeGenerate,
		Snapshot:   groupByDay(items),
	}); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if err := st.SetCurrentVersion(ctx, trip.ID, 1, time.Now()); err != nil {
		t.Fatalf("SetCurrentVersion: %v", err)
	}

	return trip.ID, items[0].ID
}

func weatherIngestInput(tripID uuid.UUID) IngestInput {
	return IngestInput{
		TripID:   tripID,
		Type:     models.EventWeather,
		Severity: models.SeverityHigh,
		Location: models.Location{Lat: 13.7500, Lng: 100.5000},
		TimeSlot: models.TimeSlot{
			Start: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
		},
		Details: models.EventDetails{
			Weather: &models.WeatherDetails{Condition: models.ConditionHeavyRain},
		},
	}
}

func TestIngestWeatherEventTriggersReplan(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID, itemID := setupTripWithItem(t, st)

	p := New(st, mockrouting.New(), mockcatalog.New(), 0, 0)
	event, trigger, err := p.Ingest(ctx, weatherIngestInput(tripID))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if trigger == nil {
		t.Fatal("expected a replan trigger for a high-severity heavy rain event")
	}
	if len(event.AffectedItems) != 1 || event.AffectedItems[0] != itemID {
		t.Fatalf("expected affected items = [%s], got %v", itemID, event.AffectedItems)
	}
}

func TestIngestLowSeverityDoesNotTrigger(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID, _ := setupTripWithItem(t, st)

	p := New(st, mockrouting.New(), mockcatalog.New(), 0, 0)
	in := weatherIngestInput(tripID)
	in.Severity = models.SeverityLow
	in.Details.Weather.Condition = models.ConditionLightRain

	_, trigger, err := p.Ingest(ctx, in)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if trigger != nil {
		t.Fatal("expected no replan trigger for a low-severity light rain event")
	}
}

func TestProposeGeneratesRankedProposals(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID, _ := setupTripWithItem(t, st)

	p := New(st, mockrouting.New(), mockcatalog.New(), 0, 0)
	_, trigger, err := p.Ingest(ctx, weatherIngestInput(tripID))
	if err != nil || trigger == nil {
		t.Fatalf("Ingest: %v, trigger=%v", err, trigger)
	}

	proposals, err := p.Propose(ctx, trigger.ID, 3)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) == 0 {
		t.Fatal("expected at least one proposal")
	}
	for i := 1; i < len(proposals); i++ {
		if proposals[i].Score > proposals[i-1].Score {
			t.Fatalf("proposals not sorted by descending score: %v", proposals)
		}
	}
}

func TestApplyIsIdempotentAndRollbackRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	st := storefake.New()
	tripID, itemID := setupTripWithItem(t, st)

	p := New(st, mockrouting.New(), mockcatalog.New(), 0, 0)
	_, trigger, err := p.Ingest(ctx, weatherIngestInput(tripID))
	if err != nil || trigger == nil {
		t.Fatalf("Ingest: %v, trigger=%v", err, trigger)
	}
	proposals, err := p.Propose(ctx, trigger.ID, 3)
	if err != nil || len(proposals) == 0 {
		t.Fatalf("Propose: %v", err)
	}
	chosen := proposals[0]

	app, err := p.Apply(ctx, chosen.ID, "apply-key-1")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if app.AppliedVersion != 2 {
		t.Fatalf("AppliedVersion = %d, want 2", app.AppliedVersion)
	}

	replay, err := p.Apply(ctx, chosen.ID, "apply-key-1")
	if err != nil {
		t.Fatalf("Apply (replay): %v", err)
	}
	if replay.ID != app.ID {
		t.Fatalf("expected idempotent replay to return application %s, got %s", app.ID, replay.ID)
	}

	restored, err := p.Rollback(ctx, app.ID)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !restored.RolledBack {
		t.Fatal("expected application to be marked rolled back")
	}

	items, err := st.ListItems(ctx, tripID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	found := false
	for _, item := range items {
		if item.ID == itemID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected original item to be restored by rollback")
	}

	current, err := st.LatestVersion(ctx, tripID)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if current != app.AppliedVersion-1 {
		t.Fatalf("current version after rollback = %d, want %d (applied_version - 1)", current, app.AppliedVersion-1)
	}

	if _, err := p.Rollback(ctx, app.ID); !apperr.Is(err, apperr.KindForbiddenRollback) {
		t.Fatalf("expected a forbidden-rollback error on second rollback, got %v", err)
	}
}
