package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/providers/mockprovider"
	"planengine/internal/store/storefake"
)

func newFixture(t *testing.T) (*Orchestrator, *storefake.Store, uuid.UUID) {
	t.Helper()
	st := storefake.New()
	trip := &models.Trip{OwnerKind: models.OwnerGuest, OwnerID: "guest-1", Status: models.TripPlanning}
	if err := st.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	registry := providers.NewRegistry()
	registry.Register(mockprovider.New())
	return New(st, registry), st, trip.ID
}

func TestCreateBookingConfirms(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	b, err := o.Create(ctx, CreateRequest{
		TripID:         tripID,
		ProviderID:     mockprovider.ProviderID,
		ProviderItemID: "item-1",
		Date:           "2025-03-01",
		Travelers:      models.Travelers{Adults: 2},
		ContactInfo:    models.ContactInfo{Name: "A Traveler", Email: "a@example.com"},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != models.BookingConfirmed {
		t.Errorf("status = %s, want confirmed", b.Status)
	}
	if b.ExternalBookingID == "" {
		t.Error("expected external booking id to be set")
	}
}

func TestCreateBookingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	key := uuid.NewString()
	req := CreateRequest{
		TripID: tripID, ProviderID: mockprovider.ProviderID, ProviderItemID: "item-1",
		Date: "2025-03-01", ContactInfo: models.ContactInfo{Name: "A", Email: "a@example.com"},
		IdempotencyKey: key,
	}
	first, err := o.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := o.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create (replay): %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("replay returned a different booking: %s vs %s", first.ID, second.ID)
	}
}

func TestCreateBookingRejectsUnknownProvider(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	_, err := o.Create(ctx, CreateRequest{
		TripID: tripID, ProviderID: "nonexistent", ProviderItemID: "item-1",
		Date: "2025-03-01", IdempotencyKey: uuid.NewString(),
	})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCancelOnlyPermittedFromConfirmed(t *testing.T) {
	ctx := context.Background()
	o, st, tripID := newFixture(t)

	b := &models.Booking{TripID: tripID, ProviderID: mockprovider.ProviderID, Status: models.BookingPending}
	if err := st.CreateBooking(ctx, b); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	_, err := o.Cancel(ctx, b.ID)
	if err == nil {
		t.Fatal("expected error canceling a pending booking")
	}
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.CodeConflict {
		t.Fatalf("expected code %s, got %v", apperr.CodeConflict, err)
	}
}

func TestCancelConfirmedBooking(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	b, err := o.Create(ctx, CreateRequest{
		TripID: tripID, ProviderID: mockprovider.ProviderID, ProviderItemID: "item-2",
		Date: "2025-03-01", ContactInfo: models.ContactInfo{Name: "A", Email: "a@example.com"},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	canceled, err := o.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != models.BookingCanceled {
		t.Errorf("status = %s, want canceled", canceled.Status)
	}
}

func TestRetryOnlyPermittedFromFailed(t *testing.T) {
	ctx := context.Background()
	o, st, tripID := newFixture(t)

	b := &models.Booking{TripID: tripID, ProviderID: mockprovider.ProviderID, Status: models.BookingConfirmed}
	if err := st.CreateBooking(ctx, b); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	_, err := o.Retry(ctx, b.ID, "item-1", "2025-03-01", nil, models.Travelers{})
	if err == nil {
		t.Fatal("expected error retrying a confirmed booking")
	}
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Code != apperr.CodeConflict {
		t.Fatalf("expected code %s, got %v", apperr.CodeConflict, err)
	}
}

func TestRetryFromFailedSucceeds(t *testing.T) {
	ctx := context.Background()
	o, st, tripID := newFixture(t)

	b := &models.Booking{TripID: tripID, ProviderID: mockprovider.ProviderID, Status: models.BookingFailed}
	if err := st.CreateBooking(ctx, b); err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	retried, err := o.Retry(ctx, b.ID, "item-1", "2025-03-01", nil, models.Travelers{Adults: 1})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != models.BookingConfirmed {
		t.Errorf("status = %s, want confirmed", retried.Status)
	}
}

func TestHandleWebhookCancelsBooking(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	b, err := o.Create(ctx, CreateRequest{
		TripID: tripID, ProviderID: mockprovider.ProviderID, ProviderItemID: "item-1",
		Date: "2025-03-01", ContactInfo: models.ContactInfo{Name: "A", Email: "a@example.com"},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := []byte(`{"event_type":"booking_canceled","booking_id":"` + b.ExternalBookingID + `"}`)
	if err := o.HandleWebhook(ctx, mockprovider.ProviderID, payload); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	updated, err := o.store.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if updated.Status != models.BookingCanceled {
		t.Errorf("status = %s, want canceled", updated.Status)
	}
}

func TestFindAlternativesRanksByPriceDelta(t *testing.T) {
	ctx := context.Background()
	o, _, tripID := newFixture(t)

	b, err := o.Create(ctx, CreateRequest{
		TripID: tripID, ProviderID: mockprovider.ProviderID, ProviderItemID: "item-1",
		Date: "2025-03-01", ContactInfo: models.ContactInfo{Name: "A", Email: "a@example.com"},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	alts, err := o.FindAlternatives(ctx, b.ID, 3)
	if err != nil {
		t.Fatalf("FindAlternatives: %v", err)
	}
	if len(alts) == 0 {
		t.Fatal("expected at least one alternative")
	}
	for i := 1; i < len(alts); i++ {
		if abs64(alts[i-1].PriceDeltaCents) > abs64(alts[i].PriceDeltaCents) {
			t.Error("alternatives are not sorted by absolute price delta")
		}
	}
}
