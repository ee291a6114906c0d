// Package store defines the Plan Store contract: persistence for the
// plan aggregate (trip, preferences, items, versions, bookings, events,
// proposals, applications) plus the transactional scope every mutating
// operation runs inside.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"planengine/internal/models"
)

// Store is the persistence contract for the plan lifecycle subsystem.
// Every method not documented otherwise may return an *apperr.Error of
// kind NotFound, Conflict, Validation, or StorageUnavailable.
type Store interface {
	// Transact runs fn under an isolation level that prevents another
	// transaction from committing an interleaved itinerary-items
	// mutation for the same trip — row-locking on a trip-level
	// sentinel. On any error returned by fn, every effect inside fn is
	// discarded.
	Transact(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context) error) error

	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	UpdateTripStatus(ctx context.Context, id uuid.UUID, status models.TripStatus) error

	CreateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error
	GetTripPreferences(ctx context.Context, tripID uuid.UUID) (*models.TripPreferences, error)
	UpdateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error

	// ListItems returns items ordered by (day asc, order asc).
	ListItems(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.ItineraryItem, error)
	CreateItems(ctx context.Context, items []models.ItineraryItem) error
	UpdateItem(ctx context.Context, item *models.ItineraryItem) error
	DeleteItems(ctx context.Context, ids []uuid.UUID) error
	DeleteNonPinnedItems(ctx context.Context, tripID uuid.UUID) error

	// LatestVersion returns the trip's current itinerary version from
	// the §6 itineraries pointer row, or 0 if the trip has no itinerary
	// yet. Unlike the append-only ItineraryVersion history, this value
	// moves backwards on Rollback.
	LatestVersion(ctx context.Context, tripID uuid.UUID) (int, error)
	// SetCurrentVersion upserts the itineraries pointer row, advancing
	// it on generate/edit/replan-apply and moving it backwards on
	// rollback.
	SetCurrentVersion(ctx context.Context, tripID uuid.UUID, version int, generatedAt time.Time) error
	CreateVersion(ctx context.Context, version *models.ItineraryVersion) error
	GetVersionSnapshot(ctx context.Context, tripID uuid.UUID, version int) (*models.ItineraryVersion, error)
	ListVersions(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryVersion, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetBookingByExternalID(ctx context.Context, externalID string) (*models.Booking, error)
	UpdateBooking(ctx context.Context, booking *models.Booking) error
	AppendBookingHistory(ctx context.Context, h *models.BookingStateHistory) error

	GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error

	CreateEventSignal(ctx context.Context, e *models.EventSignal) error
	GetEventSignal(ctx context.Context, id uuid.UUID) (*models.EventSignal, error)
	MarkEventProcessed(ctx context.Context, id uuid.UUID, triggered bool) error

	CreateReplanTrigger(ctx context.Context, t *models.ReplanTrigger) error
	GetReplanTrigger(ctx context.Context, id uuid.UUID) (*models.ReplanTrigger, error)
	MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error

	CreateReplanProposal(ctx context.Context, p *models.ReplanProposal) error
	ListProposalsForTrigger(ctx context.Context, triggerID uuid.UUID) ([]models.ReplanProposal, error)
	GetReplanProposal(ctx context.Context, id uuid.UUID) (*models.ReplanProposal, error)

	CreateReplanApplication(ctx context.Context, a *models.ReplanApplication) error
	GetReplanApplication(ctx context.Context, id uuid.UUID) (*models.ReplanApplication, error)
	// GetReplanApplicationByIdempotencyKey returns (nil, nil) when no
	// application was ever recorded for (tripID, key) — mirroring
	// GetIdempotencyRecord's miss semantics.
	GetReplanApplicationByIdempotencyKey(ctx context.Context, tripID uuid.UUID, key string) (*models.ReplanApplication, error)
	MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error
	ListReplanHistory(ctx context.Context, tripID uuid.UUID) ([]models.ReplanApplication, error)
}
