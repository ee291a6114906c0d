// Package gormstore is the gorm/postgres-backed implementation of
// store.Store.
package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planengine/internal/apperr"
	"planengine/internal/models"
)

type txKey struct{}

// Store wraps a *gorm.DB and threads the active transaction through
// context so every store method works identically inside and outside
// Transact.
type Store struct {
	db *gorm.DB
}

// New wraps an already-opened gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// Transact runs fn with a transaction whose effects commit atomically.
// It row-locks the trip's own row with FOR UPDATE as the serialization
// sentinel, so concurrent mutations on the same trip queue behind one
// another instead of interleaving.
func (s *Store) Transact(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sentinel models.Trip
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", tripID).First(&sentinel).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("trip %s not found", tripID)
			}
			return apperr.StorageUnavailable(err)
		}

		txCtx := context.WithValue(ctx, txKey{}, tx)
		return fn(txCtx)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.StorageUnavailable(err)
	}
	return nil
}

func wrapErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFoundMsg)
	}
	return apperr.StorageUnavailable(err)
}

func (s *Store) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now().UTC()
	trip.CreatedAt, trip.UpdatedAt = now, now
	return wrapErr(s.conn(ctx).Create(trip).Error, "")
}

func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	err := s.conn(ctx).Where("id = ?", id).First(&trip).Error
	if err != nil {
		return nil, wrapErr(err, "trip not found")
	}
	return &trip, nil
}

func (s *Store) UpdateTripStatus(ctx context.Context, id uuid.UUID, status models.TripStatus) error {
	res := s.conn(ctx).Model(&models.Trip{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return apperr.StorageUnavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("trip not found")
	}
	return nil
}

func (s *Store) CreateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error {
	now := time.Now().UTC()
	prefs.CreatedAt, prefs.UpdatedAt = now, now
	return wrapErr(s.conn(ctx).Create(prefs).Error, "")
}

func (s *Store) GetTripPreferences(ctx context.Context, tripID uuid.UUID) (*models.TripPreferences, error) {
	var prefs models.TripPreferences
	err := s.conn(ctx).Where("trip_id = ?", tripID).First(&prefs).Error
	if err != nil {
		return nil, wrapErr(err, "trip preferences not found")
	}
	return &prefs, nil
}

func (s *Store) UpdateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error {
	prefs.UpdatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Save(prefs).Error, "")
}

func (s *Store) ListItems(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryItem, error) {
	var items []models.ItineraryItem
	err := s.conn(ctx).Where("trip_id = ?", tripID).
		Order("day asc, \"order\" asc").Find(&items).Error
	if err != nil {
		return nil, apperr.StorageUnavailable(err)
	}
	return items, nil
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*models.ItineraryItem, error) {
	var item models.ItineraryItem
	err := s.conn(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		return nil, wrapErr(err, "item not found")
	}
	return &item, nil
}

func (s *Store) CreateItems(ctx context.Context, items []models.ItineraryItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].CreatedAt, items[i].UpdatedAt = now, now
	}
	return wrapErr(s.conn(ctx).Create(&items).Error, "")
}

func (s *Store) UpdateItem(ctx context.Context, item *models.ItineraryItem) error {
	item.UpdatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Save(item).Error, "")
}

func (s *Store) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return wrapErr(s.conn(ctx).Where("id IN ?", ids).Delete(&models.ItineraryItem{}).Error, "")
}

func (s *Store) DeleteNonPinnedItems(ctx context.Context, tripID uuid.UUID) error {
	err := s.conn(ctx).Where("trip_id = ? AND is_pinned = ?", tripID, false).
		Delete(&models.ItineraryItem{}).Error
	return wrapErr(err, "")
}

func (s *Store) LatestVersion(ctx context.Context, tripID uuid.UUID) (int, error) {
	var itinerary models.Itinerary
	err := s.conn(ctx).Where("trip_id = ?", tripID).First(&itinerary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperr.StorageUnavailable(err)
	}
	return itinerary.Version, nil
}

func (s *Store) SetCurrentVersion(ctx context.Context, tripID uuid.UUID, version int, generatedAt time.Time) error {
	itinerary := models.Itinerary{TripID: tripID, Version: version, GeneratedAt: generatedAt}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trip_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "generated_at"}),
	}).Create(&itinerary).Error
	return wrapErr(err, "")
}

func (s *Store) CreateVersion(ctx context.Context, version *models.ItineraryVersion) error {
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	version.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(version).Error, "")
}

func (s *Store) GetVersionSnapshot(ctx context.Context, tripID uuid.UUID, version int) (*models.ItineraryVersion, error) {
	var v models.ItineraryVersion
	err := s.conn(ctx).Where("trip_id = ? AND version = ?", tripID, version).First(&v).Error
	if err != nil {
		return nil, wrapErr(err, "version snapshot not found")
	}
	return &v, nil
}

func (s *Store) ListVersions(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryVersion, error) {
	var versions []models.ItineraryVersion
	err := s.conn(ctx).Where("trip_id = ?", tripID).Order("version asc").Find(&versions).Error
	if err != nil {
		return nil, apperr.StorageUnavailable(err)
	}
	return versions, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now().UTC()
	booking.CreatedAt, booking.UpdatedAt = now, now
	return wrapErr(s.conn(ctx).Create(booking).Error, "")
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := s.conn(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		return nil, wrapErr(err, "booking not found")
	}
	return &booking, nil
}

func (s *Store) GetBookingByExternalID(ctx context.Context, externalID string) (*models.Booking, error) {
	var booking models.Booking
	err := s.conn(ctx).Where("external_booking_id = ?", externalID).First(&booking).Error
	if err != nil {
		return nil, wrapErr(err, "booking not found")
	}
	return &booking, nil
}

func (s *Store) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Save(booking).Error, "")
}

func (s *Store) AppendBookingHistory(ctx context.Context, h *models.BookingStateHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Ts.IsZero() {
		h.Ts = time.Now().UTC()
	}
	return wrapErr(s.conn(ctx).Create(h).Error, "")
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := s.conn(ctx).Where("key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.StorageUnavailable(err)
	}
	return &rec, nil
}

func (s *Store) CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	rec.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(rec).Error, "")
}

func (s *Store) CreateEventSignal(ctx context.Context, e *models.EventSignal) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(e).Error, "")
}

func (s *Store) GetEventSignal(ctx context.Context, id uuid.UUID) (*models.EventSignal, error) {
	var e models.EventSignal
	err := s.conn(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		return nil, wrapErr(err, "event signal not found")
	}
	return &e, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uuid.UUID, triggered bool) error {
	err := s.conn(ctx).Model(&models.EventSignal{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "replan_triggered": triggered}).Error
	return wrapErr(err, "")
}

func (s *Store) CreateReplanTrigger(ctx context.Context, t *models.ReplanTrigger) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(t).Error, "")
}

func (s *Store) GetReplanTrigger(ctx context.Context, id uuid.UUID) (*models.ReplanTrigger, error) {
	var t models.ReplanTrigger
	err := s.conn(ctx).Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, wrapErr(err, "replan trigger not found")
	}
	return &t, nil
}

func (s *Store) MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error {
	err := s.conn(ctx).Model(&models.ReplanTrigger{}).Where("id = ?", id).
		Update("processed", true).Error
	return wrapErr(err, "")
}

func (s *Store) CreateReplanProposal(ctx context.Context, p *models.ReplanProposal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(p).Error, "")
}

func (s *Store) ListProposalsForTrigger(ctx context.Context, triggerID uuid.UUID) ([]models.ReplanProposal, error) {
	var proposals []models.ReplanProposal
	err := s.conn(ctx).Where("trigger_id = ?", triggerID).Order("score desc").Find(&proposals).Error
	if err != nil {
		return nil, apperr.StorageUnavailable(err)
	}
	return proposals, nil
}

func (s *Store) GetReplanProposal(ctx context.Context, id uuid.UUID) (*models.ReplanProposal, error) {
	var p models.ReplanProposal
	err := s.conn(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, wrapErr(err, "replan proposal not found")
	}
	return &p, nil
}

func (s *Store) CreateReplanApplication(ctx context.Context, a *models.ReplanApplication) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	return wrapErr(s.conn(ctx).Create(a).Error, "")
}

func (s *Store) GetReplanApplication(ctx context.Context, id uuid.UUID) (*models.ReplanApplication, error) {
	var a models.ReplanApplication
	err := s.conn(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		return nil, wrapErr(err, "replan application not found")
	}
	return &a, nil
}

func (s *Store) GetReplanApplicationByIdempotencyKey(ctx context.Context, tripID uuid.UUID, key string) (*models.ReplanApplication, error) {
	var a models.ReplanApplication
	err := s.conn(ctx).Where("trip_id = ? AND idempotency_key = ?", tripID, key).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.StorageUnavailable(err)
	}
	return &a, nil
}

func (s *Store) MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := s.conn(ctx).Model(&models.ReplanApplication{}).Where("id = ?", id).
		Updates(map[string]interface{}{"rolled_back": true, "rolled_back_at": at}).Error
	return wrapErr(err, "")
}

func (s *Store) ListReplanHistory(ctx context.Context, tripID uuid.UUID) ([]models.ReplanApplication, error) {
	var apps []models.ReplanApplication
	err := s.conn(ctx).Where("trip_id = ?", tripID).Order("created_at asc").Find(&apps).Error
	if err != nil {
		return nil, apperr.StorageUnavailable(err)
	}
	return apps, nil
}
