// Package storefake is a hand-rolled in-memory store.Store used by unit
// tests for the generator, editor, booking orchestrator, and replan
// pipeline. It has no external dependency and needs no database.
package storefake

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"planengine/internal/apperr"
	"planengine/internal/models"
)

// Store is a mutex-guarded in-memory implementation of store.Store.
// Transact snapshots every map before running fn and restores the
// snapshot if fn returns an error, approximating the real store's
// atomic rollback without needing an actual database.
type Store struct {
	mu sync.Mutex

	trips       map[uuid.UUID]models.Trip
	prefs       map[uuid.UUID]models.TripPreferences
	itineraries map[uuid.UUID]models.Itinerary
	items       map[uuid.UUID]models.ItineraryItem
	versions    map[uuid.UUID][]models.ItineraryVersion
	bookings    map[uuid.UUID]models.Booking
	history     []models.BookingStateHistory
	idempotency map[string]models.IdempotencyRecord
	events      map[uuid.UUID]models.EventSignal
	triggers    map[uuid.UUID]models.ReplanTrigger
	proposals   map[uuid.UUID]models.ReplanProposal
	applications map[uuid.UUID]models.ReplanApplication
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		trips:        map[uuid.UUID]models.Trip{},
		prefs:        map[uuid.UUID]models.TripPreferences{},
		itineraries:  map[uuid.UUID]models.Itinerary{},
		items:        map[uuid.UUID]models.ItineraryItem{},
		versions:     map[uuid.UUID][]models.ItineraryVersion{},
		bookings:     map[uuid.UUID]models.Booking{},
		idempotency:  map[string]models.IdempotencyRecord{},
		events:       map[uuid.UUID]models.EventSignal{},
		triggers:     map[uuid.UUID]models.ReplanTrigger{},
		proposals:    map[uuid.UUID]models.ReplanProposal{},
		applications: map[uuid.UUID]models.ReplanApplication{},
	}
}

type snapshot struct {
	Trips        map[uuid.UUID]models.Trip
	Prefs        map[uuid.UUID]models.TripPreferences
	Itineraries  map[uuid.UUID]models.Itinerary
	Items        map[uuid.UUID]models.ItineraryItem
	Versions     map[uuid.UUID][]models.ItineraryVersion
	Bookings     map[uuid.UUID]models.Booking
	History      []models.BookingStateHistory
	Idempotency  map[string]models.IdempotencyRecord
	Events       map[uuid.UUID]models.EventSignal
	Triggers     map[uuid.UUID]models.ReplanTrigger
	Proposals    map[uuid.UUID]models.ReplanProposal
	Applications map[uuid.UUID]models.ReplanApplication
}

func (s *Store) restore(snap snapshot) {
	s.trips, s.prefs, s.items, s.versions = snap.Trips, snap.Prefs, snap.Items, snap.Versions
	s.itineraries = snap.Itineraries
	s.bookings, s.history, s.idempotency = snap.Bookings, snap.History, snap.Idempotency
	s.events, s.triggers, s.proposals, s.applications = snap.Events, snap.Triggers, snap.Proposals, snap.Applications
}

// deepCopyMaps clones every map by round-tripping through JSON, so mutations
// made during fn never alias the pre-transaction state. Must be called
// with s.mu held.
func deepCopyMaps(s *Store) snapshot {
	clone := func(v, dest interface{}) {
		b, _ := json.Marshal(v)
		_ = json.Unmarshal(b, dest)
	}
	var snap snapshot
	clone(s.trips, &snap.Trips)
	clone(s.prefs, &snap.Prefs)
	clone(s.itineraries, &snap.Itineraries)
	clone(s.items, &snap.Items)
	clone(s.versions, &snap.Versions)
	clone(s.bookings, &snap.Bookings)
	clone(s.history, &snap.History)
	clone(s.idempotency, &snap.Idempotency)
	clone(s.events, &snap.Events)
	clone(s.triggers, &snap.Triggers)
	clone(s.proposals, &snap.Proposals)
	clone(s.applications, &snap.Applications)
	return snap
}

// Transact takes the store's lock only long enough to check the trip
// exists and to snapshot the current state, then runs fn unlocked so fn
// can call back into the store's own (separately locking) methods
// without deadlocking. On error every map is restored to the
// pre-transaction snapshot.
func (s *Store) Transact(ctx context.Context, tripID uuid.UUID, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if _, ok := s.trips[tripID]; !ok {
		s.mu.Unlock()
		return apperr.NotFoundf("trip %s not found", tripID)
	}
	before := deepCopyMaps(s)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.restore(before)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) CreateTrip(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now().UTC()
	trip.CreatedAt, trip.UpdatedAt = now, now
	s.trips[trip.ID] = *trip
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, apperr.NotFound("trip not found")
	}
	return &t, nil
}

func (s *Store) UpdateTripStatus(ctx context.Context, id uuid.UUID, status models.TripStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return apperr.NotFound("trip not found")
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	s.trips[id] = t
	return nil
}

func (s *Store) CreateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	prefs.CreatedAt, prefs.UpdatedAt = now, now
	s.prefs[prefs.TripID] = *prefs
	return nil
}

func (s *Store) GetTripPreferences(ctx context.Context, tripID uuid.UUID) (*models.TripPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[tripID]
	if !ok {
		return nil, apperr.NotFound("trip preferences not found")
	}
	return &p, nil
}

func (s *Store) UpdateTripPreferences(ctx context.Context, prefs *models.TripPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs.UpdatedAt = time.Now().UTC()
	s.prefs[prefs.TripID] = *prefs
	return nil
}

func (s *Store) ListItems(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ItineraryItem, 0)
	for _, item := range s.items {
		if item.TripID == tripID {
			out = append(out, item)
		}
	}
	sortItems(out)
	return out, nil
}

func sortItems(items []models.ItineraryItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := items[j-1], items[j]
			if a.Day > b.Day || (a.Day == b.Day && a.Order > b.Order) {
				items[j-1], items[j] = items[j], items[j-1]
			} else {
				break
			}
		}
	}
}

func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*models.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("item not found")
	}
	return &item, nil
}

func (s *Store) CreateItems(ctx context.Context, items []models.ItineraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].CreatedAt, items[i].UpdatedAt = now, now
		s.items[items[i].ID] = items[i]
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, item *models.ItineraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = *item
	return nil
}

func (s *Store) DeleteItems(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.items, id)
	}
	return nil
}

func (s *Store) DeleteNonPinnedItems(ctx context.Context, tripID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		if item.TripID == tripID && !item.IsPinned {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *Store) LatestVersion(ctx context.Context, tripID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itineraries[tripID].Version, nil
}

func (s *Store) SetCurrentVersion(ctx context.Context, tripID uuid.UUID, version int, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itineraries[tripID] = models.Itinerary{TripID: tripID, Version: version, GeneratedAt: generatedAt}
	return nil
}

func (s *Store) CreateVersion(ctx context.Context, version *models.ItineraryVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	version.CreatedAt = time.Now().UTC()
	s.versions[version.TripID] = append(s.versions[version.TripID], *version)
	return nil
}

func (s *Store) GetVersionSnapshot(ctx context.Context, tripID uuid.UUID, version int) (*models.ItineraryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions[tripID] {
		if v.Version == version {
			return &v, nil
		}
	}
	return nil, apperr.NotFound("version snapshot not found")
}

func (s *Store) ListVersions(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.ItineraryVersion(nil), s.versions[tripID]...)
	return out, nil
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now().UTC()
	booking.CreatedAt, booking.UpdatedAt = now, now
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	return &b, nil
}

func (s *Store) GetBookingByExternalID(ctx context.Context, externalID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ExternalBookingID == externalID {
			return &b, nil
		}
	}
	return nil, apperr.NotFound("booking not found")
}

func (s *Store) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking.UpdatedAt = time.Now().UTC()
	s.bookings[booking.ID] = *booking
	return nil
}

func (s *Store) AppendBookingHistory(ctx context.Context, h *models.BookingStateHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Ts.IsZero() {
		h.Ts = time.Now().UTC()
	}
	s.history = append(s.history, *h)
	return nil
}

func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) CreateIdempotencyRecord(ctx context.Context, rec *models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.CreatedAt = time.Now().UTC()
	s.idempotency[rec.Key] = *rec
	return nil
}

func (s *Store) CreateEventSignal(ctx context.Context, e *models.EventSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	s.events[e.ID] = *e
	return nil
}

func (s *Store) GetEventSignal(ctx context.Context, id uuid.UUID) (*models.EventSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.NotFound("event signal not found")
	}
	return &e, nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id uuid.UUID, triggered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return apperr.NotFound("event signal not found")
	}
	e.Processed = true
	e.ReplanTriggered = triggered
	s.events[id] = e
	return nil
}

func (s *Store) CreateReplanTrigger(ctx context.Context, t *models.ReplanTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	s.triggers[t.ID] = *t
	return nil
}

func (s *Store) GetReplanTrigger(ctx context.Context, id uuid.UUID) (*models.ReplanTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok {
		return nil, apperr.NotFound("replan trigger not found")
	}
	return &t, nil
}

func (s *Store) MarkTriggerProcessed(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok {
		return apperr.NotFound("replan trigger not found")
	}
	t.Processed = true
	s.triggers[id] = t
	return nil
}

func (s *Store) CreateReplanProposal(ctx context.Context, p *models.ReplanProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	s.proposals[p.ID] = *p
	return nil
}

func (s *Store) ListProposalsForTrigger(ctx context.Context, triggerID uuid.UUID) ([]models.ReplanProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ReplanProposal, 0)
	for _, p := range s.proposals {
		if p.TriggerID == triggerID {
			out = append(out, p)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Score < out[j].Score; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

func (s *Store) GetReplanProposal(ctx context.Context, id uuid.UUID) (*models.ReplanProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, apperr.NotFound("replan proposal not found")
	}
	return &p, nil
}

func (s *Store) CreateReplanApplication(ctx context.Context, a *models.ReplanApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	s.applications[a.ID] = *a
	return nil
}

func (s *Store) GetReplanApplication(ctx context.Context, id uuid.UUID) (*models.ReplanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, apperr.NotFound("replan application not found")
	}
	return &a, nil
}

func (s *Store) GetReplanApplicationByIdempotencyKey(ctx context.Context, tripID uuid.UUID, key string) (*models.ReplanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.applications {
		if a.TripID == tripID && a.IdempotencyKey == key {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *Store) MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return apperr.NotFound("replan application not found")
	}
	a.RolledBack = true
	a.RolledBackAt = &at
	s.applications[id] = a
	return nil
}

func (s *Store) ListReplanHistory(ctx context.Context, tripID uuid.UUID) ([]models.ReplanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ReplanApplication, 0)
	for _, a := range s.applications {
		if a.TripID == tripID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
