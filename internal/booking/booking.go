// Package booking implements the booking orchestrator: the state
// machine governing a Booking's lifecycle, idempotent creation, retry,
// cancellation, webhook ingestion, and cross-provider alternative search.
package booking

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"planengine/internal/apperr"
	"planengine/internal/models"
	"planengine/internal/providers"
	"planengine/internal/store"
)

// Orchestrator owns booking state transitions and provider dispatch.
type Orchestrator struct {
	store    store.Store
	registry *providers.Registry
}

func New(st store.Store, registry *providers.Registry) *Orchestrator {
	return &Orchestrator{store: st, registry: registry}
}

// allowedTransitions enumerates the booking state machine (spec §4.5).
var allowedTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingFailed},
	models.BookingFailed:    {models.BookingPending},
	models.BookingConfirmed: {models.BookingCanceled, models.BookingRefunded},
	models.BookingCanceled:  {models.BookingRefunded},
	models.BookingRefunded:  {},
}

func canTransition(from, to models.BookingStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CreateRequest carries the inputs to Create.
type CreateRequest struct {
	TripID         uuid.UUID
	ItemID         *uuid.UUID
	ProviderID     string
	ProviderItemID string
	Date           string
	TimeSlot       *string
	Travelers      models.Travelers
	ContactInfo    models.ContactInfo
	IdempotencyKey string
}

// Create looks up any existing booking for the idempotency key first;
// otherwise it inserts a pending booking, commits, then calls the
// provider outside the transaction and records the outcome.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if req.IdempotencyKey == "" {
		return nil, apperr.Validation("idempotency_key is required")
	}

	if rec, err := o.store.GetIdempotencyRecord(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if rec != nil {
		return o.store.GetBooking(ctx, rec.BookingID)
	}

	provider, err := o.registry.Get(req.ProviderID)
	if err != nil {
		return nil, apperr.NotFoundf("booking provider %q not registered", req.ProviderID)
	}

	booking := &models.Booking{
		TripID:      req.TripID,
		ItemID:      req.ItemID,
		ProviderID:  req.ProviderID,
		Status:      models.BookingPending,
		ContactInfo: req.ContactInfo,
		BookingDate: req.Date,
		BookingTime: req.TimeSlot,
	}
	err = o.store.Transact(ctx, req.TripID, func(ctx context.Context) error {
		if err := o.store.CreateBooking(ctx, booking); err != nil {
			return err
		}
		if err := o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID: booking.ID,
			ToStatus:  models.BookingPending,
			Reason:    "created",
		}); err != nil {
			return err
		}
		return o.store.CreateIdempotencyRecord(ctx, &models.IdempotencyRecord{
			Key:       req.IdempotencyKey,
			BookingID: booking.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	o.callProvider(ctx, provider, booking, req.ProviderItemID, req.Date, req.TimeSlot, req.Travelers, req.ContactInfo, req.IdempotencyKey)

	return o.store.GetBooking(ctx, booking.ID)
}

// callProvider invokes createBooking outside the insert transaction and
// applies the resulting success/failure transition in its own scope.
func (o *Orchestrator) callProvider(ctx context.Context, provider providers.BookingProvider, booking *models.Booking, providerItemID, date string, timeSlot *string, travelers models.Travelers, contact models.ContactInfo, idempotencyKey string) {
	result, err := provider.CreateBooking(ctx, providers.CreateBookingRequest{
		ProviderItemID: providerItemID,
		Date:           date,
		TimeSlot:       timeSlot,
		Travelers:      travelers,
		ContactInfo:    contact,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if applyErr := o.applyFailure(ctx, booking.TripID, booking.ID, err.Error()); applyErr != nil {
			log.Error().Err(applyErr).Str("booking_id", booking.ID.String()).Msg("failed to record booking failure")
		}
		return
	}
	if applyErr := o.applySuccess(ctx, booking.TripID, booking.ID, result); applyErr != nil {
		log.Error().Err(applyErr).Str("booking_id", booking.ID.String()).Msg("failed to record booking success")
	}
}

func (o *Orchestrator) applySuccess(ctx context.Context, tripID, bookingID uuid.UUID, result providers.CreateBookingResult) error {
	return o.store.Transact(ctx, tripID, func(ctx context.Context) error {
		b, err := o.store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		from := b.Status
		to := models.BookingConfirmed
		if result.Status == models.BookingPending {
			to = models.BookingPending
		}
		b.Status = to
		b.Price = result.Price
		b.Policies = result.Policies
		b.VoucherURL = result.VoucherURL
		b.VoucherData = result.VoucherData
		b.ConfirmationNumber = result.ConfirmationNumber
		b.ExternalBookingID = result.BookingID
		if err := o.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID:  bookingID,
			FromStatus: &from,
			ToStatus:   to,
			Reason:     "provider confirmed",
		})
	})
}

func (o *Orchestrator) applyFailure(ctx context.Context, tripID, bookingID uuid.UUID, reason string) error {
	return o.store.Transact(ctx, tripID, func(ctx context.Context) error {
		b, err := o.store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		from := b.Status
		b.Status = models.BookingFailed
		if err := o.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID:  bookingID,
			FromStatus: &from,
			ToStatus:   models.BookingFailed,
			Reason:     reason,
		})
	})
}

// Retry is only permitted from failed. It generates a fresh idempotency
// key — the provider call is not shared with the prior attempt — and
// replays the create flow.
func (o *Orchestrator) Retry(ctx context.Context, bookingID uuid.UUID, providerItemID, date string, timeSlot *string, travelers models.Travelers) (*models.Booking, error) {
	b, err := o.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingFailed {
		return nil, apperr.Conflict("retry is only permitted from failed")
	}
	provider, err := o.registry.Get(b.ProviderID)
	if err != nil {
		return nil, apperr.NotFoundf("booking provider %q not registered", b.ProviderID)
	}

	err = o.store.Transact(ctx, b.TripID, func(ctx context.Context) error {
		from := b.Status
		b.Status = models.BookingPending
		if err := o.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID:  bookingID,
			FromStatus: &from,
			ToStatus:   models.BookingPending,
			Reason:     "retry",
		})
	})
	if err != nil {
		return nil, err
	}

	freshKey := uuid.New().String()
	o.callProvider(ctx, provider, b, providerItemID, date, timeSlot, travelers, b.ContactInfo, freshKey)

	return o.store.GetBooking(ctx, bookingID)
}

// Cancel is only permitted from confirmed.
func (o *Orchestrator) Cancel(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	b, err := o.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingConfirmed {
		return nil, apperr.Conflict("cancel is only permitted from confirmed")
	}
	provider, err := o.registry.Get(b.ProviderID)
	if err != nil {
		return nil, apperr.NotFoundf("booking provider %q not registered", b.ProviderID)
	}

	if _, err := provider.CancelBooking(ctx, b.ExternalBookingID); err != nil {
		return nil, apperr.Provider(apperr.ProviderTransient, err)
	}

	err = o.store.Transact(ctx, b.TripID, func(ctx context.Context) error {
		from := b.Status
		b.Status = models.BookingCanceled
		if err := o.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID:  bookingID,
			FromStatus: &from,
			ToStatus:   models.BookingCanceled,
			Reason:     "canceled by caller",
		})
	})
	if err != nil {
		return nil, err
	}
	return o.store.GetBooking(ctx, bookingID)
}

// HandleWebhook parses a provider's webhook payload through its adapter
// and applies the corresponding transition to the booking it identifies.
func (o *Orchestrator) HandleWebhook(ctx context.Context, providerID string, payload []byte) error {
	provider, err := o.registry.Get(providerID)
	if err != nil {
		return apperr.NotFoundf("booking provider %q not registered", providerID)
	}
	event, err := provider.HandleWebhook(ctx, payload)
	if err != nil {
		return apperr.Provider(apperr.ProviderTerminal, err)
	}

	b, err := o.store.GetBookingByExternalID(ctx, event.ProviderBookingID)
	if err != nil {
		return err
	}

	var to models.BookingStatus
	switch event.EventType {
	case providers.WebhookBookingConfirmed:
		to = models.BookingConfirmed
	case providers.WebhookBookingCanceled:
		to = models.BookingCanceled
	case providers.WebhookPriceChanged, providers.WebhookAvailabilityChanged:
		log.Info().Str("booking_id", b.ID.String()).Str("event", string(event.EventType)).Msg("non-transitioning webhook event received")
		return nil
	default:
		return apperr.Conflictf("unrecognized webhook event type %q", event.EventType)
	}

	if !canTransition(b.Status, to) {
		return apperr.Conflictf("webhook transition %s -> %s is not permitted from the current booking state", b.Status, to)
	}

	return o.store.Transact(ctx, b.TripID, func(ctx context.Context) error {
		from := b.Status
		b.Status = to
		if err := o.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		return o.store.AppendBookingHistory(ctx, &models.BookingStateHistory{
			BookingID:  b.ID,
			FromStatus: &from,
			ToStatus:   to,
			Reason:     "webhook",
		})
	})
}

// Alternative is one ranked candidate returned by FindAlternatives.
type Alternative struct {
	ProviderID      string
	Result          providers.SearchResult
	PriceDeltaCents int64
}

// FindAlternatives queries the failed booking's own provider first, then
// every other registered provider, ranking results by absolute price
// delta from the failed booking.
func (o *Orchestrator) FindAlternatives(ctx context.Context, bookingID uuid.UUID, max int) ([]Alternative, error) {
	if max <= 0 {
		max = 3
	}
	b, err := o.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	options := map[string]interface{}{"date": b.BookingDate}
	if b.ItemID != nil {
		if item, err := o.store.GetItem(ctx, *b.ItemID); err == nil && item.Location != nil {
			options["lat"] = item.Location.Lat
			options["lng"] = item.Location.Lng
		}
	}

	var alts []Alternative
	for _, p := range o.orderedProviders(b.ProviderID) {
		results, err := p.Search(ctx, options)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.ID()).Msg("alternative search failed, skipping provider")
			continue
		}
		for _, r := range results {
			alts = append(alts, Alternative{
				ProviderID:      p.ID(),
				Result:          r,
				PriceDeltaCents: r.Price.AmountCents - b.Price.AmountCents,
			})
		}
	}

	sort.Slice(alts, func(i, j int) bool {
		return abs64(alts[i].PriceDeltaCents) < abs64(alts[j].PriceDeltaCents)
	})
	if len(alts) > max {
		alts = alts[:max]
	}
	return alts, nil
}

func (o *Orchestrator) orderedProviders(primaryID string) []providers.BookingProvider {
	all := o.registry.All()
	ordered := make([]providers.BookingProvider, 0, len(all))
	for _, p := range all {
		if p.ID() == primaryID {
			ordered = append(ordered, p)
		}
	}
	for _, p := range all {
		if p.ID() != primaryID {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
