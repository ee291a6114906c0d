// Package mockprovider is an in-memory BookingProvider used in tests and
// local development. It seeds a handful of bookable items and never
// talks to the network.
package mockprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"planengine/internal/models"
	"planengine/internal/providers"
)

// ProviderID is the registry key this adapter registers under.
const ProviderID = "mock"

// Provider holds in-memory bookings keyed by idempotency key, so
// replayed createBooking calls are answered without a second side
// effect.
type Provider struct {
	mu       sync.Mutex
	items    map[string]providers.Details
	byIdem   map[string]providers.CreateBookingResult
	byID     map[string]providers.CreateBookingResult
	statuses map[string]models.BookingStatus
}

// New constructs the mock provider with a small seeded catalog.
func New() *Provider {
	p := &Provider{
		items:    map[string]providers.Details{},
		byIdem:   map[string]providers.CreateBookingResult{},
		byID:     map[string]providers.CreateBookingResult{},
		statuses: map[string]models.BookingStatus{},
	}
	p.seed()
	return p
}

func (p *Provider) seed() {
	p.items["item-1"] = providers.Details{
		ID:           "item-1",
		Name:         "City Museum Pass",
		Price:        models.Money{AmountCents: 50000, Currency: "THB"},
		Availability: true,
		Policies:     models.BookingPolicies{Cancellation: "free up to 24h before", Refund: "full"},
	}
	p.items["item-2"] = providers.Details{
		ID:           "item-2",
		Name:         "River Boat Tour",
		Price:        models.Money{AmountCents: 80000, Currency: "THB"},
		Availability: true,
		Policies:     models.BookingPolicies{Cancellation: "non-refundable", Refund: "none"},
	}
}

func (p *Provider) ID() string { return ProviderID }

func (p *Provider) Search(ctx context.Context, options map[string]interface{}) ([]providers.SearchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	results := make([]providers.SearchResult, 0, len(p.items))
	for id, d := range p.items {
		results = append(results, providers.SearchResult{
			ID:    id,
			Name:  d.Name,
			Price: d.Price,
		})
	}
	return results, nil
}

func (p *Provider) GetDetails(ctx context.Context, id string) (providers.Details, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	d, ok := p.items[id]
	if !ok {
		return providers.Details{}, fmt.Errorf("mockprovider: item %q not found", id)
	}
	return d, nil
}

func (p *Provider) CheckAvailability(ctx context.Context, id, date string, travelers models.Travelers) (providers.Availability, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.items[id]; !ok {
		return providers.Availability{}, fmt.Errorf("mockprovider: item %q not found", id)
	}
	return providers.Availability{
		Available: true,
		Slots: []providers.AvailabilitySlot{
			{Time: "10:00", Available: true},
			{Time: "14:00", Available: true},
		},
	}, nil
}

func (p *Provider) CreateBooking(ctx context.Context, req providers.CreateBookingRequest) (providers.CreateBookingResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byIdem[req.IdempotencyKey]; ok {
		return existing, nil
	}

	d, ok := p.items[req.ProviderItemID]
	if !ok {
		return providers.CreateBookingResult{}, fmt.Errorf("mockprovider: item %q not found", req.ProviderItemID)
	}

	bookingID := uuid.NewString()
	result := providers.CreateBookingResult{
		BookingID:          bookingID,
		Status:             models.BookingConfirmed,
		Price:              d.Price,
		Policies:           d.Policies,
		ConfirmationNumber: fmt.Sprintf("MOCK-%s", bookingID[:8]),
	}

	p.byIdem[req.IdempotencyKey] = result
	p.byID[bookingID] = result
	p.statuses[bookingID] = models.BookingConfirmed
	return result, nil
}

func (p *Provider) GetBookingStatus(ctx context.Context, bookingID string) (models.BookingStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, ok := p.statuses[bookingID]
	if !ok {
		return "", fmt.Errorf("mockprovider: booking %q not found", bookingID)
	}
	return status, nil
}

func (p *Provider) CancelBooking(ctx context.Context, bookingID string) (providers.CancelResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result, ok := p.byID[bookingID]
	if !ok {
		return providers.CancelResult{}, fmt.Errorf("mockprovider: booking %q not found", bookingID)
	}
	p.statuses[bookingID] = models.BookingCanceled

	return providers.CancelResult{
		BookingID:    bookingID,
		RefundAmount: &result.Price,
		RefundStatus: providers.RefundFull,
	}, nil
}

// webhookPayload is the shape of the mock provider's webhook body.
type webhookPayload struct {
	EventType WebhookPayloadType `json:"event_type"`
	BookingID string             `json:"booking_id"`
}

// WebhookPayloadType mirrors the subset of providers.WebhookEventType
// the mock adapter can receive over the wire.
type WebhookPayloadType string

func (p *Provider) HandleWebhook(ctx context.Context, payload []byte) (providers.WebhookEvent, error) {
	var wp webhookPayload
	if err := json.Unmarshal(payload, &wp); err != nil {
		return providers.WebhookEvent{}, fmt.Errorf("mockprovider: invalid webhook payload: %w", err)
	}

	return providers.WebhookEvent{
		EventType:         providers.WebhookEventType(wp.EventType),
		ProviderBookingID: wp.BookingID,
		Timestamp:         time.Now().UTC(),
		Payload:           map[string]interface{}{"raw": string(payload)},
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) bool { return true }
