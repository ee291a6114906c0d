// Package providers defines the capability sets the core consumes from
// external systems (booking providers, the POI catalog, routing, and
// weather) plus a tagged-dispatch registry for booking providers keyed
// by provider id.
package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"planengine/internal/models"
)

// SearchResult is one row from a booking provider's search.
type SearchResult struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Price       models.Money    `json:"price"`
	Rating      *float64        `json:"rating,omitempty"`
}

// Details is the full detail record for a bookable item.
type Details struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Location     *models.Location    `json:"location,omitempty"`
	Price        models.Money        `json:"price"`
	Availability bool                `json:"availability"`
	Policies     models.BookingPolicies `json:"policies"`
	Rating       *float64            `json:"rating,omitempty"`
}

// AvailabilitySlot is one bookable time slot.
type AvailabilitySlot struct {
	Time      string        `json:"time"`
	Available bool          `json:"available"`
	Price     *models.Money `json:"price,omitempty"`
}

// Availability is the result of checkAvailability.
type Availability struct {
	Available bool               `json:"available"`
	Slots     []AvailabilitySlot `json:"slots,omitempty"`
}

// CreateBookingRequest is passed to a provider's createBooking.
type CreateBookingRequest struct {
	ProviderItemID string             `json:"provider_item_id"`
	Date           string             `json:"date"`
	TimeSlot       *string            `json:"time_slot,omitempty"`
	Travelers      models.Travelers   `json:"travelers"`
	ContactInfo    models.ContactInfo `json:"contact_info"`
	IdempotencyKey string             `json:"idempotency_key"`
}

// CreateBookingResult is returned by a provider's createBooking. It MUST
// be idempotent on IdempotencyKey: replaying the same request returns an
// equal result referencing the same BookingID.
type CreateBookingResult struct {
	BookingID          string              `json:"booking_id"`
	Status             models.BookingStatus `json:"status"` // confirmed | pending
	Price              models.Money        `json:"price"`
	Policies           models.BookingPolicies `json:"policies"`
	VoucherURL         string              `json:"voucher_url,omitempty"`
	VoucherData        string              `json:"voucher_data,omitempty"`
	ConfirmationNumber string              `json:"confirmation_number"`
	ExpiresAt          *time.Time          `json:"expires_at,omitempty"`
}

// RefundStatus enumerates cancelBooking's refund outcome.
type RefundStatus string

const (
	RefundFull    RefundStatus = "full"
	RefundPartial RefundStatus = "partial"
	RefundNone    RefundStatus = "none"
)

// CancelResult is returned by a provider's cancelBooking.
type CancelResult struct {
	BookingID    string        `json:"booking_id"`
	RefundAmount *models.Money `json:"refund_amount,omitempty"`
	RefundStatus RefundStatus  `json:"refund_status"`
}

// WebhookEventType enumerates the neutral event types a provider adapter
// normalizes its webhook payloads into.
type WebhookEventType string

const (
	WebhookBookingConfirmed    WebhookEventType = "booking_confirmed"
	WebhookBookingCanceled     WebhookEventType = "booking_canceled"
	WebhookPriceChanged        WebhookEventType = "price_changed"
	WebhookAvailabilityChanged WebhookEventType = "availability_changed"
)

// WebhookEvent is the neutral shape every provider adapter normalizes
// its webhook payloads into.
type WebhookEvent struct {
	EventType         WebhookEventType       `json:"event_type"`
	ProviderBookingID string                 `json:"provider_booking_id"`
	Timestamp         time.Time              `json:"timestamp"`
	Payload           map[string]interface{} `json:"payload"`
}

// BookingProvider is the capability set the booking orchestrator
// requires of every provider adapter.
type BookingProvider interface {
	ID() string
	Search(ctx context.Context, options map[string]interface{}) ([]SearchResult, error)
	GetDetails(ctx context.Context, id string) (Details, error)
	CheckAvailability(ctx context.Context, id, date string, travelers models.Travelers) (Availability, error)
	CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResult, error)
	GetBookingStatus(ctx context.Context, bookingID string) (models.BookingStatus, error)
	CancelBooking(ctx context.Context, bookingID string) (CancelResult, error)
	HandleWebhook(ctx context.Context, payload []byte) (WebhookEvent, error)
	HealthCheck(ctx context.Context) bool
}

// POICatalog is the capability set consumed for POI lookup and search.
type POICatalog interface {
	Get(ctx context.Context, id string) (models.POI, error)
	Search(ctx context.Context, filters map[string]interface{}) ([]models.POI, error)
}

// RouteResult is returned by a routing provider's computeRoute.
type RouteResult struct {
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes int           `json:"duration_minutes"`
	CostEstimate    *models.Money `json:"cost_estimate,omitempty"`
	Polyline        string        `json:"polyline,omitempty"`
}

// RoutingProvider computes travel time/distance between two points.
type RoutingProvider interface {
	ComputeRoute(ctx context.Context, from, to models.Location, mode models.RouteMode, departureTime *time.Time) (RouteResult, error)
}

// WeatherForecast is returned by a weather provider's getWeatherForecast.
type WeatherForecast struct {
	Condition models.WeatherCondition `json:"condition"`
	Severity  models.Severity         `json:"severity"`
	Details   models.WeatherDetails   `json:"details"`
}

// WeatherProvider supplies forecasts used by the event ingest stage.
type WeatherProvider interface {
	GetWeatherForecast(ctx context.Context, lat, lng float64, date string) (WeatherForecast, error)
}

// Registry is a process-wide, read-mostly table of booking providers
// keyed by provider id — a tagged set of adapters with a single
// dispatch point, per the capability-set/registry design.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]BookingProvider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]BookingProvider)}
}

// Register adds or replaces a provider under its own ID().
func (r *Registry) Register(p BookingProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get looks up a provider by id.
func (r *Registry) Get(providerID string) (BookingProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q", providerID)
	}
	return p, nil
}

// All returns every registered provider, for findAlternatives fan-out.
func (r *Registry) All() []BookingProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BookingProvider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}
