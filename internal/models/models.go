// Package models holds the plan aggregate's persisted entities: trips,
// preferences, itinerary items, versions, bookings, and the event/replan
// chain. Table names follow the teacher's one-method-per-type convention.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Money is a fixed-point monetary amount. The retrieval pack carries no
// third-party decimal library, so amounts are integer minor units (cents)
// rather than floating point — see DESIGN.md for why this one piece stays
// on the standard library.
type Money struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// Location is a geographic point with optional postal address.
type Location struct {
	Lat     float64 `json:"lat" gorm:"column:lat"`
	Lng     float64 `json:"lng" gorm:"column:lng"`
	Address string  `json:"address,omitempty" gorm:"column:address"`
}

// OwnerKind distinguishes a registered-user-owned trip from a guest one.
type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

// TripStatus enumerates the Trip lifecycle states.
type TripStatus string

const (
	TripDraft     TripStatus = "draft"
	TripPlanning  TripStatus = "planning"
	TripBooked    TripStatus = "booked"
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Trip is the root of the plan aggregate.
type Trip struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerKind OwnerKind  `json:"owner_kind" gorm:"not null"`
	OwnerID   string     `json:"owner_id" gorm:"not null"`
	Status    TripStatus `json:"status" gorm:"not null;default:draft"`
	ShareCode string     `json:"share_code" gorm:"uniqueIndex"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Trip) TableName() string { return "trips" }

// Travelers is the traveler mix for a trip.
type Travelers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Seniors  int `json:"seniors"`
}

// Budget carries optional total/per-day ceilings.
type Budget struct {
	TotalCents  *int64 `json:"total_cents,omitempty"`
	PerDayCents *int64 `json:"per_day_cents,omitempty"`
	Currency    string `json:"currency"`
}

// Constraints narrows generation/validation behavior for a trip.
type Constraints struct {
	MaxWalkingKmPerDay *float64 `json:"max_walking_km_per_day,omitempty"`
	HasChildren        bool     `json:"has_children"`
	HasSeniors         bool     `json:"has_seniors"`
	NeedsRestTime      bool     `json:"needs_rest_time"`
	AvoidCrowds        bool     `json:"avoid_crowds"`
}

// TripPreferences is the 1:1 preferences record for a trip.
type TripPreferences struct {
	TripID           uuid.UUID   `json:"trip_id" gorm:"primaryKey;type:uuid"`
	Destination      string      `json:"destination"`
	StartDate        string      `json:"start_date"` // YYYY-MM-DD
	EndDate          string      `json:"end_date"`
	Travelers        Travelers   `json:"travelers" gorm:"embedded;embeddedPrefix:travelers_"`
	Budget           Budget      `json:"budget" gorm:"embedded;embeddedPrefix:budget_"`
	Style            string      `json:"style"`
	DailyWindowStart string      `json:"daily_window_start"` // HH:MM
	DailyWindowEnd   string      `json:"daily_window_end"`   // HH:MM
	Constraints      Constraints `json:"constraints" gorm:"embedded;embeddedPrefix:constraints_"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (TripPreferences) TableName() string { return "trip_preferences" }

// DayHours is a single weekday's opening hours for a POI.
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// POI is the read-only, core-external point-of-interest reference. It is
// not a gorm model of its own table in this service — the catalog owns
// it — but it flows through the generator/editor as a plain value.
type POI struct {
	ID                  uuid.UUID           `json:"id"`
	PlaceID             string              `json:"place_id"`
	Name                string              `json:"name"`
	Location            Location            `json:"location"`
	Hours               map[string]DayHours `json:"hours"` // keyed by lowercase weekday
	Tags                []string            `json:"tags"`
	AvgDurationMinutes  int                 `json:"avg_duration_minutes"`
	PriceRangeLowCents  *int64              `json:"price_range_low_cents,omitempty"`
	PriceRangeHighCents *int64              `json:"price_range_high_cents,omitempty"`
}

// ItemType enumerates ItineraryItem.Type.
type ItemType string

const (
	ItemPOI       ItemType = "poi"
	ItemActivity  ItemType = "activity"
	ItemHotel     ItemType = "hotel"
	ItemTransport ItemType = "transport"
	ItemMeal      ItemType = "meal"
	ItemFreeTime  ItemType = "free_time"
)

// RouteMode enumerates RouteSegment.Mode.
type RouteMode string

const (
	ModeWalking RouteMode = "walking"
	ModeTransit RouteMode = "transit"
	ModeTaxi    RouteMode = "taxi"
	ModeDrive   RouteMode = "drive"
)

// RouteSegment describes the hop from the previous item to this one.
type RouteSegment struct {
	FromItemID      *uuid.UUID `json:"from_item_id,omitempty"`
	ToItemID        uuid.UUID  `json:"to_item_id"`
	Mode            RouteMode  `json:"mode"`
	DistanceKm      float64    `json:"distance_km"`
	DurationMinutes int        `json:"duration_minutes"`
	CostEstimate    *Money     `json:"cost_estimate,omitempty"`
}

// CostConfidence enumerates CostEstimate.Confidence.
type CostConfidence string

const (
	CostFixed     CostConfidence = "fixed"
	CostEstimated CostConfidence = "estimated"
)

// CostEstimate is a priced estimate with a confidence tag.
type CostEstimate struct {
	Money
	Confidence CostConfidence `json:"confidence"`
}

// ItineraryItem is a single scheduled entry in one day of a trip.
type ItineraryItem struct {
	ID                uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	TripID            uuid.UUID     `json:"trip_id" gorm:"index;type:uuid"`
	Day               int           `json:"day"`
	Type              ItemType      `json:"type"`
	POIID             *uuid.UUID    `json:"poi_id,omitempty" gorm:"type:uuid"`
	Name              string        `json:"name"`
	Location          *Location     `json:"location,omitempty" gorm:"embedded;embeddedPrefix:loc_"`
	StartTime         string        `json:"start_time"` // HH:MM
	EndTime           string        `json:"end_time"`   // HH:MM
	DurationMinutes   int           `json:"duration_minutes"`
	IsPinned          bool          `json:"is_pinned"`
	Order             int           `json:"order"`
	RouteFromPrevious *RouteSegment `json:"route_from_previous,omitempty" gorm:"serializer:json"`
	CostEstimate      *CostEstimate `json:"cost_estimate,omitempty" gorm:"serializer:json"`
	Notes             string        `json:"notes,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func (ItineraryItem) TableName() string { return "itinerary_items" }

// Itinerary is the per-trip current-version pointer row (spec.md §6:
// itineraries(trip_id PK, version, generated_at)). It is the
// authoritative source of the trip's current itinerary version; it is
// advanced on generate/edit/replan and moved backwards on rollback.
type Itinerary struct {
	TripID      uuid.UUID `json:"trip_id" gorm:"primaryKey;type:uuid"`
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (Itinerary) TableName() string { return "itineraries" }

// ChangeType enumerates ItineraryVersion.ChangeType.
type ChangeType string

const (
	ChangeGenerate ChangeType = "generate"
	ChangeEdit     ChangeType = "edit"
	ChangeReplan   ChangeType = "replan"
)

// DaySnapshot is one day's worth of items inside a version snapshot.
type DaySnapshot struct {
	Day   int             `json:"day"`
	Items []ItineraryItem `json:"items"`
}

// ItineraryVersion is an append-only snapshot of the full itinerary.
type ItineraryVersion struct {
	ID         uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	TripID     uuid.UUID     `json:"trip_id" gorm:"index;type:uuid"`
	Version    int           `json:"version"`
	ChangeType ChangeType    `json:"change_type"`
	ChangedBy  string        `json:"changed_by,omitempty"`
	Snapshot   []DaySnapshot `json:"snapshot" gorm:"serializer:json"`
	Diff       *string       `json:"diff,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (ItineraryVersion) TableName() string { return "itinerary_versions" }

// BookingStatus enumerates the Booking state machine's states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
	BookingCanceled  BookingStatus = "canceled"
	BookingRefunded  BookingStatus = "refunded"
)

// BookingPolicies describes cancellation/refund terms.
type BookingPolicies struct {
	Cancellation         string     `json:"cancellation,omitempty"`
	Refund               string     `json:"refund,omitempty"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
}

// ContactInfo is the traveler contact payload passed to providers.
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking is an external reservation tracked against an itinerary item.
type Booking struct {
	ID                 uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	TripID             uuid.UUID       `json:"trip_id" gorm:"index;type:uuid"`
	ItemID             *uuid.UUID      `json:"item_id,omitempty" gorm:"type:uuid"`
	ProviderID         string          `json:"provider_id"`
	ProviderType       string          `json:"provider_type"`
	ExternalBookingID  string          `json:"external_booking_id,omitempty" gorm:"index"`
	Status             BookingStatus   `json:"status" gorm:"index"`
	Price              Money           `json:"price" gorm:"embedded;embeddedPrefix:price_"`
	Policies           BookingPolicies `json:"policies" gorm:"embedded;embeddedPrefix:policy_"`
	VoucherURL         string          `json:"voucher_url,omitempty"`
	VoucherData        string          `json:"voucher_data,omitempty"`
	ConfirmationNumber string          `json:"confirmation_number,omitempty"`
	BookingDate        string          `json:"booking_date,omitempty"`
	BookingTime        *string         `json:"booking_time,omitempty"`
	ContactInfo        ContactInfo     `json:"contact_info" gorm:"embedded;embeddedPrefix:contact_"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// BookingStateHistory is an append-only transition log for a Booking.
type BookingStateHistory struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	BookingID  uuid.UUID      `json:"booking_id" gorm:"index;type:uuid"`
	FromStatus *BookingStatus `json:"from_status,omitempty"`
	ToStatus   BookingStatus  `json:"to_status"`
	Reason     string         `json:"reason,omitempty"`
	ChangedBy  string         `json:"changed_by,omitempty"`
	Ts         time.Time      `json:"ts"`
}

func (BookingStateHistory) TableName() string { return "booking_state_history" }

// IdempotencyRecord maps a caller-supplied key to the booking it created.
type IdempotencyRecord struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid"`
	CreatedAt time.Time `json:"created_at"`
}

func (IdempotencyRecord) TableName() string { return "booking_idempotency" }

// EventType enumerates EventSignal.Type.
type EventType string

const (
	EventWeather             EventType = "weather"
	EventClosure             EventType = "closure"
	EventSoldOut             EventType = "sold_out"
	EventDelay               EventType = "delay"
	EventAvailabilityChanged EventType = "availability_changed"
)

// Severity enumerates EventSignal.Severity / ReplanTrigger.Priority tiers.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// WeatherCondition enumerates the condition carried in EventDetails for
// weather events.
type WeatherCondition string

const (
	ConditionSunny     WeatherCondition = "sunny"
	ConditionLightRain WeatherCondition = "light_rain"
	ConditionHeavyRain WeatherCondition = "heavy_rain"
	ConditionCloudy    WeatherCondition = "cloudy"
	ConditionSnow      WeatherCondition = "snow"
)

// EventDetails is a tagged union over the per-event-type detail payload:
// a concrete sum type instead of an untyped JSON blob. Exactly one of the
// typed fields is populated, selected by the owning EventSignal.Type.
type EventDetails struct {
	Weather *WeatherDetails `json:"weather,omitempty"`
	Closure *ClosureDetails `json:"closure,omitempty"`
	SoldOut *SoldOutDetails `json:"sold_out,omitempty"`
	Delay   *DelayDetails   `json:"delay,omitempty"`
}

type WeatherDetails struct {
	Condition   WeatherCondition `json:"condition"`
	Temperature *float64         `json:"temperature,omitempty"`
	Humidity    *float64         `json:"humidity,omitempty"`
	WindSpeed   *float64         `json:"wind_speed,omitempty"`
	Impact      string           `json:"impact,omitempty"`
}

type ClosureDetails struct {
	Reason string `json:"reason,omitempty"`
}

type SoldOutDetails struct {
	ItemType string `json:"item_type,omitempty"`
}

type DelayDetails struct {
	DelayMinutes int    `json:"delay_minutes,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// TimeSlot bounds an event's affected window.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventSignal is an ingested disruption signal.
type EventSignal struct {
	ID              uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	TripID          uuid.UUID    `json:"trip_id" gorm:"index;type:uuid"`
	Type            EventType    `json:"type"`
	Severity        Severity     `json:"severity"`
	Location        Location     `json:"location" gorm:"embedded;embeddedPrefix:loc_"`
	TimeSlot        TimeSlot     `json:"time_slot" gorm:"embedded;embeddedPrefix:slot_"`
	Details         EventDetails `json:"details" gorm:"serializer:json"`
	AffectedItems   []uuid.UUID  `json:"affected_items" gorm:"serializer:json"`
	Processed       bool         `json:"processed"`
	ReplanTriggered bool         `json:"replan_triggered"`
	CreatedAt       time.Time    `json:"created_at"`
}

func (EventSignal) TableName() string { return "event_signals" }

// ReplanTrigger is emitted by the ingest stage for events that warrant a
// replan.
type ReplanTrigger struct {
	ID            uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TripID        uuid.UUID `json:"trip_id" gorm:"index;type:uuid"`
	EventSignalID uuid.UUID `json:"event_signal_id" gorm:"type:uuid"`
	Reason        string    `json:"reason"`
	Priority      Severity  `json:"priority"`
	Processed     bool      `json:"processed" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ReplanTrigger) TableName() string { return "replan_triggers" }

// ReplacedItem pairs the old item id with the new item replacing it.
type ReplacedItem struct {
	OldItemID uuid.UUID     `json:"old_item_id"`
	NewItem   ItineraryItem `json:"new_item"`
}

// MovedItem describes a new day/time for an existing item.
type MovedItem struct {
	ItemID   uuid.UUID `json:"item_id"`
	NewDay   int       `json:"new_day"`
	NewStart string    `json:"new_start_time"`
}

// ProposalChanges enumerates the edits a ReplanProposal would apply.
type ProposalChanges struct {
	Replaced []ReplacedItem  `json:"replaced_items,omitempty"`
	Moved    []MovedItem     `json:"moved_items,omitempty"`
	Removed  []uuid.UUID     `json:"removed_items,omitempty"`
	Added    []ItineraryItem `json:"added_items,omitempty"`
}

// ProposalImpact is the estimated impact of applying a proposal.
type ProposalImpact struct {
	TimeChangeMinutes int     `json:"time_change_minutes"`
	CostChangeCents   int64   `json:"cost_change_cents"`
	DistanceChangeKm  float64 `json:"distance_change_km"`
	DisruptionScore   float64 `json:"disruption_score"`
}

// ReplanProposal is a ranked, structured candidate fix for a trigger.
type ReplanProposal struct {
	ID          uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	TripID      uuid.UUID       `json:"trip_id" gorm:"index;type:uuid"`
	TriggerID   uuid.UUID       `json:"trigger_id" gorm:"index;type:uuid"`
	Score       float64         `json:"score"`
	Explanation string          `json:"explanation"`
	Changes     ProposalChanges `json:"changes" gorm:"serializer:json"`
	Impact      ProposalImpact  `json:"impact" gorm:"embedded;embeddedPrefix:impact_"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (ReplanProposal) TableName() string { return "replan_proposals" }

// ReplanApplication records one atomic apply of a proposal, with its
// rollback window.
type ReplanApplication struct {
	ID                     uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	TripID                 uuid.UUID  `json:"trip_id" gorm:"index;type:uuid"`
	ProposalID             uuid.UUID  `json:"proposal_id" gorm:"type:uuid"`
	IdempotencyKey         string     `json:"idempotency_key" gorm:"index"`
	AppliedVersion         int        `json:"applied_version"`
	RollbackAvailableUntil time.Time  `json:"rollback_available_until"`
	RolledBack             bool       `json:"rolled_back"`
	RolledBackAt           *time.Time `json:"rolled_back_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

func (ReplanApplication) TableName() string { return "replan_applications" }
