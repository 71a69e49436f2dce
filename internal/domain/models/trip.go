package models

import (
	"time"

	"github.com/safarigo/ridehail/internal/domain/types"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a coordinate with its display address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// FareSnapshot is the immutable fare computed at trip creation time.
// It is never recomputed after the trip exists.
type FareSnapshot struct {
	Currency        string         `json:"currency"`
	BaseFare        float64        `json:"base_fare"`
	DistanceFare    float64        `json:"distance_fare"`
	TimeFare        float64        `json:"time_fare"`
	SurgeMultiplier float64        `json:"surge_multiplier"`
	Total           float64        `json:"total"`
	DistanceMeters  float64        `json:"distance_meters"`
	DurationSeconds float64        `json:"duration_seconds"`
	RideType        types.RideType `json:"ride_type"`
}

// Trip is the aggregate root of the domain. The record is mutated in
// place, but every state transition is additionally recorded as a
// TripEvent so the full history stays reconstructable.
type Trip struct {
	ID            string              `json:"id"`
	RiderID       int64               `json:"rider_id"`
	DriverID      *string             `json:"driver_id"`
	Pickup        Location            `json:"pickup"`
	Dropoff       Location            `json:"dropoff"`
	State         types.TripState     `json:"state"`
	PaymentMethod types.PaymentMethod `json:"payment_method"`
	Fare          FareSnapshot        `json:"fare"`
	CancelFee     float64             `json:"cancel_fee"`

	PinRequired  bool       `json:"pin_required"`
	PinExpiresAt *time.Time `json:"pin_expires_at"`
	PinAttempts  int        `json:"pin_attempts"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	MatchedAt   *time.Time `json:"matched_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// TripEvent is an append-only audit entry. FromState is nil only for
// the creation event.
type TripEvent struct {
	ID        string           `json:"id"`
	TripID    string           `json:"trip_id"`
	FromState *types.TripState `json:"from_state"`
	ToState   types.TripState  `json:"to_state"`
	ActorID   string           `json:"actor_id"`
	ActorRole types.UserRole   `json:"actor_role"`
	Reason    string           `json:"reason,omitempty"`
	Meta      map[string]any   `json:"meta,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// TripLocation is a breadcrumb reported while a trip is active.
type TripLocation struct {
	ID        string         `json:"id"`
	TripID    string         `json:"trip_id"`
	UserID    string         `json:"user_id"`
	Role      types.UserRole `json:"role"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Heading   *float64       `json:"heading"`
	Speed     *float64       `json:"speed"`
	CreatedAt time.Time      `json:"created_at"`
}

// TripStartPin holds the hashed start PIN for a trip awaiting
// verification. Plaintext is kept only so the rider can read the live
// PIN; it is never sent to the driver side.
type TripStartPin struct {
	TripID    string
	Hash      string
	Plaintext string
	ExpiresAt time.Time
	Attempts  int
}

// IdempotencyEntry stores a previously produced response keyed by
// "<action>:<key>".
type IdempotencyEntry struct {
	Action    string
	Key       string
	Response  any
	CreatedAt time.Time
}
