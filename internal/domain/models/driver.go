package models

import (
	"time"

	"github.com/safarigo/ridehail/internal/domain/types"
)

// Vehicle describes the car a driver operates.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
}

// DriverProfile is the identity record of a driver. DriverID is opaque
// and distinct from the owning account id.
type DriverProfile struct {
	DriverID   string  `json:"driver_id"`
	UserID     int64   `json:"user_id"`
	Verified   bool    `json:"verified"`
	Rating     float64 `json:"rating"`
	TotalTrips int     `json:"total_trips"`
	Vehicle    Vehicle `json:"vehicle"`
}

// DriverStatus is the mutable presence record for a driver. Lat/Lng are
// nil while the position is unknown; ActiveTripID is non-nil for at
// most one trip at a time.
type DriverStatus struct {
	DriverID     string    `json:"driver_id"`
	IsOnline     bool      `json:"is_online"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	Lat          *float64  `json:"lat"`
	Lng          *float64  `json:"lng"`
	ActiveTripID *string   `json:"active_trip_id"`
}

// HasPosition reports whether the driver has a known location.
func (s DriverStatus) HasPosition() bool {
	return s.Lat != nil && s.Lng != nil
}

// NearbyDriver is the rider-facing projection returned by the
// nearby-drivers query.
type NearbyDriver struct {
	DriverID       string    `json:"driver_id"`
	Location       GeoPoint  `json:"location"`
	Rating         float64   `json:"rating"`
	Vehicle        Vehicle   `json:"vehicle"`
	DistanceMeters int       `json:"distance_meters"`
	ETASeconds     int       `json:"eta_seconds"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// DispatchOffer is a time-boxed invitation from the dispatch engine to
// one driver for one trip.
type DispatchOffer struct {
	ID          string            `json:"id"`
	TripID      string            `json:"trip_id"`
	DriverID    string            `json:"driver_id"`
	Status      types.OfferStatus `json:"status"`
	DistanceKm  float64           `json:"distance_km"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	RespondedAt *time.Time        `json:"responded_at"`
}

// DriverRating is a single rider rating of a driver, at most one per trip.
type DriverRating struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	RiderID   int64     `json:"rider_id"`
	DriverID  string    `json:"driver_id"`
	Score     int       `json:"score"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
