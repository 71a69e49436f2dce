package models

import (
	"time"

	"github.com/safarigo/ridehail/internal/domain/types"
)

// SafetyIncident is an SOS or support report tied to a trip.
type SafetyIncident struct {
	ID           string                 `json:"id"`
	TripID       string                 `json:"trip_id"`
	ReporterID   string                 `json:"reporter_id"`
	ReporterRole types.UserRole         `json:"reporter_role"`
	Category     types.IncidentCategory `json:"category"`
	Status       types.IncidentStatus   `json:"status"`
	Description  string                 `json:"description"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TripShareToken grants unauthenticated, read-only, PII-minimized
// visibility into a trip until it expires or is revoked.
type TripShareToken struct {
	ID          string     `json:"id"`
	TripID      string     `json:"trip_id"`
	CreatedByID string     `json:"created_by_id"`
	Token       string     `json:"token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Active reports whether the token can still be redeemed at the given time.
func (t TripShareToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
