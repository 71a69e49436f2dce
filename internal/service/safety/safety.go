package safety

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/pkg/logger"
	"github.com/safarigo/ridehail/pkg/metrics"
)

// SupportContacts are handed back with every incident report so the
// client can surface them immediately.
type SupportContacts struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	EmergencyPhone string `json:"emergency_phone"`
}

type ShareTokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}

// SharedTripView is the PII-minimized projection a share-token holder
// sees. No rider identity, no fare, no phone numbers.
type SharedTripView struct {
	Trip   SharedTrip    `json:"trip"`
	Driver *SharedDriver `json:"driver"`
}

type SharedTrip struct {
	ID             string          `json:"id"`
	State          types.TripState `json:"state"`
	PickupAddress  string          `json:"pickup_address"`
	DropoffAddress string          `json:"dropoff_address"`
	CreatedAt      time.Time       `json:"created_at"`
}

type SharedDriver struct {
	DriverID string           `json:"driver_id"`
	Rating   float64          `json:"rating"`
	Vehicle  models.Vehicle   `json:"vehicle"`
	Location *models.GeoPoint `json:"location"`
}

type IncidentResult struct {
	IncidentID string               `json:"incident_id"`
	Status     types.IncidentStatus `json:"status"`
	Support    SupportContacts      `json:"support"`
}

type Service struct {
	store    *store.Store
	log      logger.Logger
	tokenTTL time.Duration
	support  SupportContacts
}

func New(st *store.Store, log logger.Logger, tokenTTL time.Duration, support SupportContacts) *Service {
	return &Service{store: st, log: log, tokenTTL: tokenTTL, support: support}
}

// CreateShareToken mints a live-trip share link for an existing trip.
func (s *Service) CreateShareToken(tripID, createdByID string) (ShareTokenResult, error) {
	if _, err := s.store.GetTrip(tripID); err != nil {
		return ShareTokenResult{}, err
	}

	token := newShareToken()
	record := models.TripShareToken{
		ID:          models.NewID("share"),
		TripID:      tripID,
		CreatedByID: createdByID,
		Token:       token,
		ExpiresAt:   time.Now().Add(s.tokenTTL),
		CreatedAt:   time.Now(),
	}
	s.store.SaveShareToken(record)

	metrics.ShareTokensCreated.Inc()
	return ShareTokenResult{
		Token:     token,
		ExpiresAt: record.ExpiresAt,
		URL:       "/share/" + token,
	}, nil
}

// RevokeShareToken invalidates a token. Only its creator may revoke it.
func (s *Service) RevokeShareToken(token, requestedByID string) (models.TripShareToken, error) {
	record, err := s.store.GetShareToken(token)
	if err != nil {
		return models.TripShareToken{}, err
	}
	if record.CreatedByID != requestedByID {
		return models.TripShareToken{}, types.ErrNotTokenCreator
	}

	updated, err := s.store.UpdateShareToken(token, func(t *models.TripShareToken) {
		now := time.Now()
		t.RevokedAt = &now
	})
	if err != nil {
		return models.TripShareToken{}, err
	}

	metrics.ShareTokensRevoked.Inc()
	return updated, nil
}

// ResolveShareToken redeems a token into the shared trip projection.
// Revocation wins over expiry when both apply.
func (s *Service) ResolveShareToken(token string) (SharedTripView, error) {
	record, err := s.store.GetShareToken(token)
	if err != nil {
		return SharedTripView{}, err
	}
	if !record.Active(time.Now()) {
		if record.RevokedAt != nil {
			return SharedTripView{}, types.ErrTokenRevoked
		}
		return SharedTripView{}, types.ErrTokenExpired
	}

	trip, err := s.store.GetTrip(record.TripID)
	if err != nil {
		return SharedTripView{}, err
	}

	view := SharedTripView{
		Trip: SharedTrip{
			ID:             trip.ID,
			State:          trip.State,
			PickupAddress:  trip.Pickup.Address,
			DropoffAddress: trip.Dropoff.Address,
			CreatedAt:      trip.CreatedAt,
		},
	}
	if trip.DriverID != nil {
		if profile, err := s.store.GetDriverProfile(*trip.DriverID); err == nil {
			shared := SharedDriver{
				DriverID: profile.DriverID,
				Rating:   profile.Rating,
				Vehicle:  profile.Vehicle,
			}
			if st, ok := s.store.GetDriverStatus(*trip.DriverID); ok && st.HasPosition() {
				shared.Location = &models.GeoPoint{Lat: *st.Lat, Lng: *st.Lng}
			}
			view.Driver = &shared
		}
	}
	return view, nil
}

// ReportIncident files an SOS or support report against a trip.
func (s *Service) ReportIncident(ctx context.Context, in models.SafetyIncident) IncidentResult {
	in.ID = models.NewID("inc")
	in.Status = types.IncidentOpen
	in.CreatedAt = time.Now()
	s.store.CreateIncident(in)

	metrics.Incidents.WithLabelValues(string(in.Category)).Inc()
	s.log.Warn(ctx, "safety incident created",
		"incident_id", in.ID,
		"trip_id", in.TripID,
		"category", in.Category,
	)

	return IncidentResult{
		IncidentID: in.ID,
		Status:     in.Status,
		Support:    s.support,
	}
}

func newShareToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
