package trip

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/geo"
	"github.com/safarigo/ridehail/internal/service/dispatch"
	"github.com/safarigo/ridehail/internal/service/payment"
	"github.com/safarigo/ridehail/internal/service/pricing"
	"github.com/safarigo/ridehail/internal/service/ratings"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/hasher"
	"github.com/safarigo/ridehail/pkg/logger"
	"github.com/safarigo/ridehail/pkg/metrics"
)

type Config struct {
	EnableStartPin bool
	PinTTL         time.Duration
	PinMaxAttempts int

	CancelFeeBeforeAssign float64
	CancelFeeAfterAssign  float64

	DriverStaleAfter time.Duration

	MaxLocationSpeedKmh   float64
	MaxLocationJumpMeters float64
	MaxLocationJumpWindow time.Duration
}

// Service orchestrates the trip lifecycle end to end: creation, the
// dispatch handoff, arrival, PIN-gated start, completion with payment
// capture, cancellation and rating. Every state change goes through
// transition, which enforces the state machine and audits the move.
type Service struct {
	store    *store.Store
	bus      *stream.Bus
	log      logger.Logger
	cfg      Config
	pricing  FareEstimator
	payments PaymentCapturer
	ratings  RatingSubmitter
	dispatch *dispatch.Service
}

func New(
	st *store.Store,
	bus *stream.Bus,
	log logger.Logger,
	cfg Config,
	dispatchCfg dispatch.Config,
	fares FareEstimator,
	payments PaymentCapturer,
	ratingSvc RatingSubmitter,
) *Service {
	s := &Service{
		store:    st,
		bus:      bus,
		log:      log,
		cfg:      cfg,
		pricing:  fares,
		payments: payments,
		ratings:  ratingSvc,
	}
	s.dispatch = dispatch.New(st, bus, log, dispatchCfg, dispatch.Callbacks{
		OnDriverAssigned: s.onDriverAssigned,
		OnNoDriverFound:  s.onNoDriverFound,
	})
	return s
}

// Shutdown stops outstanding dispatch timers.
func (s *Service) Shutdown() {
	s.dispatch.Shutdown()
}

// ---- fare quoting ----

type EstimateInput struct {
	Pickup          models.GeoPoint
	Dropoff         models.GeoPoint
	DistanceMeters  float64
	DurationSeconds float64
	RideType        types.RideType
}

type FareEstimate struct {
	Fare           models.FareSnapshot `json:"fare"`
	ETASeconds     float64             `json:"eta_seconds"`
	DistanceMeters float64             `json:"distance_meters"`
}

func (s *Service) EstimateFare(in EstimateInput) FareEstimate {
	fare := s.pricing.EstimateFare(pricing.EstimateInput{
		DistanceMeters:  in.DistanceMeters,
		DurationSeconds: in.DurationSeconds,
		RideType:        in.RideType,
	})
	return FareEstimate{
		Fare:           fare,
		ETASeconds:     in.DurationSeconds,
		DistanceMeters: in.DistanceMeters,
	}
}

// ---- trip creation ----

type CreateTripInput struct {
	Pickup          models.GeoPoint
	Dropoff         models.GeoPoint
	PickupAddress   string
	DropoffAddress  string
	DistanceMeters  float64
	DurationSeconds float64
	RideType        types.RideType
	PaymentMethod   types.PaymentMethod
	IdempotencyKey  string
}

// CreateTrip snapshots the fare, records the trip and hands it to
// dispatch. A repeated call with the same idempotency key replays the
// original response instead of creating a second trip.
func (s *Service) CreateTrip(ctx context.Context, p models.Principal, in CreateTripInput) (models.Trip, error) {
	if err := requireRole(p, types.RoleRider, types.RoleAdmin); err != nil {
		return models.Trip{}, err
	}

	if in.IdempotencyKey != "" {
		if entry, ok := s.store.GetIdempotency(types.ActionCreateTrip, in.IdempotencyKey); ok {
			if prior, ok := entry.Response.(models.Trip); ok {
				return prior, nil
			}
		}
	}

	fare := s.pricing.EstimateFare(pricing.EstimateInput{
		DistanceMeters:  in.DistanceMeters,
		DurationSeconds: in.DurationSeconds,
		RideType:        in.RideType,
	})

	now := time.Now()
	trip := models.Trip{
		ID:            models.NewID("trip"),
		RiderID:       p.ID,
		Pickup:        models.Location{Lat: in.Pickup.Lat, Lng: in.Pickup.Lng, Address: in.PickupAddress},
		Dropoff:       models.Location{Lat: in.Dropoff.Lat, Lng: in.Dropoff.Lng, Address: in.DropoffAddress},
		State:         types.StateCreated,
		PaymentMethod: in.PaymentMethod,
		Fare:          fare,
		PinRequired:   s.cfg.EnableStartPin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.store.CreateTrip(trip)
	s.appendAudit(trip.ID, nil, trip.State, p.ActorID(), p.Role, "Trip created", nil)
	s.bus.PublishTripUpdated(&trip)

	matching, err := s.transition(ctx, trip.ID, types.StateMatching, actor{
		id:     p.ActorID(),
		role:   p.Role,
		reason: "Trip queued for dispatch",
	})
	if err != nil {
		return models.Trip{}, err
	}

	if in.IdempotencyKey != "" {
		s.store.SaveIdempotency(models.IdempotencyEntry{
			Action:    types.ActionCreateTrip,
			Key:       in.IdempotencyKey,
			Response:  matching,
			CreatedAt: time.Now(),
		})
	}

	go func() {
		if err := s.dispatch.StartMatching(context.Background(), trip.ID); err != nil {
			s.log.Error(ctx, "dispatch failed to start", err, "trip_id", trip.ID)
		}
	}()

	metrics.TripsCreated.Inc()
	return matching, nil
}

// ---- trip read model ----

type DriverSummary struct {
	DriverID   string           `json:"driver_id"`
	Rating     float64          `json:"rating"`
	TotalTrips int              `json:"total_trips"`
	Vehicle    models.Vehicle   `json:"vehicle"`
	Location   *models.GeoPoint `json:"location"`
}

type TripView struct {
	models.Trip
	Driver   *DriverSummary     `json:"driver"`
	StartPin *string            `json:"start_pin"`
	Events   []models.TripEvent `json:"events"`
}

// GetTrip returns the trip with its audit trail and assigned-driver
// summary. The live start PIN is included only for the trip's rider
// while it has not expired.
func (s *Service) GetTrip(ctx context.Context, p models.Principal, tripID string) (TripView, error) {
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return TripView{}, err
	}
	if err := s.assertTripAccess(p, trip); err != nil {
		return TripView{}, err
	}

	view := TripView{
		Trip:   trip,
		Events: s.store.ListTripEvents(tripID),
	}
	if trip.DriverID != nil {
		if profile, err := s.store.GetDriverProfile(*trip.DriverID); err == nil {
			summary := DriverSummary{
				DriverID:   profile.DriverID,
				Rating:     profile.Rating,
				TotalTrips: profile.TotalTrips,
				Vehicle:    profile.Vehicle,
			}
			if st, ok := s.store.GetDriverStatus(*trip.DriverID); ok && st.HasPosition() {
				summary.Location = &models.GeoPoint{Lat: *st.Lat, Lng: *st.Lng}
			}
			view.Driver = &summary
		}
	}
	if p.Role == types.RoleRider && trip.RiderID == p.ID {
		if pin, ok := s.store.GetTripStartPin(tripID); ok && time.Now().Before(pin.ExpiresAt) {
			view.StartPin = &pin.Plaintext
		}
	}
	return view, nil
}

// ListRiderTrips returns the rider's trip history, newest first.
func (s *Service) ListRiderTrips(_ context.Context, p models.Principal, limit int) ([]models.Trip, error) {
	if err := requireRole(p, types.RoleRider, types.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListTripsForRider(p.ID, limit), nil
}

// ListTripLocations returns the most recent breadcrumbs for a trip the
// principal can see.
func (s *Service) ListTripLocations(_ context.Context, p models.Principal, tripID string, limit int) ([]models.TripLocation, error) {
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	if err := s.assertTripAccess(p, trip); err != nil {
		return nil, err
	}
	return s.store.ListTripLocations(tripID, limit), nil
}

// ---- dispatch-facing operations ----

func (s *Service) ListDriverOffers(_ context.Context, p models.Principal) ([]models.DispatchOffer, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return nil, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return nil, err
	}
	return s.dispatch.ListPendingOffers(profile.DriverID), nil
}

func (s *Service) RespondToOffer(ctx context.Context, p models.Principal, offerID string, accept bool) (models.DispatchOffer, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return models.DispatchOffer{}, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return models.DispatchOffer{}, err
	}
	return s.dispatch.RespondToOffer(ctx, offerID, profile.DriverID, accept)
}

func (s *Service) onDriverAssigned(ctx context.Context, tripID, driverID string) error {
	if _, err := s.store.UpdateTrip(tripID, func(t *models.Trip) {
		t.DriverID = &driverID
	}); err != nil {
		return err
	}
	if _, err := s.transition(ctx, tripID, types.StateDriverAssigned, actor{
		id:     driverID,
		role:   types.RoleDriver,
		reason: "Driver accepted dispatch offer",
	}); err != nil {
		return err
	}
	s.store.UpdateDriverStatus(driverID, func(st *models.DriverStatus) {
		st.ActiveTripID = &tripID
	})
	return nil
}

func (s *Service) onNoDriverFound(ctx context.Context, tripID string) error {
	_, err := s.transition(ctx, tripID, types.StateNoDriverFound, actor{
		id:     "dispatch",
		role:   types.RoleAdmin,
		reason: "No eligible driver found in dispatch radius",
	})
	return err
}

// ---- pickup, start, completion, cancellation ----

// DriverArrived marks the assigned driver at the pickup point. When
// the trip requires a start PIN, one is minted for the rider and the
// trip waits in PIN_VERIFICATION.
func (s *Service) DriverArrived(ctx context.Context, p models.Principal, tripID string) (TripView, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return TripView{}, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return TripView{}, err
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return TripView{}, err
	}
	if trip.DriverID == nil || *trip.DriverID != profile.DriverID {
		return TripView{}, types.ErrNotAssignedDriver
	}

	if _, err := s.transition(ctx, tripID, types.StateDriverArriving, actor{
		id:     profile.DriverID,
		role:   types.RoleDriver,
		reason: "Driver arrived at pickup",
	}); err != nil {
		return TripView{}, err
	}

	if trip.PinRequired {
		plaintext := numericPin(4)
		expiresAt := time.Now().Add(s.cfg.PinTTL)
		s.store.SaveTripStartPin(models.TripStartPin{
			TripID:    tripID,
			Hash:      hasher.Hash(plaintext),
			Plaintext: plaintext,
			ExpiresAt: expiresAt,
		})
		if _, err := s.store.UpdateTrip(tripID, func(t *models.Trip) {
			t.PinExpiresAt = &expiresAt
			t.PinAttempts = 0
		}); err != nil {
			return TripView{}, err
		}

		if _, err := s.transition(ctx, tripID, types.StatePinVerification, actor{
			id:     profile.DriverID,
			role:   types.RoleDriver,
			reason: "Waiting for trip start PIN verification",
		}); err != nil {
			return TripView{}, err
		}
	}

	return s.GetTrip(ctx, p, tripID)
}

// StartTrip moves the trip into IN_PROGRESS. In PIN_VERIFICATION the
// rider's PIN must match; expiry or too many wrong attempts voids the
// PIN session entirely.
func (s *Service) StartTrip(ctx context.Context, p models.Principal, tripID, pin, key string) (models.Trip, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return models.Trip{}, err
	}
	if key != "" {
		if entry, ok := s.store.GetIdempotency(types.ActionStartTrip, key); ok {
			if prior, ok := entry.Response.(models.Trip); ok {
				return prior, nil
			}
		}
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return models.Trip{}, err
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return models.Trip{}, err
	}
	if trip.DriverID == nil || *trip.DriverID != profile.DriverID {
		return models.Trip{}, types.ErrNotAssignedDriver
	}

	switch trip.State {
	case types.StatePinVerification:
		if err := s.verifyStartPin(trip, pin); err != nil {
			return models.Trip{}, err
		}
	case types.StateDriverArriving:
		// no PIN gate, start directly
	default:
		return models.Trip{}, fmt.Errorf("%w %s", types.ErrCannotStartTrip, trip.State)
	}

	started, err := s.transition(ctx, tripID, types.StateInProgress, actor{
		id:     profile.DriverID,
		role:   types.RoleDriver,
		reason: "Trip started by driver",
	})
	if err != nil {
		return models.Trip{}, err
	}
	if key != "" {
		s.store.SaveIdempotency(models.IdempotencyEntry{
			Action:    types.ActionStartTrip,
			Key:       key,
			Response:  started,
			CreatedAt: time.Now(),
		})
	}
	return started, nil
}

func (s *Service) verifyStartPin(trip models.Trip, pin string) error {
	if !trip.PinRequired || !s.cfg.EnableStartPin {
		s.store.DeleteTripStartPin(trip.ID)
		return nil
	}

	record, ok := s.store.GetTripStartPin(trip.ID)
	if !ok {
		return types.ErrPinSessionNotFound
	}
	if time.Now().After(record.ExpiresAt) {
		s.store.DeleteTripStartPin(trip.ID)
		return types.ErrPinExpired
	}
	if pin == "" {
		return types.ErrPinRequired
	}

	record.Attempts++
	if record.Attempts > s.cfg.PinMaxAttempts {
		s.store.DeleteTripStartPin(trip.ID)
		return types.ErrPinAttemptsExceeded
	}
	if !hasher.VerifyConstantTime(pin, record.Hash) {
		s.store.SaveTripStartPin(record)
		_, _ = s.store.UpdateTrip(trip.ID, func(t *models.Trip) {
			t.PinAttempts = record.Attempts
		})
		metrics.PinFailed.Inc()
		return types.ErrPinMismatch
	}

	s.store.DeleteTripStartPin(trip.ID)
	metrics.PinSuccess.Inc()
	return nil
}

type CompleteResult struct {
	Trip    models.Trip           `json:"trip"`
	Payment payment.CaptureResult `json:"payment"`
}

// CompleteTrip finishes the ride, frees the driver and captures the
// fare with the payment method snapshotted at creation.
func (s *Service) CompleteTrip(ctx context.Context, p models.Principal, tripID, key string) (CompleteResult, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return CompleteResult{}, err
	}
	if key != "" {
		if entry, ok := s.store.GetIdempotency(types.ActionCompleteTrip, key); ok {
			if prior, ok := entry.Response.(CompleteResult); ok {
				return prior, nil
			}
		}
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return CompleteResult{}, err
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return CompleteResult{}, err
	}
	if trip.DriverID == nil || *trip.DriverID != profile.DriverID {
		return CompleteResult{}, types.ErrNotAssignedDriver
	}

	completed, err := s.transition(ctx, tripID, types.StateCompleted, actor{
		id:     profile.DriverID,
		role:   types.RoleDriver,
		reason: "Trip completed by driver",
	})
	if err != nil {
		return CompleteResult{}, err
	}

	s.store.UpdateDriverStatus(profile.DriverID, func(st *models.DriverStatus) {
		st.ActiveTripID = nil
	})
	_, _ = s.store.UpdateDriverProfile(profile.DriverID, func(pr *models.DriverProfile) {
		pr.TotalTrips++
	})

	capture, err := s.payments.Capture(ctx, completed.PaymentMethod, payment.CaptureInput{
		TripID:   completed.ID,
		RiderID:  completed.RiderID,
		DriverID: profile.DriverID,
		Amount:   completed.Fare.Total,
		Currency: completed.Fare.Currency,
	})
	if err != nil {
		return CompleteResult{}, err
	}

	metrics.TripsCompleted.Inc()
	result := CompleteResult{Trip: completed, Payment: capture}
	if key != "" {
		s.store.SaveIdempotency(models.IdempotencyEntry{
			Action:    types.ActionCompleteTrip,
			Key:       key,
			Response:  result,
			CreatedAt: time.Now(),
		})
	}
	return result, nil
}

// CancelTrip ends a non-terminal trip. Drivers land in
// CANCELLED_BY_DRIVER, everyone else in CANCELLED_BY_PASSENGER; the
// cancellation fee depends on whether a driver was already assigned.
func (s *Service) CancelTrip(ctx context.Context, p models.Principal, tripID, reason, key string) (models.Trip, error) {
	if key != "" {
		if entry, ok := s.store.GetIdempotency(types.ActionCancelTrip, key); ok {
			if prior, ok := entry.Response.(models.Trip); ok {
				return prior, nil
			}
		}
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return models.Trip{}, err
	}
	if err := s.assertTripAccess(p, trip); err != nil {
		return models.Trip{}, err
	}
	if IsTerminal(trip.State) {
		return models.Trip{}, types.ErrTripAlreadyFinished
	}

	target := types.StateCancelledByPassenger
	if p.Role == types.RoleDriver {
		target = types.StateCancelledByDriver
	}
	cancelled, err := s.transition(ctx, tripID, target, actor{
		id:     p.ActorID(),
		role:   p.Role,
		reason: reason,
	})
	if err != nil {
		return models.Trip{}, err
	}

	if trip.DriverID != nil {
		s.store.UpdateDriverStatus(*trip.DriverID, func(st *models.DriverStatus) {
			st.ActiveTripID = nil
		})
	}

	fee := s.cfg.CancelFeeBeforeAssign
	if trip.DriverID != nil {
		fee = s.cfg.CancelFeeAfterAssign
	}
	cancelled, err = s.store.UpdateTrip(tripID, func(t *models.Trip) {
		t.CancelFee = fee
	})
	if err != nil {
		return models.Trip{}, err
	}

	metrics.TripsCancelled.WithLabelValues(string(p.Role)).Inc()
	if key != "" {
		s.store.SaveIdempotency(models.IdempotencyEntry{
			Action:    types.ActionCancelTrip,
			Key:       key,
			Response:  cancelled,
			CreatedAt: time.Now(),
		})
	}
	return cancelled, nil
}

// SubmitRating lets the rider rate their completed trip, once.
func (s *Service) SubmitRating(_ context.Context, p models.Principal, tripID string, score int, feedback string) (ratings.SubmitResult, error) {
	if err := requireRole(p, types.RoleRider, types.RoleAdmin); err != nil {
		return ratings.SubmitResult{}, err
	}
	if score < 1 || score > 5 {
		return ratings.SubmitResult{}, types.ErrInvalidRatingScore
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return ratings.SubmitResult{}, err
	}
	if trip.RiderID != p.ID && p.Role != types.RoleAdmin {
		return ratings.SubmitResult{}, types.ErrNotTripRider
	}
	if trip.State != types.StateCompleted {
		return ratings.SubmitResult{}, types.ErrTripNotCompleted
	}
	if trip.DriverID == nil {
		return ratings.SubmitResult{}, types.ErrTripNoDriver
	}

	result, err := s.ratings.Submit(ratings.SubmitInput{
		TripID:   tripID,
		RiderID:  p.ID,
		DriverID: *trip.DriverID,
		Score:    score,
		Feedback: feedback,
	})
	if err != nil {
		return ratings.SubmitResult{}, err
	}

	from := trip.State
	s.appendAudit(tripID, &from, trip.State, p.ActorID(), p.Role, "Trip rated", map[string]any{"score": score})
	return result, nil
}

// ---- driver-side operations ----

type DriverProfileInput struct {
	VehicleMake  string
	VehicleModel string
	VehicleColor string
	PlateNumber  string
	Verified     *bool
}

// RegisterDriver creates or refreshes a driver profile for a user
// account. Admin only.
func (s *Service) RegisterDriver(_ context.Context, p models.Principal, targetUserID int64, in DriverProfileInput) (models.DriverProfile, error) {
	if err := requireRole(p, types.RoleAdmin); err != nil {
		return models.DriverProfile{}, err
	}

	profile := models.DriverProfile{
		DriverID: models.NewID("driver"),
		UserID:   targetUserID,
		Rating:   5,
	}
	if existing, err := s.store.GetDriverProfileByUser(targetUserID); err == nil {
		profile = existing
	}
	if in.Verified != nil {
		profile.Verified = *in.Verified
	}
	profile.Vehicle = models.Vehicle{
		Make:  in.VehicleMake,
		Model: in.VehicleModel,
		Color: in.VehicleColor,
		Plate: in.PlateNumber,
	}
	s.store.UpsertDriverProfile(profile)
	s.store.UpdateDriverStatus(profile.DriverID, func(st *models.DriverStatus) {
		st.IsOnline = false
		st.ActiveTripID = nil
	})
	return profile, nil
}

// VerifyDriver flips the verification flag. Admin only.
func (s *Service) VerifyDriver(_ context.Context, p models.Principal, driverID string, verified bool) (models.DriverProfile, error) {
	if err := requireRole(p, types.RoleAdmin); err != nil {
		return models.DriverProfile{}, err
	}
	return s.store.UpdateDriverProfile(driverID, func(pr *models.DriverProfile) {
		pr.Verified = verified
	})
}

type StatusInput struct {
	IsOnline bool
	Lat      *float64
	Lng      *float64
}

// SetDriverStatus toggles the driver's availability. Going online
// requires a verified profile.
func (s *Service) SetDriverStatus(_ context.Context, p models.Principal, in StatusInput) (models.DriverStatus, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return models.DriverStatus{}, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return models.DriverStatus{}, err
	}
	if in.IsOnline && !profile.Verified {
		return models.DriverStatus{}, types.ErrDriverNotVerified
	}

	status := s.store.UpdateDriverStatus(profile.DriverID, func(st *models.DriverStatus) {
		st.IsOnline = in.IsOnline
		st.Lat = in.Lat
		st.Lng = in.Lng
	})
	s.refreshOnlineGauge()
	return status, nil
}

type LocationInput struct {
	Lat     float64
	Lng     float64
	Heading *float64
	Speed   *float64
	TripID  string
}

// UpdateDriverLocation records a position report. Implausible moves
// are rejected; reports tied to an active trip leave a breadcrumb and
// are streamed to trip subscribers.
func (s *Service) UpdateDriverLocation(ctx context.Context, p models.Principal, in LocationInput) (models.DriverStatus, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return models.DriverStatus{}, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return models.DriverStatus{}, err
	}

	now := time.Now()
	if previous, ok := s.store.GetDriverStatus(profile.DriverID); ok {
		if err := s.checkLocationPlausible(ctx, profile.DriverID, previous, in, now); err != nil {
			return models.DriverStatus{}, err
		}
	}

	status := s.store.UpdateDriverStatus(profile.DriverID, func(st *models.DriverStatus) {
		st.Lat = &in.Lat
		st.Lng = &in.Lng
	})

	tripID := in.TripID
	if tripID == "" && status.ActiveTripID != nil {
		tripID = *status.ActiveTripID
	}
	if tripID != "" {
		s.store.AppendTripLocation(models.TripLocation{
			ID:        models.NewID("loc"),
			TripID:    tripID,
			UserID:    p.ActorID(),
			Role:      types.RoleDriver,
			Lat:       in.Lat,
			Lng:       in.Lng,
			Heading:   in.Heading,
			Speed:     in.Speed,
			CreatedAt: now,
		})
		s.bus.PublishDriverLocation(stream.DriverLocation{
			TripID:    tripID,
			DriverID:  profile.DriverID,
			Lat:       in.Lat,
			Lng:       in.Lng,
			Heading:   in.Heading,
			Speed:     in.Speed,
			Timestamp: now,
		})
	}
	return status, nil
}

// checkLocationPlausible rejects reports implying a teleport: either
// the inferred speed over the elapsed window exceeds the cap while the
// jump guard also trips, or the driver self-reports an absurd speed.
func (s *Service) checkLocationPlausible(ctx context.Context, driverID string, previous models.DriverStatus, in LocationInput, now time.Time) error {
	if !previous.HasPosition() || !now.After(previous.LastSeenAt) {
		return nil
	}

	elapsed := now.Sub(previous.LastSeenAt)
	distanceKm := geo.HaversineKm(*previous.Lat, *previous.Lng, in.Lat, in.Lng)
	distanceMeters := distanceKm * 1000
	inferredSpeedKmh := distanceKm / elapsed.Hours()

	var reportedSpeedKmh *float64
	if in.Speed != nil {
		v := *in.Speed * 3.6
		reportedSpeedKmh = &v
	}

	speedExceeded := inferredSpeedKmh > s.cfg.MaxLocationSpeedKmh
	jumpExceeded := elapsed <= s.cfg.MaxLocationJumpWindow && distanceMeters > s.cfg.MaxLocationJumpMeters
	reportedExceeded := reportedSpeedKmh != nil && *reportedSpeedKmh > s.cfg.MaxLocationSpeedKmh

	if !(speedExceeded && jumpExceeded) && !reportedExceeded {
		return nil
	}

	metrics.LocationRejected.Inc()
	s.log.Warn(ctx, "driver location rejected as implausible",
		"driver_id", driverID,
		"elapsed_ms", elapsed.Milliseconds(),
		"distance_meters", math.Round(distanceMeters),
		"inferred_speed_kmh", math.Round(inferredSpeedKmh*100)/100,
	)
	return types.ErrImplausibleLocation
}

type NearbyInput struct {
	Pickup   models.GeoPoint
	RadiusKm float64
	Limit    int
}

type NearbyResult struct {
	Pickup    models.GeoPoint       `json:"pickup"`
	RadiusKm  float64               `json:"radius_km"`
	Drivers   []models.NearbyDriver `json:"drivers"`
	FetchedAt time.Time             `json:"fetched_at"`
}

// ListNearbyDrivers returns free verified drivers around the pickup
// point, closest first. Drivers whose presence has gone stale are
// swept offline as a side effect.
func (s *Service) ListNearbyDrivers(ctx context.Context, p models.Principal, in NearbyInput) (NearbyResult, error) {
	if err := requireRole(p, types.RoleRider, types.RoleAdmin); err != nil {
		return NearbyResult{}, err
	}

	now := time.Now()
	var entries []models.NearbyDriver
	for _, status := range s.store.ListDriversNear(in.Pickup, in.RadiusKm) {
		if status.ActiveTripID != nil {
			continue
		}
		profile, err := s.store.GetDriverProfile(status.DriverID)
		if err != nil || !profile.Verified {
			continue
		}
		if age := now.Sub(status.LastSeenAt); age > s.cfg.DriverStaleAfter {
			s.sweepStaleDriver(ctx, status, age)
			continue
		}

		distanceKm := geo.HaversineKm(in.Pickup.Lat, in.Pickup.Lng, *status.Lat, *status.Lng)
		etaSeconds := int(math.Max(60, math.Round(distanceKm/35*3600)))
		entries = append(entries, models.NearbyDriver{
			DriverID:       status.DriverID,
			Location:       models.GeoPoint{Lat: *status.Lat, Lng: *status.Lng},
			Rating:         profile.Rating,
			Vehicle:        profile.Vehicle,
			DistanceMeters: int(math.Round(distanceKm * 1000)),
			ETASeconds:     etaSeconds,
			LastSeenAt:     status.LastSeenAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].DistanceMeters < entries[j].DistanceMeters })
	if in.Limit > 0 && len(entries) > in.Limit {
		entries = entries[:in.Limit]
	}

	return NearbyResult{
		Pickup:    in.Pickup,
		RadiusKm:  in.RadiusKm,
		Drivers:   entries,
		FetchedAt: now,
	}, nil
}

func (s *Service) sweepStaleDriver(ctx context.Context, status models.DriverStatus, age time.Duration) {
	if !status.IsOnline || status.ActiveTripID != nil {
		return
	}
	lastSeen := status.LastSeenAt
	s.store.UpdateDriverStatus(status.DriverID, func(st *models.DriverStatus) {
		st.IsOnline = false
		st.LastSeenAt = lastSeen
	})
	metrics.StaleDriversOffline.Inc()
	s.refreshOnlineGauge()
	s.log.Warn(ctx, "stale driver swept offline",
		"driver_id", status.DriverID,
		"age_ms", age.Milliseconds(),
	)
}

func (s *Service) refreshOnlineGauge() {
	online := 0
	for _, st := range s.store.ListDriverStatuses() {
		if st.IsOnline {
			online++
		}
	}
	metrics.DriversOnline.Set(float64(online))
}

type Dashboard struct {
	Profile         models.DriverProfile   `json:"profile"`
	Status          models.DriverStatus    `json:"status"`
	PendingRequests []models.DispatchOffer `json:"pending_requests"`
	ActiveTrips     []models.Trip          `json:"active_trips"`
	RecentTrips     []models.Trip          `json:"recent_trips"`
}

// DriverDashboard aggregates everything the driver app renders on its
// home screen.
func (s *Service) DriverDashboard(_ context.Context, p models.Principal) (Dashboard, error) {
	if err := requireRole(p, types.RoleDriver, types.RoleAdmin); err != nil {
		return Dashboard{}, err
	}
	profile, err := s.requireDriverProfile(p)
	if err != nil {
		return Dashboard{}, err
	}

	status, _ := s.store.GetDriverStatus(profile.DriverID)
	all := s.store.ListTripsForDriver(profile.DriverID, 0)
	var active []models.Trip
	for _, t := range all {
		if !IsTerminal(t.State) {
			active = append(active, t)
		}
	}
	recent := all
	if len(recent) > 20 {
		recent = recent[:20]
	}

	return Dashboard{
		Profile:         profile,
		Status:          status,
		PendingRequests: s.dispatch.ListPendingOffers(profile.DriverID),
		ActiveTrips:     active,
		RecentTrips:     recent,
	}, nil
}

// ---- internals ----

type actor struct {
	id     string
	role   types.UserRole
	reason string
	meta   map[string]any
}

// transition is the only way trip state changes. It holds the trip
// lock, validates the move against the state machine, stamps the
// lifecycle timestamp, audits and publishes.
func (s *Service) transition(ctx context.Context, tripID string, to types.TripState, a actor) (models.Trip, error) {
	var updated models.Trip
	err := s.store.WithLock(store.TripLockKey(tripID), func() error {
		current, err := s.store.GetTrip(tripID)
		if err != nil {
			return err
		}
		if err := AssertTransition(current.State, to); err != nil {
			return err
		}

		now := time.Now()
		updated, err = s.store.UpdateTrip(tripID, func(t *models.Trip) {
			t.State = to
			switch to {
			case types.StateDriverAssigned:
				t.MatchedAt = &now
			case types.StateInProgress:
				t.StartedAt = &now
			case types.StateCompleted:
				t.CompletedAt = &now
			case types.StateCancelledByDriver, types.StateCancelledByPassenger:
				t.CancelledAt = &now
			}
		})
		if err != nil {
			return err
		}

		from := current.State
		s.appendAudit(tripID, &from, to, a.id, a.role, a.reason, a.meta)
		s.bus.PublishTripUpdated(&updated)
		s.log.Info(ctx, "trip state transition",
			"trip_id", tripID,
			"from_state", from,
			"to_state", to,
			"actor_id", a.id,
			"actor_role", a.role,
		)
		return nil
	})
	return updated, err
}

func (s *Service) appendAudit(tripID string, from *types.TripState, to types.TripState, actorID string, role types.UserRole, reason string, meta map[string]any) {
	s.store.AppendTripEvent(models.TripEvent{
		ID:        models.NewID("evt"),
		TripID:    tripID,
		FromState: from,
		ToState:   to,
		ActorID:   actorID,
		ActorRole: role,
		Reason:    reason,
		Meta:      meta,
		CreatedAt: time.Now(),
	})
}

func (s *Service) requireDriverProfile(p models.Principal) (models.DriverProfile, error) {
	profile, err := s.store.GetDriverProfileByUser(p.ID)
	if err != nil {
		return models.DriverProfile{}, types.ErrDriverProfileMissing
	}
	return profile, nil
}

func (s *Service) assertTripAccess(p models.Principal, trip models.Trip) error {
	if p.Role == types.RoleAdmin {
		return nil
	}
	if p.Role == types.RoleRider && trip.RiderID == p.ID {
		return nil
	}
	if p.Role == types.RoleDriver {
		if profile, err := s.store.GetDriverProfileByUser(p.ID); err == nil {
			if trip.DriverID != nil && *trip.DriverID == profile.DriverID {
				return nil
			}
		}
	}
	return types.ErrTripAccessDenied
}

func requireRole(p models.Principal, roles ...types.UserRole) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return types.ErrRoleNotAllowed
}

func numericPin(length int) string {
	digits := make([]byte, length)
	for i := range digits {
		digits[i] = byte('0' + rand.IntN(10))
	}
	return string(digits)
}
