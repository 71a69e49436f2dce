package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/geo"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	"github.com/safarigo/ridehail/pkg/metrics"
)

// Callbacks let the trip service react to dispatch outcomes without a
// package cycle. Both run outside the dispatch lock.
type Callbacks struct {
	OnDriverAssigned func(ctx context.Context, tripID, driverID string) error
	OnNoDriverFound  func(ctx context.Context, tripID string) error
}

type Config struct {
	RadiusKm      float64
	OfferTimeout  time.Duration
	MaxCandidates int
}

// Service runs the offer loop: nearest eligible driver gets a pending
// offer; a decline or timeout moves on to the next candidate until the
// pool inside the dispatch radius is exhausted.
type Service struct {
	store     *store.Store
	bus       *stream.Bus
	log       logger.Logger
	cfg       Config
	callbacks Callbacks

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(st *store.Store, bus *stream.Bus, log logger.Logger, cfg Config, cb Callbacks) *Service {
	return &Service{
		store:     st,
		bus:       bus,
		log:       log,
		cfg:       cfg,
		callbacks: cb,
		timers:    make(map[string]*time.Timer),
	}
}

// StartMatching offers the trip to the nearest eligible driver. It is
// a no-op unless the trip is still in MATCHING with no accepted offer,
// so concurrent and repeated calls are safe.
func (s *Service) StartMatching(ctx context.Context, tripID string) error {
	var noDriver bool

	err := s.store.WithLock(store.DispatchLockKey(tripID), func() error {
		trip, err := s.store.GetTrip(tripID)
		if err != nil || trip.State != types.StateMatching {
			return nil
		}
		for _, offer := range s.store.ListOffersForTrip(tripID) {
			if offer.Status == types.OfferAccepted {
				return nil
			}
		}

		candidate, ok := s.nextCandidate(tripID, trip.Pickup)
		if !ok {
			noDriver = true
			return nil
		}

		now := time.Now()
		offer := models.DispatchOffer{
			ID:         models.NewID("offer"),
			TripID:     tripID,
			DriverID:   candidate.driverID,
			Status:     types.OfferPending,
			DistanceKm: candidate.distanceKm,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.OfferTimeout),
		}
		s.store.CreateOffer(offer)
		s.bus.PublishDriverOffer(&offer)

		metrics.OffersCreated.Inc()
		s.log.Info(ctx, "dispatch offer created",
			"trip_id", tripID,
			"driver_id", offer.DriverID,
			"distance_km", offer.DistanceKm,
		)

		s.armOfferTimer(offer.ID)
		return nil
	})
	if err != nil {
		return err
	}

	if noDriver {
		metrics.NoDriverFound.Inc()
		return s.callbacks.OnNoDriverFound(ctx, tripID)
	}
	return nil
}

// ExpireOffer times out a still-pending offer and moves matching to
// the next candidate.
func (s *Service) ExpireOffer(ctx context.Context, offerID string) error {
	offer, err := s.store.GetOffer(offerID)
	if err != nil {
		return nil
	}

	var expired bool
	err = s.store.WithLock(store.DispatchLockKey(offer.TripID), func() error {
		current, err := s.store.GetOffer(offerID)
		if err != nil || current.Status != types.OfferPending {
			return nil
		}
		_, err = s.store.UpdateOffer(offerID, func(o *models.DispatchOffer) {
			now := time.Now()
			o.Status = types.OfferExpired
			o.RespondedAt = &now
		})
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil || !expired {
		return err
	}

	metrics.OffersExpired.Inc()
	s.stopOfferTimer(offerID)
	s.log.Info(ctx, "dispatch offer expired", "offer_id", offerID, "trip_id", offer.TripID)

	return s.StartMatching(ctx, offer.TripID)
}

// RespondToOffer records the driver's answer. Accepting hands the trip
// to the driver; declining resumes matching with the next candidate.
func (s *Service) RespondToOffer(ctx context.Context, offerID, driverID string, accept bool) (models.DispatchOffer, error) {
	offer, err := s.store.GetOffer(offerID)
	if err != nil {
		return models.DispatchOffer{}, err
	}
	if offer.DriverID != driverID {
		return models.DispatchOffer{}, types.ErrOfferNotOwned
	}

	var updated models.DispatchOffer
	err = s.store.WithLock(store.DispatchLockKey(offer.TripID), func() error {
		current, err := s.store.GetOffer(offerID)
		if err != nil {
			return err
		}
		if current.Status != types.OfferPending {
			return fmt.Errorf("%w %s", types.ErrOfferAlready, current.Status)
		}

		status := types.OfferDeclined
		if accept {
			status = types.OfferAccepted
		}
		updated, err = s.store.UpdateOffer(offerID, func(o *models.DispatchOffer) {
			now := time.Now()
			o.Status = status
			o.RespondedAt = &now
		})
		return err
	})
	if err != nil {
		return models.DispatchOffer{}, err
	}

	s.stopOfferTimer(offerID)

	if accept {
		metrics.OffersAccepted.Inc()
		if err := s.callbacks.OnDriverAssigned(ctx, offer.TripID, driverID); err != nil {
			return models.DispatchOffer{}, err
		}
		return updated, nil
	}

	metrics.OffersDeclined.Inc()
	if err := s.StartMatching(ctx, offer.TripID); err != nil {
		return models.DispatchOffer{}, err
	}
	return updated, nil
}

// ListPendingOffers returns the driver's live offers, newest first.
func (s *Service) ListPendingOffers(driverID string) []models.DispatchOffer {
	now := time.Now()
	var out []models.DispatchOffer
	for _, offer := range s.store.ListOffersForDriver(driverID) {
		if offer.Status == types.OfferPending && offer.ExpiresAt.After(now) {
			out = append(out, offer)
		}
	}
	return out
}

// Shutdown cancels outstanding offer timers.
func (s *Service) Shutdown() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) armOfferTimer(offerID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.timers[offerID] = time.AfterFunc(s.cfg.OfferTimeout, func() {
		ctx := context.Background()
		if err := s.ExpireOffer(ctx, offerID); err != nil {
			s.log.Error(ctx, "failed to expire dispatch offer", err, "offer_id", offerID)
		}
	})
}

func (s *Service) stopOfferTimer(offerID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[offerID]; ok {
		timer.Stop()
		delete(s.timers, offerID)
	}
}

type candidate struct {
	driverID   string
	distanceKm float64
}

// nextCandidate picks the closest verified online driver inside the
// dispatch radius that is free and has not been offered this trip yet.
func (s *Service) nextCandidate(tripID string, pickup models.Location) (candidate, bool) {
	offered := make(map[string]struct{})
	for _, offer := range s.store.ListOffersForTrip(tripID) {
		offered[offer.DriverID] = struct{}{}
	}

	var pool []candidate
	for _, status := range s.store.ListDriversNear(models.GeoPoint{Lat: pickup.Lat, Lng: pickup.Lng}, s.cfg.RadiusKm) {
		if status.ActiveTripID != nil {
			continue
		}
		if _, already := offered[status.DriverID]; already {
			continue
		}
		profile, err := s.store.GetDriverProfile(status.DriverID)
		if err != nil || !profile.Verified {
			continue
		}
		pool = append(pool, candidate{
			driverID:   status.DriverID,
			distanceKm: geo.HaversineKm(pickup.Lat, pickup.Lng, *status.Lat, *status.Lng),
		})
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].distanceKm < pool[j].distanceKm })
	if len(pool) > s.cfg.MaxCandidates {
		pool = pool[:s.cfg.MaxCandidates]
	}
	if len(pool) == 0 {
		return candidate{}, false
	}
	return pool[0], true
}
