package store

import (
	"sort"
	"sync"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/geo"
)

// Store is the in-memory system of record. Every entity lives in a map
// guarded by a single mutex; methods copy values in and out so callers
// never share memory with the store. Durability is a separate concern
// handled by optional archivers subscribed to the event bus.
type Store struct {
	mu sync.RWMutex

	drivers      map[string]models.DriverProfile
	driverByUser map[int64]string
	statuses     map[string]models.DriverStatus
	geoCells     map[string]map[string]struct{}

	trips      map[string]models.Trip
	tripEvents map[string][]models.TripEvent
	tripCrumbs map[string][]models.TripLocation

	offers       map[string]models.DispatchOffer
	tripOffers   map[string][]string
	driverOffers map[string][]string

	ratings      map[string]models.DriverRating
	ratingByTrip map[string]string
	ratingsByDrv map[string][]string

	incidents   map[string]models.SafetyIncident
	tripIncds   map[string][]string
	shareTokens map[string]models.TripShareToken

	pins        map[string]models.TripStartPin
	idempotency map[string]models.IdempotencyEntry

	locks *lockTable
}

func New() *Store {
	s := &Store{locks: newLockTable()}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.drivers = make(map[string]models.DriverProfile)
	s.driverByUser = make(map[int64]string)
	s.statuses = make(map[string]models.DriverStatus)
	s.geoCells = make(map[string]map[string]struct{})
	s.trips = make(map[string]models.Trip)
	s.tripEvents = make(map[string][]models.TripEvent)
	s.tripCrumbs = make(map[string][]models.TripLocation)
	s.offers = make(map[string]models.DispatchOffer)
	s.tripOffers = make(map[string][]string)
	s.driverOffers = make(map[string][]string)
	s.ratings = make(map[string]models.DriverRating)
	s.ratingByTrip = make(map[string]string)
	s.ratingsByDrv = make(map[string][]string)
	s.incidents = make(map[string]models.SafetyIncident)
	s.tripIncds = make(map[string][]string)
	s.shareTokens = make(map[string]models.TripShareToken)
	s.pins = make(map[string]models.TripStartPin)
	s.idempotency = make(map[string]models.IdempotencyEntry)
}

// Reset drops all state. Test helper.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// WithLock serializes fn against every other caller of the same key.
func (s *Store) WithLock(key string, fn func() error) error {
	return s.locks.WithLock(key, fn)
}

// ---- driver profiles ----

func (s *Store) UpsertDriverProfile(p models.DriverProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[p.DriverID] = p
	s.driverByUser[p.UserID] = p.DriverID
}

func (s *Store) GetDriverProfile(driverID string) (models.DriverProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.drivers[driverID]
	if !ok {
		return models.DriverProfile{}, types.ErrDriverNotFound
	}
	return p, nil
}

func (s *Store) GetDriverProfileByUser(userID int64) (models.DriverProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.driverByUser[userID]
	if !ok {
		return models.DriverProfile{}, types.ErrDriverNotFound
	}
	return s.drivers[id], nil
}

// UpdateDriverProfile applies mutate to the stored profile under the
// store mutex and returns the result.
func (s *Store) UpdateDriverProfile(driverID string, mutate func(*models.DriverProfile)) (models.DriverProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.drivers[driverID]
	if !ok {
		return models.DriverProfile{}, types.ErrDriverNotFound
	}
	mutate(&p)
	s.drivers[driverID] = p
	return p, nil
}

// ---- driver presence and geo index ----

// UpdateDriverStatus applies mutate to the driver's presence record,
// creating it on first touch, and keeps the geo index in sync: the
// driver is removed from its previous cell and reinserted only while
// online with a known position. LastSeenAt is bumped before mutate so
// callers can override it.
func (s *Store) UpdateDriverStatus(driverID string, mutate func(*models.DriverStatus)) models.DriverStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statuses[driverID]
	if !ok {
		st = models.DriverStatus{DriverID: driverID}
	}
	s.removeFromCell(st)

	st.LastSeenAt = time.Now()
	mutate(&st)
	s.statuses[driverID] = st

	if st.IsOnline && st.HasPosition() {
		cell := geo.Cell(*st.Lat, *st.Lng)
		bucket, ok := s.geoCells[cell]
		if !ok {
			bucket = make(map[string]struct{})
			s.geoCells[cell] = bucket
		}
		bucket[driverID] = struct{}{}
	}
	return st
}

func (s *Store) removeFromCell(st models.DriverStatus) {
	if !st.HasPosition() {
		return
	}
	cell := geo.Cell(*st.Lat, *st.Lng)
	if bucket, ok := s.geoCells[cell]; ok {
		delete(bucket, st.DriverID)
		if len(bucket) == 0 {
			delete(s.geoCells, cell)
		}
	}
}

func (s *Store) GetDriverStatus(driverID string) (models.DriverStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[driverID]
	return st, ok
}

func (s *Store) ListDriverStatuses() []models.DriverStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DriverStatus, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	return out
}

// ListDriversNear returns online drivers whose last position falls
// within radiusKm of the center. The geo index narrows the scan to the
// covering cells; exact containment is re-checked per driver.
func (s *Store) ListDriversNear(center models.GeoPoint, radiusKm float64) []models.DriverStatus {
	bounds := geo.BoundsForRadius(center.Lat, center.Lng, radiusKm)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.DriverStatus
	for _, cell := range geo.CellsForBounds(bounds) {
		for driverID := range s.geoCells[cell] {
			st := s.statuses[driverID]
			if !st.IsOnline || !st.HasPosition() {
				continue
			}
			if !bounds.Contains(*st.Lat, *st.Lng) {
				continue
			}
			if geo.HaversineKm(center.Lat, center.Lng, *st.Lat, *st.Lng) > radiusKm {
				continue
			}
			out = append(out, st)
		}
	}
	return out
}

// ---- trips ----

func (s *Store) CreateTrip(t models.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[t.ID] = t
}

func (s *Store) GetTrip(tripID string) (models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[tripID]
	if !ok {
		return models.Trip{}, types.ErrTripNotFound
	}
	return t, nil
}

// UpdateTrip applies mutate under the store mutex and stamps UpdatedAt.
func (s *Store) UpdateTrip(tripID string, mutate func(*models.Trip)) (models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return models.Trip{}, types.ErrTripNotFound
	}
	mutate(&t)
	t.UpdatedAt = time.Now()
	s.trips[tripID] = t
	return t, nil
}

func (s *Store) ListTripsForRider(riderID int64, limit int) []models.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Trip
	for _, t := range s.trips {
		if t.RiderID == riderID {
			out = append(out, t)
		}
	}
	sortTripsNewestFirst(out)
	return truncTrips(out, limit)
}

func (s *Store) ListTripsForDriver(driverID string, limit int) []models.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Trip
	for _, t := range s.trips {
		if t.DriverID != nil && *t.DriverID == driverID {
			out = append(out, t)
		}
	}
	sortTripsNewestFirst(out)
	return truncTrips(out, limit)
}

func sortTripsNewestFirst(trips []models.Trip) {
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].CreatedAt.Equal(trips[j].CreatedAt) {
			return trips[i].CreatedAt.After(trips[j].CreatedAt)
		}
		return trips[i].ID > trips[j].ID
	})
}

func truncTrips(trips []models.Trip, limit int) []models.Trip {
	if limit > 0 && len(trips) > limit {
		return trips[:limit]
	}
	return trips
}

// ---- trip audit trail ----

func (s *Store) AppendTripEvent(e models.TripEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tripEvents[e.TripID] = append(s.tripEvents[e.TripID], e)
}

// ListTripEvents returns the audit trail oldest first.
func (s *Store) ListTripEvents(tripID string) []models.TripEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.tripEvents[tripID]
	out := make([]models.TripEvent, len(events))
	copy(out, events)
	return out
}

// ---- trip breadcrumbs ----

func (s *Store) AppendTripLocation(loc models.TripLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tripCrumbs[loc.TripID] = append(s.tripCrumbs[loc.TripID], loc)
}

// ListTripLocations returns the most recent breadcrumbs, newest first.
func (s *Store) ListTripLocations(tripID string, limit int) []models.TripLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	crumbs := s.tripCrumbs[tripID]
	n := len(crumbs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.TripLocation, 0, n)
	for i := len(crumbs) - 1; i >= len(crumbs)-n; i-- {
		out = append(out, crumbs[i])
	}
	return out
}

// ---- dispatch offers ----

func (s *Store) CreateOffer(o models.DispatchOffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID] = o
	s.tripOffers[o.TripID] = append(s.tripOffers[o.TripID], o.ID)
	s.driverOffers[o.DriverID] = append(s.driverOffers[o.DriverID], o.ID)
}

func (s *Store) GetOffer(offerID string) (models.DispatchOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[offerID]
	if !ok {
		return models.DispatchOffer{}, types.ErrOfferNotFound
	}
	return o, nil
}

func (s *Store) UpdateOffer(offerID string, mutate func(*models.DispatchOffer)) (models.DispatchOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[offerID]
	if !ok {
		return models.DispatchOffer{}, types.ErrOfferNotFound
	}
	mutate(&o)
	s.offers[offerID] = o
	return o, nil
}

// ListOffersForTrip returns offers in creation order.
func (s *Store) ListOffersForTrip(tripID string) []models.DispatchOffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.tripOffers[tripID]
	out := make([]models.DispatchOffer, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.offers[id])
	}
	return out
}

// ListOffersForDriver returns offers newest first.
func (s *Store) ListOffersForDriver(driverID string) []models.DispatchOffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.driverOffers[driverID]
	out := make([]models.DispatchOffer, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.offers[ids[i]])
	}
	return out
}

// ---- ratings ----

func (s *Store) CreateRating(r models.DriverRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ratingByTrip[r.TripID]; exists {
		return types.ErrTripAlreadyRated
	}
	s.ratings[r.ID] = r
	s.ratingByTrip[r.TripID] = r.ID
	s.ratingsByDrv[r.DriverID] = append(s.ratingsByDrv[r.DriverID], r.ID)
	return nil
}

func (s *Store) GetRatingForTrip(tripID string) (models.DriverRating, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ratingByTrip[tripID]
	if !ok {
		return models.DriverRating{}, false
	}
	return s.ratings[id], true
}

// ListDriverRatings returns up to limit ratings, newest first.
func (s *Store) ListDriverRatings(driverID string, limit int) []models.DriverRating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.ratingsByDrv[driverID]
	n := len(ids)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.DriverRating, 0, n)
	for i := len(ids) - 1; i >= len(ids)-n; i-- {
		out = append(out, s.ratings[ids[i]])
	}
	return out
}

// ---- safety ----

func (s *Store) CreateIncident(in models.SafetyIncident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents[in.ID] = in
	s.tripIncds[in.TripID] = append(s.tripIncds[in.TripID], in.ID)
}

func (s *Store) ListIncidentsForTrip(tripID string) []models.SafetyIncident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.tripIncds[tripID]
	out := make([]models.SafetyIncident, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.incidents[id])
	}
	return out
}

func (s *Store) SaveShareToken(t models.TripShareToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shareTokens[t.Token] = t
}

func (s *Store) GetShareToken(token string) (models.TripShareToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.shareTokens[token]
	if !ok {
		return models.TripShareToken{}, types.ErrTokenNotFound
	}
	return t, nil
}

func (s *Store) UpdateShareToken(token string, mutate func(*models.TripShareToken)) (models.TripShareToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.shareTokens[token]
	if !ok {
		return models.TripShareToken{}, types.ErrTokenNotFound
	}
	mutate(&t)
	s.shareTokens[token] = t
	return t, nil
}

// ---- trip start PINs ----

func (s *Store) SaveTripStartPin(p models.TripStartPin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[p.TripID] = p
}

func (s *Store) GetTripStartPin(tripID string) (models.TripStartPin, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pins[tripID]
	return p, ok
}

func (s *Store) DeleteTripStartPin(tripID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pins, tripID)
}

// ---- idempotency ----

func idempotencyKey(action, key string) string {
	return action + ":" + key
}

func (s *Store) SaveIdempotency(e models.IdempotencyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idempotency[idempotencyKey(e.Action, e.Key)] = e
}

func (s *Store) GetIdempotency(action, key string) (models.IdempotencyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.idempotency[idempotencyKey(action, key)]
	return e, ok
}
