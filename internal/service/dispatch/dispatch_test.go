package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
)

var pickup = models.Location{Lat: -1.2921, Lng: 36.8219, Address: "Kenyatta Ave"}

type outcome struct {
	mu            sync.Mutex
	assignedTo    string
	noDriverTrips []string
}

func (o *outcome) callbacks(st *store.Store) Callbacks {
	return Callbacks{
		OnDriverAssigned: func(_ context.Context, tripID, driverID string) error {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.assignedTo = driverID
			_, err := st.UpdateTrip(tripID, func(tr *models.Trip) {
				tr.DriverID = &driverID
				tr.State = types.StateDriverAssigned
			})
			return err
		},
		OnNoDriverFound: func(_ context.Context, tripID string) error {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.noDriverTrips = append(o.noDriverTrips, tripID)
			_, err := st.UpdateTrip(tripID, func(tr *models.Trip) {
				tr.State = types.StateNoDriverFound
			})
			return err
		},
	}
}

func newService(t *testing.T, st *store.Store, cb Callbacks) *Service {
	t.Helper()
	svc := New(st, stream.NewBus(), logger.InitLogger("dispatch-test", logger.LevelError), Config{
		RadiusKm:      10,
		OfferTimeout:  time.Minute,
		MaxCandidates: 10,
	}, cb)
	t.Cleanup(svc.Shutdown)
	return svc
}

func seedMatchingTrip(st *store.Store, id string) {
	st.CreateTrip(models.Trip{
		ID:        id,
		RiderID:   7,
		Pickup:    pickup,
		State:     types.StateMatching,
		CreatedAt: time.Now(),
	})
}

func seedDriver(st *store.Store, driverID string, verified bool, offsetDeg float64) {
	st.UpsertDriverProfile(models.DriverProfile{
		DriverID: driverID,
		UserID:   time.Now().UnixNano(),
		Verified: verified,
	})
	lat, lng := pickup.Lat+offsetDeg, pickup.Lng
	st.UpdateDriverStatus(driverID, func(s *models.DriverStatus) {
		s.IsOnline = true
		s.Lat = &lat
		s.Lng = &lng
	})
}

func pendingOffer(t *testing.T, st *store.Store, tripID string) models.DispatchOffer {
	t.Helper()
	for _, o := range st.ListOffersForTrip(tripID) {
		if o.Status == types.OfferPending {
			return o
		}
	}
	t.Fatal("no pending offer")
	return models.DispatchOffer{}
}

func TestNoEligibleDriversEndsMatching(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")

	if err := svc.StartMatching(context.Background(), "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}

	trip, _ := st.GetTrip("trip_1")
	if trip.State != types.StateNoDriverFound {
		t.Fatalf("expected NO_DRIVER_FOUND, got %s", trip.State)
	}
	if len(out.noDriverTrips) != 1 {
		t.Fatalf("callback fired %d times", len(out.noDriverTrips))
	}
}

func TestNearestDriverGetsTheOffer(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_far", true, 0.05)
	seedDriver(st, "drv_near", true, 0.001)

	if err := svc.StartMatching(context.Background(), "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}

	offer := pendingOffer(t, st, "trip_1")
	if offer.DriverID != "drv_near" {
		t.Fatalf("expected nearest driver, got %s", offer.DriverID)
	}
}

func TestUnverifiedAndBusyDriversExcluded(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")

	seedDriver(st, "drv_unverified", false, 0.001)
	seedDriver(st, "drv_busy", true, 0.002)
	activeID := "trip_other"
	st.UpdateDriverStatus("drv_busy", func(s *models.DriverStatus) {
		s.ActiveTripID = &activeID
	})
	seedDriver(st, "drv_free", true, 0.01)

	if err := svc.StartMatching(context.Background(), "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}

	offer := pendingOffer(t, st, "trip_1")
	if offer.DriverID != "drv_free" {
		t.Fatalf("expected drv_free, got %s", offer.DriverID)
	}
}

func TestDeclineMovesToNextCandidate(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_1", true, 0.001)
	seedDriver(st, "drv_2", true, 0.002)
	seedDriver(st, "drv_3", true, 0.003)

	ctx := context.Background()
	if err := svc.StartMatching(ctx, "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		offer := pendingOffer(t, st, "trip_1")
		seen[offer.DriverID] = true
		if _, err := svc.RespondToOffer(ctx, offer.ID, offer.DriverID, false); err != nil {
			t.Fatalf("decline %d: %v", i, err)
		}
	}

	final := pendingOffer(t, st, "trip_1")
	seen[final.DriverID] = true
	if len(seen) != 3 {
		t.Fatalf("expected three distinct drivers offered, got %v", seen)
	}
	if len(st.ListOffersForTrip("trip_1")) != 3 {
		t.Fatalf("expected three offers total")
	}
}

func TestAllDeclinedEndsWithNoDriver(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_1", true, 0.001)

	ctx := context.Background()
	if err := svc.StartMatching(ctx, "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}
	offer := pendingOffer(t, st, "trip_1")
	if _, err := svc.RespondToOffer(ctx, offer.ID, "drv_1", false); err != nil {
		t.Fatalf("decline: %v", err)
	}

	trip, _ := st.GetTrip("trip_1")
	if trip.State != types.StateNoDriverFound {
		t.Fatalf("expected NO_DRIVER_FOUND after pool exhausted, got %s", trip.State)
	}
}

func TestAcceptAssignsDriver(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_1", true, 0.001)

	ctx := context.Background()
	if err := svc.StartMatching(ctx, "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}
	offer := pendingOffer(t, st, "trip_1")

	updated, err := svc.RespondToOffer(ctx, offer.ID, "drv_1", true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if updated.Status != types.OfferAccepted {
		t.Fatalf("expected ACCEPTED, got %s", updated.Status)
	}
	if out.assignedTo != "drv_1" {
		t.Fatalf("assignment callback not fired")
	}

	// second response to the same offer must fail
	if _, err := svc.RespondToOffer(ctx, offer.ID, "drv_1", true); err == nil ||
		!strings.Contains(err.Error(), "already") {
		t.Fatalf("expected already-responded error, got %v", err)
	}
}

func TestRespondRejectsWrongDriver(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_1", true, 0.001)

	ctx := context.Background()
	if err := svc.StartMatching(ctx, "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}
	offer := pendingOffer(t, st, "trip_1")

	if _, err := svc.RespondToOffer(ctx, offer.ID, "drv_intruder", true); err != types.ErrOfferNotOwned {
		t.Fatalf("expected ErrOfferNotOwned, got %v", err)
	}
}

func TestExpireOfferRematches(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))
	seedMatchingTrip(st, "trip_1")
	seedDriver(st, "drv_1", true, 0.001)
	seedDriver(st, "drv_2", true, 0.002)

	ctx := context.Background()
	if err := svc.StartMatching(ctx, "trip_1"); err != nil {
		t.Fatalf("StartMatching: %v", err)
	}
	first := pendingOffer(t, st, "trip_1")

	if err := svc.ExpireOffer(ctx, first.ID); err != nil {
		t.Fatalf("ExpireOffer: %v", err)
	}

	got, _ := st.GetOffer(first.ID)
	if got.Status != types.OfferExpired {
		t.Fatalf("expected EXPIRED, got %s", got.Status)
	}
	next := pendingOffer(t, st, "trip_1")
	if next.DriverID != "drv_2" {
		t.Fatalf("expected rematch to drv_2, got %s", next.DriverID)
	}
}

func TestListPendingOffersFiltersExpired(t *testing.T) {
	st := store.New()
	var out outcome
	svc := newService(t, st, out.callbacks(st))

	now := time.Now()
	st.CreateOffer(models.DispatchOffer{
		ID: "offer_live", TripID: "trip_1", DriverID: "drv_1",
		Status: types.OfferPending, CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	})
	st.CreateOffer(models.DispatchOffer{
		ID: "offer_stale", TripID: "trip_2", DriverID: "drv_1",
		Status: types.OfferPending, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute),
	})
	st.CreateOffer(models.DispatchOffer{
		ID: "offer_done", TripID: "trip_3", DriverID: "drv_1",
		Status: types.OfferDeclined, CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	})

	got := svc.ListPendingOffers("drv_1")
	if len(got) != 1 || got[0].ID != "offer_live" {
		t.Fatalf("expected only the live offer, got %+v", got)
	}
}
