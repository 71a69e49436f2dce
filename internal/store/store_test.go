package store

import (
	"sync"
	"testing"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
)

func ptr[T any](v T) *T { return &v }

func TestWithLockSerializesSameKey(t *testing.T) {
	s := New()

	var inside int
	var maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithLock("trip:abc", func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected mutual exclusion, saw %d concurrent holders", maxInside)
	}
}

func TestWithLockDifferentKeysRunConcurrently(t *testing.T) {
	s := New()

	release := make(chan struct{})
	firstHeld := make(chan struct{})

	go func() {
		_ = s.WithLock("trip:a", func() error {
			close(firstHeld)
			<-release
			return nil
		})
	}()

	<-firstHeld

	done := make(chan struct{})
	go func() {
		_ = s.WithLock("trip:b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
	close(release)
}

func TestGeoIndexTracksOnlineDrivers(t *testing.T) {
	s := New()
	center := models.GeoPoint{Lat: -1.2921, Lng: 36.8219}

	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) {
		st.IsOnline = true
		st.Lat = ptr(center.Lat + 0.001)
		st.Lng = ptr(center.Lng)
	})
	s.UpdateDriverStatus("drv_2", func(st *models.DriverStatus) {
		st.IsOnline = true
		st.Lat = ptr(center.Lat + 0.5) // ~55km away
		st.Lng = ptr(center.Lng)
	})
	s.UpdateDriverStatus("drv_3", func(st *models.DriverStatus) {
		st.IsOnline = false
		st.Lat = ptr(center.Lat)
		st.Lng = ptr(center.Lng)
	})

	near := s.ListDriversNear(center, 10)
	if len(near) != 1 || near[0].DriverID != "drv_1" {
		t.Fatalf("expected only drv_1 nearby, got %+v", near)
	}
}

func TestGeoIndexRemovesDriverOnOffline(t *testing.T) {
	s := New()
	center := models.GeoPoint{Lat: -1.2921, Lng: 36.8219}

	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) {
		st.IsOnline = true
		st.Lat = ptr(center.Lat)
		st.Lng = ptr(center.Lng)
	})
	if got := s.ListDriversNear(center, 5); len(got) != 1 {
		t.Fatalf("expected driver indexed, got %d", len(got))
	}

	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) {
		st.IsOnline = false
	})
	if got := s.ListDriversNear(center, 5); len(got) != 0 {
		t.Fatalf("expected driver deindexed after going offline, got %d", len(got))
	}
}

func TestGeoIndexFollowsMovement(t *testing.T) {
	s := New()
	a := models.GeoPoint{Lat: -1.2921, Lng: 36.8219}
	b := models.GeoPoint{Lat: -1.4000, Lng: 36.9500}

	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) {
		st.IsOnline = true
		st.Lat = ptr(a.Lat)
		st.Lng = ptr(a.Lng)
	})
	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) {
		st.Lat = ptr(b.Lat)
		st.Lng = ptr(b.Lng)
	})

	if got := s.ListDriversNear(a, 2); len(got) != 0 {
		t.Fatalf("driver still indexed at old position: %+v", got)
	}
	if got := s.ListDriversNear(b, 2); len(got) != 1 {
		t.Fatalf("driver not indexed at new position")
	}
}

func TestTripLifecycleAccessors(t *testing.T) {
	s := New()

	trip := models.Trip{
		ID:        "trip_1",
		RiderID:   7,
		State:     types.StateCreated,
		CreatedAt: time.Now(),
	}
	s.CreateTrip(trip)

	got, err := s.GetTrip("trip_1")
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if got.State != types.StateCreated {
		t.Fatalf("unexpected state %s", got.State)
	}

	updated, err := s.UpdateTrip("trip_1", func(tr *models.Trip) {
		tr.State = types.StateMatching
	})
	if err != nil {
		t.Fatalf("UpdateTrip: %v", err)
	}
	if updated.State != types.StateMatching {
		t.Fatalf("mutation not applied")
	}
	if updated.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not stamped")
	}

	if _, err := s.GetTrip("trip_missing"); err != types.ErrTripNotFound {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}

func TestListTripsForRiderNewestFirst(t *testing.T) {
	s := New()
	base := time.Now()
	for i, id := range []string{"trip_a", "trip_b", "trip_c"} {
		s.CreateTrip(models.Trip{
			ID:        id,
			RiderID:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	s.CreateTrip(models.Trip{ID: "trip_other", RiderID: 2, CreatedAt: base})

	got := s.ListTripsForRider(1, 2)
	if len(got) != 2 {
		t.Fatalf("expected limit applied, got %d trips", len(got))
	}
	if got[0].ID != "trip_c" || got[1].ID != "trip_b" {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRatingOncePerTrip(t *testing.T) {
	s := New()

	first := models.DriverRating{ID: "rat_1", TripID: "trip_1", DriverID: "drv_1", Score: 5}
	if err := s.CreateRating(first); err != nil {
		t.Fatalf("first rating: %v", err)
	}
	dup := models.DriverRating{ID: "rat_2", TripID: "trip_1", DriverID: "drv_1", Score: 1}
	if err := s.CreateRating(dup); err != types.ErrTripAlreadyRated {
		t.Fatalf("expected ErrTripAlreadyRated, got %v", err)
	}

	got, ok := s.GetRatingForTrip("trip_1")
	if !ok || got.ID != "rat_1" {
		t.Fatalf("expected rat_1 for trip_1, got %+v ok=%t", got, ok)
	}
	if _, ok := s.GetRatingForTrip("trip_2"); ok {
		t.Fatal("unrated trip must have no rating")
	}
}

func TestListDriverStatusesReturnsAll(t *testing.T) {
	s := New()

	s.UpdateDriverStatus("drv_1", func(st *models.DriverStatus) { st.IsOnline = true })
	s.UpdateDriverStatus("drv_2", func(st *models.DriverStatus) { st.IsOnline = false })

	all := s.ListDriverStatuses()
	if len(all) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(all))
	}
	online := 0
	for _, st := range all {
		if st.IsOnline {
			online++
		}
	}
	if online != 1 {
		t.Fatalf("expected 1 online driver, got %d", online)
	}
}

func TestListDriverRatingsNewestFirstWithLimit(t *testing.T) {
	s := New()
	for i, score := range []int{5, 5, 1} {
		err := s.CreateRating(models.DriverRating{
			ID:       models.NewID("rat"),
			TripID:   models.NewID("trip"),
			DriverID: "drv_1",
			Score:    score,
		})
		if err != nil {
			t.Fatalf("rating %d: %v", i, err)
		}
	}

	got := s.ListDriverRatings("drv_1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(got))
	}
	if got[0].Score != 1 || got[1].Score != 5 {
		t.Fatalf("wrong order: %d, %d", got[0].Score, got[1].Score)
	}
}

func TestIdempotencyRoundTrip(t *testing.T) {
	s := New()

	if _, ok := s.GetIdempotency(types.ActionCreateTrip, "key-1"); ok {
		t.Fatal("unexpected hit on empty store")
	}

	s.SaveIdempotency(models.IdempotencyEntry{
		Action:   types.ActionCreateTrip,
		Key:      "key-1",
		Response: "trip_1",
	})

	e, ok := s.GetIdempotency(types.ActionCreateTrip, "key-1")
	if !ok {
		t.Fatal("expected entry")
	}
	if e.Response != "trip_1" {
		t.Fatalf("unexpected response %v", e.Response)
	}

	// same key under a different action is a distinct entry
	if _, ok := s.GetIdempotency(types.ActionCancelTrip, "key-1"); ok {
		t.Fatal("actions must not share idempotency space")
	}
}

func TestTripLocationsNewestFirstLimited(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.AppendTripLocation(models.TripLocation{
			TripID: "trip_1",
			Lat:    float64(i),
			Lng:    0,
		})
	}
	got := s.ListTripLocations("trip_1", 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 breadcrumbs, got %d", len(got))
	}
	if got[0].Lat != 4 || got[2].Lat != 2 {
		t.Fatalf("wrong order: %+v", got)
	}
}
