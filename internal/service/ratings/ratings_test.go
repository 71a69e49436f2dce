package ratings

import (
	"testing"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/store"
)

func seedDriver(t *testing.T, st *store.Store) {
	t.Helper()
	st.UpsertDriverProfile(models.DriverProfile{
		DriverID: "drv_1",
		UserID:   100,
		Verified: true,
		Rating:   5,
	})
}

func TestRecentScoresWeighHeavier(t *testing.T) {
	st := store.New()
	seedDriver(t, st)
	svc := New(st, 100)

	var last SubmitResult
	for _, score := range []int{5, 5, 1} {
		res, err := svc.Submit(SubmitInput{
			TripID:   models.NewID("trip"),
			RiderID:  7,
			DriverID: "drv_1",
			Score:    score,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		last = res
	}

	// weights newest-first: 1*3 + 5*2 + 5*1 over 6 = 3.0
	if last.DriverRating != 3.0 {
		t.Fatalf("expected 3.0, got %.2f", last.DriverRating)
	}
	mean := (5.0 + 5.0 + 1.0) / 3.0
	if !(last.DriverRating < mean) {
		t.Fatalf("recent low score should pull below the plain mean %.2f, got %.2f", mean, last.DriverRating)
	}

	profile, err := st.GetDriverProfile("drv_1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Rating != last.DriverRating {
		t.Fatalf("profile rating not refreshed: %.2f vs %.2f", profile.Rating, last.DriverRating)
	}
}

func TestRollingWindowDropsOldScores(t *testing.T) {
	st := store.New()
	seedDriver(t, st)
	svc := New(st, 2)

	var last SubmitResult
	for _, score := range []int{1, 5, 5} {
		res, err := svc.Submit(SubmitInput{
			TripID:   models.NewID("trip"),
			RiderID:  7,
			DriverID: "drv_1",
			Score:    score,
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		last = res
	}

	if last.TotalRatings != 2 {
		t.Fatalf("window should cap at 2, got %d", last.TotalRatings)
	}
	if last.DriverRating != 5 {
		t.Fatalf("old score should have aged out, got %.2f", last.DriverRating)
	}
}

func TestDuplicateTripRatingRejected(t *testing.T) {
	st := store.New()
	seedDriver(t, st)
	svc := New(st, 100)

	in := SubmitInput{TripID: "trip_1", RiderID: 7, DriverID: "drv_1", Score: 4}
	if _, err := svc.Submit(in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(in); err != types.ErrTripAlreadyRated {
		t.Fatalf("expected ErrTripAlreadyRated, got %v", err)
	}
}
