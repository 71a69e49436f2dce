package pricing

import (
	"testing"

	"github.com/safarigo/ridehail/internal/domain/types"
)

func TestStandardFare(t *testing.T) {
	s := New()
	// 2.50 + 10km*1.20 + 20min*0.25 = 19.50
	fare := s.EstimateFare(EstimateInput{
		DistanceMeters:  10_000,
		DurationSeconds: 1200,
		RideType:        types.RideStandard,
	})
	if fare.Total != 19.50 {
		t.Fatalf("expected 19.50, got %.2f", fare.Total)
	}
	if fare.Currency != "USD" {
		t.Fatalf("expected USD, got %s", fare.Currency)
	}
	if fare.SurgeMultiplier != 1 {
		t.Fatalf("surge must be 1, got %.2f", fare.SurgeMultiplier)
	}
}

func TestPremiumFare(t *testing.T) {
	s := New()
	fare := s.EstimateFare(EstimateInput{
		DistanceMeters:  10_000,
		DurationSeconds: 1200,
		RideType:        types.RidePremium,
	})
	if fare.Total != 29.25 {
		t.Fatalf("expected 29.25, got %.2f", fare.Total)
	}
}

func TestMinimumFareFloor(t *testing.T) {
	s := New()
	// 2.50 + 1.2km*1.20 + 4min*0.25 = 4.94, floored to 5.00
	fare := s.EstimateFare(EstimateInput{
		DistanceMeters:  1200,
		DurationSeconds: 240,
		RideType:        types.RideStandard,
	})
	if fare.Total != 5.00 {
		t.Fatalf("expected minimum fare 5.00, got %.2f", fare.Total)
	}
}

func TestZeroRouteGetsMinimumFare(t *testing.T) {
	s := New()
	fare := s.EstimateFare(EstimateInput{RideType: types.RideStandard})
	if fare.Total != 5.00 {
		t.Fatalf("expected 5.00, got %.2f", fare.Total)
	}
}

func TestEstimateIsReproducible(t *testing.T) {
	s := New()
	in := EstimateInput{
		DistanceMeters:  7345,
		DurationSeconds: 911,
		RideType:        types.RidePremium,
	}
	first := s.EstimateFare(in)
	for i := 0; i < 5; i++ {
		if got := s.EstimateFare(in); got != first {
			t.Fatalf("estimate not reproducible: %+v vs %+v", got, first)
		}
	}
}
