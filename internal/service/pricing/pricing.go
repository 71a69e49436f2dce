package pricing

import (
	"math"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
)

// Fare constants, USD.
const (
	baseFare          = 2.50
	perKm             = 1.20
	perMinute         = 0.25
	premiumMultiplier = 1.5
	minimumFare       = 5.00
)

// EstimateInput is the route summary a fare is quoted against.
type EstimateInput struct {
	DistanceMeters  float64
	DurationSeconds float64
	RideType        types.RideType
}

type Service struct{}

func New() *Service {
	return &Service{}
}

// EstimateFare quotes a fare for the given route. The result is a
// snapshot: once attached to a trip it is never recomputed.
func (s *Service) EstimateFare(in EstimateInput) models.FareSnapshot {
	distanceKm := in.DistanceMeters / 1000
	durationMinutes := in.DurationSeconds / 60
	surge := s.surgeMultiplier()

	distanceFare := distanceKm * perKm
	timeFare := durationMinutes * perMinute

	rideMultiplier := 1.0
	if in.RideType == types.RidePremium {
		rideMultiplier = premiumMultiplier
	}
	subtotal := (baseFare + distanceFare + timeFare) * rideMultiplier
	total := math.Max(subtotal*surge, minimumFare)

	return models.FareSnapshot{
		Currency:        "USD",
		BaseFare:        round2(baseFare),
		DistanceFare:    round2(distanceFare),
		TimeFare:        round2(timeFare),
		SurgeMultiplier: round2(surge),
		Total:           round2(total),
		DistanceMeters:  in.DistanceMeters,
		DurationSeconds: in.DurationSeconds,
		RideType:        in.RideType,
	}
}

// surgeMultiplier is deterministic for now. Demand-based surge would
// slot in here without touching callers.
func (s *Service) surgeMultiplier() float64 {
	return 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
