package ratings

import (
	"math"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/store"
)

type SubmitInput struct {
	TripID   string
	RiderID  int64
	DriverID string
	Score    int
	Feedback string
}

type SubmitResult struct {
	DriverRating float64 `json:"driver_rating"`
	TotalRatings int     `json:"total_ratings"`
}

// Service maintains driver ratings over a rolling window. Access and
// trip-state checks are the trip service's job; this layer only owns
// the aggregation math and the once-per-trip rule.
type Service struct {
	store         *store.Store
	rollingWindow int
}

func New(st *store.Store, rollingWindow int) *Service {
	return &Service{store: st, rollingWindow: rollingWindow}
}

// Submit records a rating and refreshes the driver's profile score
// from the most recent window. A trip can be rated once.
func (s *Service) Submit(in SubmitInput) (SubmitResult, error) {
	if _, rated := s.store.GetRatingForTrip(in.TripID); rated {
		return SubmitResult{}, types.ErrTripAlreadyRated
	}

	err := s.store.CreateRating(models.DriverRating{
		ID:        models.NewID("rat"),
		TripID:    in.TripID,
		RiderID:   in.RiderID,
		DriverID:  in.DriverID,
		Score:     in.Score,
		Feedback:  in.Feedback,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return SubmitResult{}, err
	}

	window := s.store.ListDriverRatings(in.DriverID, s.rollingWindow)
	scores := make([]int, len(window))
	for i, r := range window {
		scores[i] = r.Score
	}
	weighted := weightedAverage(scores)

	_, _ = s.store.UpdateDriverProfile(in.DriverID, func(p *models.DriverProfile) {
		p.Rating = weighted
	})

	return SubmitResult{
		DriverRating: weighted,
		TotalRatings: len(window),
	}, nil
}

// weightedAverage favors recent scores: with scores newest first, the
// newest carries weight n and the oldest weight 1. An empty window
// means a fresh driver, who starts at 5.
func weightedAverage(scores []int) float64 {
	if len(scores) == 0 {
		return 5
	}
	var totalWeight, weightedSum float64
	for i, score := range scores {
		w := float64(len(scores) - i)
		totalWeight += w
		weightedSum += float64(score) * w
	}
	return math.Round(weightedSum/totalWeight*100) / 100
}
