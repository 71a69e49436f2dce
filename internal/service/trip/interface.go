package trip

import (
	"context"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/service/payment"
	"github.com/safarigo/ridehail/internal/service/pricing"
	"github.com/safarigo/ridehail/internal/service/ratings"
)

type FareEstimator interface {
	EstimateFare(in pricing.EstimateInput) models.FareSnapshot
}

type PaymentCapturer interface {
	Capture(ctx context.Context, method types.PaymentMethod, in payment.CaptureInput) (payment.CaptureResult, error)
}

type RatingSubmitter interface {
	Submit(in ratings.SubmitInput) (ratings.SubmitResult, error)
}
