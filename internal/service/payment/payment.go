package payment

import (
	"context"
	"fmt"

	"github.com/safarigo/ridehail/internal/domain/types"
)

type CaptureStatus string

const (
	StatusCompleted CaptureStatus = "COMPLETED"
	StatusPending   CaptureStatus = "PENDING"
)

type CaptureInput struct {
	TripID   string
	RiderID  int64
	DriverID string
	Amount   float64
	Currency string
}

type CaptureResult struct {
	Status      CaptureStatus       `json:"status"`
	Method      types.PaymentMethod `json:"method"`
	ReferenceID string              `json:"reference_id"`
}

// Handler captures a payment with one specific method. Card and wallet
// handlers would join the registry here.
type Handler interface {
	Capture(ctx context.Context, in CaptureInput) (CaptureResult, error)
}

// Service routes captures to the handler registered for the method.
type Service struct {
	handlers map[types.PaymentMethod]Handler
}

func New() *Service {
	return &Service{
		handlers: map[types.PaymentMethod]Handler{
			types.PaymentCash: cashHandler{},
		},
	}
}

func (s *Service) Capture(ctx context.Context, method types.PaymentMethod, in CaptureInput) (CaptureResult, error) {
	h, ok := s.handlers[method]
	if !ok {
		return CaptureResult{}, fmt.Errorf("unsupported payment method: %s", method)
	}
	return h.Capture(ctx, in)
}

// cashHandler settles in the car. Capture only records the obligation.
type cashHandler struct{}

func (cashHandler) Capture(_ context.Context, in CaptureInput) (CaptureResult, error) {
	return CaptureResult{
		Status:      StatusPending,
		Method:      types.PaymentCash,
		ReferenceID: "cash_" + in.TripID,
	}, nil
}
