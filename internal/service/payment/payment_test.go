package payment

import (
	"context"
	"testing"

	"github.com/safarigo/ridehail/internal/domain/types"
)

func TestCashCapturePending(t *testing.T) {
	s := New()
	res, err := s.Capture(context.Background(), types.PaymentCash, CaptureInput{
		TripID:   "trip_1",
		RiderID:  7,
		DriverID: "drv_1",
		Amount:   19.50,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("cash capture must stay PENDING, got %s", res.Status)
	}
	if res.ReferenceID != "cash_trip_1" {
		t.Fatalf("unexpected reference %s", res.ReferenceID)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	s := New()
	_, err := s.Capture(context.Background(), types.PaymentMethod("CARD"), CaptureInput{TripID: "trip_1"})
	if err == nil {
		t.Fatal("expected error for unregistered method")
	}
}
