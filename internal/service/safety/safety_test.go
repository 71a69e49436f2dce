package safety

import (
	"context"
	"testing"
	"time"

	"github.com/safarigo/ridehail/internal/domain/models"
	"github.com/safarigo/ridehail/internal/domain/types"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/pkg/logger"
)

func newService(t *testing.T, st *store.Store, ttl time.Duration) *Service {
	t.Helper()
	log := logger.InitLogger("safety-test", logger.LevelError)
	return New(st, log, ttl, SupportContacts{
		Email:          "support@example.com",
		Phone:          "+1-800-000-0000",
		EmergencyPhone: "+911",
	})
}

func seedTrip(st *store.Store, driverID *string) models.Trip {
	trip := models.Trip{
		ID:       "trip_1",
		RiderID:  7,
		DriverID: driverID,
		Pickup:   models.Location{Lat: -1.29, Lng: 36.82, Address: "Kenyatta Ave"},
		Dropoff:  models.Location{Lat: -1.32, Lng: 36.85, Address: "Wilson Airport"},
		State:    types.StateInProgress,
		Fare:     models.FareSnapshot{Total: 19.50, Currency: "USD"},
	}
	st.CreateTrip(trip)
	return trip
}

func TestShareTokenRoundTrip(t *testing.T) {
	st := store.New()
	svc := newService(t, st, 6*time.Hour)
	seedTrip(st, nil)

	created, err := svc.CreateShareToken("trip_1", "7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Token == "" {
		t.Fatal("empty token")
	}

	view, err := svc.ResolveShareToken(created.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if view.Trip.ID != "trip_1" || view.Trip.PickupAddress != "Kenyatta Ave" {
		t.Fatalf("unexpected view %+v", view.Trip)
	}
}

func TestSharedViewHidesRiderAndFare(t *testing.T) {
	st := store.New()
	svc := newService(t, st, time.Hour)

	driverID := "drv_1"
	seedTrip(st, &driverID)
	st.UpsertDriverProfile(models.DriverProfile{
		DriverID: driverID,
		UserID:   100,
		Rating:   4.8,
		Vehicle:  models.Vehicle{Make: "Toyota", Model: "Prius", Plate: "KDA 123X"},
	})
	lat, lng := -1.30, 36.83
	st.UpdateDriverStatus(driverID, func(s *models.DriverStatus) {
		s.IsOnline = true
		s.Lat = &lat
		s.Lng = &lng
	})

	created, err := svc.CreateShareToken("trip_1", "7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, err := svc.ResolveShareToken(created.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if view.Driver == nil {
		t.Fatal("expected driver projection")
	}
	if view.Driver.Rating != 4.8 || view.Driver.Vehicle.Plate != "KDA 123X" {
		t.Fatalf("unexpected driver projection %+v", view.Driver)
	}
	if view.Driver.Location == nil || view.Driver.Location.Lat != lat {
		t.Fatalf("expected live location, got %+v", view.Driver.Location)
	}
}

func TestRevokeIsCreatorOnly(t *testing.T) {
	st := store.New()
	svc := newService(t, st, time.Hour)
	seedTrip(st, nil)

	created, err := svc.CreateShareToken("trip_1", "7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.RevokeShareToken(created.Token, "999"); err != types.ErrNotTokenCreator {
		t.Fatalf("expected ErrNotTokenCreator, got %v", err)
	}
	if _, err := svc.RevokeShareToken(created.Token, "7"); err != nil {
		t.Fatalf("creator revoke: %v", err)
	}
	if _, err := svc.ResolveShareToken(created.Token); err != types.ErrTokenRevoked {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	st := store.New()
	svc := newService(t, st, -time.Minute)
	seedTrip(st, nil)

	created, err := svc.CreateShareToken("trip_1", "7")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ResolveShareToken(created.Token); err != types.ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestReportIncidentReturnsSupportContacts(t *testing.T) {
	st := store.New()
	svc := newService(t, st, time.Hour)
	seedTrip(st, nil)

	res := svc.ReportIncident(context.Background(), models.SafetyIncident{
		TripID:       "trip_1",
		ReporterID:   "7",
		ReporterRole: types.RoleRider,
		Category:     types.IncidentSOS,
		Description:  "driver took a wrong turn",
	})

	if res.Status != types.IncidentOpen {
		t.Fatalf("expected OPEN, got %s", res.Status)
	}
	if res.Support.EmergencyPhone != "+911" {
		t.Fatalf("missing support contacts: %+v", res.Support)
	}

	stored := st.ListIncidentsForTrip("trip_1")
	if len(stored) != 1 || stored[0].Category != types.IncidentSOS {
		t.Fatalf("incident not persisted: %+v", stored)
	}
}
