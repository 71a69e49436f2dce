package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/safarigo/ridehail/config"
	"github.com/safarigo/ridehail/internal/adapter/http/server"
	pgadapter "github.com/safarigo/ridehail/internal/adapter/postgres"
	rabbitadapter "github.com/safarigo/ridehail/internal/adapter/rabbit"
	"github.com/safarigo/ridehail/internal/service/dispatch"
	"github.com/safarigo/ridehail/internal/service/payment"
	"github.com/safarigo/ridehail/internal/service/pricing"
	"github.com/safarigo/ridehail/internal/service/ratings"
	"github.com/safarigo/ridehail/internal/service/safety"
	"github.com/safarigo/ridehail/internal/service/trip"
	"github.com/safarigo/ridehail/internal/store"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	"github.com/safarigo/ridehail/pkg/postgres"
	"github.com/safarigo/ridehail/pkg/rabbit"
)

// App owns every long-lived component: the in-memory store, the event
// bus, the services, the HTTP server and the optional Postgres and
// RabbitMQ bridges.
type App struct {
	httpServer *server.API
	trips      *trip.Service

	postgresDB *postgres.PostgreDB
	archiver   *pgadapter.TripArchiver
	rabbitMQ   *rabbit.RabbitMQ
	publisher  *rabbitadapter.Publisher

	cfg config.Config
	log logger.Logger
}

func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	st := store.New()
	bus := stream.NewBus()

	tripService := trip.New(
		st,
		bus,
		log,
		trip.Config{
			EnableStartPin: cfg.Ride.EnableTripStartPin,
			PinTTL:         cfg.Ride.TripStartPinTTL,
			PinMaxAttempts: cfg.Ride.TripStartPinRetries,

			CancelFeeBeforeAssign: cfg.Ride.CancelFeeBeforeAssign,
			CancelFeeAfterAssign:  cfg.Ride.CancelFeeAfterAssign,

			DriverStaleAfter: cfg.Ride.DriverStaleAfter,

			MaxLocationSpeedKmh:   cfg.Ride.LocationMaxSpeedKmh,
			MaxLocationJumpMeters: cfg.Ride.LocationMaxJumpMeters,
			MaxLocationJumpWindow: cfg.Ride.LocationMaxJumpWindow,
		},
		dispatch.Config{
			RadiusKm:      cfg.Ride.DispatchRadiusKm,
			OfferTimeout:  cfg.Ride.OfferTimeout,
			MaxCandidates: cfg.Ride.MaxDriverCandidates,
		},
		pricing.New(),
		payment.New(),
		ratings.New(st, cfg.Ride.RatingRollingWindow),
	)

	safetyService := safety.New(st, log, cfg.Ride.ShareTokenTTL, safety.SupportContacts{
		Email:          cfg.Support.Email,
		Phone:          cfg.Support.Phone,
		EmergencyPhone: cfg.Support.EmergencyPhone,
	})

	httpServer, err := server.New(cfg, tripService, safetyService, bus, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		return nil, err
	}

	app := &App{
		httpServer: httpServer,
		trips:      tripService,
		cfg:        cfg,
		log:        log,
	}

	if cfg.Database.Enabled {
		postgresDB, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Error(ctx, "Failed to setup database", err)
			return nil, err
		}
		archiver := pgadapter.NewTripArchiver(postgresDB.Pool, log)
		if err := archiver.EnsureSchema(ctx); err != nil {
			log.Error(ctx, "Failed to prepare archive schema", err)
			postgresDB.Pool.Close()
			return nil, err
		}
		archiver.Run(ctx, bus)
		app.postgresDB = postgresDB
		app.archiver = archiver
	}

	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to RabbitMQ", err)
			return nil, err
		}
		publisher := rabbitadapter.NewPublisher(rabbitMQ, cfg.RabbitMQ.Exchange, log)
		if err := publisher.Run(ctx, bus); err != nil {
			log.Error(ctx, "Failed to start event publisher", err)
			return nil, err
		}
		app.rabbitMQ = rabbitMQ
		app.publisher = publisher
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.httpServer.Run(ctx, errCh)
	defer func() {
		a.close(ctx)
		a.log.Info(ctx, "application closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info(ctx, "application started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (a *App) close(ctx context.Context) {
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if a.trips != nil {
		a.trips.Shutdown()
	}

	if a.publisher != nil {
		a.publisher.Stop()
	}
	if a.rabbitMQ != nil {
		if err := a.rabbitMQ.Close(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close RabbitMQ", "error", err.Error())
		}
	}

	if a.archiver != nil {
		a.archiver.Stop()
	}
	if a.postgresDB != nil && a.postgresDB.Pool != nil {
		a.postgresDB.Pool.Close()
	}
}
