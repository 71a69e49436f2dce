package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
	"github.com/safarigo/ridehail/pkg/postgres"
)

// TripArchiver persists every trip state change into Postgres. The
// in-memory store remains the source of truth; the archive exists for
// offline reporting and dispute resolution.
type TripArchiver struct {
	db  *pgxpool.Pool
	log logger.Logger

	sub *stream.Subscription
}

func NewTripArchiver(db *pgxpool.Pool, log logger.Logger) *TripArchiver {
	return &TripArchiver{
		db:  db,
		log: log,
	}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *TripArchiver) EnsureSchema(ctx context.Context) error {
	_, err := a.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trip_archive (
			trip_id     TEXT        NOT NULL,
			state       TEXT        NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			payload     JSONB       NOT NULL,
			archived_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (trip_id, state, updated_at)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trip_archive table: %w", err)
	}
	return nil
}

// Run subscribes to the bus and archives trip updates until the
// context is cancelled or Stop is called.
func (a *TripArchiver) Run(ctx context.Context, bus *stream.Bus) {
	a.sub = bus.SubscribeAll()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-a.sub.C:
				if !ok {
					return
				}
				if ev.Type != stream.EventTripUpdated || ev.Trip == nil {
					continue
				}
				if err := a.archive(ctx, ev); err != nil {
					a.log.Error(wrap.ErrorCtx(ctx, err), "failed to archive trip update", err, "trip_id", ev.Trip.ID)
				}
			}
		}
	}()

	a.log.Info(wrap.WithAction(ctx, "trip_archiver_start"), "trip archiver started")
}

// Stop detaches the archiver from the bus.
func (a *TripArchiver) Stop() {
	if a.sub != nil {
		a.sub.Close()
	}
}

func (a *TripArchiver) archive(ctx context.Context, ev stream.Event) error {
	payload, err := json.Marshal(ev.Trip)
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}

	_, err = a.db.Exec(ctx, `
		INSERT INTO trip_archive (trip_id, state, updated_at, payload)
		VALUES ($1, $2, $3, $4)
	`, ev.Trip.ID, string(ev.Trip.State), ev.Trip.UpdatedAt, payload)
	if postgres.IsUniqueViolation(err) {
		// Replayed snapshot, already archived.
		return nil
	}
	return err
}
