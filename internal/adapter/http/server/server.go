package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/safarigo/ridehail/config"
	"github.com/safarigo/ridehail/internal/adapter/http/handler"
	"github.com/safarigo/ridehail/internal/adapter/http/middleware"
	wshandler "github.com/safarigo/ridehail/internal/adapter/http/ws"
	"github.com/safarigo/ridehail/internal/service/safety"
	"github.com/safarigo/ridehail/internal/service/trip"
	"github.com/safarigo/ridehail/internal/stream"
	"github.com/safarigo/ridehail/pkg/logger"
	wrap "github.com/safarigo/ridehail/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers
	m      *middleware.Middleware

	addr string
	cfg  config.Config
	log  logger.Logger
}

type handlers struct {
	health *handler.Health
	trip   *handler.Trip
	driver *handler.Driver
	admin  *handler.Admin
	safety *handler.Safety
	stream *wshandler.Stream
}

func New(
	cfg config.Config,
	tripService *trip.Service,
	safetyService *safety.Service,
	bus *stream.Bus,
	log logger.Logger,
) (*API, error) {
	if tripService == nil {
		return nil, errors.New("trip service is required")
	}
	if safetyService == nil {
		return nil, errors.New("safety service is required")
	}

	routes := &handlers{
		health: handler.NewHealth("ridehail", log),
		trip:   handler.NewTrip(tripService, log),
		driver: handler.NewDriver(tripService, log),
		admin:  handler.NewAdmin(tripService, log),
		safety: handler.NewSafety(safetyService, log),
		stream: wshandler.NewStream(bus, tripService, log),
	}

	api := &API{
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(cfg.Auth.JWTSecret, log),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Server.Port),
		cfg:    cfg,
		log:    log,
	}

	api.server = &http.Server{
		Addr:    api.addr,
		Handler: api.withMiddleware(),
	}

	setupRoutes(api.mux, api.routes, api.m)

	return api, nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// withMiddleware applies the global chain to the mux.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Metrics(a.m.Logging(a.m.Auth(a.mux)))))
}
