package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/safarigo/ridehail/internal/adapter/http/middleware"
	"github.com/safarigo/ridehail/internal/domain/types"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	// System Health
	mux.HandleFunc("/health", routes.health.HealthCheck)

	setupSwaggerRoutes(mux)
	setupMetricsRoute(mux)

	setupTripRoutes(mux, routes, m)
	setupDriverRoutes(mux, routes, m)
	setupAdminRoutes(mux, routes, m)
	setupSafetyRoutes(mux, routes, m)
}

// setupTripRoutes setups rider-facing trip routes
func setupTripRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /v1/fare/estimate", m.RequireRoles(routes.trip.Estimate, types.RoleRider, types.RoleAdmin))
	mux.Handle("POST /v1/trips", m.RequireRoles(routes.trip.Create, types.RoleRider, types.RoleAdmin))
	mux.Handle("GET /v1/trips", m.RequireRoles(routes.trip.History, types.RoleRider, types.RoleAdmin))
	mux.Handle("POST /v1/trips/nearby-drivers", m.RequireRoles(routes.driver.Nearby, types.RoleRider, types.RoleAdmin))
	mux.Handle("GET /v1/trips/{trip_id}", m.RequireRoles(routes.trip.Get, types.RoleRider, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/cancel", m.RequireRoles(routes.trip.Cancel, types.RoleRider, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/arrived", m.RequireRoles(routes.trip.Arrived, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/start", m.RequireRoles(routes.trip.Start, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/complete", m.RequireRoles(routes.trip.Complete, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/rating", m.RequireRoles(routes.trip.Rate, types.RoleRider, types.RoleAdmin))
	mux.Handle("GET /v1/trips/{trip_id}/locations", m.RequireRoles(routes.trip.Locations, types.RoleRider, types.RoleDriver, types.RoleAdmin))
	mux.HandleFunc("GET /v1/ws/trips/{trip_id}", routes.stream.TripStream) // WebSocket stream of trip updates
}

// setupDriverRoutes setups driver-facing routes
func setupDriverRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /v1/drivers/status", m.RequireRoles(routes.driver.Status, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/drivers/location", m.RequireRoles(routes.driver.Location, types.RoleDriver, types.RoleAdmin))
	mux.Handle("GET /v1/drivers/offers", m.RequireRoles(routes.driver.Offers, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /v1/drivers/offers/{offer_id}/respond", m.RequireRoles(routes.driver.Respond, types.RoleDriver, types.RoleAdmin))
	mux.Handle("GET /v1/drivers/dashboard", m.RequireRoles(routes.driver.Dashboard, types.RoleDriver, types.RoleAdmin))
	mux.HandleFunc("GET /v1/ws/drivers", routes.stream.DriverStream) // WebSocket stream of dispatch offers
}

// setupAdminRoutes setups routes for fleet administration
func setupAdminRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /v1/admin/drivers", m.RequireRoles(routes.admin.RegisterDriver, types.RoleAdmin))
	mux.Handle("POST /v1/admin/drivers/{driver_id}/verify", m.RequireRoles(routes.admin.VerifyDriver, types.RoleAdmin))
}

// setupSafetyRoutes setups trip sharing and incident reporting
func setupSafetyRoutes(mux *http.ServeMux, routes *handlers, m *middleware.Middleware) {
	mux.Handle("POST /v1/trips/{trip_id}/share", m.RequireRoles(routes.safety.Share, types.RoleRider, types.RoleAdmin))
	mux.Handle("POST /v1/trips/{trip_id}/incidents", m.RequireRoles(routes.safety.ReportIncident, types.RoleRider, types.RoleDriver, types.RoleAdmin))
	mux.Handle("DELETE /v1/share/{token}", m.RequireRoles(routes.safety.Revoke, types.RoleRider, types.RoleAdmin))
	mux.HandleFunc("GET /v1/share/{token}", routes.safety.Resolve) // Public, no auth required
}

// setupSwaggerRoutes configures the Swagger UI endpoint
func setupSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger/", httpSwagger.Handler())
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
