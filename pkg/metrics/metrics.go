package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	// Dispatch metrics
	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_created_total",
		Help: "Dispatch offers created",
	})
	OffersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_accepted_total",
		Help: "Dispatch offers accepted by drivers",
	})
	OffersDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_declined_total",
		Help: "Dispatch offers declined by drivers",
	})
	OffersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_offers_expired_total",
		Help: "Dispatch offers that timed out",
	})
	NoDriverFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_no_driver_found_total",
		Help: "Trips for which candidate search was exhausted",
	})

	// Trip metrics
	TripsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trips_created_total",
		Help: "Trips created",
	})
	TripsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trips_completed_total",
		Help: "Trips completed",
	})
	TripsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trips_cancelled_total",
		Help: "Trips cancelled, by cancelling role",
	}, []string{"by"})
	PinSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trip_pin_success_total",
		Help: "Successful trip start PIN verifications",
	})
	PinFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trip_pin_failed_total",
		Help: "Failed trip start PIN verifications",
	})

	// Driver presence metrics
	LocationRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driver_location_rejected_total",
		Help: "Driver location updates rejected by the plausibility guard",
	})
	StaleDriversOffline = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driver_presence_stale_offline_total",
		Help: "Drivers flipped offline after going stale",
	})
	DriversOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driver_presence_online",
		Help: "Drivers currently marked online",
	})

	// Safety metrics
	ShareTokensCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_share_tokens_created_total",
		Help: "Trip share tokens issued",
	})
	ShareTokensRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safety_share_tokens_revoked_total",
		Help: "Trip share tokens revoked",
	})
	Incidents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safety_incidents_total",
		Help: "Safety incidents reported, by category",
	}, []string{"category"})
)

// RecordHTTPMetrics records one served request.
func RecordHTTPMetrics(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}
