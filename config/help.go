package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `ridehail - dispatch and trip lifecycle engine

Usage:
  ridehail [flags]

Flags:
  -config-path path   yaml config file, overrides built-in defaults
  -help               print this message and exit

Every config value can also be set through environment variables,
for example SERVER_PORT, RIDE_DISPATCH_RADIUS_KM or AUTH_JWT_SECRET.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the resolved configuration. Secrets are masked.
func PrintConfig(cfg *Config) {
	fmt.Printf("server:   port=%s shutdown_timeout=%s\n", cfg.Server.Port, cfg.Server.ShutdownTimeout)
	fmt.Printf("ride:     dispatch_radius_km=%.1f offer_timeout=%s max_candidates=%d\n",
		cfg.Ride.DispatchRadiusKm, cfg.Ride.OfferTimeout, cfg.Ride.MaxDriverCandidates)
	fmt.Printf("pin:      enabled=%t ttl=%s retries=%d\n",
		cfg.Ride.EnableTripStartPin, cfg.Ride.TripStartPinTTL, cfg.Ride.TripStartPinRetries)
	fmt.Printf("auth:     jwt_secret=%s\n", mask(cfg.Auth.JWTSecret))
	fmt.Printf("database: enabled=%t host=%s port=%s\n", cfg.Database.Enabled, cfg.Database.Host, cfg.Database.Port)
	fmt.Printf("rabbitmq: enabled=%t host=%s port=%s exchange=%s\n",
		cfg.RabbitMQ.Enabled, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.Exchange)
	fmt.Printf("logger:   level=%s\n", cfg.Logger.Level)
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
