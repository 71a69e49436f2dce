package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/safarigo/ridehail/pkg/configparser"
)

// Flags
var (
	configPathFlag = flag.String("config-path", "", "path to a yaml config file")
	helpFlag       = flag.Bool("help", false, "print usage and exit")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Server   ServerConfig
		Ride     RideConfig
		Auth     AuthConfig
		Database DatabaseConfig
		RabbitMQ RabbitMQConfig
		Support  SupportConfig
		Logger   LoggerConfig
	}

	ServerConfig struct {
		Port            string        `env:"SERVER_PORT" default:"3000"`
		ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	}

	RideConfig struct {
		DispatchRadiusKm    float64       `env:"RIDE_DISPATCH_RADIUS_KM" default:"10"`
		OfferTimeout        time.Duration `env:"RIDE_OFFER_TIMEOUT" default:"15s"`
		MaxDriverCandidates int           `env:"RIDE_MAX_DRIVER_CANDIDATES" default:"10"`

		EnableTripStartPin  bool          `env:"RIDE_ENABLE_TRIP_START_PIN" default:"true"`
		TripStartPinTTL     time.Duration `env:"RIDE_TRIP_START_PIN_TTL" default:"5m"`
		TripStartPinRetries int           `env:"RIDE_TRIP_START_PIN_RETRIES" default:"5"`

		ShareTokenTTL time.Duration `env:"RIDE_SHARE_TOKEN_TTL" default:"6h"`

		CancelFeeBeforeAssign float64 `env:"RIDE_CANCEL_FEE_BEFORE_ASSIGN" default:"0"`
		CancelFeeAfterAssign  float64 `env:"RIDE_CANCEL_FEE_AFTER_ASSIGN" default:"2.5"`

		RatingRollingWindow int `env:"RIDE_RATING_ROLLING_WINDOW" default:"100"`

		DriverStaleAfter      time.Duration `env:"RIDE_DRIVER_STALE_AFTER" default:"90s"`
		LocationMaxSpeedKmh   float64       `env:"RIDE_LOCATION_MAX_SPEED_KMH" default:"180"`
		LocationMaxJumpMeters float64       `env:"RIDE_LOCATION_MAX_JUMP_METERS" default:"500"`
		LocationMaxJumpWindow time.Duration `env:"RIDE_LOCATION_MAX_JUMP_WINDOW" default:"20s"`
	}

	AuthConfig struct {
		JWTSecret string `env:"AUTH_JWT_SECRET" default:"supersecretkey"`
	}

	// DatabaseConfig configures the optional trip-audit archiver. The
	// in-memory store stays authoritative either way.
	DatabaseConfig struct {
		Enabled  bool   `env:"DATABASE_ENABLED" default:"false"`
		Host     string `env:"DATABASE_HOST" default:"localhost"`
		Port     string `env:"DATABASE_PORT" default:"5432"`
		User     string `env:"DATABASE_USER" default:"ridehail_user"`
		Password string `env:"DATABASE_PASSWORD" default:"ridehail_pass"`
		Database string `env:"DATABASE_DATABASE" default:"ridehail_db"`

		MaxConns        int32         `env:"DATABASE_MAXCONNS" default:"20"`
		MinConns        int32         `env:"DATABASE_MINCONNS" default:"2"`
		MaxConnLifetime time.Duration `env:"DATABASE_MAXCONNLIFETIME" default:"30m"`
		MaxConnIdleTime time.Duration `env:"DATABASE_MAXCONNIDLETIME" default:"5m"`
	}

	// RabbitMQConfig configures the optional external event bridge.
	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Exchange string `env:"RABBITMQ_EXCHANGE" default:"ridehail.events"`
	}

	SupportConfig struct {
		Email          string `env:"SUPPORT_EMAIL" default:"support@safarigo.app"`
		Phone          string `env:"SUPPORT_PHONE" default:"+1-800-000-0000"`
		EmergencyPhone string `env:"SUPPORT_EMERGENCY_PHONE" default:"+911"`
	}

	LoggerConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}
)

func (c DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func NewConfig() (*Config, error) {
	if !flag.Parsed() {
		flag.Parse()
	}
	if *helpFlag {
		PrintHelp()
		os.Exit(0)
	}

	cfg := &Config{}
	if err := configparser.LoadAndParse(*configPathFlag, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}
	return cfg, nil
}
