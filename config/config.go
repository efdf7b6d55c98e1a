package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name     string `envconfig:"APP_NAME"`
		Timezone string `envconfig:"TIMEZONE"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable           bool `envconfig:"ENABLE"`
			MaxRequests      int  `envconfig:"MAX_REQUESTS"       default:"120"`
			GuestMaxRequests int  `envconfig:"GUEST_MAX_REQUESTS" default:"20"`
			WindowSeconds    int  `envconfig:"WINDOW_SECONDS"     default:"60"`
		} `envconfig:"RATE_LIMITER"`
		APIKey string `envconfig:"API_KEY"`
	} `envconfig:"APP"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL"`
	} `envconfig:"CACHE"`

	JWT struct {
		AccessSecret string `envconfig:"ACCESS_SECRET"`
		Issuer       string `envconfig:"ISSUER"`
	} `envconfig:"JWT"`

	DB struct {
		Postgres struct {
			MaxRetry       int    `envconfig:"MAX_RETRY"`
			RetryWaitTime  int    `envconfig:"RETRY_WAIT_TIME"`
			MigrationTable string `envconfig:"MIGRATION_TABLE"`
			AutoMigrate    bool   `envconfig:"AUTO_MIGRATE"`
			Prefix         string `envconfig:"PREFIX"`
			Read           struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"READ"`
			Write struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	Kafka struct {
		Enable     bool     `envconfig:"ENABLE"`
		Brokers    []string `envconfig:"BROKERS"`
		EventTopic string   `envconfig:"EVENT_TOPIC" default:"booking.events"`
		SASL       struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
	} `envconfig:"KAFKA"`

	Booking struct {
		CheckInHour       int `envconfig:"CHECK_IN_HOUR"       default:"12"`
		ChangeCutoffHours int `envconfig:"CHANGE_CUTOFF_HOURS" default:"24"`
		MinimumGuestAge   int `envconfig:"MINIMUM_GUEST_AGE"   default:"18"`
	} `envconfig:"BOOKING"`

	Notification struct {
		QueueSize int `envconfig:"QUEUE_SIZE" default:"256"`
		Workers   int `envconfig:"WORKERS"    default:"2"`
	} `envconfig:"NOTIFICATION"`

	Jobs struct {
		Enable    bool `envconfig:"ENABLE"`
		BatchSize int  `envconfig:"BATCH_SIZE" default:"200"`
		Expire    struct {
			Schedule string `envconfig:"SCHEDULE" default:"0 0 * * *"`
		} `envconfig:"EXPIRE"`
		Reminder struct {
			Schedule         string `envconfig:"SCHEDULE"           default:"0 */4 * * *"`
			WindowStartHours int    `envconfig:"WINDOW_START_HOURS" default:"24"`
			WindowEndHours   int    `envconfig:"WINDOW_END_HOURS"   default:"28"`
		} `envconfig:"REMINDER"`
		Retry struct {
			MaxTries               uint `envconfig:"MAX_TRIES"                default:"10"`
			InitialIntervalSeconds int  `envconfig:"INITIAL_INTERVAL_SECONDS" default:"30"`
			MaxIntervalSeconds     int  `envconfig:"MAX_INTERVAL_SECONDS"     default:"600"`
		} `envconfig:"RETRY"`
	} `envconfig:"JOBS"`

	Upload struct {
		MaxImageBytes int `envconfig:"MAX_IMAGE_BYTES" default:"2097152"`
	} `envconfig:"UPLOAD"`

	Archive struct {
		Enable bool   `envconfig:"ENABLE"`
		Prefix string `envconfig:"PREFIX" default:"booking-events"`
	} `envconfig:"ARCHIVE"`

	External struct {
		Otel struct {
			Endpoint string `envconfig:"ENDPOINT"`
		} `envconfig:"OTEL"`
		S3 struct {
			APIEndpoint     string `envconfig:"API_ENDPOINT"`
			Region          string `envconfig:"REGION"            default:"auto"`
			AccessKeyID     string `envconfig:"ACCESS_KEY_ID"`
			SecretAccessKey string `envconfig:"SECRET_ACCESS_KEY"`
			BucketName      string `envconfig:"BUCKET_NAME"`
			PublicDomain    string `envconfig:"PUBLIC_DOMAIN"`
		} `envconfig:"S3"`
	}
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

func Init() error {
	var err error

	once.Do(func() {
		err = godotenv.Load(".env")
		if err != nil {
			log.Warn().Err(err).Msg("Could not load .env file, continuing with existing environment variables")
		} else {
			log.Info().Msg("Successfully loaded variables from .env file into environment")
		}

		err = envconfig.Process("", &conf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process environment variables")
		}

		initialized = true

		log.Info().Msg("Service configuration initialized successfully")
	})

	if err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}

	return nil
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
