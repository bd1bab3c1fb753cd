package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"delivery-ops-service/internal/domain"
)

const (
	ProviderORS     = "ors"
	ProviderGoogle  = "google"
	ProviderOffline = "offline"
)

type Config struct {
	Env      string
	Port     string
	Location *time.Location

	DatabaseURL string
	CacheDBPath string
	RedisURL    string
	NATSURL     string

	MapsProvider     string
	ORSAPIKey        string
	GoogleMapsAPIKey string
	DefaultStart     domain.Coordinates

	WooBaseURL        string
	WooConsumerKey    string
	WooConsumerSecret string
	FixturePath       string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	PostmarkToken string
	ReceiptSender string

	GeocodeTimeout     time.Duration
	MatrixTimeout      time.Duration
	OrderSourceTimeout time.Duration
	NotifyTimeout      time.Duration
}

// Load reads .env (if present) and the process environment.
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found (using environment variables)")
	}

	cfg := &Config{
		Env:               Get("ENV", "local"),
		Port:              Get("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		CacheDBPath:       os.Getenv("CACHE_DB_PATH"),
		RedisURL:          os.Getenv("REDIS_URL"),
		NATSURL:           os.Getenv("NATS_URL"),
		MapsProvider:      strings.ToLower(Get("MAPS_PROVIDER", ProviderOffline)),
		ORSAPIKey:         os.Getenv("ORS_API_KEY"),
		GoogleMapsAPIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
		WooBaseURL:        os.Getenv("WOO_BASE_URL"),
		WooConsumerKey:    os.Getenv("WOO_CONSUMER_KEY"),
		WooConsumerSecret: os.Getenv("WOO_CONSUMER_SECRET"),
		FixturePath:       Get("FIXTURE_PATH", "data/fixtures/orders.json"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:        os.Getenv("TWILIO_FROM"),
		PostmarkToken:     os.Getenv("POSTMARK_SERVER_TOKEN"),
		ReceiptSender:     Get("RECEIPT_SENDER", "orders@example.com"),
	}

	var errs []error

	loc, err := time.LoadLocation(Get("TIMEZONE", "Europe/Prague"))
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	switch cfg.MapsProvider {
	case ProviderORS:
		if strings.TrimSpace(cfg.ORSAPIKey) == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required for MAPS_PROVIDER=ors"))
		}
	case ProviderGoogle:
		if strings.TrimSpace(cfg.GoogleMapsAPIKey) == "" {
			errs = append(errs, errors.New("GOOGLE_MAPS_API_KEY is required for MAPS_PROVIDER=google"))
		}
	case ProviderOffline:
	default:
		errs = append(errs, fmt.Errorf("MAPS_PROVIDER: unknown provider %q", cfg.MapsProvider))
	}

	cfg.DefaultStart = domain.Coordinates{
		Lat: getFloat("DEFAULT_START_LAT", 50.0755, &errs),
		Lng: getFloat("DEFAULT_START_LNG", 14.4378, &errs),
	}
	if !cfg.DefaultStart.Valid() {
		errs = append(errs, fmt.Errorf("DEFAULT_START_LAT/LNG out of range: %v", cfg.DefaultStart))
	}

	cfg.GeocodeTimeout = getDuration("GEOCODE_TIMEOUT", 5*time.Second, &errs)
	cfg.MatrixTimeout = getDuration("MATRIX_TIMEOUT", 20*time.Second, &errs)
	cfg.OrderSourceTimeout = getDuration("ORDER_SOURCE_TIMEOUT", 10*time.Second, &errs)
	cfg.NotifyTimeout = getDuration("NOTIFY_TIMEOUT", 10*time.Second, &errs)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}
