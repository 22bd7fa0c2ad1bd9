package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-lookup/internal/geolocation"
	"github.com/i474232898/weather-lookup/internal/storage"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

type AppConfig struct {
	// OpenWeatherAPIKey seeds the credential store when nothing is persisted.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"required,url"`

	// HTTPTimeout of 0 leaves outbound calls bounded by the transport only.
	HTTPTimeout       time.Duration `validate:"gte=0"`
	ProviderRateLimit float64       `validate:"gte=0"`
	ProviderRateBurst int           `validate:"gte=1"`

	StorageBackend string `validate:"oneof=file redis postgres memory"`
	StoragePath    string `validate:"required_if=StorageBackend file"`
	RedisAddr      string `validate:"required_if=StorageBackend redis"`
	RedisPassword  string
	RedisDB        int `validate:"gte=0"`
	RedisPrefix    string
	PostgresDSN    string `validate:"required_if=StorageBackend postgres"`

	// ForecastTimezone defines the calendar day for the forecast reducer.
	ForecastTimezone *time.Location `validate:"required"`

	// RefreshInterval of 0 disables periodic refresh.
	RefreshInterval time.Duration `validate:"gte=0"`

	GeoCoords  *weather.Coordinates
	GeoAddress geolocation.AddressConfig
	GeoTimeout time.Duration `validate:"gte=0"`

	Port     string `validate:"required,numeric"`
	LogLevel slog.Level
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY"))
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", providers.DefaultOpenWeatherBaseURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ProviderRateLimit, err = getenvFloat("PROVIDER_RATE_LIMIT", 1); err != nil {
		return nil, err
	}
	cfg.ProviderRateBurst = getenvInt("PROVIDER_RATE_BURST", 4)

	cfg.StorageBackend = strings.ToLower(getenvDefault("STORAGE_BACKEND", storage.BackendFile))
	cfg.StoragePath = getenvDefault("STORAGE_PATH", "weather-lookup.json")
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)
	cfg.RedisPrefix = getenvDefault("REDIS_PREFIX", "weather-lookup:")
	cfg.PostgresDSN = os.Getenv("DB_DSN")

	tzName := getenvDefault("FORECAST_TIMEZONE", "Local")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_TIMEZONE: %w", err)
	}
	cfg.ForecastTimezone = tz

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}

	if cfg.GeoCoords, err = loadGeoCoords(); err != nil {
		return nil, err
	}
	cfg.GeoAddress = geolocation.AddressConfig{
		Street:  os.Getenv("GEO_ADDRESS_STREET"),
		City:    os.Getenv("GEO_ADDRESS_CITY"),
		State:   os.Getenv("GEO_ADDRESS_STATE"),
		Country: os.Getenv("GEO_ADDRESS_COUNTRY"),
		APIKey:  os.Getenv("GEOCODER_API_KEY"),
	}
	if cfg.GeoTimeout, err = getenvDuration("GEO_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// StorageOptions maps the storage settings onto storage.Options.
func (c *AppConfig) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.StorageBackend,
		FilePath:      c.StoragePath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		PostgresDSN:   c.PostgresDSN,
	}
}

// GeolocationOptions maps the device position settings onto geolocation.Options.
func (c *AppConfig) GeolocationOptions() geolocation.Options {
	return geolocation.Options{
		Coords:  c.GeoCoords,
		Address: c.GeoAddress,
	}
}

func loadGeoCoords() (*weather.Coordinates, error) {
	latStr := os.Getenv("GEO_LAT")
	lonStr := os.Getenv("GEO_LON")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, errors.New("GEO_LAT and GEO_LON must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid GEO_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid GEO_LON %q", lonStr)
	}
	return &weather.Coordinates{Lat: lat, Lon: lon}, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
