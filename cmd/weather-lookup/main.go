package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/app"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/credential"
	"github.com/i474232898/weather-lookup/internal/geolocation"
	"github.com/i474232898/weather-lookup/internal/saved"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/storage"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

var openStorage = storage.Open

func main() {
	if err := run(); err != nil {
		slog.Error("weather-lookup stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable storage shared by the credential and saved-location stores.
	backend, err := openStorage(ctx, cfg.StorageOptions(), log)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}()

	creds, err := credential.New(ctx, backend, log)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if err := creds.Seed(ctx, cfg.OpenWeatherAPIKey); err != nil {
		return fmt.Errorf("seed credential: %w", err)
	}

	savedStore, err := saved.New(ctx, backend, log)
	if err != nil {
		return fmt.Errorf("load saved locations: %w", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	client := providers.NewOpenWeatherProvider(providers.HTTPClientConfig{
		Client:    httpClient,
		RateLimit: cfg.ProviderRateLimit,
		Burst:     cfg.ProviderRateBurst,
	}, cfg.OpenWeatherBaseURL)

	service := weather.NewService(client, cfg.ForecastTimezone, log)
	resolver := weather.NewResolver(geolocation.New(cfg.GeolocationOptions()), cfg.GeoTimeout)
	ctrl := app.NewController(service, resolver, creds, savedStore, log)

	// Optional periodic refresh of the displayed location.
	sched := scheduler.New(ctrl, cfg.RefreshInterval, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	fiberApp := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	fiberApp.Use(logger.New())
	fiberApp.Use(recover.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    "weather-lookup",
			"credential": ctrl.HasCredential(),
		})
	})

	httpapi.RegisterRoutes(fiberApp, ctrl)

	go func() {
		log.Info("view adapter listening", "port", cfg.Port, "storage", cfg.StorageBackend)
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}
