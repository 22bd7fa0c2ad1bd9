package weather

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service runs the current-conditions and forecast calls for one lookup and
// normalizes the result.
type Service struct {
	client Client
	tz     *time.Location
	logger *slog.Logger
}

// NewService creates a new Service. tz defines the calendar day used when
// reducing the forecast; nil means time.Local.
func NewService(client Client, tz *time.Location, logger *slog.Logger) *Service {
	if tz == nil {
		tz = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		tz:     tz,
		logger: logger,
	}
}

// Fetch issues both provider calls concurrently and succeeds only if both do.
// The first failure cancels the other call; no partial report is returned.
func (s *Service) Fetch(ctx context.Context, q LocationQuery, credential string) (Report, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Report{}, ErrMissingCredential
	}

	var (
		current CurrentWeather
		samples []ForecastSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.client.FetchCurrent(gctx, q, credential)
		return err
	})
	g.Go(func() error {
		var err error
		samples, err = s.client.FetchForecastRaw(gctx, q, credential)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Debug("weather fetch failed", "query", q.String(), "error", err)
		return Report{}, err
	}

	forecast := ReduceForecast(samples, s.tz)
	s.logger.Debug("weather fetch completed",
		"query", q.String(),
		"location", current.Name,
		"samples", len(samples),
		"days", len(forecast),
	)

	return Report{
		Query:    q,
		Current:  current,
		Forecast: forecast,
	}, nil
}
