package weather

import "context"

// Client issues the two provider calls a lookup needs.
type Client interface {
	FetchCurrent(ctx context.Context, q LocationQuery, credential string) (CurrentWeather, error)
	FetchForecastRaw(ctx context.Context, q LocationQuery, credential string) ([]ForecastSample, error)
}

// Geolocator is the host's one-shot "current position" capability.
type Geolocator interface {
	Locate(ctx context.Context) (Coordinates, error)
}
