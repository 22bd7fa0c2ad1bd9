package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements weather.Client for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Client = (*OpenWeatherProvider)(nil)

// NewOpenWeatherProvider creates a client against baseURL (DefaultOpenWeatherBaseURL
// when empty). The credential is supplied per call, not held here.
func NewOpenWeatherProvider(cfg HTTPClientConfig, baseURL string) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  cfg.Client,
		limiter: newLimiter(cfg),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Main        *string `json:"main" validate:"required"`
	Description string  `json:"description"`
}

type owmCurrent struct {
	Name  *string `json:"name" validate:"required"`
	Coord *struct {
		Lat *float64 `json:"lat" validate:"required"`
		Lon *float64 `json:"lon" validate:"required"`
	} `json:"coord" validate:"required"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []owmCondition `json:"weather" validate:"required,min=1,dive"`
	Main    *struct {
		Temp      *float64 `json:"temp" validate:"required"`
		FeelsLike *float64 `json:"feels_like" validate:"required"`
		Humidity  *float64 `json:"humidity" validate:"required"`
	} `json:"main" validate:"required"`
	Wind *struct {
		Speed *float64 `json:"speed" validate:"required"`
	} `json:"wind" validate:"required"`
}

type owmForecast struct {
	List []struct {
		Dt      *int64         `json:"dt" validate:"required"`
		Weather []owmCondition `json:"weather" validate:"required,min=1,dive"`
		Main    *struct {
			Temp     *float64 `json:"temp" validate:"required"`
			Humidity *float64 `json:"humidity" validate:"required"`
		} `json:"main" validate:"required"`
	} `json:"list" validate:"required,dive"`
}

// FetchCurrent calls the current-conditions endpoint.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, q weather.LocationQuery, credential string) (weather.CurrentWeather, error) {
	req, err := p.newRequest("weather", q, credential)
	if err != nil {
		return weather.CurrentWeather{}, &weather.FetchError{Op: "current", Err: err}
	}

	var payload owmCurrent
	if err := getJSON(ctx, "current", p.client, p.limiter, p.circuit, req, &payload); err != nil {
		return weather.CurrentWeather{}, err
	}

	return weather.CurrentWeather{
		Name:        *payload.Name,
		Country:     payload.Sys.Country,
		Condition:   weather.ParseCondition(*payload.Weather[0].Main),
		Description: payload.Weather[0].Description,
		Temperature: *payload.Main.Temp,
		FeelsLike:   *payload.Main.FeelsLike,
		Humidity:    *payload.Main.Humidity,
		WindSpeed:   *payload.Wind.Speed,
		Coordinates: weather.Coordinates{
			Lat: *payload.Coord.Lat,
			Lon: *payload.Coord.Lon,
		},
	}, nil
}

// FetchForecastRaw calls the 5 day / 3 hour forecast endpoint and returns its
// samples in the order the provider lists them (chronological).
func (p *OpenWeatherProvider) FetchForecastRaw(ctx context.Context, q weather.LocationQuery, credential string) ([]weather.ForecastSample, error) {
	req, err := p.newRequest("forecast", q, credential)
	if err != nil {
		return nil, &weather.FetchError{Op: "forecast", Err: err}
	}

	var payload owmForecast
	if err := getJSON(ctx, "forecast", p.client, p.limiter, p.circuit, req, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		samples = append(samples, weather.ForecastSample{
			Timestamp:   time.Unix(*item.Dt, 0).UTC(),
			Condition:   weather.ParseCondition(*item.Weather[0].Main),
			Temperature: *item.Main.Temp,
			Humidity:    *item.Main.Humidity,
		})
	}
	return samples, nil
}

func (p *OpenWeatherProvider) newRequest(endpoint string, q weather.LocationQuery, credential string) (*http.Request, error) {
	values := url.Values{}
	values.Set("appid", credential)
	values.Set("units", "metric")

	if c, ok := q.Coordinates(); ok {
		values.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	} else if name, _ := q.Name(); name != "" {
		values.Set("q", name)
	} else {
		return nil, fmt.Errorf("empty location query")
	}

	u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
	return http.NewRequest(http.MethodGet, u, nil)
}
