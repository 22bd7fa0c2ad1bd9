package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const currentBody = `{
	"coord": {"lon": 2.3488, "lat": 48.8534},
	"weather": [{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}],
	"main": {"temp": 14.2, "feels_like": 13.1, "temp_min": 12.0, "temp_max": 15.9, "pressure": 1018, "humidity": 72},
	"wind": {"speed": 4.63, "deg": 240},
	"dt": 1715000000,
	"sys": {"country": "FR"},
	"name": "Paris",
	"cod": 200
}`

const forecastBody = `{
	"cod": "200",
	"cnt": 3,
	"list": [
		{"dt": 1715007600, "main": {"temp": 15.1, "humidity": 70}, "weather": [{"main": "Rain", "description": "light rain"}]},
		{"dt": 1715018400, "main": {"temp": 13.4, "humidity": 81}, "weather": [{"main": "Drizzle"}]},
		{"dt": 1715029200, "main": {"temp": 11.0, "humidity": 85}, "weather": [{"main": "Smoke"}]}
	],
	"city": {"name": "Paris", "country": "FR"}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenWeatherProvider(HTTPClientConfig{Client: srv.Client()}, srv.URL)
}

func TestFetchCurrentByName(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Empty(t, r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(currentBody))
	})

	got, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "secret")
	require.NoError(t, err)

	assert.Equal(t, weather.CurrentWeather{
		Name:        "Paris",
		Country:     "FR",
		Condition:   weather.ConditionClouds,
		Description: "broken clouds",
		Temperature: 14.2,
		FeelsLike:   13.1,
		Humidity:    72,
		WindSpeed:   4.63,
		Coordinates: weather.Coordinates{Lat: 48.8534, Lon: 2.3488},
	}, got)
}

func TestFetchCurrentByCoordinates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.8534", r.URL.Query().Get("lat"))
		assert.Equal(t, "2.3488", r.URL.Query().Get("lon"))
		assert.Empty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(currentBody))
	})

	_, err := p.FetchCurrent(context.Background(),
		weather.ByCoordinates(weather.Coordinates{Lat: 48.8534, Lon: 2.3488}), "secret")
	require.NoError(t, err)
}

func TestFetchCurrentWithoutCountry(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"coord": {"lon": -30.1, "lat": 10.2},
			"weather": [{"main": "Clear", "description": "clear sky"}],
			"main": {"temp": 25, "feels_like": 26, "humidity": 60},
			"wind": {"speed": 7},
			"sys": {},
			"name": ""
		}`))
	})

	got, err := p.FetchCurrent(context.Background(), weather.ByCoordinates(weather.Coordinates{Lat: 10.2, Lon: -30.1}), "k")
	require.NoError(t, err)
	assert.Empty(t, got.Country)
	assert.Equal(t, weather.ConditionClear, got.Condition)
}

func TestFetchCurrentNonSuccessStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	_, err := p.FetchCurrent(context.Background(), weather.ByName("Unknown City"), "k")
	require.ErrorIs(t, err, weather.ErrWeatherFetch)

	var fe *weather.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.True(t, fe.NotFound())
}

func TestFetchCurrentServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
	var fe *weather.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
}

func TestFetchCurrentMissingFields(t *testing.T) {
	bodies := map[string]string{
		"no main":    `{"name":"X","coord":{"lat":1,"lon":2},"weather":[{"main":"Clear"}],"wind":{"speed":1}}`,
		"no weather": `{"name":"X","coord":{"lat":1,"lon":2},"weather":[],"main":{"temp":1,"feels_like":1,"humidity":1},"wind":{"speed":1}}`,
		"no coord":   `{"name":"X","weather":[{"main":"Clear"}],"main":{"temp":1,"feels_like":1,"humidity":1},"wind":{"speed":1}}`,
		"no temp":    `{"name":"X","coord":{"lat":1,"lon":2},"weather":[{"main":"Clear"}],"main":{"feels_like":1,"humidity":1},"wind":{"speed":1}}`,
		"not json":   `<html>oops</html>`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := p.FetchCurrent(context.Background(), weather.ByName("X"), "k")
			require.ErrorIs(t, err, weather.ErrWeatherFetch)

			var fe *weather.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Zero(t, fe.StatusCode)
		})
	}
}

func TestFetchForecastRaw(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(forecastBody))
	})

	got, err := p.FetchForecastRaw(context.Background(), weather.ByName("Paris"), "k")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, time.Unix(1715007600, 0).UTC(), got[0].Timestamp)
	assert.Equal(t, weather.ConditionRain, got[0].Condition)
	assert.Equal(t, 15.1, got[0].Temperature)
	assert.Equal(t, 70.0, got[0].Humidity)
	assert.Equal(t, weather.ConditionDrizzle, got[1].Condition)
	assert.Equal(t, weather.ConditionUnknown, got[2].Condition)
}

func TestFetchForecastRawEmptyList(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"list": []}`))
	})

	got, err := p.FetchForecastRaw(context.Background(), weather.ByName("Paris"), "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchForecastRawMissingList(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cod":"200"}`))
	})

	_, err := p.FetchForecastRaw(context.Background(), weather.ByName("Paris"), "k")
	assert.ErrorIs(t, err, weather.ErrWeatherFetch)
}

func TestCircuitOpensAfterRepeatedServerErrors(t *testing.T) {
	var hits atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 5; i++ {
		_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
		require.Error(t, err)
	}

	_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
	require.ErrorIs(t, err, weather.ErrWeatherFetch)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.EqualValues(t, 5, hits.Load())
}

func TestNotFoundDoesNotTripCircuit(t *testing.T) {
	var hits atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 8; i++ {
		_, err := p.FetchCurrent(context.Background(), weather.ByName("Nowhere"), "k")
		require.Error(t, err)
	}
	assert.EqualValues(t, 8, hits.Load())
}

func TestCancelledContext(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currentBody))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.FetchCurrent(ctx, weather.ByName("Paris"), "k")
	assert.ErrorIs(t, err, weather.ErrWeatherFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(currentBody))
	}))
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(HTTPClientConfig{Client: srv.Client(), RateLimit: 0.001, Burst: 1}, srv.URL)

	_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.FetchCurrent(ctx, weather.ByName("Paris"), "k")
	assert.ErrorIs(t, err, weather.ErrWeatherFetch)
}

func TestCallerCancellationDoesNotTripCircuit(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Slow" {
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(currentBody))
	})

	// Requests abandoned mid-flight, the way a superseded lookup is.
	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := p.FetchCurrent(ctx, weather.ByName("Slow"), "k")
		cancel()
		require.ErrorIs(t, err, weather.ErrWeatherFetch)
		assert.NotErrorIs(t, err, errCircuitOpen)
	}

	// And requests whose context ended before they were sent.
	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.FetchCurrent(ctx, weather.ByName("Paris"), "k")
		require.ErrorIs(t, err, context.Canceled)
	}

	got, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
	require.NoError(t, err)
	assert.Equal(t, "Paris", got.Name)
}

func TestServerErrorsStillTripAfterCancellations(t *testing.T) {
	var fail atomic.Bool
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		<-r.Context().Done()
	})

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := p.FetchCurrent(ctx, weather.ByName("Paris"), "k")
		cancel()
		require.Error(t, err)
	}

	fail.Store(true)
	for i := 0; i < 5; i++ {
		_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, errCircuitOpen)
	}

	_, err := p.FetchCurrent(context.Background(), weather.ByName("Paris"), "k")
	assert.ErrorIs(t, err, errCircuitOpen)
}
