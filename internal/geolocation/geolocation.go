// Package geolocation provides the host position capabilities the resolver
// can use when the user asks for weather at their current location.
package geolocation

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// Static reports a fixed, configured position.
type Static struct {
	Coords weather.Coordinates
}

func (s Static) Locate(ctx context.Context) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrGeolocationUnavailable, err)
	}
	return s.Coords, nil
}

// Unsupported is used when the host has no position source.
type Unsupported struct{}

func (Unsupported) Locate(context.Context) (weather.Coordinates, error) {
	return weather.Coordinates{}, fmt.Errorf("%w: not supported on this host", weather.ErrGeolocationUnavailable)
}

// AddressConfig describes the device's postal address.
type AddressConfig struct {
	Street  string
	City    string
	State   string
	Country string
	APIKey  string
}

// IsZero reports whether no address field is set.
func (c AddressConfig) IsZero() bool {
	return c.Street == "" && c.City == "" && c.State == "" && c.Country == ""
}

// geocodeFunc matches geocoder.Geocoding.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// Address resolves the configured address to coordinates through the Google
// geocoding API.
type Address struct {
	cfg     AddressConfig
	geocode geocodeFunc
}

// the geocoder package keeps its key in a package variable.
var apiKeyMu sync.Mutex

// NewAddress creates an Address geolocator.
func NewAddress(cfg AddressConfig) *Address {
	return &Address{
		cfg: cfg,
		geocode: func(a geocoder.Address) (geocoder.Location, error) {
			apiKeyMu.Lock()
			defer apiKeyMu.Unlock()
			geocoder.ApiKey = cfg.APIKey
			return geocoder.Geocoding(a)
		},
	}
}

// Locate geocodes the address. The geocoder call cannot be cancelled, so a
// done ctx abandons it and returns immediately.
func (a *Address) Locate(ctx context.Context) (weather.Coordinates, error) {
	if a.cfg.APIKey == "" {
		return weather.Coordinates{}, fmt.Errorf("%w: geocoder api key is not configured", weather.ErrGeolocationUnavailable)
	}
	if a.cfg.IsZero() {
		return weather.Coordinates{}, fmt.Errorf("%w: no device address configured", weather.ErrGeolocationUnavailable)
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)

	go func() {
		loc, err := a.geocode(geocoder.Address{
			Street:  a.cfg.Street,
			City:    a.cfg.City,
			State:   a.cfg.State,
			Country: a.cfg.Country,
		})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, fmt.Errorf("%w: %v", weather.ErrGeolocationUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("%w: geocode address: %v", weather.ErrGeolocationUnavailable, r.err)
		}
		return weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}, nil
	}
}

// Options selects a geolocator. Coords wins over Address.
type Options struct {
	Coords  *weather.Coordinates
	Address AddressConfig
}

// New picks the geolocator described by opts.
func New(opts Options) weather.Geolocator {
	switch {
	case opts.Coords != nil:
		return Static{Coords: *opts.Coords}
	case !opts.Address.IsZero():
		return NewAddress(opts.Address)
	default:
		return Unsupported{}
	}
}
