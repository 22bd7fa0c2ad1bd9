package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when a fetch is attempted without an API key.
	ErrMissingCredential = errors.New("weather: api credential is not set")

	// ErrInvalidInput is returned for an empty search text.
	ErrInvalidInput = errors.New("weather: location text is empty")

	// ErrGeolocationUnavailable covers a missing capability, a denial and a timeout.
	ErrGeolocationUnavailable = errors.New("weather: geolocation unavailable")

	// ErrWeatherFetch matches every *FetchError with errors.Is.
	ErrWeatherFetch = errors.New("weather: fetch failed")
)

// FetchError reports a failed provider call. StatusCode is the provider's HTTP
// status, or 0 when the call failed before a status was received or the body
// could not be decoded.
type FetchError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("weather: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("weather: %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("weather: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("weather: %s failed", e.Op)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrWeatherFetch }

// NotFound reports whether the provider rejected the location itself.
func (e *FetchError) NotFound() bool { return e.StatusCode == 404 }
