package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FromText wraps trimmed, non-empty user input as a name query.
func FromText(input string) (LocationQuery, error) {
	name := strings.TrimSpace(input)
	if name == "" {
		return LocationQuery{}, ErrInvalidInput
	}
	return ByName(name), nil
}

// FromSaved prefers the coordinates captured at save time and falls back to
// the display name.
func FromSaved(name string, coords *Coordinates) LocationQuery {
	if coords != nil {
		return ByCoordinates(*coords)
	}
	return ByName(name)
}

// Resolver turns a geolocation reading into a query.
type Resolver struct {
	geo     Geolocator
	timeout time.Duration
}

// NewResolver creates a Resolver. A nil geo means the host has no capability;
// timeout <= 0 leaves the request bounded only by ctx.
func NewResolver(geo Geolocator, timeout time.Duration) *Resolver {
	return &Resolver{geo: geo, timeout: timeout}
}

// FromGeolocation blocks until the host reports a position, denies the
// request or times out. Every failure is ErrGeolocationUnavailable.
func (r *Resolver) FromGeolocation(ctx context.Context) (LocationQuery, error) {
	if r == nil || r.geo == nil {
		return LocationQuery{}, fmt.Errorf("%w: not supported on this host", ErrGeolocationUnavailable)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	c, err := r.geo.Locate(ctx)
	if err != nil {
		if errors.Is(err, ErrGeolocationUnavailable) {
			return LocationQuery{}, err
		}
		return LocationQuery{}, fmt.Errorf("%w: %v", ErrGeolocationUnavailable, err)
	}
	return ByCoordinates(c), nil
}
