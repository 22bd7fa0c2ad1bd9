// Package saved keeps the user's list of saved locations.
package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/storage"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// StorageKey is the durable key holding the JSON-encoded list.
const StorageKey = "savedLocations"

var (
	// ErrAlreadySaved is returned by Add when a location with the same
	// case-insensitive name is already in the list.
	ErrAlreadySaved = errors.New("saved: location already saved")

	// ErrNotFound is returned by lookups for an unknown id.
	ErrNotFound = errors.New("saved: location not found")
)

// Location is one saved entry. Identity is the case-insensitive Name.
type Location struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Country string               `json:"country,omitempty"`
	Coords  *weather.Coordinates `json:"coords,omitempty"`
}

// Query returns the most precise lookup available for this entry.
func (l Location) Query() weather.LocationQuery {
	return weather.FromSaved(l.Name, l.Coords)
}

// Store owns the persisted list. Every mutation rewrites the whole list.
type Store struct {
	mu        sync.RWMutex
	locations []Location
	backend   storage.Store
	logger    *slog.Logger
}

// New loads the persisted list from backend. A missing key is an empty list.
func New(ctx context.Context, backend storage.Store, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		backend: backend,
		logger:  logger,
	}

	raw, err := backend.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("saved: load: %w", err)
	}

	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.locations); err != nil {
			return nil, fmt.Errorf("saved: decode %s: %w", StorageKey, err)
		}
	}
	logger.Debug("saved locations loaded", "count", len(s.locations))
	return s, nil
}

// List returns a copy of the saved locations in insertion order.
func (s *Store) List() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Location, len(s.locations))
	copy(out, s.locations)
	return out
}

// Contains reports whether name is saved, ignoring case.
func (s *Store) Contains(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfName(name) >= 0
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return Location{}, ErrNotFound
}

// Add saves the location described by current unless its name is already
// saved, in which case ErrAlreadySaved is returned and nothing changes.
func (s *Store) Add(ctx context.Context, current weather.CurrentWeather) (Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfName(current.Name) >= 0 {
		return Location{}, ErrAlreadySaved
	}

	coords := current.Coordinates
	loc := Location{
		ID:      uuid.NewString(),
		Name:    current.Name,
		Country: current.Country,
		Coords:  &coords,
	}

	next := make([]Location, 0, len(s.locations)+1)
	next = append(next, s.locations...)
	next = append(next, loc)

	if err := s.persist(ctx, next); err != nil {
		return Location{}, err
	}
	s.locations = next

	s.logger.Info("location saved", "id", loc.ID, "name", loc.Name, "country", loc.Country)
	return loc, nil
}

// Remove deletes the entry with id and reports whether it existed. An
// unknown id is not an error and leaves storage untouched.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, l := range s.locations {
		if l.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	next := make([]Location, 0, len(s.locations)-1)
	next = append(next, s.locations[:idx]...)
	next = append(next, s.locations[idx+1:]...)

	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.locations = next

	s.logger.Info("location removed", "id", id)
	return true, nil
}

func (s *Store) indexOfName(name string) int {
	for i, l := range s.locations {
		if strings.EqualFold(l.Name, name) {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context, locations []Location) error {
	raw, err := json.Marshal(locations)
	if err != nil {
		return fmt.Errorf("saved: encode: %w", err)
	}
	if err := s.backend.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("saved: persist: %w", err)
	}
	return nil
}
