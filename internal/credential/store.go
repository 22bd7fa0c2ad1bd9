// Package credential holds the weather provider API key.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/i474232898/weather-lookup/internal/storage"
)

// StorageKey is the durable key the credential is kept under.
const StorageKey = "openWeatherApiKey"

// Store is the process-wide holder of the provider credential.
type Store struct {
	mu      sync.RWMutex
	value   string
	backend storage.Store
	logger  *slog.Logger
}

// New loads any persisted credential from backend.
func New(ctx context.Context, backend storage.Store, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	v, err := backend.Get(ctx, StorageKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("credential: load: %w", err)
	}

	return &Store{
		value:   strings.TrimSpace(v),
		backend: backend,
		logger:  logger,
	}, nil
}

// Get returns the active credential, if any.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.value != ""
}

// Set trims value and, if anything is left, persists it and makes it active.
// An empty value is ignored.
func (s *Store) Set(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, StorageKey, value); err != nil {
		return fmt.Errorf("credential: persist: %w", err)
	}
	s.value = value
	s.logger.Info("api credential updated")
	return nil
}

// Seed applies value only when no credential is held yet.
func (s *Store) Seed(ctx context.Context, value string) error {
	if _, ok := s.Get(); ok {
		return nil
	}
	return s.Set(ctx, value)
}
