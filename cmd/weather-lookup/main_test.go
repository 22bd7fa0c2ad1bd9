package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/saved"
	"github.com/i474232898/weather-lookup/internal/storage"
)

type closeRecorder struct {
	storage.Store
	closed bool
}

func (r *closeRecorder) Close() error {
	r.closed = true
	return r.Store.Close()
}

func useStorage(t *testing.T, open func(context.Context, storage.Options, *slog.Logger) (storage.Store, error)) {
	t.Helper()
	prev := openStorage
	openStorage = open
	t.Cleanup(func() { openStorage = prev })

	t.Setenv("STORAGE_BACKEND", storage.BackendMemory)
	t.Setenv("FORECAST_TIMEZONE", "UTC")
	t.Setenv("REFRESH_INTERVAL", "")
}

func TestRunClosesStorageWhenStartupFails(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, saved.StorageKey, "{not json"))
	rec := &closeRecorder{Store: mem}

	useStorage(t, func(context.Context, storage.Options, *slog.Logger) (storage.Store, error) {
		return rec, nil
	})

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load saved locations")
	assert.True(t, rec.closed)
}

func TestRunReportsStorageOpenFailure(t *testing.T) {
	openErr := errors.New("connection refused")
	useStorage(t, func(context.Context, storage.Options, *slog.Logger) (storage.Store, error) {
		return nil, openErr
	})

	err := run()
	assert.ErrorIs(t, err, openErr)
}
