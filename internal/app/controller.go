// Package app holds the application state controller: it turns user actions
// into weather lookups and saved-location changes and exposes the resulting
// view state.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/i474232898/weather-lookup/internal/saved"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Status is the controller's state machine position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

// User-facing messages.
const (
	MsgMissingCredential   = "Please enter your OpenWeatherMap API key first"
	MsgInvalidInput        = "Please enter a location to search"
	MsgGeolocation         = "Unable to retrieve your location. Please enable location services."
	MsgFetchByName         = "Failed to fetch weather data. Please check the location and try again."
	MsgFetchByCoordinates  = "Failed to fetch weather data. Please check your API key and try again."
	MsgSavedLocationAbsent = "That saved location no longer exists."
)

// ErrNothingToSave is returned by SaveCurrent when no location is loaded.
var ErrNothingToSave = errors.New("app: no loaded location to save")

// State is a snapshot of what the view should render.
type State struct {
	Status   Status                  `json:"status"`
	Current  *weather.CurrentWeather `json:"current,omitempty"`
	Forecast weather.Forecast        `json:"forecast"`
	Message  string                  `json:"message,omitempty"`
	// Seq is the sequence number of the action that produced this state.
	Seq uint64 `json:"seq"`
}

// Fetcher is the combined current+forecast lookup.
type Fetcher interface {
	Fetch(ctx context.Context, q weather.LocationQuery, credential string) (weather.Report, error)
}

// Credentials is the credential holder the controller reads and updates.
type Credentials interface {
	Get() (string, bool)
	Set(ctx context.Context, value string) error
}

// Controller orchestrates lookups. Each fetch action gets a monotonic
// sequence number; starting one cancels the previous in-flight action, and a
// result is applied only if its number is still the latest.
type Controller struct {
	mu        sync.Mutex
	state     State
	seq       uint64
	cancel    context.CancelFunc
	lastQuery weather.LocationQuery

	fetcher  Fetcher
	resolver *weather.Resolver
	creds    Credentials
	saved    *saved.Store
	logger   *slog.Logger
}

// NewController creates a Controller in the Idle state.
func NewController(fetcher Fetcher, resolver *weather.Resolver, creds Credentials, store *saved.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:    State{Status: StatusIdle},
		fetcher:  fetcher,
		resolver: resolver,
		creds:    creds,
		saved:    store,
		logger:   logger,
	}
}

// State returns the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Search looks up the weather for free-text input.
func (c *Controller) Search(ctx context.Context, text string) State {
	seq, ctx, done := c.begin(ctx)
	defer done()

	q, err := weather.FromText(text)
	if err != nil {
		return c.fail(seq, MsgInvalidInput, err)
	}
	return c.fetch(ctx, seq, q)
}

// UseCurrentLocation asks the host for its position and looks it up.
func (c *Controller) UseCurrentLocation(ctx context.Context) State {
	seq, ctx, done := c.begin(ctx)
	defer done()

	if _, ok := c.creds.Get(); !ok {
		return c.fail(seq, MsgMissingCredential, weather.ErrMissingCredential)
	}

	q, err := c.resolver.FromGeolocation(ctx)
	if err != nil {
		return c.fail(seq, MsgGeolocation, err)
	}
	return c.fetch(ctx, seq, q)
}

// SelectSaved looks up a saved location by id.
func (c *Controller) SelectSaved(ctx context.Context, id string) State {
	seq, ctx, done := c.begin(ctx)
	defer done()

	loc, err := c.saved.Get(id)
	if err != nil {
		return c.fail(seq, MsgSavedLocationAbsent, err)
	}
	return c.fetch(ctx, seq, loc.Query())
}

// Refresh repeats the lookup behind the displayed Loaded state. In any other
// state it returns the state unchanged.
func (c *Controller) Refresh(ctx context.Context) State {
	c.mu.Lock()
	if c.state.Status != StatusLoaded || c.lastQuery.IsZero() {
		st := c.state
		c.mu.Unlock()
		return st
	}
	q := c.lastQuery
	c.mu.Unlock()

	seq, ctx, done := c.begin(ctx)
	defer done()
	return c.fetch(ctx, seq, q)
}

// RefreshInBackground re-fetches the displayed Loaded location without
// leaving Loaded: the old data stays visible while the lookup runs and after
// it fails. A user action started in the meantime wins and the background
// result is dropped.
func (c *Controller) RefreshInBackground(ctx context.Context) State {
	c.mu.Lock()
	if c.state.Status != StatusLoaded || c.lastQuery.IsZero() {
		st := c.state
		c.mu.Unlock()
		return st
	}
	q := c.lastQuery
	seq := c.seq
	c.mu.Unlock()

	credential, ok := c.creds.Get()
	if !ok {
		return c.State()
	}

	report, err := c.fetcher.Fetch(ctx, q, credential)
	if err != nil {
		c.logger.Warn("background refresh failed", "seq", seq, "query", q.String(), "error", err)
		return c.State()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq || c.state.Status != StatusLoaded {
		c.logger.Debug("discarding background refresh", "seq", seq, "latest", c.seq)
		return c.state
	}
	current := report.Current
	c.state.Current = &current
	c.state.Forecast = report.Forecast
	if c.state.Forecast == nil {
		c.state.Forecast = weather.Forecast{}
	}
	return c.state
}

// SaveCurrent adds the loaded location to the saved list. The view state is
// not changed.
func (c *Controller) SaveCurrent(ctx context.Context) (saved.Location, error) {
	c.mu.Lock()
	current := c.state.Current
	status := c.state.Status
	c.mu.Unlock()

	if status != StatusLoaded || current == nil {
		return saved.Location{}, ErrNothingToSave
	}
	return c.saved.Add(ctx, *current)
}

// RemoveSaved deletes a saved location; the view state is not changed.
func (c *Controller) RemoveSaved(ctx context.Context, id string) (bool, error) {
	return c.saved.Remove(ctx, id)
}

// SavedLocations returns the saved list for rendering.
func (c *Controller) SavedLocations() []saved.Location {
	return c.saved.List()
}

// IsSaved reports whether name is in the saved list.
func (c *Controller) IsSaved(name string) bool {
	return c.saved.Contains(name)
}

// SetCredential stores a new provider key.
func (c *Controller) SetCredential(ctx context.Context, value string) error {
	return c.creds.Set(ctx, value)
}

// HasCredential reports whether a provider key is set.
func (c *Controller) HasCredential() bool {
	_, ok := c.creds.Get()
	return ok
}

// begin supersedes any in-flight action and moves to Loading.
func (c *Controller) begin(parent context.Context) (uint64, context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.state = State{Status: StatusLoading, Seq: seq}
	c.mu.Unlock()

	c.logger.Debug("action started", "seq", seq)

	return seq, ctx, func() {
		c.mu.Lock()
		if c.seq == seq {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

func (c *Controller) fetch(ctx context.Context, seq uint64, q weather.LocationQuery) State {
	credential, ok := c.creds.Get()
	if !ok {
		return c.fail(seq, MsgMissingCredential, weather.ErrMissingCredential)
	}

	report, err := c.fetcher.Fetch(ctx, q, credential)
	if err != nil {
		if errors.Is(err, weather.ErrMissingCredential) {
			return c.fail(seq, MsgMissingCredential, err)
		}
		msg := MsgFetchByName
		if _, byCoords := q.Coordinates(); byCoords {
			msg = MsgFetchByCoordinates
		}
		return c.fail(seq, msg, err)
	}

	current := report.Current
	forecast := report.Forecast
	if forecast == nil {
		forecast = weather.Forecast{}
	}
	return c.apply(seq, State{
		Status:   StatusLoaded,
		Current:  &current,
		Forecast: forecast,
	}, q)
}

func (c *Controller) fail(seq uint64, msg string, err error) State {
	attrs := []any{"seq", seq, "error", err}
	var fe *weather.FetchError
	if errors.As(err, &fe) {
		attrs = append(attrs, "status", fe.StatusCode)
	}
	c.logger.Warn("action failed", attrs...)

	return c.apply(seq, State{Status: StatusError, Message: msg}, weather.LocationQuery{})
}

// apply installs st if seq is still the latest action; otherwise the result
// is stale and the current state is returned untouched.
func (c *Controller) apply(seq uint64, st State, q weather.LocationQuery) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.logger.Debug("discarding stale result", "seq", seq, "latest", c.seq)
		return c.state
	}

	st.Seq = seq
	c.state = st
	c.lastQuery = q
	return st
}
