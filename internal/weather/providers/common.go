package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// HTTPClientConfig bundles the HTTP client and outbound throttling settings.
type HTTPClientConfig struct {
	Client *http.Client

	// RateLimit is requests per second; <= 0 disables limiting.
	RateLimit float64
	Burst     int
}

var (
	errServerError  = errors.New("server error")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

var validate = validator.New()

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: countsAsSuccess,
	})
}

// countsAsSuccess keeps calls abandoned by the caller out of the breaker's
// failure counts.
func countsAsSuccess(err error) bool {
	var ce *callerDoneError
	return err == nil || errors.As(err, &ce)
}

// callerDoneError marks a transport error caused by the request context
// ending, as opposed to the provider failing.
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }
func (e *callerDoneError) Unwrap() error { return e.err }

func newLimiter(cfg HTTPClientConfig) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
}

// doRequest executes a single attempt. Transport errors and 5xx responses
// count against the circuit breaker, context cancellation does not; any other
// status is returned to the caller to judge. There are no retries.
func doRequest(
	ctx context.Context,
	client *http.Client,
	limiter *rate.Limiter,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait canceled: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			if ctx.Err() != nil {
				return nil, &callerDoneError{err: execErr}
			}
			return nil, execErr
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode, err: errServerError}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return fmt.Sprintf("%v: %d", e.err, e.code) }
func (e *statusError) Unwrap() error { return e.err }

// getJSON performs the request and decodes a 2xx body into out, validating it
// against its struct tags. Every failure is a *weather.FetchError.
func getJSON(
	ctx context.Context,
	op string,
	client *http.Client,
	limiter *rate.Limiter,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
	out interface{},
) error {
	resp, err := doRequest(ctx, client, limiter, cb, req)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return &weather.FetchError{Op: op, StatusCode: se.code, Err: err}
		}
		return &weather.FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &weather.FetchError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &weather.FetchError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if err := validate.Struct(out); err != nil {
		return &weather.FetchError{Op: op, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}
