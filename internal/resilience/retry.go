// Package resilience provides retry primitives for flaky dependencies.
//
// The central helper is [Retry], an exponential-backoff loop used to dial
// the SpikerBox relay and the feature index, both of which come and go
// independently of a recording session.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Permanent wraps an error so [Retry] gives up immediately instead of
// burning the remaining attempts on a failure that cannot heal, such as a
// malformed URL.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// RetryConfig holds tuning knobs for a [Retry] loop.
type RetryConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxAttempts is the total number of tries, the first call included.
	// Default: 5.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Each further
	// attempt doubles it. Default: 500ms.
	InitialDelay time.Duration

	// MaxDelay caps the doubled delay. Default: 30s.
	MaxDelay time.Duration
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
}

// Retry calls fn until it succeeds, the attempt budget runs out, fn returns
// a [Permanent] error, or ctx is cancelled. Waits between attempts grow
// exponentially with a jitter of up to a quarter of the delay, so multiple
// clients do not reconnect in lockstep.
//
// The returned error is the last error from fn, or the context error when
// cancellation ended the loop.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg.applyDefaults()

	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		var perm permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("resilience: %s failed after %d attempts: %w",
				cfg.Name, attempt, lastErr)
		}

		wait := delay + rand.N(delay/4+1)
		slog.Warn("retrying",
			"name", cfg.Name,
			"attempt", attempt,
			"wait", wait,
			"err", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// Reconnector rate-limits repeated reconnect cycles. Where [Retry] guards
// the attempts inside one cycle, a Reconnector spaces the cycles themselves,
// so a relay that accepts connections and immediately drops them does not
// turn the session loop into a busy loop.
//
// The zero value is not usable; construct with [NewReconnector].
type Reconnector struct {
	minInterval time.Duration

	mu       sync.Mutex
	lastTry  time.Time
	attempts int
}

// NewReconnector creates a [Reconnector] that keeps at least minInterval
// between the start of consecutive cycles. Zero means one second.
func NewReconnector(minInterval time.Duration) *Reconnector {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Reconnector{minInterval: minInterval}
}

// Wait blocks until the next cycle may start or ctx is cancelled.
func (r *Reconnector) Wait(ctx context.Context) error {
	r.mu.Lock()
	elapsed := time.Since(r.lastTry)
	r.lastTry = time.Now()
	r.attempts++
	attempts := r.attempts
	r.mu.Unlock()

	if attempts == 1 || elapsed >= r.minInterval {
		return nil
	}
	wait := r.minInterval - elapsed
	slog.Debug("delaying reconnect", "wait", wait, "cycles", attempts)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Attempts returns the number of cycles started so far.
func (r *Reconnector) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}
