// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guard wraps calls to external adapters with a per-call timeout,
// bounded retry with exponential backoff, and a circuit breaker. Every
// failure that leaves Do is a *types.AdapterError.
package guard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/pkg/types"
)

// BackoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var BackoffBase = time.Second

// Settings configures one Guard.
type Settings struct {
	// Adapter is types.AdapterRetriever or types.AdapterGenerator.
	Adapter string

	// Backend names the concrete backend (serper, claude, ...).
	Backend string

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BreakerFailures opens the breaker after this many consecutive
	// failures. Zero disables the breaker.
	BreakerFailures uint32

	// BreakerCooldown is how long the breaker stays open.
	BreakerCooldown time.Duration
}

// Guard applies Settings to calls of one adapter backend. It is safe for
// concurrent use.
type Guard struct {
	s       Settings
	cb      *gobreaker.CircuitBreaker
	log     *zap.Logger
	metrics *metrics.Collector
}

// New creates a Guard. log and m may be nil.
func New(s Settings, log *zap.Logger, m *metrics.Collector) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Guard{s: s, log: log, metrics: m}
	if s.BreakerFailures > 0 {
		g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        s.Adapter + "/" + s.Backend,
			MaxRequests: 1,
			Timeout:     s.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.BreakerFailures
			},
			IsSuccessful: func(err error) bool {
				// Permanent errors are answers, not outages.
				return err == nil || IsPermanent(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return g
}

// Settings returns the guard's configuration.
func (g *Guard) Settings() Settings { return g.s }

// State reports the breaker state, or "disabled".
func (g *Guard) State() string {
	if g.cb == nil {
		return "disabled"
	}
	return g.cb.State().String()
}

// Do runs fn under the guard. call is the query or prompt, kept as an
// excerpt on the returned error.
func Do[T any](ctx context.Context, g *Guard, call string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= g.s.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
			select {
			case <-ctx.Done():
				return zero, g.wrap(call, ctx.Err())
			case <-time.After(wait):
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, g.wrap(call, err)
		}

		start := time.Now()
		v, err := runAttempt(ctx, g, fn)
		g.metrics.ObserveCall(g.s.Adapter, g.s.Backend, outcome(err), time.Since(start))
		if err == nil {
			return v, nil
		}
		lastErr = err

		if IsPermanent(err) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		g.log.Debug("adapter call failed, retrying",
			zap.String("adapter", g.s.Adapter),
			zap.String("backend", g.s.Backend),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return zero, g.wrap(call, lastErr)
}

// runAttempt runs one try under the per-call deadline and the breaker.
func runAttempt[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	if g.s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.s.Timeout)
		defer cancel()
	}

	run := func() (T, error) {
		v, err := fn(callCtx)
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return v, err
	}

	if g.cb == nil {
		return run()
	}
	var out T
	_, err := g.cb.Execute(func() (interface{}, error) {
		v, err := run()
		if err == nil {
			out = v
		}
		return nil, err
	})
	return out, err
}

func (g *Guard) wrap(call string, err error) error {
	return &types.AdapterError{
		Adapter: g.s.Adapter,
		Backend: g.s.Backend,
		Call:    call,
		Err:     err,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.OutcomeRejected
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeFailure
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (bad credentials, malformed
// request). Do returns it after the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
