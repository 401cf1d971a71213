// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pdiddy/omnithink/internal/metrics"
	"github.com/pdiddy/omnithink/pkg/types"
)

func TestMain(m *testing.M) {
	BackoffBase = time.Millisecond
	goleak.VerifyTestMain(m)
}

func TestDoRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		retries   int
		permanent bool
		wantCalls int
		wantErr   bool
	}{
		{"immediate success", 0, 2, false, 1, false},
		{"succeeds after transient failures", 2, 2, false, 3, false},
		{"exhausts retries", 5, 2, false, 3, true},
		{"permanent error not retried", 5, 2, true, 1, true},
		{"no retries configured", 1, 0, false, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Settings{Adapter: types.AdapterGenerator, Backend: "fake", MaxRetries: tt.retries}, nil, nil)
			calls := 0
			got, err := Do(context.Background(), g, "prompt", func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					err := errors.New("boom")
					if tt.permanent {
						return "", Permanent(err)
					}
					return "", err
				}
				return "ok", nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "ok", got)
				return
			}
			var ae *types.AdapterError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, types.AdapterGenerator, ae.Adapter)
			assert.Equal(t, "fake", ae.Backend)
			assert.Equal(t, "prompt", ae.Call)
		})
	}
}

func TestDoTimeout(t *testing.T) {
	g := New(Settings{Adapter: types.AdapterRetriever, Backend: "slow", Timeout: 10 * time.Millisecond}, nil, nil)

	_, err := Do(context.Background(), g, "q", func(ctx context.Context) ([]string, error) {
		<-ctx.Done()
		return nil, errors.New("request aborted")
	})

	var ae *types.AdapterError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Timeout(), "deadline must be reported even when the backend hides it: %v", err)
}

func TestDoContextCancelled(t *testing.T) {
	g := New(Settings{Adapter: types.AdapterRetriever, Backend: "fake", MaxRetries: 3}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, g, "q", func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBreakerOpens(t *testing.T) {
	m := metrics.NewCollector("test")
	g := New(Settings{
		Adapter:         types.AdapterRetriever,
		Backend:         "flaky",
		BreakerFailures: 2,
		BreakerCooldown: time.Minute,
	}, nil, m)

	calls := 0
	fail := func(context.Context) (int, error) {
		calls++
		return 0, errors.New("unavailable")
	}

	for i := 0; i < 2; i++ {
		_, err := Do(context.Background(), g, "q", fail)
		require.Error(t, err)
	}
	assert.Equal(t, "open", g.State())

	_, err := Do(context.Background(), g, "q", fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls, "open breaker must not call the backend")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterCalls.WithLabelValues(types.AdapterRetriever, "flaky", metrics.OutcomeRejected)))
}

func TestPermanentErrorsDoNotTripBreaker(t *testing.T) {
	g := New(Settings{Adapter: types.AdapterGenerator, Backend: "fake", BreakerFailures: 1, BreakerCooldown: time.Minute}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), g, "p", func(context.Context) (int, error) {
			return 0, Permanent(errors.New("unauthorized"))
		})
		require.Error(t, err)
		assert.True(t, IsPermanent(err))
	}
	assert.Equal(t, "closed", g.State())
}

func TestDisabledBreaker(t *testing.T) {
	g := New(Settings{Adapter: types.AdapterGenerator, Backend: "fake"}, nil, nil)
	assert.Equal(t, "disabled", g.State())
	assert.Nil(t, Permanent(nil))
}
