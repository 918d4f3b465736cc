package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/armysmp/storefront/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func testSettings(target string, failures int) Settings {
	return SettingsFor(target, config.BreakerConfig{IntervalSeconds: 60, OpenSeconds: 30, FailureThreshold: failures, HalfOpenRequests: 1})
}

// callCount reads storefront_outbound_calls_total for one target and outcome
func callCount(t *testing.T, target, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "storefront_outbound_calls_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["target"] == target && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestSettingsFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.BreakerConfig
		want Settings
	}{
		{
			name: "defaults for zero values",
			cfg:  config.BreakerConfig{},
			want: Settings{Name: "discord-orders", Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5, SuccessThreshold: 1},
		},
		{
			name: "configured values",
			cfg:  config.BreakerConfig{IntervalSeconds: 120, OpenSeconds: 10, FailureThreshold: 3, HalfOpenRequests: 2},
			want: Settings{Name: "discord-orders", Interval: 2 * time.Minute, Timeout: 10 * time.Second, FailureThreshold: 3, SuccessThreshold: 2},
		},
		{
			name: "negative values fall back",
			cfg:  config.BreakerConfig{IntervalSeconds: -1, OpenSeconds: -1, FailureThreshold: -1, HalfOpenRequests: -1},
			want: Settings{Name: "discord-orders", Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5, SuccessThreshold: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SettingsFor("discord-orders", tt.cfg))
		})
	}
}

func TestCircuitBreaker_Success(t *testing.T) {
	b := NewCircuitBreaker(testSettings("test-success", 2), nil)

	result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, "test-success", b.Name())
	assert.Equal(t, float64(1), callCount(t, "test-success", "success"))
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewCircuitBreaker(testSettings("test-trip", 2), nil)
	calls := 0
	failing := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errUpstream
	}

	_, err := b.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errUpstream)
	_, err = b.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, errUpstream)

	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err = b.Execute(context.Background(), failing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls, "open breaker must not call the operation")
	assert.Equal(t, float64(2), callCount(t, "test-trip", "failure"))
	assert.Equal(t, float64(1), callCount(t, "test-trip", "rejected"))
	assert.Equal(t, float64(0), callCount(t, "test-trip", "success"))
}

func TestCircuitBreaker_GracefulDegradation(t *testing.T) {
	b := NewCircuitBreaker(testSettings("test-degrade", 1), GracefulDegradation("discord"))

	_, _ = b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errUpstream
	})
	result, err := b.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "unreachable", nil
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	b := NewCircuitBreaker(testSettings("test-cancel", 5), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		t.Fatal("operation should not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 0.0, stateValue(gobreaker.StateClosed))
	assert.Equal(t, 0.5, stateValue(gobreaker.StateHalfOpen))
	assert.Equal(t, 1.0, stateValue(gobreaker.StateOpen))
}
