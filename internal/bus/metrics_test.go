package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/internal/bus/events"
)

func TestMetrics_RegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	m.Unregister()
	m.Unregister()
}

func TestMetrics_CountsEmissions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NoError(t, m.Register())

	b := New(nil, WithMetrics(m))
	defer b.Destroy()

	b.On("evt", Sync(noopHandler))
	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	require.NoError(t, b.EmitFrom(context.Background(), "evt", nil, events.SourceFrontend))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.emittedTotal.WithLabelValues("evt", "backend")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.emittedTotal.WithLabelValues("evt", "frontend")))
}

func TestMetrics_CountsHandlerErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NoError(t, m.Register())

	b := New(nil, WithMetrics(m))
	defer b.Destroy()

	b.On("evt", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		return errors.New("boom")
	}))
	require.NoError(t, b.Emit(context.Background(), "evt", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.handlerErrorsTotal.WithLabelValues("evt")))
}

func TestMetrics_TracksActiveSubscriptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NoError(t, m.Register())

	b := New(nil, WithMetrics(m))
	defer b.Destroy()

	sub := b.On("a", Sync(noopHandler))
	b.On("b", Sync(noopHandler))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.subscriptionsActive))

	b.Off("a", sub)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscriptionsActive))

	// once subscriptions leave the gauge when consumed
	b.Once("b", Sync(noopHandler))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.subscriptionsActive))
	require.NoError(t, b.Emit(context.Background(), "b", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscriptionsActive))
}

func TestMetrics_DestroyZeroesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NoError(t, m.Register())

	b := New(nil, WithMetrics(m))
	b.On("a", Sync(noopHandler))
	b.Destroy()

	assert.Zero(t, testutil.ToFloat64(m.subscriptionsActive))
}
