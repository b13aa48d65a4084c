package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/internal/bus/events"
)

func TestEmitHooks_OnEmit(t *testing.T) {
	var captured EmitContext
	called := 0

	b := New(nil, WithHooks(EmitHooks{
		OnEmit: func(ctx EmitContext) {
			called++
			captured = ctx
		},
	}))
	defer b.Destroy()

	b.On("evt", Sync(noopHandler))
	b.On("evt", Sync(noopHandler))

	require.NoError(t, b.Emit(context.Background(), "evt", "payload"))
	assert.Equal(t, 1, called)
	assert.Equal(t, "evt", captured.Envelope.Type)
	assert.Equal(t, "payload", captured.Envelope.Payload)
	assert.Equal(t, 2, captured.Subscribers)
}

func TestEmitHooks_OnEmitWithZeroSubscribers(t *testing.T) {
	var captured EmitContext

	b := New(nil, WithHooks(EmitHooks{
		OnEmit: func(ctx EmitContext) { captured = ctx },
	}))
	defer b.Destroy()

	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	assert.Zero(t, captured.Subscribers)
}

func TestEmitHooks_OnHandlerDone(t *testing.T) {
	var doneIDs []string

	b := New(nil, WithHooks(EmitHooks{
		OnHandlerDone: func(ctx HandlerContext) {
			doneIDs = append(doneIDs, ctx.SubscriptionID)
		},
	}))
	defer b.Destroy()

	sync := b.On("evt", Sync(noopHandler))
	async := b.On("evt", Async(noopHandler))

	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	assert.ElementsMatch(t, []string{sync.ID, async.ID}, doneIDs)
}

func TestEmitHooks_OnHandlerError(t *testing.T) {
	expectedErr := errors.New("handler error")
	var capturedErr error
	var capturedCtx HandlerContext

	b := New(nil, WithHooks(EmitHooks{
		OnHandlerError: func(ctx HandlerContext, err error) {
			capturedCtx = ctx
			capturedErr = err
		},
	}))
	defer b.Destroy()

	sub := b.On("evt", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		return expectedErr
	}))

	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	assert.Equal(t, expectedErr, capturedErr)
	assert.Equal(t, sub.ID, capturedCtx.SubscriptionID)
	assert.Equal(t, "evt", capturedCtx.Envelope.Type)
}

func TestEmitHooks_PanicReportedAsError(t *testing.T) {
	var capturedErr error

	b := New(nil, WithHooks(EmitHooks{
		OnHandlerError: func(ctx HandlerContext, err error) { capturedErr = err },
	}))
	defer b.Destroy()

	b.On("evt", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		panic("kaboom")
	}))

	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	require.Error(t, capturedErr)
	assert.Contains(t, capturedErr.Error(), "handler panicked")
}

func TestEmitHooks_Merge(t *testing.T) {
	var order []string

	first := EmitHooks{
		OnEmit: func(ctx EmitContext) { order = append(order, "first") },
	}
	second := EmitHooks{
		OnEmit: func(ctx EmitContext) { order = append(order, "second") },
	}

	merged := first.Merge(second)
	merged.onEmit(EmitContext{})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitHooks_MergeWithNilSides(t *testing.T) {
	called := false
	hooks := EmitHooks{}.Merge(EmitHooks{
		OnHandlerDone: func(ctx HandlerContext) { called = true },
	})

	hooks.onEmit(EmitContext{})
	hooks.onHandlerDone(HandlerContext{})
	hooks.onHandlerError(HandlerContext{}, errors.New("x"))
	assert.True(t, called)
}

func TestMetricsHooks(t *testing.T) {
	emits := map[string]int{}
	dones := map[string]int{}
	errs := map[string]int{}

	b := New(nil, WithHooks(MetricsHooks(
		func(eventType string) { emits[eventType]++ },
		func(eventType string) { dones[eventType]++ },
		func(eventType string) { errs[eventType]++ },
	)))
	defer b.Destroy()

	b.On("ok", Sync(noopHandler))
	b.On("bad", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		return errors.New("boom")
	}))

	require.NoError(t, b.Emit(context.Background(), "ok", nil))
	require.NoError(t, b.Emit(context.Background(), "bad", nil))

	assert.Equal(t, 1, emits["ok"])
	assert.Equal(t, 1, emits["bad"])
	assert.Equal(t, 1, dones["ok"])
	assert.Zero(t, dones["bad"])
	assert.Equal(t, 1, errs["bad"])
}

func TestMetricsHooks_NilCallbacks(t *testing.T) {
	b := New(nil, WithHooks(MetricsHooks(nil, nil, nil)))
	defer b.Destroy()

	b.On("evt", Sync(noopHandler))
	require.NoError(t, b.Emit(context.Background(), "evt", nil))
}

func TestLoggingHooks(t *testing.T) {
	logger := &recordingLogger{}

	b := New(nil, WithHooks(LoggingHooks(logger)))
	defer b.Destroy()

	b.On("evt", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		return errors.New("boom")
	}))

	require.NoError(t, b.Emit(context.Background(), "evt", nil))
	assert.Contains(t, logger.debugMessages(), "Event emitted")
	assert.Contains(t, logger.errorMessages(), "Handler failed")
}

func TestTracingHooks_GlobalProvider(t *testing.T) {
	// The default global provider is a no-op; the hook must still be safe.
	b := New(nil, WithHooks(TracingHooks(nil)))
	defer b.Destroy()

	b.On("evt", Sync(noopHandler))
	require.NoError(t, b.Emit(context.Background(), "evt", nil))
}
