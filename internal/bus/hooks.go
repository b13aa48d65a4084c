package bus

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/crossbus/internal/bus/events"
	loggingpkg "github.com/drblury/crossbus/internal/bus/logging"
)

// EmitContext describes one emission to hooks.
type EmitContext struct {
	// Envelope is the event being dispatched.
	Envelope events.Envelope
	// Subscribers is how many handlers were captured in the fan-out
	// snapshot, which may be zero.
	Subscribers int
}

// HandlerContext describes one handler invocation to hooks.
type HandlerContext struct {
	// Envelope is the event the handler received.
	Envelope events.Envelope
	// SubscriptionID identifies the invoked subscription.
	SubscriptionID string
}

// EmitHooks defines callbacks around the emission lifecycle.
// All hooks are optional - nil hooks are simply not called.
type EmitHooks struct {
	// OnEmit is called once per emission, after the envelope has been
	// stamped and the subscriber snapshot taken, before any handler runs.
	OnEmit func(ctx EmitContext)

	// OnHandlerDone is called after a handler settles successfully.
	OnHandlerDone func(ctx HandlerContext)

	// OnHandlerError is called when a handler fails, synchronously or via
	// its pending completion. The failure is already isolated; hooks only
	// observe it.
	OnHandlerError func(ctx HandlerContext, err error)
}

// Merge combines two EmitHooks, creating hooks that call both. The hooks
// from 'other' run after the hooks from 'h'.
func (h EmitHooks) Merge(other EmitHooks) EmitHooks {
	return EmitHooks{
		OnEmit:         chainEmitHooks(h.OnEmit, other.OnEmit),
		OnHandlerDone:  chainHandlerHooks(h.OnHandlerDone, other.OnHandlerDone),
		OnHandlerError: chainHandlerErrorHooks(h.OnHandlerError, other.OnHandlerError),
	}
}

func (h EmitHooks) onEmit(ctx EmitContext) {
	if h.OnEmit != nil {
		h.OnEmit(ctx)
	}
}

func (h EmitHooks) onHandlerDone(ctx HandlerContext) {
	if h.OnHandlerDone != nil {
		h.OnHandlerDone(ctx)
	}
}

func (h EmitHooks) onHandlerError(ctx HandlerContext, err error) {
	if h.OnHandlerError != nil {
		h.OnHandlerError(ctx, err)
	}
}

func chainEmitHooks(a, b func(EmitContext)) func(EmitContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx EmitContext) {
		a(ctx)
		b(ctx)
	}
}

func chainHandlerHooks(a, b func(HandlerContext)) func(HandlerContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HandlerContext) {
		a(ctx)
		b(ctx)
	}
}

func chainHandlerErrorHooks(a, b func(HandlerContext, error)) func(HandlerContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx HandlerContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log the emission lifecycle.
func LoggingHooks(logger loggingpkg.ServiceLogger) EmitHooks {
	return EmitHooks{
		OnEmit: func(ctx EmitContext) {
			logger.Debug("Event emitted", loggingpkg.LogFields{
				"event_type":     ctx.Envelope.Type,
				"source":         ctx.Envelope.Meta.Source,
				"correlation_id": ctx.Envelope.Meta.CorrelationID,
				"subscribers":    ctx.Subscribers,
			})
		},
		OnHandlerError: func(ctx HandlerContext, err error) {
			logger.Error("Handler failed", err, loggingpkg.LogFields{
				"event_type":      ctx.Envelope.Type,
				"subscription_id": ctx.SubscriptionID,
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that forward lifecycle events to
// plain counters, for callers not using the Prometheus collectors.
func MetricsHooks(onEmit, onDone, onError func(eventType string)) EmitHooks {
	return EmitHooks{
		OnEmit: func(ctx EmitContext) {
			if onEmit != nil {
				onEmit(ctx.Envelope.Type)
			}
		},
		OnHandlerDone: func(ctx HandlerContext) {
			if onDone != nil {
				onDone(ctx.Envelope.Type)
			}
		},
		OnHandlerError: func(ctx HandlerContext, err error) {
			if onError != nil {
				onError(ctx.Envelope.Type)
			}
		},
	}
}

const tracerName = "github.com/drblury/crossbus"

// TracingHooks returns hooks that record one OpenTelemetry span per emission
// and span events for handler failures. Provide a nil provider to use the
// global one.
func TracingHooks(provider trace.TracerProvider) EmitHooks {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	tracer := provider.Tracer(tracerName)

	return EmitHooks{
		OnEmit: func(ctx EmitContext) {
			_, span := tracer.Start(context.Background(), "crossbus.emit")
			span.SetAttributes(
				attribute.String("crossbus.event_type", ctx.Envelope.Type),
				attribute.String("crossbus.source", string(ctx.Envelope.Meta.Source)),
				attribute.String("crossbus.correlation_id", ctx.Envelope.Meta.CorrelationID),
				attribute.Int("crossbus.subscribers", ctx.Subscribers),
			)
			span.End()
		},
	}
}
