package bus

import (
	"context"
	"fmt"

	"github.com/drblury/crossbus/internal/bus/events"
)

// Subscriber is the registration surface shared by *Bus, *Adapter, and
// *Binding.
type Subscriber interface {
	On(eventType string, handler Handler, opts ...SubscribeOption) *Subscription
}

// OnEvent registers a handler that receives the payload already projected
// onto T. Locally emitted payloads pass through by assertion; payloads that
// crossed the process boundary arrive as raw JSON and are unmarshalled. A
// payload that cannot be projected counts as a handler failure for this
// subscription, isolated like any other.
func OnEvent[T any](bus Subscriber, eventType string, fn func(ctx context.Context, payload T, meta events.Meta) error, opts ...SubscribeOption) *Subscription {
	if bus == nil || fn == nil {
		return nil
	}
	return bus.On(eventType, Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		typed, err := events.PayloadAs[T](payload)
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return fn(ctx, typed, meta)
	}), opts...)
}

// OnEventAsync is OnEvent with the handler running in its own goroutine, so
// its duration delays only the emission's settlement.
func OnEventAsync[T any](bus Subscriber, eventType string, fn func(ctx context.Context, payload T, meta events.Meta) error, opts ...SubscribeOption) *Subscription {
	if bus == nil || fn == nil {
		return nil
	}
	return bus.On(eventType, Async(func(ctx context.Context, payload any, meta events.Meta) error {
		typed, err := events.PayloadAs[T](payload)
		if err != nil {
			return fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return fn(ctx, typed, meta)
	}), opts...)
}
