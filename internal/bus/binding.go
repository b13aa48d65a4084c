package bus

import (
	"context"
	"sync"

	"github.com/drblury/crossbus/internal/bus/events"
)

// Emitter is the bus surface a Binding needs. Both *Bus and *Adapter
// satisfy it, so component code stays oblivious to whether its bus is
// bridged.
type Emitter interface {
	On(eventType string, handler Handler, opts ...SubscribeOption) *Subscription
	Once(eventType string, handler Handler, opts ...SubscribeOption) *Subscription
	Off(eventType string, sub *Subscription)
	Emit(ctx context.Context, eventType string, payload any) error
	GetHistory(eventType string, limit int) []events.Envelope
	GetStats() StatsSnapshot
}

// Binding ties subscription lifetime to a UI component's lifetime: create it
// on mount, call Unbind on unmount, and every subscription made through it
// is released, whether or not the component remembered to. A remounting
// component that forgets cleanup can no longer double-subscribe or leak.
type Binding struct {
	bus Emitter

	mu      sync.Mutex
	subs    map[string]*Subscription
	feeds   []chan events.Envelope
	unbound bool
}

// NewBinding creates a binding over a bus or adapter (mount).
func NewBinding(bus Emitter) *Binding {
	return &Binding{
		bus:  bus,
		subs: make(map[string]*Subscription),
	}
}

// On subscribes through the binding. The subscription is tracked and
// released on Unbind.
func (b *Binding) On(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.unbound {
		return nil
	}
	sub := b.bus.On(eventType, handler, opts...)
	if sub != nil {
		b.subs[sub.ID] = sub
	}
	return sub
}

// Once subscribes a one-shot handler through the binding.
func (b *Binding) Once(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	return b.On(eventType, handler, append(opts, WithOnce())...)
}

// Off releases one subscription made through this binding early.
func (b *Binding) Off(eventType string, sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	delete(b.subs, sub.ID)
	b.mu.Unlock()

	b.bus.Off(eventType, sub)
}

// Emit passes through to the underlying bus.
func (b *Binding) Emit(ctx context.Context, eventType string, payload any) error {
	return b.bus.Emit(ctx, eventType, payload)
}

// Subscriptions returns how many live subscriptions this binding holds.
func (b *Binding) Subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Stats exposes the bus counters to the component.
func (b *Binding) Stats() StatsSnapshot {
	return b.bus.GetStats()
}

// History exposes the bus history to the component.
func (b *Binding) History(eventType string, limit int) []events.Envelope {
	return b.bus.GetHistory(eventType, limit)
}

// Unbind releases everything created through this binding (unmount) and
// closes any event feeds. Only this binding's subscriptions are touched.
// Idempotent.
func (b *Binding) Unbind() {
	b.mu.Lock()
	if b.unbound {
		b.mu.Unlock()
		return
	}
	b.unbound = true
	subs := b.subs
	feeds := b.feeds
	b.subs = make(map[string]*Subscription)
	b.feeds = nil
	b.mu.Unlock()

	for _, sub := range subs {
		b.bus.Off(sub.EventType, sub)
	}
	for _, feed := range feeds {
		close(feed)
	}
}

// Latest observes the most recent envelope of one event type. The zero state
// reports ok=false until the first matching emission. Seeded from history so
// a component mounted after the event still sees the current value.
type Latest struct {
	mu  sync.Mutex
	env events.Envelope
	ok  bool
}

// Get returns the latest envelope and whether one has been seen.
func (l *Latest) Get() (events.Envelope, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.env, l.ok
}

func (l *Latest) set(env events.Envelope) {
	l.mu.Lock()
	l.env = env
	l.ok = true
	l.mu.Unlock()
}

// Latest returns an observable view over one event type's newest envelope,
// backed by a tracked subscription.
func (b *Binding) Latest(eventType string) *Latest {
	latest := &Latest{}
	if tail := b.bus.GetHistory(eventType, 1); len(tail) == 1 {
		latest.set(tail[0])
	}
	b.On(eventType, Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		latest.set(events.Envelope{Type: eventType, Payload: payload, Meta: meta})
		return nil
	}))
	return latest
}

// Window is a bounded rolling history of one event type, oldest first.
type Window struct {
	mu      sync.Mutex
	entries []events.Envelope
	max     int
}

// Get returns a copy of the current window contents.
func (w *Window) Get() []events.Envelope {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]events.Envelope, len(w.entries))
	copy(out, w.entries)
	return out
}

func (w *Window) push(env events.Envelope) {
	w.mu.Lock()
	if len(w.entries) == w.max {
		copy(w.entries, w.entries[1:])
		w.entries = w.entries[:w.max-1]
	}
	w.entries = append(w.entries, env)
	w.mu.Unlock()
}

// Window returns a rolling view of the last max envelopes of one event
// type, seeded from bus history and kept current by a tracked subscription.
func (b *Binding) Window(eventType string, max int) *Window {
	if max <= 0 {
		max = 10
	}
	w := &Window{max: max}
	for _, env := range b.bus.GetHistory(eventType, max) {
		w.push(env)
	}
	b.On(eventType, Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		w.push(events.Envelope{Type: eventType, Payload: payload, Meta: meta})
		return nil
	}))
	return w
}

// Events returns a channel feed of one event type. Envelopes that arrive
// while the feed's buffer is full are dropped rather than blocking the
// fan-out. The channel closes on Unbind.
func (b *Binding) Events(eventType string, buffer int) <-chan events.Envelope {
	if buffer <= 0 {
		buffer = 16
	}
	feed := make(chan events.Envelope, buffer)

	b.mu.Lock()
	if b.unbound {
		b.mu.Unlock()
		close(feed)
		return feed
	}
	b.feeds = append(b.feeds, feed)
	b.mu.Unlock()

	b.On(eventType, Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		// Unbind flips unbound before closing feeds under the same mutex,
		// so checking it here rules out a send on a closed channel even
		// when an in-flight emission still holds this handler in its
		// snapshot.
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.unbound {
			return nil
		}
		select {
		case feed <- events.Envelope{Type: eventType, Payload: payload, Meta: meta}:
		default:
		}
		return nil
	}))
	return feed
}
