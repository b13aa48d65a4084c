package bus

import (
	"context"
	"time"

	"github.com/drblury/crossbus/internal/bus/events"
)

// Pending signals the asynchronous completion of a handler. It settles when
// the channel delivers an error (failure) or is closed (success).
type Pending <-chan error

// Handler processes one delivered event. It is invoked synchronously during
// fan-out, in priority order. A handler either completes before returning
// (pending == nil, err carries the outcome) or hands back a Pending that the
// emission joins only after every handler has started. Use Sync or Async to
// build handlers from plain functions.
type Handler func(ctx context.Context, payload any, meta events.Meta) (Pending, error)

// Sync adapts a plain function into a Handler that completes inline.
func Sync(fn func(ctx context.Context, payload any, meta events.Meta) error) Handler {
	return func(ctx context.Context, payload any, meta events.Meta) (Pending, error) {
		return nil, fn(ctx, payload, meta)
	}
}

// Async adapts a plain function into a Handler that runs in its own
// goroutine. The fan-out does not wait for it before starting the next
// handler; the emission settles once it finishes. A slow async handler
// therefore delays only the emit call's return, never a sibling's start.
func Async(fn func(ctx context.Context, payload any, meta events.Meta) error) Handler {
	return func(ctx context.Context, payload any, meta events.Meta) (Pending, error) {
		done := make(chan error, 1)
		go func() {
			defer close(done)
			defer func() {
				if r := recover(); r != nil {
					done <- panicToError(r)
				}
			}()
			if err := fn(ctx, payload, meta); err != nil {
				done <- err
			}
		}()
		return done, nil
	}
}

// SubscribeOption tunes a single subscription.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	once     bool
	priority int
}

// WithPriority sets the fan-out priority. Higher priorities run first;
// the default is 0. Equal priorities fire in registration order.
func WithPriority(priority int) SubscribeOption {
	return func(o *subscribeOptions) { o.priority = priority }
}

// WithOnce removes the subscription after its first invocation. The removal
// happens when the emission snapshot is taken, so back-to-back emissions
// cannot re-trigger the handler even while its async work is in flight.
func WithOnce() SubscribeOption {
	return func(o *subscribeOptions) { o.once = true }
}

// Subscription is a handler's registration with one bus. It belongs to
// exactly one event type for its lifetime; re-subscribing creates a new
// Subscription.
type Subscription struct {
	ID        string
	EventType string
	Priority  int
	Once      bool

	handler Handler
	seq     uint64
}

// SubscriptionInfo is the read-only introspection view of a subscription.
type SubscriptionInfo struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Priority  int    `json:"priority"`
	Once      bool   `json:"once"`
}

// StatsSnapshot is a point-in-time copy of the bus counters. Counters
// accumulate monotonically and reset only via ResetStats.
type StatsSnapshot struct {
	TotalEmitted        uint64            `json:"total_emitted"`
	EmittedByType       map[string]uint64 `json:"emitted_by_type"`
	ActiveSubscriptions int               `json:"active_subscriptions"`
	HandlerErrors       uint64            `json:"handler_errors"`
	CollectedAt         time.Time         `json:"collected_at"`
}

type busStats struct {
	totalEmitted  uint64
	emittedByType map[string]uint64
	handlerErrors uint64
}

func newBusStats() busStats {
	return busStats{emittedByType: make(map[string]uint64)}
}

func (s *busStats) reset() {
	s.totalEmitted = 0
	s.handlerErrors = 0
	s.emittedByType = make(map[string]uint64)
}

// historyRing is a bounded FIFO buffer of envelope snapshots. History is
// best-effort diagnostics: it records every emission whether or not anyone
// was subscribed, and evicts the oldest entry once full.
type historyRing struct {
	entries []events.Envelope
	max     int
}

func newHistoryRing(max int) *historyRing {
	if max <= 0 {
		return nil
	}
	return &historyRing{
		entries: make([]events.Envelope, 0, max),
		max:     max,
	}
}

func (h *historyRing) Append(env events.Envelope) {
	if h == nil {
		return
	}
	if len(h.entries) == h.max {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.max-1]
	}
	h.entries = append(h.entries, env)
}

// Snapshot returns entries oldest first, optionally filtered by event type
// and truncated to the last limit entries.
func (h *historyRing) Snapshot(eventType string, limit int) []events.Envelope {
	if h == nil {
		return nil
	}
	out := make([]events.Envelope, 0, len(h.entries))
	for _, env := range h.entries {
		if eventType != "" && env.Type != eventType {
			continue
		}
		out = append(out, env)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Clear drops all entries, or only those of one event type.
func (h *historyRing) Clear(eventType string) {
	if h == nil {
		return
	}
	if eventType == "" {
		h.entries = h.entries[:0]
		return
	}
	kept := h.entries[:0]
	for _, env := range h.entries {
		if env.Type != eventType {
			kept = append(kept, env)
		}
	}
	h.entries = kept
}

func (h *historyRing) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}
