package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/drblury/crossbus/internal/bus/events"
	"github.com/drblury/crossbus/internal/bus/ids"
	loggingpkg "github.com/drblury/crossbus/internal/bus/logging"
)

// Bus is the in-process event dispatcher: subscription storage,
// priority-ordered fan-out, once semantics, bounded history, running
// statistics, and per-handler failure isolation.
//
// All shared state sits behind one mutex; the sorted subscriber snapshot for
// an emission is taken under that mutex before any handler runs, so
// unsubscribing from within a handler never affects handlers already
// captured by the in-flight emission.
type Bus struct {
	logger  loggingpkg.ServiceLogger
	hooks   EmitHooks
	metrics *Metrics

	defaultSource events.Source

	mu            sync.Mutex
	subscriptions map[string][]*Subscription
	nextSeq       uint64
	history       *historyRing
	stats         busStats
	correlationID string
	destroyed     bool
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithMaxHistory bounds the history ring. Zero or negative disables history
// recording entirely.
func WithMaxHistory(max int) Option {
	return func(b *Bus) { b.history = newHistoryRing(max) }
}

// WithHooks installs emission lifecycle hooks.
func WithHooks(hooks EmitHooks) Option {
	return func(b *Bus) { b.hooks = b.hooks.Merge(hooks) }
}

// WithMetrics attaches Prometheus collectors to the bus.
func WithMetrics(metrics *Metrics) Option {
	return func(b *Bus) { b.metrics = metrics }
}

// WithDefaultSource sets the provenance stamped by Emit when the caller does
// not name one. Defaults to SourceBackend.
func WithDefaultSource(source events.Source) Option {
	return func(b *Bus) { b.defaultSource = source }
}

// DefaultMaxHistory is the history bound applied when no option overrides it.
const DefaultMaxHistory = 100

// New constructs a Bus. Hold the returned instance in the application's
// composition root and inject it into consumers; there is deliberately no
// package-level singleton.
func New(logger loggingpkg.ServiceLogger, opts ...Option) *Bus {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	b := &Bus{
		logger:        logger,
		defaultSource: events.SourceBackend,
		subscriptions: make(map[string][]*Subscription),
		history:       newHistoryRing(DefaultMaxHistory),
		stats:         newBusStats(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a handler for an event type. The type does not have to be
// previously known. A nil handler is a misuse no-op returning nil.
func (b *Bus) On(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	if eventType == "" || handler == nil {
		b.logger.Debug("Ignoring subscription without event type or handler", loggingpkg.LogFields{
			"event_type": eventType,
		})
		return nil
	}

	var options subscribeOptions
	for _, opt := range opts {
		opt(&options)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil
	}

	b.nextSeq++
	sub := &Subscription{
		ID:        ids.CreateULID(),
		EventType: eventType,
		Priority:  options.priority,
		Once:      options.once,
		handler:   handler,
		seq:       b.nextSeq,
	}
	b.subscriptions[eventType] = append(b.subscriptions[eventType], sub)

	if b.metrics != nil {
		b.metrics.setActiveSubscriptions(b.activeCountLocked())
	}

	return sub
}

// Once registers a handler that fires at most one time.
func (b *Bus) Once(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	return b.On(eventType, handler, append(opts, WithOnce())...)
}

// Off removes exactly the given subscription if present. Removing twice, or
// removing a subscription the bus never held, is a no-op.
func (b *Bus) Off(eventType string, sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(eventType, sub.ID)

	if b.metrics != nil {
		b.metrics.setActiveSubscriptions(b.activeCountLocked())
	}
}

// OffAll removes all subscriptions for the named event types, or every
// subscription on the bus when called with no arguments.
func (b *Bus) OffAll(eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		b.subscriptions = make(map[string][]*Subscription)
	} else {
		for _, eventType := range eventTypes {
			delete(b.subscriptions, eventType)
		}
	}

	if b.metrics != nil {
		b.metrics.setActiveSubscriptions(b.activeCountLocked())
	}
}

// removeLocked drops one subscription and prunes the event type's entry when
// it empties, keeping the map bounded under dynamic event vocabularies.
func (b *Bus) removeLocked(eventType, subID string) {
	subs, ok := b.subscriptions[eventType]
	if !ok {
		return
	}
	for i, existing := range subs {
		if existing.ID == subID {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subscriptions, eventType)
	} else {
		b.subscriptions[eventType] = subs
	}
}

// Emit dispatches an event with the bus's default source. It returns after
// every handler invoked by this emission has settled; handler failures are
// isolated and never surface here. The returned error is non-nil only when
// ctx is cancelled while waiting for async completions.
func (b *Bus) Emit(ctx context.Context, eventType string, payload any) error {
	return b.EmitFrom(ctx, eventType, payload, b.defaultSource)
}

// EmitAndWait is an alias for Emit, retained for call-site clarity where the
// caller specifically depends on the settled guarantee.
func (b *Bus) EmitAndWait(ctx context.Context, eventType string, payload any) error {
	return b.Emit(ctx, eventType, payload)
}

// EmitFrom dispatches an event with an explicit provenance tag.
//
// Statistics and history are updated even when there are zero subscribers.
// Handlers start sequentially in priority order (descending, registration
// order on ties); async completions are joined only after the last handler
// has started. Emissions issued concurrently without awaiting each other
// interleave at the scheduler's mercy; await each Emit for strict ordering.
func (b *Bus) EmitFrom(ctx context.Context, eventType string, payload any, source events.Source) error {
	if eventType == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}

	env := events.New(eventType, payload, source, b.correlationID)
	return b.dispatchLocked(ctx, env)
}

// EmitEnvelope dispatches an already-stamped envelope, preserving its meta.
// The process-side adapters use it to re-emit envelopes that arrived over
// the bridge without losing the originating correlation ID.
func (b *Bus) EmitEnvelope(ctx context.Context, env events.Envelope) error {
	if env.Type == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	return b.dispatchLocked(ctx, env)
}

// dispatchLocked finishes an emission. Called with the mutex held; releases
// it before handlers run.
func (b *Bus) dispatchLocked(ctx context.Context, env events.Envelope) error {
	eventType := env.Type

	b.stats.totalEmitted++
	b.stats.emittedByType[eventType]++
	b.history.Append(env)

	snapshot := b.snapshotLocked(eventType)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.observeEmit(eventType, string(env.Meta.Source))
	}
	b.hooks.onEmit(EmitContext{Envelope: env, Subscribers: len(snapshot)})

	start := time.Now()
	err := b.fanOut(ctx, env, snapshot)

	if b.metrics != nil {
		b.metrics.observeEmitDuration(eventType, time.Since(start))
	}
	return err
}

// snapshotLocked copies and orders the subscriber set and removes once
// subscriptions before any handler runs.
func (b *Bus) snapshotLocked(eventType string) []*Subscription {
	subs := b.subscriptions[eventType]
	if len(subs) == 0 {
		return nil
	}

	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)
	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Priority != snapshot[j].Priority {
			return snapshot[i].Priority > snapshot[j].Priority
		}
		return snapshot[i].seq < snapshot[j].seq
	})

	for _, sub := range snapshot {
		if sub.Once {
			b.removeLocked(eventType, sub.ID)
		}
	}
	if b.metrics != nil {
		b.metrics.setActiveSubscriptions(b.activeCountLocked())
	}

	return snapshot
}

type pendingCompletion struct {
	sub     *Subscription
	pending Pending
}

func (b *Bus) fanOut(ctx context.Context, env events.Envelope, snapshot []*Subscription) error {
	var pendings []pendingCompletion

	for _, sub := range snapshot {
		pending, err := b.invoke(ctx, sub, env)
		if err != nil {
			b.recordHandlerFailure(sub, env, err)
			continue
		}
		if pending != nil {
			pendings = append(pendings, pendingCompletion{sub: sub, pending: pending})
			continue
		}
		b.hooks.onHandlerDone(HandlerContext{Envelope: env, SubscriptionID: sub.ID})
	}

	for _, pc := range pendings {
		select {
		case err := <-pc.pending:
			if err != nil {
				b.recordHandlerFailure(pc.sub, env, err)
			} else {
				b.hooks.onHandlerDone(HandlerContext{Envelope: env, SubscriptionID: pc.sub.ID})
			}
		case <-ctx.Done():
			// Handlers already started keep running; the emitter just
			// stops waiting for their completions.
			return ctx.Err()
		}
	}

	return nil
}

// invoke runs one handler, converting panics into handler failures so a
// misbehaving subscriber cannot abort the fan-out.
func (b *Bus) invoke(ctx context.Context, sub *Subscription, env events.Envelope) (pending Pending, err error) {
	defer func() {
		if r := recover(); r != nil {
			pending = nil
			err = panicToError(r)
		}
	}()
	return sub.handler(ctx, env.Payload, env.Meta)
}

func (b *Bus) recordHandlerFailure(sub *Subscription, env events.Envelope, err error) {
	b.mu.Lock()
	b.stats.handlerErrors++
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.observeHandlerError(env.Type)
	}
	b.logger.Error("Event handler failed", err, loggingpkg.LogFields{
		"event_type":      env.Type,
		"subscription_id": sub.ID,
		"correlation_id":  env.Meta.CorrelationID,
	})
	b.hooks.onHandlerError(HandlerContext{Envelope: env, SubscriptionID: sub.ID}, err)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("handler panicked: %w", err)
	}
	return fmt.Errorf("handler panicked: %v", r)
}

// GetHistory returns retained envelopes oldest first, optionally filtered by
// event type ("" matches all) and truncated to the last limit entries
// (0 means no limit).
func (b *Bus) GetHistory(eventType string, limit int) []events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.Snapshot(eventType, limit)
}

// ClearHistory drops retained envelopes, all of them or only one type's.
// Clearing an empty history is a no-op.
func (b *Bus) ClearHistory(eventType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history.Clear(eventType)
}

// GetStats returns a snapshot of the running counters.
func (b *Bus) GetStats() StatsSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	byType := make(map[string]uint64, len(b.stats.emittedByType))
	for k, v := range b.stats.emittedByType {
		byType[k] = v
	}
	return StatsSnapshot{
		TotalEmitted:        b.stats.totalEmitted,
		EmittedByType:       byType,
		ActiveSubscriptions: b.activeCountLocked(),
		HandlerErrors:       b.stats.handlerErrors,
		CollectedAt:         time.Now().UTC(),
	}
}

// ResetStats zeroes all counters.
func (b *Bus) ResetStats() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.reset()
}

// GetSubscriptions returns read-only views of the active subscriptions for
// one event type, or for all types when eventType is empty.
func (b *Bus) GetSubscriptions(eventType string) []SubscriptionInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []SubscriptionInfo
	appendSubs := func(subs []*Subscription) {
		for _, sub := range subs {
			out = append(out, SubscriptionInfo{
				ID:        sub.ID,
				EventType: sub.EventType,
				Priority:  sub.Priority,
				Once:      sub.Once,
			})
		}
	}

	if eventType != "" {
		appendSubs(b.subscriptions[eventType])
		return out
	}
	for _, subs := range b.subscriptions {
		appendSubs(subs)
	}
	return out
}

// CorrelationID returns the ambient correlation ID, or "" when none is set.
func (b *Bus) CorrelationID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.correlationID
}

// DefaultSource returns the provenance stamped by Emit.
func (b *Bus) DefaultSource() events.Source {
	return b.defaultSource
}

// SetCorrelationID sets the ambient correlation ID stamped onto subsequent
// emissions from this bus until cleared.
func (b *Bus) SetCorrelationID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.correlationID = id
}

// ClearCorrelationID removes the ambient correlation ID; emissions go back
// to generating a fresh one each.
func (b *Bus) ClearCorrelationID() {
	b.SetCorrelationID("")
}

// Destroy removes all subscriptions, clears history, and resets statistics.
// Idempotent; a destroyed bus ignores further emissions and registrations
// and is expected to be discarded.
func (b *Bus) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.destroyed = true
	b.subscriptions = make(map[string][]*Subscription)
	b.history.Clear("")
	b.stats.reset()
	b.correlationID = ""

	if b.metrics != nil {
		b.metrics.setActiveSubscriptions(0)
	}
}

func (b *Bus) activeCountLocked() int {
	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
