package bus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/crossbus/bridge"
	configpkg "github.com/drblury/crossbus/internal/bus/config"
	errspkg "github.com/drblury/crossbus/internal/bus/errors"
	"github.com/drblury/crossbus/internal/bus/events"
	"github.com/drblury/crossbus/internal/bus/ids"
	"github.com/drblury/crossbus/internal/bus/jsoncodec"
	loggingpkg "github.com/drblury/crossbus/internal/bus/logging"
	metadatapkg "github.com/drblury/crossbus/internal/bus/metadata"
)

// Announcement is the best-effort subscribe signal one side publishes on the
// bridge when a local subscription is created, so the counterpart can see
// which event types are of interest over there.
type Announcement struct {
	EventType string        `json:"eventType"`
	Side      events.Source `json:"side"`
}

// AdapterDependencies holds the optional collaborators an Adapter can use.
type AdapterDependencies struct {
	// Transport overrides the registry-built bridge. Useful with
	// channel.NewPair and in tests.
	Transport *bridge.Transport
	// Registry defaults to bridge.DefaultRegistry.
	Registry *bridge.Registry
	// Metrics enables Prometheus collection when non-nil.
	Metrics *Metrics
	// Hooks are merged into the bus's emission hooks.
	Hooks EmitHooks
}

// Adapter wraps one Bus instance with cross-process behaviour: forwarding of
// locally emitted events across the bridge, and ingestion of counterpart
// events re-emitted locally with source=cross-process.
//
// The two sides are symmetric in responsibility; only their provenance tag
// and trust level differ. An adapter owns its Bus and its bridge transport.
type Adapter struct {
	*Bus

	conf   *configpkg.Config
	logger loggingpkg.ServiceLogger
	side   events.Source

	metrics  *Metrics
	registry *bridge.Registry
	override *bridge.Transport

	mu              sync.Mutex
	transport       *bridge.Transport
	ownsTransport   bool
	cancel          context.CancelFunc
	initialized     bool
	destroyed       bool
	remoteInterests map[string]int
}

// NewAdapter constructs the adapter for one process side. Call Initialize
// before relying on cross-process forwarding; the adapter works local-only
// until then.
func NewAdapter(conf *configpkg.Config, logger loggingpkg.ServiceLogger, deps AdapterDependencies) (*Adapter, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	side, err := parseSide(conf.Side)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	logger = logger.With(loggingpkg.LogFields{"side": side})

	opts := []Option{
		WithDefaultSource(side),
		WithMaxHistory(conf.HistorySize()),
		WithHooks(deps.Hooks),
	}

	var metrics *Metrics
	if conf.MetricsEnabled || deps.Metrics != nil {
		metrics = deps.Metrics
		if metrics == nil {
			metrics = NewMetrics(nil)
		}
		if err := metrics.Register(); err != nil {
			return nil, err
		}
		opts = append(opts, WithMetrics(metrics))
	}

	registry := deps.Registry
	if registry == nil {
		registry = bridge.DefaultRegistry
	}

	return &Adapter{
		Bus:             New(logger, opts...),
		conf:            conf,
		logger:          logger,
		side:            side,
		metrics:         metrics,
		registry:        registry,
		override:        deps.Transport,
		remoteInterests: make(map[string]int),
	}, nil
}

func parseSide(side string) (events.Source, error) {
	switch strings.ToLower(side) {
	case "backend":
		return events.SourceBackend, nil
	case "frontend":
		return events.SourceFrontend, nil
	}
	return "", errspkg.ErrSideRequired
}

// Side returns the provenance tag of this process side.
func (a *Adapter) Side() events.Source {
	return a.side
}

// Bridged reports whether a bridge transport is currently attached.
func (a *Adapter) Bridged() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transport != nil
}

// Initialize performs the idempotent bridge setup. When no bridge backend is
// configured, or the configured one cannot be built, the adapter logs once
// and keeps operating as a local-only bus; local On and Emit behave
// identically either way.
func (a *Adapter) Initialize(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized || a.destroyed {
		return
	}
	a.initialized = true

	transport := a.override
	owns := false
	if transport == nil {
		if a.conf.BridgeSystem == "" {
			a.logger.Info("No bridge configured, running local-only", nil)
			return
		}
		built, err := a.registry.Build(ctx, a.conf, loggingpkg.NewWatermillAdapter(a.logger))
		if err != nil {
			a.logger.Error("Bridge unavailable, continuing local-only", err, loggingpkg.LogFields{
				"bridge": a.conf.BridgeSystem,
			})
			return
		}
		transport = &built
		owns = true
	}

	consumerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	inbound, err := transport.Subscriber.Subscribe(consumerCtx, bridge.EventsTopic(string(a.side)))
	if err != nil {
		cancel()
		a.logger.Error("Bridge subscribe failed, continuing local-only", err, loggingpkg.LogFields{
			"bridge": a.conf.BridgeSystem,
		})
		return
	}

	announcements, err := transport.Subscriber.Subscribe(consumerCtx, bridge.AnnounceTopic)
	if err != nil {
		// Announcements are hints; inbound events still flow without them.
		a.logger.Debug("Announce subscribe failed", loggingpkg.LogFields{"error": err.Error()})
	}

	a.transport = transport
	a.ownsTransport = owns
	a.cancel = cancel

	go a.consumeInbound(consumerCtx, inbound)
	if announcements != nil {
		go a.consumeAnnouncements(consumerCtx, announcements)
	}

	backend := a.conf.BridgeSystem
	if backend == "" {
		backend = "custom"
	}
	a.logger.Info("Bridge attached", loggingpkg.LogFields{"bridge": backend})
	go a.Bus.EmitFrom(context.WithoutCancel(ctx), events.BridgeConnected, events.BridgeStatePayload{
		Side:    a.side,
		Backend: backend,
	}, a.side)
}

// consumeInbound re-emits counterpart envelopes into the local bus tagged
// cross-process, which is what prevents them from being forwarded again.
func (a *Adapter) consumeInbound(ctx context.Context, msgs <-chan *message.Message) {
	for msg := range msgs {
		env, err := events.Unmarshal(msg.Payload)
		if err != nil {
			a.logger.Error("Dropping undecodable bridge message", err, loggingpkg.LogFields{
				"message_uuid": msg.UUID,
			})
			msg.Ack()
			continue
		}

		env.Meta.Source = events.SourceCrossProcess
		if a.metrics != nil {
			a.metrics.observeReceived(env.Type)
		}

		if err := a.Bus.EmitEnvelope(ctx, env); err != nil {
			a.logger.Error("Re-emit of bridged event interrupted", err, loggingpkg.LogFields{
				"event_type": env.Type,
			})
		}
		msg.Ack()
	}
}

func (a *Adapter) consumeAnnouncements(ctx context.Context, msgs <-chan *message.Message) {
	for msg := range msgs {
		var ann Announcement
		if err := jsoncodec.Unmarshal(msg.Payload, &ann); err == nil && ann.Side != a.side && ann.EventType != "" {
			a.mu.Lock()
			a.remoteInterests[ann.EventType]++
			a.mu.Unlock()
		}
		msg.Ack()
	}
}

// RemoteInterests lists event types the counterpart side has announced
// subscriptions for. Purely informational.
func (a *Adapter) RemoteInterests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, 0, len(a.remoteInterests))
	for eventType := range a.remoteInterests {
		out = append(out, eventType)
	}
	return out
}

// On registers a local handler and, when announcements are enabled,
// publishes a best-effort subscribe signal to the counterpart. The
// subscription succeeds regardless of the signal's fate.
func (a *Adapter) On(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	sub := a.Bus.On(eventType, handler, opts...)
	if sub != nil && a.conf.AnnounceSubscriptions {
		a.announce(eventType)
	}
	return sub
}

// Once registers a one-shot local handler; see On.
func (a *Adapter) Once(eventType string, handler Handler, opts ...SubscribeOption) *Subscription {
	return a.On(eventType, handler, append(opts, WithOnce())...)
}

func (a *Adapter) announce(eventType string) {
	a.mu.Lock()
	transport := a.transport
	a.mu.Unlock()
	if transport == nil {
		return
	}

	go func() {
		data, err := jsoncodec.Marshal(Announcement{EventType: eventType, Side: a.side})
		if err != nil {
			return
		}
		msg := message.NewMessage(ids.CreateULID(), data)
		msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
			metadatapkg.KeyEventType, eventType,
			metadatapkg.KeyOriginSide, string(a.side),
		))
		if err := transport.Publisher.Publish(bridge.AnnounceTopic, msg); err != nil {
			a.logger.Debug("Subscribe announcement failed", loggingpkg.LogFields{
				"event_type": eventType,
				"error":      err.Error(),
			})
		}
	}()
}

// Emit dispatches locally with this side's provenance, then forwards across
// the bridge. Local handlers see the event first; the returned error tracks
// only the local emission (forwarding is fire-and-forget).
func (a *Adapter) Emit(ctx context.Context, eventType string, payload any) error {
	return a.EmitFrom(ctx, eventType, payload, a.side)
}

// EmitAndWait is an alias for Emit, retained for call-site clarity.
func (a *Adapter) EmitAndWait(ctx context.Context, eventType string, payload any) error {
	return a.Emit(ctx, eventType, payload)
}

// EmitFrom dispatches with an explicit provenance tag. Only envelopes whose
// source equals this adapter's own side are forwarded; cross-process
// envelopes are never forwarded again, which breaks the echo loop between
// two adapters.
func (a *Adapter) EmitFrom(ctx context.Context, eventType string, payload any, source events.Source) error {
	if eventType == "" {
		return nil
	}

	env := events.New(eventType, payload, source, a.Bus.CorrelationID())
	err := a.Bus.EmitEnvelope(ctx, env)

	if source == a.side {
		a.forward(env)
	}
	return err
}

func (a *Adapter) forward(env events.Envelope) {
	a.mu.Lock()
	transport := a.transport
	a.mu.Unlock()
	if transport == nil {
		return
	}

	go func() {
		data, err := env.Marshal()
		if err != nil {
			a.logger.Error("Envelope marshal failed, not forwarding", err, loggingpkg.LogFields{
				"event_type": env.Type,
			})
			return
		}

		msg := message.NewMessage(ids.CreateULID(), data)
		msg.Metadata = metadatapkg.ToWatermill(metadatapkg.New(
			metadatapkg.KeyEventType, env.Type,
			metadatapkg.KeyOriginSide, string(a.side),
			metadatapkg.KeyCorrelationID, env.Meta.CorrelationID,
			metadatapkg.KeySentAt, time.Now().UTC().Format(time.RFC3339Nano),
		))

		topic := bridge.EventsTopic(string(counterpart(a.side)))
		if err := transport.Publisher.Publish(topic, msg); err != nil {
			a.logger.Error("Bridge forward failed", err, loggingpkg.LogFields{
				"event_type": env.Type,
				"topic":      topic,
			})
			return
		}
		if a.metrics != nil {
			a.metrics.observeForwarded(env.Type)
		}
	}()
}

func counterpart(side events.Source) events.Source {
	if side == events.SourceBackend {
		return events.SourceFrontend
	}
	return events.SourceBackend
}

// Destroy detaches the bridge listeners, closes the transport, and destroys
// the underlying bus. Idempotent.
func (a *Adapter) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	cancel := a.cancel
	transport := a.transport
	owns := a.ownsTransport
	a.cancel = nil
	a.transport = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Caller-supplied transports stay open; the caller owns their lifecycle
	// (channel.NewPair feeds the same transport to both adapters).
	if transport != nil && owns {
		if err := transport.Subscriber.Close(); err != nil {
			a.logger.Debug("Bridge subscriber close failed", loggingpkg.LogFields{"error": err.Error()})
		}
		if err := transport.Publisher.Close(); err != nil {
			a.logger.Debug("Bridge publisher close failed", loggingpkg.LogFields{"error": err.Error()})
		}
	}

	a.Bus.Destroy()
}
