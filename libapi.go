package crossbus

import (
	"context"

	"github.com/drblury/crossbus/bridge"
	buspkg "github.com/drblury/crossbus/internal/bus"
	configpkg "github.com/drblury/crossbus/internal/bus/config"
	errspkg "github.com/drblury/crossbus/internal/bus/errors"
	"github.com/drblury/crossbus/internal/bus/events"
	idspkg "github.com/drblury/crossbus/internal/bus/ids"
	jsoncodec "github.com/drblury/crossbus/internal/bus/jsoncodec"
	loggingpkg "github.com/drblury/crossbus/internal/bus/logging"
	metadatapkg "github.com/drblury/crossbus/internal/bus/metadata"
)

type (
	Config = configpkg.Config

	Bus             = buspkg.Bus
	Option          = buspkg.Option
	Adapter         = buspkg.Adapter
	AdapterDeps     = buspkg.AdapterDependencies
	Binding         = buspkg.Binding
	Emitter         = buspkg.Emitter
	Subscriber      = buspkg.Subscriber
	Latest          = buspkg.Latest
	Window          = buspkg.Window
	Announcement    = buspkg.Announcement
	Handler         = buspkg.Handler
	Pending         = buspkg.Pending
	SubscribeOption = buspkg.SubscribeOption
	Subscription    = buspkg.Subscription

	SubscriptionInfo = buspkg.SubscriptionInfo
	StatsSnapshot    = buspkg.StatsSnapshot

	Envelope = events.Envelope
	Meta     = events.Meta
	Source   = events.Source

	EmitContext    = buspkg.EmitContext
	HandlerContext = buspkg.HandlerContext
	EmitHooks      = buspkg.EmitHooks
	Metrics        = buspkg.Metrics

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	// Modular bridge types. Import individual backends via:
	//   _ "github.com/drblury/crossbus/bridge/nats"
	BridgeTransport    = bridge.Transport
	BridgeBuilder      = bridge.Builder
	BridgeConfig       = bridge.Config
	BridgeRegistry     = bridge.Registry
	BridgeCapabilities = bridge.Capabilities
)

// BridgeAnnounceTopic carries subscription announcements between sides.
const BridgeAnnounceTopic = bridge.AnnounceTopic

// Event provenance tags.
const (
	SourceBackend      = events.SourceBackend
	SourceFrontend     = events.SourceFrontend
	SourceCrossProcess = events.SourceCrossProcess
)

var (
	NewBus         = buspkg.New
	NewAdapter     = buspkg.NewAdapter
	NewBinding     = buspkg.NewBinding
	ConfigFromEnv  = configpkg.FromEnv
	ValidateConfig = configpkg.ValidateConfig

	WithMaxHistory    = buspkg.WithMaxHistory
	WithHooks         = buspkg.WithHooks
	WithMetrics       = buspkg.WithMetrics
	WithDefaultSource = buspkg.WithDefaultSource

	WithPriority = buspkg.WithPriority
	WithOnce     = buspkg.WithOnce

	Sync  = buspkg.Sync
	Async = buspkg.Async

	// Emission lifecycle hooks
	LoggingHooks = buspkg.LoggingHooks
	MetricsHooks = buspkg.MetricsHooks
	TracingHooks = buspkg.TracingHooks
	NewMetrics   = buspkg.NewMetrics

	// Envelope helpers
	NewEnvelope       = events.New
	UnmarshalEnvelope = events.Unmarshal
	NewCorrelationID  = events.NewCorrelationID

	// Modular bridge registry
	DefaultBridgeRegistry = bridge.DefaultRegistry
	RegisterBridge        = bridge.Register
	BuildBridge           = bridge.Build
	GetBridgeCapabilities = bridge.GetCapabilities
	BridgeEventsTopic     = bridge.EventsTopic

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrBusRequired       = errspkg.ErrBusRequired
	ErrAdapterRequired   = errspkg.ErrAdapterRequired
	ErrHandlerRequired   = errspkg.ErrHandlerRequired
	ErrEventTypeRequired = errspkg.ErrEventTypeRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrSideRequired      = errspkg.ErrSideRequired
	ErrBusDestroyed      = errspkg.ErrBusDestroyed

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NopLogger            = loggingpkg.Nop
	// NewWatermillLogger adapts a ServiceLogger for bridge backends, which
	// speak Watermill's logger interface.
	NewWatermillLogger = loggingpkg.NewWatermillAdapter

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Well-known event names shipped with the library. Applications are free to
// define their own; these cover the app/window/settings lifecycle.
const (
	EventAppReady        = events.AppReady
	EventAppBeforeQuit   = events.AppBeforeQuit
	EventSettingsChanged = events.SettingsChanged
	EventThemeChanged    = events.ThemeChanged
	EventWindowMinimized = events.WindowMinimized
	EventWindowMaximized = events.WindowMaximized
	EventWindowRestored  = events.WindowRestored
	EventWindowFocused   = events.WindowFocused
	EventWindowBlurred   = events.WindowBlurred
	EventWindowClosed    = events.WindowClosed
	EventLogEntry        = events.LogEntry

	EventBridgeConnected    = events.BridgeConnected
	EventBridgeDisconnected = events.BridgeDisconnected
)

// Well-known payload shapes for the events above.
type (
	SettingsChangedPayload = events.SettingsChangedPayload
	ThemeChangedPayload    = events.ThemeChangedPayload
	WindowStatePayload     = events.WindowStatePayload
	LogEntryPayload        = events.LogEntryPayload
	BridgeStatePayload     = events.BridgeStatePayload
)

// OnEvent subscribes a typed synchronous handler: the envelope payload is
// decoded into T before fn runs, and a payload that cannot be decoded counts
// as a handler failure.
func OnEvent[T any](bus Subscriber, eventType string, fn func(ctx context.Context, payload T, meta Meta) error, opts ...SubscribeOption) *Subscription {
	return buspkg.OnEvent[T](bus, eventType, fn, opts...)
}

// OnEventAsync is OnEvent with the handler running on its own goroutine;
// its result is joined when the emission settles.
func OnEventAsync[T any](bus Subscriber, eventType string, fn func(ctx context.Context, payload T, meta Meta) error, opts ...SubscribeOption) *Subscription {
	return buspkg.OnEventAsync[T](bus, eventType, fn, opts...)
}

// PayloadAs decodes an envelope payload into T, handling both in-process
// values and JSON payloads that arrived over a bridge.
func PayloadAs[T any](payload any) (T, error) {
	return events.PayloadAs[T](payload)
}
