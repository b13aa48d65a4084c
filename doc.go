// Package crossbus is a typed event bus for applications split across two
// process sides (a backend and a frontend). It dispatches events to
// prioritised subscribers with once semantics, bounded per-type history,
// running statistics, and per-handler failure isolation, and optionally
// forwards events between the two sides over a pluggable bridge transport.
//
// A Bus alone covers the in-process case: subscribe with On/Once (ordering
// is priority descending, registration order on ties), emit with Emit or
// EmitAndWait, inspect with GetHistory, GetStats, and GetSubscriptions.
// Handlers are isolated: a handler that returns an error or panics never
// prevents the remaining handlers from running.
//
// An Adapter wraps a Bus for one side and connects it to the counterpart
// process through a bridge backend. Locally sourced events are forwarded to
// the other side; events arriving over the bridge are re-emitted locally
// tagged with the cross-process source, which is also what stops them from
// being forwarded again. When no bridge is configured or the backend fails
// to connect, the adapter degrades to local-only dispatch.
//
// # Bridge Backends
//
// Crossbus ships 6 bridge backends out of the box:
//   - channel: In-memory Go channels for single-process setups and testing
//   - nats: Core NATS messaging
//   - jetstream: NATS JetStream with durable consumers
//   - http: Request-based messaging between local HTTP endpoints
//   - rabbitmq: AMQP-based durable queues
//   - kafka: Partitioned log with consumer groups
//
// Backends self-register on import:
//
//	import _ "github.com/drblury/crossbus/bridge/nats"
//
// # Observability
//
// Emission lifecycle hooks (LoggingHooks, MetricsHooks, TracingHooks) attach
// structured logging, plain counters, or OpenTelemetry spans to every emit;
// NewMetrics exposes Prometheus collectors for emissions, handler errors,
// forwarded/received counts, and active subscriptions.
//
// # Bindings
//
// A Binding scopes subscriptions to a component's lifetime: everything
// registered through it is released by a single Unbind call, and it derives
// observable views (Latest, Window, Events) from the bus for UI code.
package crossbus
