/*
Package bus implements the crossbus event dispatcher and its cross-process
adapters.

# Architecture Overview

One Bus per process side dispatches typed events to prioritised subscribers
with per-handler failure isolation, bounded history, and running statistics.
An Adapter wraps a Bus and connects it to the counterpart side over a bridge
transport; a Binding scopes subscriptions to a UI component's lifetime.

# Package Structure

## Engine (engine.go, models.go)

Subscription storage, the priority-ordered fan-out with once semantics, the
history ring, counters, correlation IDs, and destroy.

The fan-out contract: the subscriber snapshot is sorted (priority descending,
registration order on ties) and once-subscriptions are removed under the bus
mutex before any handler runs. Handlers start sequentially; Pending
completions are joined only after the last handler has started; every
failure, synchronous, asynchronous, or panic, is isolated and counted.

## Adapters (adapter.go)

Forwarding of locally sourced envelopes to the counterpart topic, ingestion
of bridged envelopes re-emitted with source=cross-process (which is what
breaks the echo loop), best-effort subscribe announcements, and the
degrade-gracefully path when no bridge is available.

## Binding (binding.go)

Mount/unmount scoped subscriptions plus the observable views (Latest,
Window, Events) derived from bus queries.

## Hooks & Metrics (hooks.go, metrics.go)

Emission lifecycle callbacks (logging, plain counters, OpenTelemetry spans)
and the Prometheus collectors.

# Sub-packages

  - events/: envelope, provenance tags, well-known event names and payloads
  - config/: adapter configuration with env parsing and validation
  - errors/: sentinel errors
  - ids/: ULID generation for subscription and bridge-message IDs
  - jsoncodec/: JSON marshaling for the wire format
  - logging/: logger interface and adapters
  - metadata/: bridge message headers
*/
package bus
