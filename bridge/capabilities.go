package bridge

// Capabilities describes what a bridge backend offers beyond the required
// at-most-once, in-order contract. Use this to introspect what a deployment
// can rely on at runtime.
type Capabilities struct {
	// SupportsOrdering indicates messages are delivered in publish order.
	SupportsOrdering bool

	// SupportsAck indicates the backend supports explicit acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the backend supports redelivery on failure.
	SupportsNack bool

	// SupportsTracing indicates tracing headers propagate natively.
	SupportsTracing bool

	// CrossHost indicates the backend can bridge sides running on
	// different machines, not just two processes on one host.
	CrossHost bool

	// MaxMessageSize is the maximum message size in bytes (0 = unknown).
	MaxMessageSize int64

	// Name is the human-readable name of the backend.
	Name string
}

// ReliableDelivery returns true when the backend supports at-least-once
// semantics (ack + nack). The bus itself never requires this.
func (c Capabilities) ReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the bundled backends.
var (
	// ChannelCapabilities for the in-memory Go channel bridge.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	// NATSCapabilities for the NATS Core bridge.
	NATSCapabilities = Capabilities{
		Name:            "nats",
		SupportsTracing: true,
		CrossHost:       true,
		MaxMessageSize:  1048576,
	}

	// JetStreamCapabilities for the NATS JetStream bridge.
	JetStreamCapabilities = Capabilities{
		Name:             "jetstream",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsTracing:  true,
		CrossHost:        true,
		MaxMessageSize:   1048576,
	}

	// HTTPCapabilities for the localhost HTTP bridge.
	HTTPCapabilities = Capabilities{
		Name:            "http",
		SupportsTracing: true,
		CrossHost:       true,
	}

	// RabbitMQCapabilities for the RabbitMQ/AMQP bridge.
	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsTracing:  true,
		CrossHost:        true,
	}

	// KafkaCapabilities for the Kafka bridge.
	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsTracing:  true,
		CrossHost:        true,
		MaxMessageSize:   1048576,
	}
)

// GetCapabilities returns the capabilities for a backend by name, using the
// default registry. Returns a zero Capabilities struct for unknown names.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
