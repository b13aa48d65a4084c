// Package bridge defines the bridging channel connecting the two process
// sides of a crossbus deployment. A bridge is an opaque publisher/subscriber
// pair; the bus requires only at-most-once, in-order delivery of each
// individually sent message. Each backend implementation (channel, nats,
// jetstream, http, rabbitmq, kafka) lives in its own sub-package and
// registers itself with the bridge registry.
package bridge

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines the publisher and subscriber pair produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder is the function signature for creating a bridge from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by bridge backends. The
// interface lets each backend read only the keys it cares about without
// depending on the full config package.
type Config interface {
	// GetBridgeSystem returns the bridge backend name.
	GetBridgeSystem() string

	// NATS / JetStream
	GetNATSURL() string
	GetJetStreamStream() string

	// HTTP
	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string

	// RabbitMQ
	GetRabbitMQURL() string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaConsumerGroup() string
}

// AnnounceTopic carries best-effort subscribe announcements between sides.
const AnnounceTopic = "crossbus.subscriptions"

// EventsTopic returns the inbound topic for the given side. The counterpart
// publishes forwarded envelopes to the destination side's topic.
func EventsTopic(side string) string {
	return "crossbus.events." + side
}
