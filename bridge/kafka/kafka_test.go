package kafka

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/bridge"
)

type mockConfig struct {
	brokers       []string
	consumerGroup string
}

func (m *mockConfig) GetBridgeSystem() string       { return BridgeName }
func (m *mockConfig) GetNATSURL() string            { return "" }
func (m *mockConfig) GetJetStreamStream() string    { return "" }
func (m *mockConfig) GetHTTPServerAddress() string  { return "" }
func (m *mockConfig) GetHTTPPublisherURL() string   { return "" }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetKafkaBrokers() []string     { return m.brokers }
func (m *mockConfig) GetKafkaConsumerGroup() string { return m.consumerGroup }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}
func (m *mockSubscriber) Close() error { return nil }

func TestRegisteredInDefaultRegistry(t *testing.T) {
	assert.True(t, bridge.DefaultRegistry.Has(BridgeName))
	assert.Equal(t, bridge.KafkaCapabilities, bridge.GetCapabilities(BridgeName))
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, "kafka", caps.Name)
	assert.True(t, caps.SupportsOrdering)
}

func TestBuild_UsesFactories(t *testing.T) {
	originalPub := PublisherFactory
	originalSub := SubscriberFactory
	defer func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}()

	var pubCfg wmkafka.PublisherConfig
	var subCfg wmkafka.SubscriberConfig
	mockPub := &mockPublisher{}
	mockSub := &mockSubscriber{}

	PublisherFactory = func(cfg wmkafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return mockPub, nil
	}
	SubscriberFactory = func(cfg wmkafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfg = cfg
		return mockSub, nil
	}

	cfg := &mockConfig{
		brokers:       []string{"broker1:9092", "broker2:9092"},
		consumerGroup: "crossbus-backend",
	}
	tr, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, mockPub, tr.Publisher)
	assert.Equal(t, mockSub, tr.Subscriber)
	assert.Equal(t, cfg.brokers, pubCfg.Brokers)
	assert.Equal(t, cfg.brokers, subCfg.Brokers)
	assert.Equal(t, "crossbus-backend", subCfg.ConsumerGroup)
}

func TestBuild_PublisherErrorPropagates(t *testing.T) {
	// no brokers makes the real publisher constructor fail fast
	_, err := Build(context.Background(), &mockConfig{}, watermill.NopLogger{})
	assert.Error(t, err)
}
