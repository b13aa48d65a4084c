package nats

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/bridge"
)

type mockConfig struct {
	natsURL string
}

func (m *mockConfig) GetBridgeSystem() string       { return BridgeName }
func (m *mockConfig) GetNATSURL() string            { return m.natsURL }
func (m *mockConfig) GetJetStreamStream() string    { return "" }
func (m *mockConfig) GetHTTPServerAddress() string  { return "" }
func (m *mockConfig) GetHTTPPublisherURL() string   { return "" }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }

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
	assert.Equal(t, bridge.NATSCapabilities, bridge.GetCapabilities(BridgeName))
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, "nats", caps.Name)
	assert.True(t, caps.CrossHost)
}

func TestBuild_UsesFactories(t *testing.T) {
	originalPub := PublisherFactory
	originalSub := SubscriberFactory
	defer func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}()

	var pubCfg wmnats.PublisherConfig
	var subCfg wmnats.SubscriberConfig
	mockPub := &mockPublisher{}
	mockSub := &mockSubscriber{}

	PublisherFactory = func(cfg wmnats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return mockPub, nil
	}
	SubscriberFactory = func(cfg wmnats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfg = cfg
		return mockSub, nil
	}

	tr, err := Build(context.Background(), &mockConfig{natsURL: "nats://localhost:4222"}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, mockPub, tr.Publisher)
	assert.Equal(t, mockSub, tr.Subscriber)
	assert.Equal(t, "nats://localhost:4222", pubCfg.URL)
	assert.Equal(t, "nats://localhost:4222", subCfg.URL)
}

func TestBuild_UnreachableServer(t *testing.T) {
	_, err := Build(context.Background(), &mockConfig{natsURL: "nats://127.0.0.1:1"}, watermill.NopLogger{})
	assert.Error(t, err)
}
