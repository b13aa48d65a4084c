package http

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	wmhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/bridge"
)

type mockConfig struct {
	serverAddress string
	publisherURL  string
}

func (m *mockConfig) GetBridgeSystem() string       { return BridgeName }
func (m *mockConfig) GetNATSURL() string            { return "" }
func (m *mockConfig) GetJetStreamStream() string    { return "" }
func (m *mockConfig) GetHTTPServerAddress() string  { return m.serverAddress }
func (m *mockConfig) GetHTTPPublisherURL() string   { return m.publisherURL }
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
	assert.Equal(t, bridge.HTTPCapabilities, bridge.GetCapabilities(BridgeName))
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, "http", caps.Name)
	assert.True(t, caps.CrossHost)
}

func TestBuild_UsesFactories(t *testing.T) {
	originalPub := PublisherFactory
	originalSub := SubscriberFactory
	defer func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}()

	var subAddr string
	mockPub := &mockPublisher{}
	mockSub := &mockSubscriber{}

	PublisherFactory = func(cfg wmhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return mockPub, nil
	}
	SubscriberFactory = func(addr string, cfg wmhttp.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		subAddr = addr
		return mockSub, nil
	}

	cfg := &mockConfig{
		serverAddress: ":8089",
		publisherURL:  "http://localhost:8090/",
	}
	tr, err := Build(context.Background(), cfg, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, mockPub, tr.Publisher)
	assert.Equal(t, mockSub, tr.Subscriber)
	assert.Equal(t, ":8089", subAddr)
}

func TestBuild_SubscriberErrorPropagates(t *testing.T) {
	originalPub := PublisherFactory
	originalSub := SubscriberFactory
	defer func() {
		PublisherFactory = originalPub
		SubscriberFactory = originalSub
	}()

	expectedErr := errors.New("listen failed")
	PublisherFactory = func(cfg wmhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return &mockPublisher{}, nil
	}
	SubscriberFactory = func(addr string, cfg wmhttp.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nil, expectedErr
	}

	_, err := Build(context.Background(), &mockConfig{serverAddress: ":0"}, watermill.NopLogger{})
	assert.ErrorIs(t, err, expectedErr)
}
