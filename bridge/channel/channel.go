// Package channel provides an in-memory Go channel bridge for crossbus.
// Both sides of the pair live in one process, which makes this backend the
// right choice for tests and for standalone mode where the privileged and
// sandboxed halves run co-located.
package channel

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/crossbus/bridge"
)

// BridgeName is the name used to register this backend.
const BridgeName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

var (
	sharedMu sync.Mutex
	shared   *gochannel.GoChannel
)

func init() {
	bridge.RegisterWithCapabilities(BridgeName, Build, bridge.ChannelCapabilities)
}

// Build returns a transport over a process-wide shared in-memory channel.
// Two adapters built in the same process therefore see each other, which is
// what makes the backend usable as a real bridge rather than a loopback.
func Build(ctx context.Context, cfg bridge.Config, logger watermill.LoggerAdapter) (bridge.Transport, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = gochannel.NewGoChannel(gochannel.Config{}, logger)
	}
	return bridge.Transport{
		Publisher:  shared,
		Subscriber: shared,
	}, nil
}

// Reset discards the shared channel so the next Build starts fresh.
// Intended for tests.
func Reset() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}

// NewPair wires two transports over one private in-memory channel, for
// callers that construct both adapters explicitly and do not want the
// process-wide shared instance.
func NewPair(logger watermill.LoggerAdapter) (bridge.Transport, bridge.Transport) {
	pub, sub := Factory(gochannel.Config{}, logger)
	t := bridge.Transport{Publisher: pub, Subscriber: sub}
	return t, t
}

// Capabilities returns the capabilities of this backend.
func Capabilities() bridge.Capabilities {
	return bridge.ChannelCapabilities
}
