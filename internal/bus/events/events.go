// Package events defines the envelope carried through the bus together with
// the registry of well-known event names and their payload shapes. The
// registry is a contract, not a gate: subscribing to or emitting an unknown
// event name is legal, the constants below just keep call sites honest.
package events

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/drblury/crossbus/internal/bus/jsoncodec"
)

// Source tags where an event entered the current process's bus. It is
// provenance, not a routing address; its only behavioural role is loop
// prevention (SourceCrossProcess envelopes are never forwarded again).
type Source string

const (
	SourceBackend      Source = "backend"
	SourceFrontend     Source = "frontend"
	SourceCrossProcess Source = "cross-process"
)

// Valid reports whether the source is one of the three known provenance tags.
func (s Source) Valid() bool {
	switch s {
	case SourceBackend, SourceFrontend, SourceCrossProcess:
		return true
	}
	return false
}

// Meta carries the envelope metadata stamped at emission time.
type Meta struct {
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Source is the provenance tag of the emission.
	Source Source `json:"source"`

	// CorrelationID traces a causal chain of events. Inherited from the
	// emitting bus's ambient correlation ID when one is set, otherwise
	// freshly generated per emission.
	CorrelationID string `json:"correlationId,omitempty"`
}

// Envelope is the unit transported through the bus.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Meta    Meta   `json:"meta"`
}

// New constructs an envelope, stamping the current wall clock. An empty
// correlationID is replaced with a fresh one.
func New(eventType string, payload any, source Source, correlationID string) Envelope {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return Envelope{
		Type:    eventType,
		Payload: payload,
		Meta: Meta{
			Timestamp:     time.Now().UnixMilli(),
			Source:        source,
			CorrelationID: correlationID,
		},
	}
}

// Marshal encodes the envelope into its JSON wire form.
func (e Envelope) Marshal() ([]byte, error) {
	return jsoncodec.Marshal(e)
}

// wireEnvelope keeps the payload raw on decode so typed subscribers can
// unmarshal it into their own shape.
type wireEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Meta    Meta            `json:"meta"`
}

// Unmarshal decodes a wire envelope. The payload stays a json.RawMessage;
// use PayloadAs to project it onto a concrete type.
func Unmarshal(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := jsoncodec.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if wire.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type")
	}
	env := Envelope{Type: wire.Type, Meta: wire.Meta}
	if len(wire.Payload) > 0 {
		env.Payload = wire.Payload
	}
	return env, nil
}

// PayloadAs projects an envelope payload onto T. Payloads delivered locally
// are usually already a T; payloads that crossed the process boundary arrive
// as raw JSON and are unmarshalled. Anything else goes through an
// encode/decode round trip, which covers map[string]any payloads produced by
// untyped emitters.
func PayloadAs[T any](payload any) (T, error) {
	if typed, ok := payload.(T); ok {
		return typed, nil
	}

	var out T
	switch raw := payload.(type) {
	case nil:
		return out, nil
	case json.RawMessage:
		err := jsoncodec.Unmarshal(raw, &out)
		return out, err
	case []byte:
		err := jsoncodec.Unmarshal(raw, &out)
		return out, err
	}

	data, err := jsoncodec.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("convert payload: %w", err)
	}
	if err := jsoncodec.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("convert payload: %w", err)
	}
	return out, nil
}

const correlationIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCorrelationID returns an identifier of the form evt_<unixmillis>_<rand>,
// where <rand> is nine characters drawn from [a-z0-9].
func NewCorrelationID() string {
	var buf [9]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the platform's entropy source is
		// broken; fall back to the timestamp alone rather than panic.
		return fmt.Sprintf("evt_%d_%09d", time.Now().UnixMilli(), time.Now().UnixNano()%1e9)
	}
	for i, b := range buf {
		buf[i] = correlationIDAlphabet[int(b)%len(correlationIDAlphabet)]
	}
	return fmt.Sprintf("evt_%d_%s", time.Now().UnixMilli(), buf[:])
}
