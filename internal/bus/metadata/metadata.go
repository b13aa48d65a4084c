// Package metadata models the string headers attached to bridge messages.
package metadata

// Standard keys stamped onto every message that crosses the bridge.
const (
	KeyEventType     = "crossbus_event_type"
	KeyOriginSide    = "crossbus_origin_side"
	KeyCorrelationID = "crossbus_correlation_id"
	KeySentAt        = "crossbus_sent_at"
)

// Metadata represents the headers carried alongside a bridged envelope.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
