package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	md := New(KeyEventType, "settings:changed", KeyOriginSide, "backend")
	assert.Equal(t, "settings:changed", md[KeyEventType])
	assert.Equal(t, "backend", md[KeyOriginSide])
	assert.Len(t, md, 2)
}

func TestNew_OddPairsDropsTrailingKey(t *testing.T) {
	md := New("a", "1", "dangling")
	assert.Equal(t, Metadata{"a": "1"}, md)
}

func TestClone(t *testing.T) {
	original := New("a", "1")
	cloned := original.Clone()
	cloned["a"] = "2"

	assert.Equal(t, "1", original["a"])
	assert.Equal(t, "2", cloned["a"])
}

func TestWith(t *testing.T) {
	original := New("a", "1")
	extended := original.With("b", "2")

	assert.Len(t, original, 1)
	assert.Equal(t, "1", extended["a"])
	assert.Equal(t, "2", extended["b"])
}

func TestWatermillRoundTrip(t *testing.T) {
	md := New(KeyCorrelationID, "evt_1_abc", KeySentAt, "2026-01-01T00:00:00Z")

	wm := ToWatermill(md)
	assert.Equal(t, "evt_1_abc", wm.Get(KeyCorrelationID))

	back := FromWatermill(wm)
	assert.Equal(t, md, back)
}

func TestWatermillEmpty(t *testing.T) {
	assert.Empty(t, ToWatermill(nil))
	assert.Empty(t, FromWatermill(message.Metadata{}))
}
