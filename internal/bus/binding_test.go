package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/crossbus/internal/bus/events"
)

func TestBinding_TracksSubscriptions(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	binding.On("a", Sync(noopHandler))
	binding.On("b", Sync(noopHandler))
	binding.Once("c", Sync(noopHandler))

	assert.Equal(t, 3, binding.Subscriptions())
	assert.Len(t, b.GetSubscriptions(""), 3)
}

func TestBinding_UnbindReleasesEverything(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	// a subscription made directly on the bus must survive the unbind
	b.On("a", Sync(noopHandler))

	binding := NewBinding(b)
	binding.On("a", Sync(noopHandler))
	binding.On("b", Sync(noopHandler))

	binding.Unbind()
	binding.Unbind()

	assert.Zero(t, binding.Subscriptions())
	assert.Len(t, b.GetSubscriptions("a"), 1)
	assert.Empty(t, b.GetSubscriptions("b"))
}

func TestBinding_SubscribeAfterUnbindIsNoOp(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	binding.Unbind()

	assert.Nil(t, binding.On("a", Sync(noopHandler)))
	assert.Empty(t, b.GetSubscriptions("a"))
}

func TestBinding_Off(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	sub := binding.On("a", Sync(noopHandler))
	binding.Off("a", sub)

	assert.Zero(t, binding.Subscriptions())
	assert.Empty(t, b.GetSubscriptions("a"))
}

func TestBinding_EmitAndQueries(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	calls := 0
	binding.On("evt", Sync(func(ctx context.Context, payload any, meta events.Meta) error {
		calls++
		return nil
	}))

	require.NoError(t, binding.Emit(context.Background(), "evt", "x"))
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), binding.Stats().TotalEmitted)
	assert.Len(t, binding.History("evt", 0), 1)
}

func TestBinding_Latest(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	// seeded from history recorded before the binding existed
	require.NoError(t, b.Emit(context.Background(), "theme:changed", "light"))

	binding := NewBinding(b)
	latest := binding.Latest("theme:changed")

	env, ok := latest.Get()
	require.True(t, ok)
	assert.Equal(t, "light", env.Payload)

	require.NoError(t, b.Emit(context.Background(), "theme:changed", "dark"))
	env, ok = latest.Get()
	require.True(t, ok)
	assert.Equal(t, "dark", env.Payload)
}

func TestBinding_LatestEmpty(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	_, ok := binding.Latest("never:emitted").Get()
	assert.False(t, ok)
}

func TestBinding_Window(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	window := binding.Window("evt", 3)

	for _, payload := range []int{1, 2, 3, 4, 5} {
		require.NoError(t, b.Emit(context.Background(), "evt", payload))
	}

	got := window.Get()
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[0].Payload)
	assert.Equal(t, 5, got[2].Payload)
}

func TestBinding_WindowSeededFromHistory(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	require.NoError(t, b.Emit(context.Background(), "evt", "old"))

	binding := NewBinding(b)
	window := binding.Window("evt", 10)

	got := window.Get()
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Payload)
}

func TestBinding_Events(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	feed := binding.Events("evt", 4)

	require.NoError(t, b.Emit(context.Background(), "evt", "one"))
	require.NoError(t, b.Emit(context.Background(), "evt", "two"))

	select {
	case env := <-feed:
		assert.Equal(t, "one", env.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a buffered envelope")
	}
	select {
	case env := <-feed:
		assert.Equal(t, "two", env.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a buffered envelope")
	}

	binding.Unbind()
	_, open := <-feed
	assert.False(t, open, "Unbind closes the feed")
}

func TestBinding_StopsObservingAfterUnbind(t *testing.T) {
	b := New(nil)
	defer b.Destroy()

	binding := NewBinding(b)
	latest := binding.Latest("evt")
	binding.Unbind()

	require.NoError(t, b.Emit(context.Background(), "evt", "after"))
	_, ok := latest.Get()
	assert.False(t, ok)
}
