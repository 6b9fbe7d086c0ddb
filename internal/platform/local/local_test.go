package local

import (
	"context"
	"testing"
	"time"

	"iquizu/internal/common"
	"iquizu/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueueOrder(t *testing.T) {
	ctx := context.Background()
	q := NewJobQueue()
	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))
	require.NoError(t, q.Requeue(ctx, "z"))

	for _, want := range []string{"z", "a", "b"} {
		got, err := q.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := q.Dequeue(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJobQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := NewJobQueue()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Enqueue(context.Background(), "late")
	}()
	got, err := q.Dequeue(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "late", got)
}

func TestJobQueueDequeueHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewJobQueue().Dequeue(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()

	release, ok, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)

	release(ctx)
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestLockerExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()
	staleRelease, ok, _ := l.Acquire(ctx, "k", time.Millisecond)
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)

	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	require.True(t, ok)

	// The expired holder must not free the new holder's lock.
	staleRelease(ctx)
	_, ok, _ = l.Acquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestEventBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewEventBus()

	events, unsubscribe, err := bus.Subscribe(ctx, "quiz-session:q:c")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.Publish(ctx, "quiz-session:q:c", model.SessionEvent{Type: model.SessionEventStarted}))
	require.NoError(t, bus.Publish(ctx, "other", model.SessionEvent{Type: model.SessionEventEnded}))

	select {
	case ev := <-events:
		assert.Equal(t, model.SessionEventStarted, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	_, open := <-events
	for open {
		_, open = <-events
	}
}

func TestKVTokensAreSingleUse(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()
	require.NoError(t, kv.Save(ctx, "digest", "user-1", time.Hour))

	uid, err := kv.Take(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)

	_, err = kv.Take(ctx, "digest")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewKV()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "dash", map[string]int{"n": 1}, time.Minute))
	var got map[string]int
	hit, err := kv.Get(ctx, "dash", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, got["n"])

	now = now.Add(2 * time.Minute)
	hit, err = kv.Get(ctx, "dash", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
