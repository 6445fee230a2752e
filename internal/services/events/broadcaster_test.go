package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, "match-events:6ba7b810-9dad-11d1-80b4-00c04fd430c8", Channel(id))
}

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := state.NewMatch("openai", "gpt", []string{"wait"})
	sub, err := b.Subscribe(ctx, m.ID)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	require.NoError(t, b.PublishMatchStarted(ctx, m))

	rec := decision.NewRecord(m.ID, 0)
	rec.Action = "train a worker"
	rec.Reasoning = "More minerals."
	require.NoError(t, b.PublishDecision(ctx, rec))
	require.NoError(t, b.PublishChat(ctx, m.ID, "More minerals."))

	ev := receive(t, sub)
	assert.Equal(t, EventTypeMatchStarted, ev.Type)
	assert.Equal(t, m.ID.String(), ev.MatchID)
	require.NotNil(t, ev.Match)
	assert.Equal(t, m.ID, ev.Match.ID)

	ev = receive(t, sub)
	assert.Equal(t, EventTypeTickDecided, ev.Type)
	require.NotNil(t, ev.Decision)
	assert.Equal(t, "train a worker", ev.Decision.Action)

	ev = receive(t, sub)
	assert.Equal(t, EventTypeChatSent, ev.Type)
	assert.Equal(t, "More minerals.", ev.Message)
}

func TestBroadcaster_OtherMatchesAreIsolated(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched := uuid.New()
	sub, err := b.Subscribe(ctx, watched)
	require.NoError(t, err)

	require.NoError(t, b.PublishChat(ctx, uuid.New(), "not for you"))
	require.NoError(t, b.PublishChat(ctx, watched, "for you"))

	ev := receive(t, sub)
	assert.Equal(t, "for you", ev.Message)
}

func TestSubscription_ClosesWithContext(t *testing.T) {
	b, _ := setupBroadcaster(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not close")
	}
}

func TestBroadcaster_PublishFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer func() { _ = client.Close() }()
	b := NewBroadcaster(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := b.PublishChat(context.Background(), uuid.New(), "lost")
	assert.Error(t, err)
}
