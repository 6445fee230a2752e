package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/internal/handlers"
	"github.com/jwebster45206/gptstar/internal/services/events"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	url         string
	store       *storage.MockStorage
	broadcaster *events.Broadcaster
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMockStorage()
	b := events.NewBroadcaster(rdb, log)

	mux := http.NewServeMux()
	mux.Handle("/health", handlers.NewHealthHandler(store, nil, log))
	matches := handlers.NewMatchesHandler(store, log)
	mux.Handle("/v1/matches", matches)
	mux.Handle("/v1/matches/", matches)
	mux.Handle("/v1/events/matches/", handlers.NewEventsHandler(b, log))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testAPI{url: srv.URL, store: store, broadcaster: b}
}

func TestAPI_MatchAndDecisions(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	m := state.NewMatch("openai", "gpt-3.5-turbo", []string{"wait"})
	require.NoError(t, api.store.SaveMatch(ctx, m))
	rec := decision.NewRecord(m.ID, 0)
	rec.Action = "train a worker"
	require.NoError(t, api.store.AppendDecision(ctx, rec))

	client := &http.Client{Timeout: 5 * time.Second}
	require.True(t, testConnection(client, api.url))

	id, err := pickMatch(client, api.url, nil)
	require.NoError(t, err)
	assert.Equal(t, m.ID, id)

	got, err := getMatch(client, api.url, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)

	records, err := listDecisions(client, api.url, m.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "train a worker", records[0].Action)

	_, err = getMatch(client, api.url, uuid.New())
	assert.ErrorContains(t, err, "Match not found")
}

func TestPickMatch(t *testing.T) {
	api := newTestAPI(t)
	client := &http.Client{Timeout: 5 * time.Second}

	_, err := pickMatch(client, api.url, nil)
	assert.ErrorContains(t, err, "no matches found")

	_, err = pickMatch(client, api.url, []string{"bogus"})
	assert.ErrorContains(t, err, "invalid match id")

	id := uuid.New()
	got, err := pickMatch(client, api.url, []string{id.String()})
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestListenToSSE(t *testing.T) {
	api := newTestAPI(t)
	m := state.NewMatch("openai", "gpt", []string{"wait"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := make(chan events.Event, 4)
	done := make(chan error, 1)
	go func() { done <- listenToSSE(ctx, http.DefaultClient, api.url, m.ID, ch) }()

	// publish until the subscription is live; the stream skips "connected"
	var ev events.Event
	require.Eventually(t, func() bool {
		_ = api.broadcaster.PublishChat(ctx, m.ID, "gl hf")
		select {
		case ev = <-ch:
			return true
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)

	assert.Equal(t, events.EventTypeChatSent, ev.Type)
	assert.Equal(t, "gl hf", ev.Message)
	assert.Equal(t, m.ID.String(), ev.MatchID)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop")
	}
}
