package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/gptstar/internal/services/events"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseFrame struct {
	event string
	data  string
}

func readFrame(t *testing.T, r *bufio.Reader) sseFrame {
	t.Helper()
	var f sseFrame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && f.event != "":
			return f
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	b := events.NewBroadcaster(client, testLogger(t))

	srv := httptest.NewServer(NewEventsHandler(b, testLogger(t)))
	t.Cleanup(srv.Close)

	m := state.NewMatch("openai", "gpt", []string{"wait"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/matches/"+m.ID.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	connected := readFrame(t, reader)
	assert.Equal(t, "connected", connected.event)
	assert.Contains(t, connected.data, m.ID.String())

	rec := decision.NewRecord(m.ID, 3)
	rec.Action = "build barracks"
	require.NoError(t, b.PublishDecision(ctx, rec))

	frame := readFrame(t, reader)
	assert.Equal(t, string(events.EventTypeTickDecided), frame.event)

	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(frame.data), &ev))
	require.NotNil(t, ev.Decision)
	assert.Equal(t, "build barracks", ev.Decision.Action)
	assert.Equal(t, 3, ev.Decision.Iteration)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	handler := NewEventsHandler(events.NewBroadcaster(client, testLogger(t)), testLogger(t))

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"wrong method", http.MethodPost, "/v1/events/matches/6ba7b810-9dad-11d1-80b4-00c04fd430c8", http.StatusMethodNotAllowed},
		{"bad path", http.MethodGet, "/v1/events/games/6ba7b810-9dad-11d1-80b4-00c04fd430c8", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/v1/events/matches/nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
