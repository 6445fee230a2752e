package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
	"github.com/jwebster45206/gptstar/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJournal(t *testing.T) (*storage.MockStorage, *state.Match) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMockStorage()

	older := state.NewMatch("openai", "gpt-3.5-turbo", []string{"wait"})
	older.StartedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveMatch(ctx, older))

	m := state.NewMatch("ollama", "llama3", []string{"wait", "train a worker"})
	require.NoError(t, store.SaveMatch(ctx, m))

	for i := range 5 {
		rec := decision.NewRecord(m.ID, i)
		rec.Action = "wait"
		require.NoError(t, store.AppendDecision(ctx, rec))
	}
	return store, m
}

func TestMatchesHandler_List(t *testing.T) {
	store, latest := seedJournal(t)
	handler := NewMatchesHandler(store, testLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var matches []*state.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, latest.ID, matches[0].ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	assert.Len(t, matches, 1)
}

func TestMatchesHandler_Read(t *testing.T) {
	store, m := seedJournal(t)
	handler := NewMatchesHandler(store, testLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/"+m.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got state.Match
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "llama3", got.Model)
}

func TestMatchesHandler_Decisions(t *testing.T) {
	store, m := seedJournal(t)
	handler := NewMatchesHandler(store, testLogger(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/matches/"+m.ID.String()+"/decisions?limit=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var records []*decision.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, 2, records[0].Iteration)
	assert.Equal(t, 4, records[2].Iteration)
}

func TestMatchesHandler_Errors(t *testing.T) {
	store, _ := seedJournal(t)
	handler := NewMatchesHandler(store, testLogger(t))

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown match", http.MethodGet, "/v1/matches/" + uuid.New().String(), http.StatusNotFound},
		{"bad id", http.MethodGet, "/v1/matches/not-a-uuid", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/matches?limit=zero", http.StatusBadRequest},
		{"negative limit", http.MethodGet, "/v1/matches?limit=-4", http.StatusBadRequest},
		{"unknown sub-resource", http.MethodGet, "/v1/matches/" + uuid.New().String() + "/units", http.StatusNotFound},
		{"post", http.MethodPost, "/v1/matches", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultListLimit},
		{"limit=5", 5},
		{"limit=100000", maxListLimit},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/v1/matches?"+tt.query, nil)
		got, err := parseLimit(req)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.query)
	}
}
