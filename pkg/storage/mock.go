package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/gptstar/pkg/decision"
	"github.com/jwebster45206/gptstar/pkg/state"
)

// MockStorage is an in-memory Storage for tests and runs without Redis.
type MockStorage struct {
	mu        sync.RWMutex
	matches   map[uuid.UUID]*state.Match
	decisions map[uuid.UUID][]*decision.Record
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		matches:   make(map[uuid.UUID]*state.Match),
		decisions: make(map[uuid.UUID][]*decision.Record),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every write fail with err.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) SaveMatch(ctx context.Context, match *state.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *match
	m.matches[match.ID] = &cp
	return nil
}

func (m *MockStorage) LoadMatch(ctx context.Context, id uuid.UUID) (*state.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

func (m *MockStorage) ListMatches(ctx context.Context, limit int) ([]*state.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*state.Match, 0, len(m.matches))
	for _, match := range m.matches {
		cp := *match
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStorage) AppendDecision(ctx context.Context, r *decision.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	cp := *r
	list := append(m.decisions[r.MatchID], &cp)
	if len(list) > DefaultDecisionLimit {
		list = list[len(list)-DefaultDecisionLimit:]
	}
	m.decisions[r.MatchID] = list
	return nil
}

func (m *MockStorage) ListDecisions(ctx context.Context, matchID uuid.UUID, limit int) ([]*decision.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.decisions[matchID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]*decision.Record, len(list))
	for i, r := range list {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}
