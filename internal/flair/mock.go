package flair

import (
	"context"
	"sync"
	"time"

	"flairbridge/internal/model"
)

// UpdateCall records an Update for testing
type UpdateCall struct {
	ResourceType  string
	ID            string
	Attributes    map[string]interface{}
	Relationships map[string]interface{}
	Time          time.Time
}

// MockClient implements FlairClient for testing
type MockClient struct {
	mu         sync.Mutex
	updates    []UpdateCall
	updateErr  error
	snapshot   *model.Snapshot
	fetchErr   error
	fetchCount int
	onUpdate   func(UpdateCall)
}

// NewMockClient creates a mock client with an empty snapshot
func NewMockClient() *MockClient {
	return &MockClient{
		updates:  make([]UpdateCall, 0),
		snapshot: model.NewSnapshot(),
	}
}

// Update records the call and returns the configured error, if any.
func (m *MockClient) Update(ctx context.Context, resourceType, id string, attributes, relationships map[string]interface{}) error {
	m.mu.Lock()
	call := UpdateCall{
		ResourceType:  resourceType,
		ID:            id,
		Attributes:    copyMap(attributes),
		Relationships: copyMap(relationships),
		Time:          time.Now(),
	}
	err := m.updateErr
	hook := m.onUpdate
	if err == nil {
		m.updates = append(m.updates, call)
	}
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

// Fetch returns a copy of the configured snapshot.
func (m *MockClient) Fetch(ctx context.Context) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCount++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.snapshot.Clone(), nil
}

// SetSnapshot sets what Fetch returns.
func (m *MockClient) SetSnapshot(s *model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
}

// SetUpdateError makes every Update fail with err (nil clears it).
func (m *MockClient) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateErr = err
}

// SetFetchError makes Fetch fail with err (nil clears it).
func (m *MockClient) SetFetchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// OnUpdate registers a hook called after every Update attempt.
func (m *MockClient) OnUpdate(fn func(UpdateCall)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// GetUpdates returns all successful update calls
func (m *MockClient) GetUpdates() []UpdateCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]UpdateCall, len(m.updates))
	copy(calls, m.updates)
	return calls
}

// ClearUpdates clears the recorded update calls
func (m *MockClient) ClearUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = make([]UpdateCall, 0)
}

// FetchCount returns how many times Fetch was called.
func (m *MockClient) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCount
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
