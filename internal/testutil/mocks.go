package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/PiyushTiwari01/Formi-Ai-Voice-Agent/internal/events"
)

// MockRegistry is a thread-safe in-memory implementation of store.Registry
// for testing.
type MockRegistry struct {
	mu sync.Mutex

	Logged map[string]events.LogRecord

	ContainsErr error
	RecordErr   error

	ContainsCalls int
	RecordCalls   int
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{
		Logged: make(map[string]events.LogRecord),
	}
}

func (m *MockRegistry) Contains(_ context.Context, callID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContainsCalls++
	if m.ContainsErr != nil {
		return false, m.ContainsErr
	}
	_, ok := m.Logged[callID]
	return ok, nil
}

func (m *MockRegistry) Record(_ context.Context, rec events.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordCalls++
	if m.RecordErr != nil {
		return m.RecordErr
	}
	if _, ok := m.Logged[rec.CallID]; ok {
		return fmt.Errorf("duplicate call_id %s", rec.CallID)
	}
	m.Logged[rec.CallID] = rec
	return nil
}

func (m *MockRegistry) CountLogged(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Logged), nil
}

func (m *MockRegistry) RecentCalls(_ context.Context, limit int) ([]events.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []events.LogRecord
	for _, r := range m.Logged {
		results = append(results, r)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *MockRegistry) Close() {}

// Seed marks a call as already logged.
func (m *MockRegistry) Seed(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logged[callID] = events.LogRecord{CallID: callID}
}

// MockSink is a thread-safe in-memory sheets.Sink.
type MockSink struct {
	mu sync.Mutex

	Rows      []events.LogRecord
	AppendErr error

	AppendCalls int
}

func NewMockSink() *MockSink {
	return &MockSink{}
}

func (m *MockSink) Append(_ context.Context, rec events.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls++
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Rows = append(m.Rows, rec)
	return nil
}

// RowCount returns how many rows were appended.
func (m *MockSink) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Rows)
}

// SetAppendErr toggles the injected append failure.
func (m *MockSink) SetAppendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendErr = err
}
