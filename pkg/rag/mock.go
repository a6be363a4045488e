package rag

import (
	"context"
	"sync"
)

// Mock implements Retriever for testing.
type Mock struct {
	mu sync.Mutex

	// QueryFunc overrides the default query behavior.
	QueryFunc func(ctx context.Context, text string) (string, error)

	// Context is returned by the default Query implementation.
	Context string

	// Call tracking.
	CallCount int
	Queries   []string
}

var _ Retriever = (*Mock)(nil)

// NewMock creates a mock retriever returning the given context string.
func NewMock(context string) *Mock {
	return &Mock{Context: context}
}

// Query returns the configured context.
func (m *Mock) Query(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	m.CallCount++
	m.Queries = append(m.Queries, text)
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, text)
	}
	return m.Context, nil
}

// Health always succeeds.
func (m *Mock) Health(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Reset clears call tracking.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.Queries = nil
}
