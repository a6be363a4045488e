package inference

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// ChatFunc is called when Chat is invoked.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// StreamFunc is called when Stream is invoked.
	StreamFunc func(ctx context.Context, req *ChatRequest) (Stream, error)

	// EmbedFunc is called when Embed is invoked.
	EmbedFunc func(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a new mock provider with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		ChatFunc: func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{
				Message:      NewAssistantMessage("Mock response"),
				FinishReason: "stop",
				Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		},
		HealthFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// NewMockStreaming creates a mock whose Stream yields the given fragments
// in order, then a done chunk.
func NewMockStreaming(fragments ...string) *Mock {
	m := NewMock()
	m.StreamFunc = func(ctx context.Context, req *ChatRequest) (Stream, error) {
		return &sliceStream{fragments: fragments}, nil
	}
	return m
}

// Chat calls ChatFunc and records the call.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.record("Chat")
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Stream calls StreamFunc and records the call.
func (m *Mock) Stream(ctx context.Context, req *ChatRequest) (Stream, error) {
	m.record("Stream")
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	// Default: return a mock stream with the chat response
	if m.ChatFunc != nil {
		resp, err := m.ChatFunc(ctx, req)
		if err != nil {
			return nil, err
		}
		return &sliceStream{fragments: []string{resp.Message.Content}}, nil
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Embed calls EmbedFunc and records the call.
func (m *Mock) Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error) {
	m.record("Embed")
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrEmbeddingsNotSupported)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.record("Close")
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// sliceStream yields pre-canned fragments then completes.
type sliceStream struct {
	fragments []string
	pos       int
	closed    bool
}

// Recv returns the next fragment.
func (s *sliceStream) Recv() (*StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.pos >= len(s.fragments) {
		return &StreamChunk{FinishReason: "stop", Done: true}, nil
	}
	chunk := &StreamChunk{Delta: s.fragments[s.pos]}
	s.pos++
	return chunk, nil
}

// Close marks the stream closed.
func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
