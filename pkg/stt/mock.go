package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Transcriber for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns a fixed transcript.
	TranscribeFunc func(ctx context.Context, audio []byte, sampleRate int) (*Result, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method     string
	AudioBytes int
	Time       time.Time
}

// NewMock creates a mock that returns the given transcript.
func NewMock(transcript string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, audio []byte, sampleRate int) (*Result, error) {
			return &Result{Text: transcript, Language: "en", Confidence: 0.95}, nil
		},
	}
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, audio []byte, sampleRate int) (*Result, error) {
	m.record("Transcribe", len(audio))
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio, sampleRate)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", 0)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close", 0)
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string, audioBytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, AudioBytes: audioBytes, Time: time.Now()})
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

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Verify Mock implements Transcriber at compile time.
var _ Transcriber = (*Mock)(nil)
