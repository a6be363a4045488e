// Package stt provides a unified interface for speech-to-text providers.
//
// The package abstracts transcription behind the Transcriber interface.
// The bundled Client speaks the OpenAI-compatible /audio/transcriptions
// API, which whisper servers (faster-whisper-server, whisper.cpp server,
// LocalAI) also implement.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	// Transcribe converts a complete audio buffer into text.
	// The buffer is raw PCM16 mono at the given sample rate.
	Transcribe(ctx context.Context, audio []byte, sampleRate int) (*Result, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Result is a completed transcription.
type Result struct {
	// Text is the recognized speech.
	Text string

	// Language is the detected or configured language code.
	Language string

	// Confidence is the recognition confidence (0.0-1.0, 0 when unknown).
	Confidence float64

	// LatencyMs is the time the provider took in milliseconds.
	LatencyMs int64
}

// Sentinel errors.
var (
	// ErrEmptyAudio is returned when the audio buffer is empty.
	ErrEmptyAudio = errors.New("stt: empty audio buffer")

	// ErrProviderUnavailable is returned when the provider cannot be reached.
	ErrProviderUnavailable = errors.New("stt: provider unavailable")
)

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
