// Package tts provides a unified interface for text-to-speech providers.
//
// All providers implement the Provider interface, enabling seamless
// switching without changing caller code. The bundled Client speaks the
// OpenAI-compatible /audio/speech API, which local servers (openedai-speech,
// LocalAI, kokoro) also implement.
//
// Example usage:
//
//	provider, _ := tts.NewClient(
//	    tts.WithBaseURL("http://localhost:5002/v1"),
//	    tts.WithVoice("en-US-AriaNeural"),
//	)
//	defer provider.Close()
//
//	stream, _ := provider.Stream(ctx, "Hello world")
//	for {
//	    chunk, _ := stream.Read()
//	    if chunk == nil {
//	        break
//	    }
//	    // play chunk
//	}
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	// Use this for short text where latency to first byte is less critical.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Stream converts text to audio with streaming output for lowest latency.
	// Audio chunks are returned as they become available.
	Stream(ctx context.Context, text string) (AudioStream, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioStream represents a streaming audio response.
// Callers should read until Read returns nil, then call Close.
type AudioStream interface {
	// Read returns the next audio chunk.
	// Returns nil when the stream is complete (not an error).
	Read() ([]byte, error)

	// Close stops the stream and releases resources.
	Close() error

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., pcm_24000).
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 16000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// PCM formats (raw audio, lowest latency)
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16

	// Compressed formats
	EncodingMP3 Encoding = "mp3_44100_128" // MP3 128kbps
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM24:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 24000 // Default to 24kHz
	}
}
