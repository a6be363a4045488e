// Package inference provides a unified interface for LLM completions.
//
// The package abstracts chat completions behind a single Provider
// interface, enabling seamless switching between providers like Ollama,
// OpenAI, vLLM, and others that implement the OpenAI-compatible API.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithBaseURL("http://localhost:11434/v1"),
//	    inference.WithModel("llama3.2"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        {Role: inference.RoleUser, Content: "Hello!"},
//	    },
//	})
package inference

import (
	"context"
)

// Provider is the unified inference interface.
// All implementations must satisfy this interface.
type Provider interface {
	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream generates a streaming response for real-time output.
	Stream(ctx context.Context, req *ChatRequest) (Stream, error)

	// Embed generates vector embeddings for text.
	Embed(ctx context.Context, req *EmbedRequest) (*EmbedResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Stream is a streaming response for real-time output.
type Stream interface {
	// Recv returns the next chunk. The final chunk has Done set.
	Recv() (*StreamChunk, error)

	// Close stops the stream and releases resources.
	Close() error
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	// Delta is the incremental text content.
	Delta string

	// FinishReason indicates why generation stopped (stop, length).
	FinishReason string

	// Done is true when the stream is complete.
	Done bool
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation history.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// Stop sequences that halt generation.
	Stop []string
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// EmbedRequest for text embeddings.
type EmbedRequest struct {
	// Input texts to embed.
	Input []string

	// Model overrides the default embedding model.
	Model string
}

// EmbedResponse with vector embeddings.
type EmbedResponse struct {
	// Embeddings are the vector representations.
	Embeddings [][]float64

	// Usage tracks token consumption.
	Usage Usage

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
