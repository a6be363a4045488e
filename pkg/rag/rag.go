// Package rag provides the retrieval collaborator interface.
//
// Document ingestion, chunking, embedding, and the vector index live in a
// separate retrieval service; this package only defines the query contract
// the pipeline consumes and a thin HTTP client for it.
package rag

import (
	"context"
	"errors"
	"fmt"
)

// Retriever looks up formatted context for a query.
type Retriever interface {
	// Query retrieves context relevant to the given text.
	// Returns an empty string (and nil error) when nothing relevant exists.
	Query(ctx context.Context, text string) (string, error)

	// Health checks retrieval service connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the retriever.
	Close() error
}

// ErrUnavailable is returned when the retrieval service cannot be reached.
var ErrUnavailable = errors.New("rag: retrieval service unavailable")

// ServiceError wraps an error with retrieval context.
type ServiceError struct {
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("rag: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}
