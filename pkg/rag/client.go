package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voicewire/go-voicewire/internal/httpc"
	"github.com/voicewire/go-voicewire/internal/log"
)

// Config holds retrieval client settings.
type Config struct {
	BaseURL string
	TopK    int
	Timeout time.Duration
	Logger  *slog.Logger
}

// Option configures the client.
type Option func(*Config)

// WithBaseURL sets the retrieval service endpoint.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = strings.TrimRight(url, "/") }
}

// WithTopK sets the number of chunks requested per query.
func WithTopK(k int) Option {
	return func(c *Config) { c.TopK = k }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for a local retrieval sidecar.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8100",
		TopK:    4,
		Timeout: 10 * time.Second,
		Logger:  log.L(),
	}
}

// Client queries an HTTP retrieval service.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ Retriever = (*Client)(nil)

// NewClient creates a retrieval client.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		cfg:    cfg,
		http:   httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "rag.client"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type queryResponse struct {
	Context string `json:"context"`
}

// Query retrieves formatted context for the given text.
func (c *Client) Query(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	body, err := json.Marshal(queryRequest{Query: text, TopK: c.cfg.TopK})
	if err != nil {
		return "", &ServiceError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return "", &ServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &ServiceError{Err: fmt.Errorf("query returned %d: %s", resp.StatusCode, string(data))}
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ServiceError{Err: err}
	}

	c.logger.Debug("retrieval query complete", "query_len", len(text), "context_len", len(out.Context))
	return out.Context, nil
}

// Health checks retrieval service connectivity.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return &ServiceError{Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ServiceError{Err: fmt.Errorf("health returned %d", resp.StatusCode)}
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
