package tts

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
)

const providerSpeech = "speech"

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Voice configuration
	Voice string
	Model string
	Speed float64

	// Audio output
	OutputFormat Encoding

	// Timeouts
	Timeout       time.Duration
	StreamTimeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithVoice sets the voice name.
func WithVoice(voice string) Option {
	return func(c *Config) { c.Voice = voice }
}

// WithModel sets the model ID.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSpeed sets the speech speed multiplier.
func WithSpeed(speed float64) Option {
	return func(c *Config) { c.Speed = speed }
}

// WithOutputFormat sets the audio output format.
func WithOutputFormat(format Encoding) Option {
	return func(c *Config) { c.OutputFormat = format }
}

// WithTimeout sets the request timeout for non-streaming requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithStreamTimeout sets the timeout for streaming requests.
func WithStreamTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.StreamTimeout = timeout }
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "http://localhost:5002/v1",
		Voice:         "en-US-AriaNeural",
		Model:         "tts-1",
		Speed:         1.0,
		OutputFormat:  EncodingPCM24,
		Timeout:       30 * time.Second,
		StreamTimeout: 60 * time.Second,
		Logger:        slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Client synthesizes speech through an OpenAI-compatible /audio/speech endpoint.
type Client struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewClient creates a new TTS client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "tts.client"),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (c *Client) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerSpeech, ErrEmptyText)
	}

	start := time.Now()

	resp, err := c.request(ctx, text, c.client)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerSpeech, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    c.outputFormat(),
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  c.estimateDuration(len(audio)),
	}, nil
}

// Stream converts text to audio with streaming output for lowest latency.
func (c *Client) Stream(ctx context.Context, text string) (AudioStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerSpeech, ErrEmptyText)
	}

	// Use stream timeout for streaming requests
	client := &http.Client{Timeout: c.config.StreamTimeout}

	resp, err := c.request(ctx, text, client)
	if err != nil {
		return nil, err
	}

	return &httpStream{
		body:   resp.Body,
		format: c.outputFormat(),
	}, nil
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerSpeech, err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return WrapError(providerSpeech, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Close releases resources held by the provider.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// request issues the synthesis POST and validates the status code.
func (c *Client) request(ctx context.Context, text string, client *http.Client) (*http.Response, error) {
	payload := map[string]interface{}{
		"model":           c.config.Model,
		"voice":           c.config.Voice,
		"input":           text,
		"speed":           c.config.Speed,
		"response_format": c.responseFormat(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerSpeech, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerSpeech, fmt.Errorf("create request: %w", err))
	}
	c.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, WrapError(providerSpeech, fmt.Errorf("synthesis request: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.parseError(resp)
	}

	return resp, nil
}

// setHeaders sets required HTTP headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

// parseError reads and parses an error response.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerSpeech,
	}
}

// responseFormat maps the configured encoding to the API format name.
func (c *Client) responseFormat() string {
	switch c.config.OutputFormat {
	case EncodingMP3:
		return "mp3"
	default:
		return "pcm"
	}
}

// outputFormat returns the configured audio format metadata.
func (c *Client) outputFormat() AudioFormat {
	return AudioFormat{
		Encoding:   c.config.OutputFormat,
		SampleRate: SampleRateFromEncoding(c.config.OutputFormat),
		Channels:   1,
		BitDepth:   16,
	}
}

// estimateDuration estimates playback duration from the byte count.
func (c *Client) estimateDuration(byteLen int) time.Duration {
	format := c.outputFormat()
	bytesPerSecond := format.SampleRate * format.Channels * format.BitDepth / 8
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(byteLen) * time.Second / time.Duration(bytesPerSecond)
}

// httpStream wraps an HTTP response body as AudioStream.
type httpStream struct {
	body   io.ReadCloser
	format AudioFormat
	buf    [4096]byte
}

// Read returns the next audio chunk.
func (s *httpStream) Read() ([]byte, error) {
	n, err := s.body.Read(s.buf[:])
	if err == io.EOF {
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			return chunk, nil
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	chunk := make([]byte, n)
	copy(chunk, s.buf[:n])
	return chunk, nil
}

// Close stops the stream.
func (s *httpStream) Close() error {
	return s.body.Close()
}

// Format returns the audio format.
func (s *httpStream) Format() AudioFormat {
	return s.format
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
