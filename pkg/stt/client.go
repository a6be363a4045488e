package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const providerWhisper = "whisper"

// Config holds transcription client configuration.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for a local whisper server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:  "http://localhost:9000/v1",
		Model:    "base.en",
		Language: "en",
		Timeout:  60 * time.Second,
		Logger:   slog.Default(),
	}
}

// Client transcribes audio through an OpenAI-compatible whisper endpoint.
type Client struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new transcription client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "stt.client"),
	}, nil
}

// Transcribe converts a PCM16 mono buffer into text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, sampleRate int) (*Result, error) {
	if len(audio) == 0 {
		return nil, WrapError(providerWhisper, ErrEmptyAudio)
	}

	start := time.Now()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(wavHeader(len(audio), sampleRate)); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("write wav header: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("write audio: %w", err))
	}

	if err := writer.WriteField("model", c.config.Model); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("write field: %w", err))
	}
	if c.config.Language != "" {
		if err := writer.WriteField("language", c.config.Language); err != nil {
			return nil, WrapError(providerWhisper, fmt.Errorf("write field: %w", err))
		}
	}
	if err := writer.Close(); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("close writer: %w", err))
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, WrapError(providerWhisper,
			fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}

	latency := time.Since(start).Milliseconds()

	c.logger.Debug("transcribed audio",
		"bytes", len(audio),
		"chars", len(result.Text),
		"latency_ms", latency,
	)

	language := result.Language
	if language == "" {
		language = c.config.Language
	}

	return &Result{
		Text:      result.Text,
		Language:  language,
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return WrapError(providerWhisper, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerWhisper, fmt.Errorf("health check status %d", resp.StatusCode))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// wavHeader builds a 44-byte RIFF header wrapping raw PCM16 mono data.
// Whisper servers reject bare PCM, so the buffer is shipped as a WAV file.
func wavHeader(dataLen, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))
	return header
}

// Verify Client implements Transcriber at compile time.
var _ Transcriber = (*Client)(nil)
