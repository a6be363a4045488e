// Package config loads server settings for voicewire.
//
// Settings come from defaults, an optional voicewire.yaml in the working
// directory, and VOICEWIRE_* environment variables (highest precedence).
// Nested keys use underscores in the environment, e.g. VOICEWIRE_LLM_MODEL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server settings.
type Config struct {
	Server Server `mapstructure:"server"`
	LLM    LLM    `mapstructure:"llm"`
	STT    STT    `mapstructure:"stt"`
	TTS    TTS    `mapstructure:"tts"`
	RAG    RAG    `mapstructure:"rag"`
	Redis  Redis  `mapstructure:"redis"`
	Memory Memory `mapstructure:"memory"`
	Audio  Audio  `mapstructure:"audio"`
}

// Server holds HTTP server settings.
type Server struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// LLM holds language model settings.
type LLM struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// STT holds speech-to-text settings.
type STT struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TTS holds text-to-speech settings.
type TTS struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Voice   string        `mapstructure:"voice"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RAG holds retrieval settings.
type RAG struct {
	BaseURL string        `mapstructure:"base_url"`
	TopK    int           `mapstructure:"top_k"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Redis holds persistence settings.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Memory holds conversation memory settings.
type Memory struct {
	MaxTurns         int `mapstructure:"max_turns"`
	SummaryThreshold int `mapstructure:"summary_threshold"`
}

// Audio holds audio format settings.
type Audio struct {
	InputSampleRate  int `mapstructure:"input_sample_rate"`
	OutputSampleRate int `mapstructure:"output_sample_rate"`
}

// Load reads configuration from defaults, optional file, and environment.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("voicewire")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/voicewire")

	v.SetEnvPrefix("VOICEWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults + env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers the default value for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("stt.base_url", "http://localhost:9000/v1")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.model", "base.en")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.timeout", 60*time.Second)

	v.SetDefault("tts.base_url", "http://localhost:5002")
	v.SetDefault("tts.api_key", "")
	v.SetDefault("tts.voice", "en-US-AriaNeural")
	v.SetDefault("tts.timeout", 60*time.Second)

	v.SetDefault("rag.base_url", "http://localhost:8100")
	v.SetDefault("rag.top_k", 4)
	v.SetDefault("rag.timeout", 15*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("memory.max_turns", 20)
	v.SetDefault("memory.summary_threshold", 15)

	v.SetDefault("audio.input_sample_rate", 16000)
	v.SetDefault("audio.output_sample_rate", 24000)
}

// Validate checks settings for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Memory.MaxTurns <= 0 {
		return fmt.Errorf("config: memory.max_turns must be positive, got %d", c.Memory.MaxTurns)
	}
	if c.Memory.SummaryThreshold <= 0 {
		return fmt.Errorf("config: memory.summary_threshold must be positive, got %d", c.Memory.SummaryThreshold)
	}
	if c.Audio.InputSampleRate <= 0 || c.Audio.OutputSampleRate <= 0 {
		return fmt.Errorf("config: sample rates must be positive")
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
