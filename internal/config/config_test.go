package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.LLM.Model != "llama3.2" {
		t.Errorf("LLM.Model = %q, want llama3.2", cfg.LLM.Model)
	}
	if cfg.Memory.MaxTurns != 20 {
		t.Errorf("Memory.MaxTurns = %d, want 20", cfg.Memory.MaxTurns)
	}
	if cfg.Memory.SummaryThreshold != 15 {
		t.Errorf("Memory.SummaryThreshold = %d, want 15", cfg.Memory.SummaryThreshold)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("Redis.TTL = %v, want 24h", cfg.Redis.TTL)
	}
	if cfg.Audio.InputSampleRate != 16000 || cfg.Audio.OutputSampleRate != 24000 {
		t.Errorf("Audio rates = %d/%d, want 16000/24000",
			cfg.Audio.InputSampleRate, cfg.Audio.OutputSampleRate)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VOICEWIRE_SERVER_PORT", "9123")
	t.Setenv("VOICEWIRE_LLM_MODEL", "qwen2.5")
	t.Setenv("VOICEWIRE_MEMORY_SUMMARY_THRESHOLD", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9123 {
		t.Errorf("Server.Port = %d, want 9123", cfg.Server.Port)
	}
	if cfg.LLM.Model != "qwen2.5" {
		t.Errorf("LLM.Model = %q, want qwen2.5", cfg.LLM.Model)
	}
	if cfg.Memory.SummaryThreshold != 30 {
		t.Errorf("Memory.SummaryThreshold = %d, want 30", cfg.Memory.SummaryThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero max turns", func(c *Config) { c.Memory.MaxTurns = 0 }},
		{"zero threshold", func(c *Config) { c.Memory.SummaryThreshold = 0 }},
		{"zero sample rate", func(c *Config) { c.Audio.InputSampleRate = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should reject the mutated config")
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Server: Server{Host: "127.0.0.1", Port: 8000}}
	if got := cfg.Addr(); got != "127.0.0.1:8000" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8000", got)
	}
}
