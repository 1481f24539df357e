package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Voice.SilenceThresholdMs != 1500 {
		t.Fatalf("silence threshold = %d", cfg.Voice.SilenceThresholdMs)
	}
	if cfg.Voice.MinUtteranceMs != 500 {
		t.Fatalf("min utterance = %d", cfg.Voice.MinUtteranceMs)
	}
	if cfg.Voice.PollIntervalMs != 100 {
		t.Fatalf("poll interval = %d", cfg.Voice.PollIntervalMs)
	}
	if !cfg.Voice.DeleteChannelOnLeave {
		t.Fatal("delete_channel_on_leave must default to true")
	}
	if cfg.Voice.SilenceThreshold() != 1500*time.Millisecond {
		t.Fatalf("SilenceThreshold() = %v", cfg.Voice.SilenceThreshold())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero silence threshold", func(c *Config) { c.Voice.SilenceThresholdMs = 0 }},
		{"negative min utterance", func(c *Config) { c.Voice.MinUtteranceMs = -1 }},
		{"zero poll interval", func(c *Config) { c.Voice.PollIntervalMs = 0 }},
		{"zero playback poll", func(c *Config) { c.Voice.PlaybackPollMs = 0 }},
		{"negative concurrency", func(c *Config) { c.Voice.MaxConcurrentUtterances = -1 }},
		{"zero stt timeout", func(c *Config) { c.Speech.STTTimeoutMs = 0 }},
		{"zero tts timeout", func(c *Config) { c.Speech.TTSTimeoutMs = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	data := `
discord:
  token: tok-123
  guild_id: g-1
voice:
  silence_threshold_ms: 2000
  wake_phrases: ["hey takopi"]
speech:
  stt_url: http://stt:8080/transcribe
  tts_url: http://tts:8080/synthesize
metrics:
  enabled: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "tok-123" {
		t.Fatalf("token = %q", cfg.Discord.Token)
	}
	if cfg.Voice.SilenceThresholdMs != 2000 {
		t.Fatalf("silence threshold = %d", cfg.Voice.SilenceThresholdMs)
	}
	// Unset keys keep their defaults.
	if cfg.Voice.MinUtteranceMs != 500 {
		t.Fatalf("min utterance = %d", cfg.Voice.MinUtteranceMs)
	}
	if len(cfg.Voice.WakePhrases) != 1 || cfg.Voice.WakePhrases[0] != "hey takopi" {
		t.Fatalf("wake phrases = %v", cfg.Voice.WakePhrases)
	}
	if cfg.Speech.STTURL != "http://stt:8080/transcribe" {
		t.Fatalf("stt url = %q", cfg.Speech.STTURL)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("metrics must be disabled by the file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")
	t.Setenv("STT_URL", "http://env-stt/transcribe")
	t.Setenv("MAX_CONCURRENT_UTTERANCES", "4")
	t.Setenv("WAKE_PHRASES", "hey takopi, okay bot")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discord.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Discord.Token)
	}
	if cfg.Speech.STTURL != "http://env-stt/transcribe" {
		t.Fatalf("stt url = %q", cfg.Speech.STTURL)
	}
	if cfg.Voice.MaxConcurrentUtterances != 4 {
		t.Fatalf("max concurrent = %d", cfg.Voice.MaxConcurrentUtterances)
	}
	if len(cfg.Voice.WakePhrases) != 2 || cfg.Voice.WakePhrases[1] != "okay bot" {
		t.Fatalf("wake phrases = %v", cfg.Voice.WakePhrases)
	}
}
