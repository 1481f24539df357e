package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bot configuration.
type Config struct {
	Discord DiscordConfig `yaml:"discord"`
	Voice   VoiceConfig   `yaml:"voice"`
	Speech  SpeechConfig  `yaml:"speech"`
	LLM     LLMConfig     `yaml:"llm"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// DiscordConfig contains gateway credentials and the optional channel the
// bot joins on startup.
type DiscordConfig struct {
	Token          string `yaml:"token"`
	GuildID        string `yaml:"guild_id"`
	VoiceChannelID string `yaml:"voice_channel_id"`
	TextChannelID  string `yaml:"text_channel_id"`
	Project        string `yaml:"project"`
	Branch         string `yaml:"branch"`
}

// VoiceConfig contains the audio pipeline thresholds. The silence, minimum
// utterance and poll values mirror the pipeline defaults and are exposed
// per deployment.
type VoiceConfig struct {
	SilenceThresholdMs      int  `yaml:"silence_threshold_ms"`
	MinUtteranceMs          int  `yaml:"min_utterance_ms"`
	PollIntervalMs          int  `yaml:"poll_interval_ms"`
	PlaybackPollMs          int  `yaml:"playback_poll_ms"`
	MaxConcurrentUtterances int  `yaml:"max_concurrent_utterances"` // 0 = unlimited
	RMSGateThreshold        int  `yaml:"rms_gate_threshold"`        // 0 = disabled
	DeleteChannelOnLeave    bool `yaml:"delete_channel_on_leave"`

	// Wake phrases gate which transcripts reach the message handler.
	// Empty means every non-empty transcript is handled.
	WakePhrases    []string `yaml:"wake_phrases"`
	WakeWindowSecs int      `yaml:"wake_window_secs"`
}

// SpeechConfig contains the external transcription and synthesis endpoints.
type SpeechConfig struct {
	STTURL       string `yaml:"stt_url"`
	STTAuthToken string `yaml:"stt_auth_token"`
	STTTimeoutMs int    `yaml:"stt_timeout_ms"`
	STTLanguage  string `yaml:"stt_language"`

	TTSURL       string `yaml:"tts_url"`
	TTSAuthToken string `yaml:"tts_auth_token"`
	TTSTimeoutMs int    `yaml:"tts_timeout_ms"`
	TTSVoice     string `yaml:"tts_voice"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint used by the
// default message handler.
type LLMConfig struct {
	BaseURL       string  `yaml:"base_url"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	FallbackModel string  `yaml:"fallback_model"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutMs     int     `yaml:"timeout_ms"`
}

// MetricsConfig contains the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with the pipeline defaults.
func DefaultConfig() *Config {
	return &Config{
		Voice: VoiceConfig{
			SilenceThresholdMs:   1500,
			MinUtteranceMs:       500,
			PollIntervalMs:       100,
			PlaybackPollMs:       100,
			DeleteChannelOnLeave: true,
		},
		Speech: SpeechConfig{
			STTTimeoutMs: 30000,
			STTLanguage:  "en",
			TTSTimeoutMs: 10000,
			TTSVoice:     "nova",
		},
		LLM: LLMConfig{
			BaseURL:     "http://127.0.0.1:8000/v1",
			MaxTokens:   512,
			Temperature: 0.7,
			TimeoutMs:   30000,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9090",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file (optional), applies environment
// overrides, and validates the result. An empty path yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. Secrets are
// expected to arrive this way in container deployments.
func (c *Config) applyEnv() {
	setStr(&c.Discord.Token, "DISCORD_BOT_TOKEN")
	setStr(&c.Discord.GuildID, "GUILD_ID")
	setStr(&c.Discord.VoiceChannelID, "VOICE_CHANNEL_ID")
	setStr(&c.Discord.TextChannelID, "TEXT_CHANNEL_ID")
	setStr(&c.Speech.STTURL, "STT_URL")
	setStr(&c.Speech.STTAuthToken, "STT_AUTH_TOKEN")
	setStr(&c.Speech.TTSURL, "TTS_URL")
	setStr(&c.Speech.TTSAuthToken, "TTS_AUTH_TOKEN")
	setStr(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setStr(&c.LLM.APIKey, "OPENAI_API_KEY")
	setStr(&c.LLM.Model, "OPENAI_MODEL")
	setStr(&c.Logging.Level, "LOG_LEVEL")
	setInt(&c.Voice.MaxConcurrentUtterances, "MAX_CONCURRENT_UTTERANCES")
	if v := os.Getenv("WAKE_PHRASES"); v != "" {
		var phrases []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
				phrases = append(phrases, p)
			}
		}
		c.Voice.WakePhrases = phrases
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Voice.SilenceThresholdMs <= 0 {
		return fmt.Errorf("voice.silence_threshold_ms must be positive, got %d", c.Voice.SilenceThresholdMs)
	}
	if c.Voice.MinUtteranceMs < 0 {
		return fmt.Errorf("voice.min_utterance_ms must not be negative, got %d", c.Voice.MinUtteranceMs)
	}
	if c.Voice.PollIntervalMs <= 0 {
		return fmt.Errorf("voice.poll_interval_ms must be positive, got %d", c.Voice.PollIntervalMs)
	}
	if c.Voice.PlaybackPollMs <= 0 {
		return fmt.Errorf("voice.playback_poll_ms must be positive, got %d", c.Voice.PlaybackPollMs)
	}
	if c.Voice.MaxConcurrentUtterances < 0 {
		return fmt.Errorf("voice.max_concurrent_utterances must not be negative, got %d", c.Voice.MaxConcurrentUtterances)
	}
	if c.Speech.STTTimeoutMs <= 0 {
		return fmt.Errorf("speech.stt_timeout_ms must be positive, got %d", c.Speech.STTTimeoutMs)
	}
	if c.Speech.TTSTimeoutMs <= 0 {
		return fmt.Errorf("speech.tts_timeout_ms must be positive, got %d", c.Speech.TTSTimeoutMs)
	}
	return nil
}

// SilenceThreshold returns the silence threshold as a duration.
func (v VoiceConfig) SilenceThreshold() time.Duration {
	return time.Duration(v.SilenceThresholdMs) * time.Millisecond
}

// PollInterval returns the detector poll interval as a duration.
func (v VoiceConfig) PollInterval() time.Duration {
	return time.Duration(v.PollIntervalMs) * time.Millisecond
}

// PlaybackPoll returns the playback poll interval as a duration.
func (v VoiceConfig) PlaybackPoll() time.Duration {
	return time.Duration(v.PlaybackPollMs) * time.Millisecond
}
