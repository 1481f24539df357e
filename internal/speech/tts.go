package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asianviking/takopi-discord/internal/config"
	"github.com/asianviking/takopi-discord/internal/logging"
)

// TTSClient synthesizes speech via an HTTP text-to-speech endpoint. The
// service is expected to return raw 48 kHz stereo 16-bit PCM.
type TTSClient struct {
	url       string
	authToken string
	voice     string
	timeout   time.Duration
	client    *http.Client
}

// NewTTSClient builds a synthesis client from config.
func NewTTSClient(cfg config.SpeechConfig) *TTSClient {
	return &TTSClient{
		url:       cfg.TTSURL,
		authToken: cfg.TTSAuthToken,
		voice:     cfg.TTSVoice,
		timeout:   time.Duration(cfg.TTSTimeoutMs) * time.Millisecond,
		client:    &http.Client{},
	}
}

// Synthesize posts text to the synthesis endpoint and returns the audio
// bytes. An empty result means no speech should be played.
func (c *TTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if c.url == "" {
		return nil, fmt.Errorf("synthesis endpoint not configured")
	}
	cid := CorrelationID(ctx)
	payload, _ := json.Marshal(map[string]string{"text": text, "voice": c.voice})

	resp, err := postWithRetries(ctx, c.client, c.url, "application/json", payload, c.authToken, c.timeout, 2)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("synthesis returned status %d", resp.StatusCode)
	}

	audioBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}
	logging.Debugw("synthesis response received", "bytes", len(audioBytes), "correlation_id", cid)
	return audioBytes, nil
}
