package speech

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/asianviking/takopi-discord/internal/audio"
	"github.com/asianviking/takopi-discord/internal/config"
	"github.com/asianviking/takopi-discord/internal/logging"
)

// STTClient transcribes PCM audio via an HTTP speech-to-text endpoint. The
// raw PCM is wrapped in a WAV container before posting.
type STTClient struct {
	url       string
	authToken string
	language  string
	timeout   time.Duration
	client    *http.Client
}

// NewSTTClient builds a transcription client from config.
func NewSTTClient(cfg config.SpeechConfig) *STTClient {
	endpoint := cfg.STTURL
	if cfg.STTLanguage != "" {
		if u, err := url.Parse(endpoint); err == nil {
			q := u.Query()
			q.Set("language", cfg.STTLanguage)
			u.RawQuery = q.Encode()
			endpoint = u.String()
		}
	}
	return &STTClient{
		url:       endpoint,
		authToken: cfg.STTAuthToken,
		language:  cfg.STTLanguage,
		timeout:   time.Duration(cfg.STTTimeoutMs) * time.Millisecond,
		client:    &http.Client{},
	}
}

// Transcribe wraps pcm in a WAV container and posts it to the transcription
// endpoint. It returns the trimmed transcript, which may be empty.
func (c *STTClient) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("transcription endpoint not configured")
	}
	cid := CorrelationID(ctx)
	wav := audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels, audio.SampleWidth*8)
	logging.Debugw("sending audio to transcription", "url", c.url, "bytes", len(pcm), "duration_ms", audio.DurationMS(len(pcm)), "correlation_id", cid)

	resp, err := postWithRetries(ctx, c.client, c.url, "audio/wav", wav, c.authToken, c.timeout, 3)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("transcription returned status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
