package speech

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/asianviking/takopi-discord/internal/audio"
	"github.com/asianviking/takopi-discord/internal/config"
)

func sttConfig(url string) config.SpeechConfig {
	return config.SpeechConfig{STTURL: url, STTTimeoutMs: 5000, TTSTimeoutMs: 5000}
}

func TestTranscribePostsWAV(t *testing.T) {
	pcm := make([]byte, audio.BytesPerSecond/2)
	var gotBody []byte
	var gotContentType, gotCID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotCID = r.Header.Get("X-Correlation-ID")
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	defer ts.Close()

	c := NewSTTClient(sttConfig(ts.URL))
	ctx := WithCorrelationID(context.Background(), "cid-123")
	text, err := c.Transcribe(ctx, pcm)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("transcript = %q", text)
	}
	if gotContentType != "audio/wav" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if gotCID != "cid-123" {
		t.Fatalf("correlation id = %q", gotCID)
	}

	hdr, payload, err := audio.DecodeWAV(gotBody)
	if err != nil {
		t.Fatalf("posted body is not valid WAV: %v", err)
	}
	if hdr.SampleRate != audio.SampleRate || hdr.NumChannels != audio.Channels {
		t.Fatalf("WAV format = %d Hz %d ch", hdr.SampleRate, hdr.NumChannels)
	}
	if len(payload) != len(pcm) {
		t.Fatalf("payload bytes = %d, want %d", len(payload), len(pcm))
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "finally"})
	}))
	defer ts.Close()

	c := NewSTTClient(sttConfig(ts.URL))
	text, err := c.Transcribe(context.Background(), make([]byte, 1920))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "finally" {
		t.Fatalf("transcript = %q", text)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestTranscribeClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad audio", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewSTTClient(sttConfig(ts.URL))
	if _, err := c.Transcribe(context.Background(), make([]byte, 1920)); err == nil {
		t.Fatal("expected an error on 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestTranscribeLanguageQuery(t *testing.T) {
	var gotLang string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.URL.Query().Get("language")
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer ts.Close()

	cfg := sttConfig(ts.URL)
	cfg.STTLanguage = "en"
	c := NewSTTClient(cfg)
	if _, err := c.Transcribe(context.Background(), make([]byte, 1920)); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLang != "en" {
		t.Fatalf("language query = %q", gotLang)
	}
}

func TestTranscribeNoEndpoint(t *testing.T) {
	c := NewSTTClient(config.SpeechConfig{STTTimeoutMs: 1000, TTSTimeoutMs: 1000})
	if _, err := c.Transcribe(context.Background(), make([]byte, 1920)); err == nil {
		t.Fatal("expected an error without an endpoint")
	}
}

func TestSynthesizeRequestAndResponse(t *testing.T) {
	want := []byte{1, 2, 3, 4}
	var gotPayload map[string]string
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		gotAuth = r.Header.Get("Authorization")
		w.Write(want)
	}))
	defer ts.Close()

	cfg := config.SpeechConfig{TTSURL: ts.URL, TTSVoice: "af_bella", TTSAuthToken: "secret", TTSTimeoutMs: 5000, STTTimeoutMs: 5000}
	c := NewTTSClient(cfg)
	got, err := c.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("audio = %v", got)
	}
	if gotPayload["text"] != "hello" || gotPayload["voice"] != "af_bella" {
		t.Fatalf("payload = %v", gotPayload)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestSynthesizeErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such voice", http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewTTSClient(config.SpeechConfig{TTSURL: ts.URL, TTSTimeoutMs: 5000, STTTimeoutMs: 5000})
	if _, err := c.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error on 404")
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if CorrelationID(ctx) != "" {
		t.Fatal("empty context must yield empty correlation id")
	}
	ctx = WithCorrelationID(ctx, "abc")
	if CorrelationID(ctx) != "abc" {
		t.Fatalf("correlation id = %q", CorrelationID(ctx))
	}
}
