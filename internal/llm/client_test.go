package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asianviking/takopi-discord/internal/config"
)

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	}
}

func TestChatFallbackOnServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p map[string]interface{}
		json.NewDecoder(r.Body).Decode(&p)
		if p["model"] == "big" {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(chatResponse("ok from " + p["model"].(string)))
	}))
	defer ts.Close()

	c := NewClient(config.LLMConfig{BaseURL: ts.URL, Model: "big", FallbackModel: "local", TimeoutMs: 5000})
	content, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("expected success via fallback, got: %v", err)
	}
	if content != "ok from local" {
		t.Fatalf("content = %q", content)
	}
}

func TestChatPermanentError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(config.LLMConfig{BaseURL: ts.URL, Model: "big", FallbackModel: "local", TimeoutMs: 5000})
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("expected permanent error, got: %v", err)
	}
}

func TestChatSendsMessagesAndAuth(t *testing.T) {
	var gotAuth string
	var gotPayload struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		json.NewEncoder(w).Encode(chatResponse("reply"))
	}))
	defer ts.Close()

	c := NewClient(config.LLMConfig{BaseURL: ts.URL, APIKey: "key-1", Model: "big", TimeoutMs: 5000})
	content, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if content != "reply" {
		t.Fatalf("content = %q", content)
	}
	if gotAuth != "Bearer key-1" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotPayload.Model != "big" || len(gotPayload.Messages) != 2 || gotPayload.Messages[1].Content != "hello" {
		t.Fatalf("payload = %+v", gotPayload)
	}
}
