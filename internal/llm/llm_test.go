package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResponseString(t *testing.T) {
	r := &Response{
		Provider: "openai", Model: "gpt-4o-mini",
		Content: strings.Repeat("x", 200),
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	if !strings.Contains(s, "openai/gpt-4o-mini") || !strings.Contains(s, "50 tokens") {
		t.Errorf("String: got %s", s)
	}
	if !strings.Contains(s, "...") {
		t.Errorf("String: long content should be truncated, got %s", s)
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewOpenAIProvider: got %v, want %v", err, ErrNoAPIKey)
	}
	p, err := NewOpenAIProvider("sk-test", WithOpenAIModel(""))
	if err != nil {
		t.Fatal(err)
	}
	if p.Model() != DefaultOpenAIModel {
		t.Errorf("Model: got %s, want %s", p.Model(), DefaultOpenAIModel)
	}
}

func TestOpenAIChat(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization: got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "gpt-4o-mini-2024", "choices": [{"message": {"role": "assistant", "content": "Rating: BUY"}, "finish_reason": "stop"}], "usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test",
		WithOpenAIBaseURL(srv.URL),
		WithOpenAIDefaults(0.2, 4000),
	)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Chat(context.Background(), []Message{SystemMessage("sys"), UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Rating: BUY" || resp.FinishReason != FinishStop || resp.Usage.TotalTokens != 13 {
		t.Errorf("Chat: got %+v", resp)
	}
	if got.Model != DefaultOpenAIModel || got.MaxTokens != 4000 {
		t.Errorf("request: got model %s max_tokens %d", got.Model, got.MaxTokens)
	}
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("request temperature: got %v, want 0.2", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Errorf("request messages: got %+v", got.Messages)
	}

	_, err = p.Chat(context.Background(), []Message{UserMessage("hi")}, &ChatOptions{Model: "gpt-4o", MaxTokens: 100})
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != "gpt-4o" || got.MaxTokens != 100 {
		t.Errorf("request overrides: got model %s max_tokens %d", got.Model, got.MaxTokens)
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error": {"message": "bad key"}}`, ErrNoAPIKey},
		{"rate limit", http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`, ErrRateLimit},
		{"context length", http.StatusBadRequest, `{"error": {"message": "too long", "code": "context_length_exceeded"}}`, ErrContextLength},
		{"model", http.StatusNotFound, `{"error": {"message": "nope", "code": "model_not_found"}}`, ErrInvalidModel},
		{"no choices", http.StatusOK, `{"choices": []}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(srv.URL))
			_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Chat: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenAIPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	good, _ := NewOpenAIProvider("good", WithOpenAIBaseURL(srv.URL))
	if err := good.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	bad, _ := NewOpenAIProvider("bad", WithOpenAIBaseURL(srv.URL))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Ping: got %v, want %v", err, ErrNoAPIKey)
	}
}
