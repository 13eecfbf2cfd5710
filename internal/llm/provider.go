// Package llm is a small chat-completions client used by the due-diligence
// agent.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ProviderOpenAI names the OpenAI backend.
const ProviderOpenAI = "openai"

// Errors returned by providers.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrContextLength = errors.New("llm: context length exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
	ErrInvalidModel  = errors.New("llm: invalid model")
	ErrEmptyResponse = errors.New("llm: response contained no choices")
)

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is a complete completion.
type Response struct {
	Content      string        `json:"content"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single request. Zero values use the provider
// defaults.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is a chat backend.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
	Ping(ctx context.Context) error
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// String returns a short summary of the response.
func (r *Response) String() string {
	truncated := r.Content
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, truncated, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}
