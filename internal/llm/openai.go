package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Defaults for the OpenAI provider.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultMaxTokens     = 4000
)

// OpenAIProvider calls the Chat Completions API.
type OpenAIProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL sets a custom base URL (e.g. a proxy).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOpenAIDefaults sets the temperature and token limit used when a
// request leaves them unset.
func WithOpenAIDefaults(temperature float64, maxTokens int) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.temperature = temperature
		if maxTokens > 0 {
			p.maxTokens = maxTokens
		}
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = client }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p := &OpenAIProvider{
		apiKey:    apiKey,
		baseURL:   DefaultOpenAIBaseURL,
		model:     DefaultOpenAIModel,
		maxTokens: DefaultMaxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Model returns the default model.
func (p *OpenAIProvider) Model() string { return p.model }

// Ping verifies the API key by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	body := p.buildRequest(messages, opts)
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return nil, err
	}

	var result openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := result.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		FinishReason: FinishReason(choice.FinishReason),
		Model:        result.Model,
		Provider:     ProviderOpenAI,
		Latency:      time.Since(start),
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

type openAIChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage  `json:"usage"`
	Model string `json:"model"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (p *OpenAIProvider) buildRequest(messages []Message, opts *ChatOptions) openAIChatRequest {
	r := openAIChatRequest{Model: p.model, Messages: messages, MaxTokens: p.maxTokens}
	temp := p.temperature
	if opts != nil {
		if opts.Model != "" {
			r.Model = opts.Model
		}
		if opts.MaxTokens > 0 {
			r.MaxTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			temp = opts.Temperature
		}
	}
	if temp > 0 {
		r.Temperature = &temp
	}
	return r
}

func checkError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr openAIErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Error.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Error.Message)
		case http.StatusBadRequest, http.StatusNotFound:
			if strings.Contains(apiErr.Error.Code, "context_length") {
				return fmt.Errorf("%w: %s", ErrContextLength, apiErr.Error.Message)
			}
			if strings.Contains(apiErr.Error.Code, "model_not_found") {
				return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Error.Message)
			}
		}
		return fmt.Errorf("openai: API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("openai: HTTP %d: %s", resp.StatusCode, string(body))
}
