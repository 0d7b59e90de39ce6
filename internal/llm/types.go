package llm

import "context"

// Message represents a conversation message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Roles used in chat transcripts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionRequest is a legacy text-completion request.
type CompletionRequest struct {
	Prompt      string         `json:"prompt"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChatRequest contains the parameters for a chat completion.
type ChatRequest struct {
	Messages    []Message      `json:"messages"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Response is the model's reply for either endpoint.
type Response struct {
	Content    string         `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      TokenUsage     `json:"usage"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TextCompleter sends a prompt to a text-completion endpoint.
type TextCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (*Response, error)
	Model() string
}

// ChatClient sends a message list to a chat-completion endpoint.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
	Model() string
}

// EmbeddingClient turns texts into vectors via an embeddings endpoint.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// UsageCallback observes token usage after each successful call.
type UsageCallback func(usage TokenUsage, model string, endpoint string)

// Config holds connection settings for an OpenAI-compatible API.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout int // seconds
	Headers map[string]string
	OnUsage UsageCallback
}
