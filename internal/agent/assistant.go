package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
)

// DefaultSystemPrompt is the assistant's base instruction.
const DefaultSystemPrompt = "You are a helpful assistant."

// TerminateKeyword ends a conversation when it appears in a reply.
const TerminateKeyword = "TERMINATE"

const terminateGuidance = `Reply "` + TerminateKeyword + `" in the end when everything is done.`

// AssistantConfig configures an AssistantAgent.
type AssistantConfig struct {
	Name         string
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64
}

// AssistantAgent answers with a chat model under a fixed system prompt.
type AssistantAgent struct {
	name         string
	systemPrompt string
	maxTokens    int
	temperature  *float64
	client       llm.ChatClient
	logger       logging.Logger
}

var _ Agent = (*AssistantAgent)(nil)

// NewAssistantAgent builds an assistant backed by client.
func NewAssistantAgent(config AssistantConfig, client llm.ChatClient, logger logging.Logger) (*AssistantAgent, error) {
	if client == nil {
		return nil, fmt.Errorf("assistant %q: chat client is required", config.Name)
	}
	if strings.TrimSpace(config.Name) == "" {
		config.Name = "assistant"
	}
	prompt := strings.TrimSpace(config.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	if !strings.Contains(prompt, TerminateKeyword) {
		prompt += "\n" + terminateGuidance
	}
	return &AssistantAgent{
		name:         config.Name,
		systemPrompt: prompt,
		maxTokens:    config.MaxTokens,
		temperature:  config.Temperature,
		client:       client,
		logger:       logging.OrNop(logger),
	}, nil
}

func (a *AssistantAgent) Name() string {
	return a.name
}

// SystemPrompt returns the full system message sent with every request.
func (a *AssistantAgent) SystemPrompt() string {
	return a.systemPrompt
}

func (a *AssistantAgent) GenerateReply(ctx context.Context, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}

	resp, err := a.client.Chat(ctx, llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Metadata:    map[string]any{"agent": a.name},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.name, err)
	}
	a.logger.Debug("%s replied with %d chars (%d tokens)", a.name, len(resp.Content), resp.Usage.TotalTokens)
	return resp.Content, nil
}
