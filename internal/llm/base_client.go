package llm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neg-0/orion/internal/httpclient"
	"github.com/neg-0/orion/internal/logging"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// baseClient holds fields and helpers shared by the HTTP endpoints.
type baseClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
	headers    map[string]string
	onUsage    UsageCallback
}

// Model returns the model name used by this client.
func (c *baseClient) Model() string {
	return c.model
}

func newBaseClient(model string, config Config) baseClient {
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := 120 * time.Second
	if config.Timeout > 0 {
		timeout = time.Duration(config.Timeout) * time.Second
	}
	return baseClient{
		model:      model,
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		httpClient: httpclient.New(timeout),
		logger:     logging.NewComponentLogger("llm"),
		headers:    config.Headers,
		onUsage:    config.OnUsage,
	}
}

// buildLogPrefix extracts or mints the request ID used across request/response logging.
func (c *baseClient) buildLogPrefix(metadata map[string]any) (requestID, prefix string) {
	requestID = extractRequestID(metadata)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID, fmt.Sprintf("[req:%s] ", requestID)
}

// doPost sends a JSON POST with bearer auth and any custom headers.
// Caller is responsible for closing resp.Body.
func (c *baseClient) doPost(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	return c.httpClient.Do(httpReq)
}

func (c *baseClient) logRequestMeta(prefix, url string) {
	c.logger.Debug("%s=== LLM Request ===", prefix)
	c.logger.Debug("%sURL: POST %s", prefix, url)
	c.logger.Debug("%sModel: %s", prefix, c.model)
}

func (c *baseClient) logResponseSummary(prefix string, result *Response) {
	c.logger.Debug("%s=== LLM Response Summary ===", prefix)
	c.logger.Debug("%sStop Reason: %s", prefix, result.StopReason)
	c.logger.Debug("%sContent Length: %d chars", prefix, len(result.Content))
	c.logger.Debug("%sUsage: %d prompt + %d completion = %d total tokens",
		prefix,
		result.Usage.PromptTokens,
		result.Usage.CompletionTokens,
		result.Usage.TotalTokens)
}

func (c *baseClient) fireUsage(usage TokenUsage, endpoint string) {
	if c.onUsage != nil {
		c.onUsage(usage, c.model, endpoint)
	}
}

func extractRequestID(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata["request_id"]; ok {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case fmt.Stringer:
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}
