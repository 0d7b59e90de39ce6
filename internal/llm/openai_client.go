package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	orionerrors "github.com/neg-0/orion/internal/errors"
	"github.com/neg-0/orion/internal/httpclient"
)

// OpenAIClient speaks the OpenAI-compatible completions and chat completions APIs.
type OpenAIClient struct {
	baseClient
}

var (
	_ TextCompleter   = (*OpenAIClient)(nil)
	_ ChatClient      = (*OpenAIClient)(nil)
	_ EmbeddingClient = (*OpenAIClient)(nil)
)

// NewOpenAIClient constructs a client bound to one model.
func NewOpenAIClient(model string, config Config) (*OpenAIClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &OpenAIClient{baseClient: newBaseClient(model, config)}, nil
}

type apiError struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u apiUsage) toUsage() TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// Complete sends prompt to POST /completions and returns the first choice's text.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Response, error) {
	requestID, prefix := c.buildLogPrefix(req.Metadata)

	payload := map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	var oaiResp struct {
		Choices []struct {
			Text         string `json:"text"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage apiUsage  `json:"usage"`
		Error *apiError `json:"error"`
	}
	if err := c.post(ctx, prefix, "/completions", payload, &oaiResp, func() *apiError { return oaiResp.Error }); err != nil {
		return nil, err
	}

	if len(oaiResp.Choices) == 0 {
		c.logger.Debug("%sNo choices in response", prefix)
		return nil, orionerrors.NewTransientError(errors.New("no choices in response"), "LLM returned an empty response")
	}

	result := &Response{
		Content:    oaiResp.Choices[0].Text,
		StopReason: oaiResp.Choices[0].FinishReason,
		Usage:      oaiResp.Usage.toUsage(),
		Metadata:   map[string]any{"request_id": requestID},
	}
	c.fireUsage(result.Usage, "completions")
	c.logResponseSummary(prefix, result)
	return result, nil
}

// Chat sends messages to POST /chat/completions and returns the first choice's message.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	requestID, prefix := c.buildLogPrefix(req.Metadata)

	payload := map[string]any{
		"model":    c.model,
		"messages": req.Messages,
		"stream":   false,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}

	var oaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage apiUsage  `json:"usage"`
		Error *apiError `json:"error"`
	}
	if err := c.post(ctx, prefix, "/chat/completions", payload, &oaiResp, func() *apiError { return oaiResp.Error }); err != nil {
		return nil, err
	}

	if len(oaiResp.Choices) == 0 {
		c.logger.Debug("%sNo choices in response", prefix)
		return nil, orionerrors.NewTransientError(errors.New("no choices in response"), "LLM returned an empty response")
	}

	result := &Response{
		Content:    oaiResp.Choices[0].Message.Content,
		StopReason: oaiResp.Choices[0].FinishReason,
		Usage:      oaiResp.Usage.toUsage(),
		Metadata:   map[string]any{"request_id": requestID},
	}
	c.fireUsage(result.Usage, "chat")
	c.logResponseSummary(prefix, result)
	return result, nil
}

// Embed sends texts to POST /embeddings and returns one vector per input, in order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	_, prefix := c.buildLogPrefix(nil)

	payload := map[string]any{
		"model": c.model,
		"input": texts,
	}

	var oaiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Usage apiUsage  `json:"usage"`
		Error *apiError `json:"error"`
	}
	if err := c.post(ctx, prefix, "/embeddings", payload, &oaiResp, func() *apiError { return oaiResp.Error }); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range oaiResp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	for i, vec := range embeddings {
		if len(vec) == 0 {
			return nil, orionerrors.NewTransientError(fmt.Errorf("missing embedding %d", i), "LLM returned an incomplete embeddings response")
		}
	}

	c.fireUsage(oaiResp.Usage.toUsage(), "embeddings")
	return embeddings, nil
}

// post marshals payload, sends it, and decodes a 2xx body into out.
// apiErr is consulted after decoding for providers that report errors in a 200 body.
func (c *OpenAIClient) post(ctx context.Context, prefix, path string, payload any, out any, apiErr func() *apiError) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + path
	c.logRequestMeta(prefix, endpoint)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		c.logger.Debug("%sRequest Body:\n%s", prefix, prettyJSON.String())
	}

	resp, err := c.doPost(ctx, endpoint, body)
	if err != nil {
		c.logger.Debug("%sHTTP request failed: %v", prefix, err)
		return wrapRequestError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("%sStatus: %d %s", prefix, resp.StatusCode, resp.Status)

	respBody, err := httpclient.ReadBody(resp, httpclient.DefaultMaxResponseBytes)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("%sError Response Body: %s", prefix, string(respBody))
		return mapHTTPError(resp.StatusCode, respBody, resp.Header)
	}

	c.logger.Debug("%sResponse Body: %s", prefix, string(respBody))
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if e := apiErr(); e != nil && e.Message != "" {
		msg := e.Message
		if e.Type != "" {
			msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
		}
		return mapHTTPError(resp.StatusCode, []byte(msg), resp.Header)
	}
	return nil
}

// mapHTTPError classifies a failed response, preferring the API's own error message.
func mapHTTPError(status int, body []byte, headers http.Header) error {
	message := strings.TrimSpace(string(body))
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	if status >= 200 && status < 300 {
		// Error object inside a successful envelope; treat as a bad request.
		status = http.StatusBadRequest
	}

	retryAfter := 0
	if headers != nil {
		if v, err := strconv.Atoi(strings.TrimSpace(headers.Get("Retry-After"))); err == nil && v > 0 {
			retryAfter = v
		}
	}
	return orionerrors.FromHTTPStatus(status, message, retryAfter)
}

func wrapRequestError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return orionerrors.NewTransientError(err, fmt.Sprintf("request failed: %v", err))
}
