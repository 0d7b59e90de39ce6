package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	orionerrors "github.com/neg-0/orion/internal/errors"
)

func TestOpenAIClientCompleteSuccess(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.URL.Path; got != "/completions" {
			t.Errorf("unexpected path: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected Authorization header, got %q", got)
		}
		if got := r.Header.Get("X-Custom"); got != "value" {
			t.Errorf("expected custom header, got %q", got)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if payload["model"] != "text-davinci-004" {
			t.Errorf("unexpected model: %v", payload["model"])
		}
		if payload["prompt"] != "say hi" {
			t.Errorf("unexpected prompt: %v", payload["prompt"])
		}
		if payload["max_tokens"] != float64(150) {
			t.Errorf("unexpected max_tokens: %v", payload["max_tokens"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"text":"  Bonjour  ","finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))

	var usageSeen TokenUsage
	client, err := NewOpenAIClient("text-davinci-004", Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
		Timeout: 1,
		Headers: map[string]string{"X-Custom": "value"},
		OnUsage: func(usage TokenUsage, model, endpoint string) {
			usageSeen = usage
		},
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "say hi", MaxTokens: 150})
	require.NoError(t, err)
	require.Equal(t, "  Bonjour  ", resp.Content)
	require.Equal(t, "stop", resp.StopReason)
	require.Equal(t, 7, resp.Usage.TotalTokens)
	require.Equal(t, 7, usageSeen.TotalTokens)
	require.NotEmpty(t, resp.Metadata["request_id"])
}

func TestOpenAIClientChatSuccess(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/chat/completions" {
			t.Errorf("unexpected path: %s", got)
		}
		var payload struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != RoleSystem {
			t.Errorf("unexpected messages: %+v", payload.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":5}}`))
	}))

	client, err := NewOpenAIClient("gpt-4", Config{BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	}})
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Content)
	require.Equal(t, "gpt-4", client.Model())
}

func TestOpenAIClientRequiresModel(t *testing.T) {
	_, err := NewOpenAIClient(" ", Config{})
	require.Error(t, err)
}

func TestOpenAIClientEmptyChoicesIsTransient(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.True(t, orionerrors.IsTransient(err))
}

func TestOpenAIClientErrorObjectInSuccessBody(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"model not supported"}}`))
	}))

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "x"})
	require.ErrorContains(t, err, "model not supported")
	require.True(t, orionerrors.IsPermanent(err))
}

func TestOpenAIClientCompleteTimeout(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"choices":[{"text":"slow"}]}`))
	}))

	client, err := NewOpenAIClient("m", Config{BaseURL: server.URL})
	require.NoError(t, err)
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err = client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var transient *orionerrors.TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected transient error, got %T", err)
	}
}

func TestOpenAIClientCompleteInvalidAPIKey(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))

	client, err := NewOpenAIClient("m", Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var perr *orionerrors.PermanentError
	if !errors.As(err, &perr) {
		t.Fatalf("expected permanent error, got %T", err)
	}
	if perr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, perr.StatusCode)
	}
	require.Contains(t, err.Error(), "invalid api key")
}

func TestOpenAIClientCompleteQuotaExceeded(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))

	client, err := NewOpenAIClient("m", Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var terr *orionerrors.TransientError
	if !errors.As(err, &terr) {
		t.Fatalf("expected transient error, got %T", err)
	}
	if terr.RetryAfter != 3 {
		t.Fatalf("expected retry-after 3, got %d", terr.RetryAfter)
	}
}

func TestMockClientRepeatsLastReply(t *testing.T) {
	mock := NewMockClient("mock", "one", "two")
	ctx := context.Background()

	first, err := mock.Chat(ctx, ChatRequest{Messages: []Message{{Role: RoleUser, Content: "a"}}})
	require.NoError(t, err)
	second, err := mock.Complete(ctx, CompletionRequest{Prompt: "b"})
	require.NoError(t, err)
	third, err := mock.Chat(ctx, ChatRequest{})
	require.NoError(t, err)

	require.Equal(t, "one", first.Content)
	require.Equal(t, "two", second.Content)
	require.Equal(t, "two", third.Content)
	require.Len(t, mock.ChatRequests(), 2)
	require.Len(t, mock.CompleteRequests(), 1)

	mock.WithError(errors.New("down"))
	_, err = mock.Chat(ctx, ChatRequest{})
	require.EqualError(t, err, "down")
}

func newIPv4TestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to create loopback listener: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	t.Cleanup(server.Close)

	return server
}

func TestOpenAIClientEmbedOrdersByIndex(t *testing.T) {
	t.Parallel()

	var usageEndpoint string
	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/embeddings" {
			t.Errorf("unexpected path: %s", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}],"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))

	client, err := NewOpenAIClient("text-embedding-3-small", Config{
		BaseURL: server.URL,
		OnUsage: func(_ TokenUsage, _ string, endpoint string) { usageEndpoint = endpoint },
	})
	require.NoError(t, err)

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	require.Equal(t, "embeddings", usageEndpoint)
}

func TestOpenAIClientEmbedMissingVectorIsTransient(t *testing.T) {
	t.Parallel()

	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))

	client, err := NewOpenAIClient("e", Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), []string{"a", "b"})
	require.True(t, orionerrors.IsTransient(err))
}
