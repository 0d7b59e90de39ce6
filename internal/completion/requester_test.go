package completion

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neg-0/orion/internal/llm"
)

func TestAskTrimsCompletionText(t *testing.T) {
	client := llm.NewMockClient("text-davinci-004", "  Bonjour  ")
	r := NewRequester(client, 150, nil)

	res := r.Ask(context.Background(), "Translate hello")

	require.True(t, res.OK())
	assert.Equal(t, "Bonjour", res.Text)
	assert.Equal(t, "Bonjour", res.String())

	reqs := client.CompleteRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Translate hello", reqs[0].Prompt)
	assert.Equal(t, 150, reqs[0].MaxTokens)
}

func TestAskReturnsErrorDescription(t *testing.T) {
	client := llm.NewMockClient("text-davinci-004").WithError(errors.New("quota exceeded"))
	r := NewRequester(client, 150, nil)

	res := r.Ask(context.Background(), "hi")

	require.False(t, res.OK())
	assert.NotEmpty(t, res.String())
	assert.Contains(t, res.String(), "quota exceeded")
	assert.Empty(t, res.Text)
}

func TestAskDoesNotRetry(t *testing.T) {
	client := llm.NewMockClient("m").WithError(errors.New("boom"))
	r := NewRequester(client, 10, nil)

	_ = r.Ask(context.Background(), "")
	assert.Len(t, client.CompleteRequests(), 1)
}

type panickingCompleter struct{}

func (panickingCompleter) Complete(context.Context, llm.CompletionRequest) (*llm.Response, error) {
	panic("malformed")
}

func (panickingCompleter) Model() string { return "m" }

func TestAskRecoversFromPanic(t *testing.T) {
	res := NewRequester(panickingCompleter{}, 10, nil).Ask(context.Background(), "x")
	require.False(t, res.OK())
	assert.Contains(t, res.String(), "malformed")
}

func TestAskWithoutClient(t *testing.T) {
	var r *Requester
	res := r.Ask(context.Background(), "x")
	require.False(t, res.OK())
}

func TestAskAgainstHTTPServer(t *testing.T) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("ipv4 listener unavailable: %v", err)
	}
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"text":"\n\nconsole.log('Hello, world!');\n","finish_reason":"stop"}]}`))
	}))
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)

	client, err := llm.NewOpenAIClient("text-davinci-004", llm.Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	res := NewRequester(client, 150, nil).Ask(context.Background(), DefaultPrompt)
	require.True(t, res.OK(), res.String())
	assert.Equal(t, "console.log('Hello, world!');", res.Text)
}

func TestAskAgainstFailingServer(t *testing.T) {
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("ipv4 listener unavailable: %v", err)
	}
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	server.Listener = listener
	server.Start()
	t.Cleanup(server.Close)

	client, err := llm.NewOpenAIClient("text-davinci-004", llm.Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	res := NewRequester(client, 150, nil).Ask(context.Background(), "x")
	require.False(t, res.OK())
	assert.Contains(t, res.String(), "Incorrect API key")
}
