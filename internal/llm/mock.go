package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements TextCompleter and ChatClient with scripted replies.
// Replies are served in order; the last one repeats once the script runs out.
type MockClient struct {
	mu        sync.Mutex
	model     string
	replies   []string
	err       error
	completes []CompletionRequest
	chats     []ChatRequest
}

var (
	_ TextCompleter = (*MockClient)(nil)
	_ ChatClient    = (*MockClient)(nil)
)

// NewMockClient returns a mock that answers with replies in order,
// repeating the last one once exhausted.
func NewMockClient(model string, replies ...string) *MockClient {
	return &MockClient{model: model, replies: replies}
}

// WithError makes every subsequent call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Model returns the configured model name.
func (m *MockClient) Model() string {
	return m.model
}

// Complete records the request and returns the next scripted reply.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes = append(m.completes, req)
	return m.next(ctx)
}

// Chat records the request and returns the next scripted reply.
func (m *MockClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := req
	copied.Messages = append([]Message(nil), req.Messages...)
	m.chats = append(m.chats, copied)
	return m.next(ctx)
}

// CompleteRequests returns the recorded completion requests.
func (m *MockClient) CompleteRequests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.completes...)
}

// ChatRequests returns the recorded chat requests.
func (m *MockClient) ChatRequests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.chats...)
}

func (m *MockClient) next(ctx context.Context) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	calls := len(m.completes) + len(m.chats)
	if len(m.replies) == 0 {
		return &Response{Content: fmt.Sprintf("mock response %d", calls), StopReason: "stop"}, nil
	}
	idx := calls - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return &Response{Content: m.replies[idx], StopReason: "stop"}, nil
}
