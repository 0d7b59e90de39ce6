// Package completion sends a single prompt to a text-completion endpoint.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
)

// DefaultPrompt is used by the CLI when no prompt is given.
const DefaultPrompt = "Translate the following Python code to JavaScript:\n\nPython code:\nprint('Hello, world!')"

// Result is either the completion text or the failure that replaced it.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the request produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// String returns the text on success, the error description otherwise.
func (r Result) String() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Text
}

// Requester issues one completion request per Ask.
type Requester struct {
	client    llm.TextCompleter
	maxTokens int
	logger    logging.Logger
}

// NewRequester binds a completion client and an output limit.
func NewRequester(client llm.TextCompleter, maxTokens int, logger logging.Logger) *Requester {
	return &Requester{
		client:    client,
		maxTokens: maxTokens,
		logger:    logging.OrNop(logger),
	}
}

// Model returns the model the requester sends prompts to.
func (r *Requester) Model() string {
	if r == nil || r.client == nil {
		return ""
	}
	return r.client.Model()
}

// Ask sends prompt once and returns the trimmed first choice. Every failure,
// including a panic in the client, is captured in the Result.
func (r *Requester) Ask(ctx context.Context, prompt string) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Err: fmt.Errorf("completion panicked: %v", rec)}
		}
	}()

	if r == nil || r.client == nil {
		return Result{Err: errors.New("completion client is not configured")}
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Prompt:    prompt,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		r.logger.Warn("completion failed: %v", err)
		return Result{Err: err}
	}
	if resp == nil {
		return Result{Err: errors.New("completion returned no response")}
	}

	r.logger.Debug("completion ok: model=%s tokens=%d stop=%s", r.client.Model(), resp.Usage.TotalTokens, resp.StopReason)
	return Result{Text: strings.TrimSpace(resp.Content)}
}
