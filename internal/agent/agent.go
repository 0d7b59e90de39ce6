// Package agent runs a two-party chat between an LLM assistant and a
// retrieval-augmented user proxy.
package agent

import (
	"context"
	"sync"

	"github.com/neg-0/orion/internal/llm"
)

// Agent is a chat participant.
type Agent interface {
	Name() string
	// GenerateReply answers the conversation so far, seen from this agent's
	// side: its own turns carry the assistant role, everyone else's the user role.
	GenerateReply(ctx context.Context, history []llm.Message) (string, error)
}

// Turn is one message in a conversation.
type Turn struct {
	Speaker   string
	Recipient string
	Content   string
}

// Conversation is an append-only transcript.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append records a turn.
func (c *Conversation) Append(turn Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
}

// Turns returns a copy of the transcript.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Turn(nil), c.turns...)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// MessagesFor renders the transcript as chat messages from name's point of view.
func (c *Conversation) MessagesFor(name string) []llm.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages := make([]llm.Message, 0, len(c.turns))
	for _, turn := range c.turns {
		role := llm.RoleUser
		if turn.Speaker == name {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content, Name: turn.Speaker})
	}
	return messages
}

func (c *Conversation) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
