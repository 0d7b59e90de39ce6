package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
	"github.com/neg-0/orion/internal/rag"
)

// DefaultMaxConsecutiveAutoReply bounds proxy auto-replies per chat.
const DefaultMaxConsecutiveAutoReply = 10

// DefaultAutoReply is sent when the proxy has nothing else to say.
const DefaultAutoReply = "Continue. Reply " + TerminateKeyword + " when the task is complete."

// DocumentIndexer builds the retrieval corpus.
type DocumentIndexer interface {
	Index(ctx context.Context) (*rag.IndexStats, error)
}

// DocumentSearcher queries the retrieval corpus.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]rag.RetrievalResult, error)
}

// RetrieveConfig configures a RetrieveUserProxyAgent.
type RetrieveConfig struct {
	Task                    string // code, qa or default
	DocsPath                string
	Model                   string
	TopK                    int
	MaxConsecutiveAutoReply int
	DefaultAutoReply        string
	// DisableUpdateContext ignores UPDATE CONTEXT requests.
	DisableUpdateContext bool
}

// TurnObserver is notified of every turn as it is recorded.
type TurnObserver func(Turn)

// RetrieveUserProxyAgent opens a chat with retrieved workspace context and
// auto-replies on the user's behalf. It never asks a human for input.
type RetrieveUserProxyAgent struct {
	name     string
	config   RetrieveConfig
	indexer  DocumentIndexer
	searcher DocumentSearcher
	logger   logging.Logger
	observer TurnObserver

	indexOnce sync.Once
	indexErr  error

	mu           sync.Mutex
	conversation *Conversation
	problem      string
	seen         map[string]bool
	rounds       int
	autoReplies  int
}

var _ Agent = (*RetrieveUserProxyAgent)(nil)

// NewRetrieveUserProxyAgent builds a proxy over an indexed corpus.
func NewRetrieveUserProxyAgent(name string, config RetrieveConfig, indexer DocumentIndexer, searcher DocumentSearcher, logger logging.Logger) (*RetrieveUserProxyAgent, error) {
	if searcher == nil {
		return nil, errors.New("retrieve proxy: document searcher is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "ragproxyagent"
	}
	if config.Task == "" {
		config.Task = TaskDefault
	}
	if !ValidTask(config.Task) {
		return nil, fmt.Errorf("retrieve proxy: unknown task %q", config.Task)
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	if config.MaxConsecutiveAutoReply <= 0 {
		config.MaxConsecutiveAutoReply = DefaultMaxConsecutiveAutoReply
	}
	if config.DefaultAutoReply == "" {
		config.DefaultAutoReply = DefaultAutoReply
	}

	return &RetrieveUserProxyAgent{
		name:         name,
		config:       config,
		indexer:      indexer,
		searcher:     searcher,
		logger:       logging.OrNop(logger),
		conversation: &Conversation{},
		seen:         make(map[string]bool),
	}, nil
}

func (p *RetrieveUserProxyAgent) Name() string {
	return p.name
}

// OnTurn registers an observer for new turns.
func (p *RetrieveUserProxyAgent) OnTurn(observer TurnObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = observer
}

// Reset clears the transcript and retrieval bookkeeping. The index is kept.
func (p *RetrieveUserProxyAgent) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversation.reset()
	p.problem = ""
	p.seen = make(map[string]bool)
	p.rounds = 0
	p.autoReplies = 0
}

// Conversation returns the transcript of the current chat.
func (p *RetrieveUserProxyAgent) Conversation() *Conversation {
	return p.conversation
}

// InitiateChat indexes the corpus on first use, opens the chat with the task
// prompt built from problem and retrieved context, then alternates turns with
// recipient until termination or the auto-reply limit.
func (p *RetrieveUserProxyAgent) InitiateChat(ctx context.Context, recipient Agent, problem string) (*Conversation, error) {
	if recipient == nil {
		return nil, errors.New("initiate chat: recipient is required")
	}
	if err := p.ensureIndexed(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.problem = problem
	p.autoReplies = 0
	p.mu.Unlock()

	docs, err := p.nextDocuments(ctx)
	if err != nil {
		return nil, err
	}
	p.send(recipient, BuildPrompt(p.config.Task, problem, rag.FormatContext(docs)))

	for {
		if err := ctx.Err(); err != nil {
			return p.conversation, err
		}

		reply, err := recipient.GenerateReply(ctx, p.conversation.MessagesFor(recipient.Name()))
		if err != nil {
			return p.conversation, fmt.Errorf("chat with %s: %w", recipient.Name(), err)
		}
		p.record(Turn{Speaker: recipient.Name(), Recipient: p.name, Content: reply})

		next, done, err := p.autoReply(ctx, reply)
		if err != nil {
			return p.conversation, err
		}
		if done {
			return p.conversation, nil
		}
		p.send(recipient, next)
	}
}

// GenerateReply lets the proxy take part in chats it did not open.
func (p *RetrieveUserProxyAgent) GenerateReply(ctx context.Context, history []llm.Message) (string, error) {
	if len(history) == 0 {
		return p.config.DefaultAutoReply, nil
	}
	next, done, err := p.autoReply(ctx, history[len(history)-1].Content)
	if err != nil {
		return "", err
	}
	if done {
		return TerminateKeyword, nil
	}
	return next, nil
}

// autoReply decides the proxy's answer to reply. done means the chat is over.
func (p *RetrieveUserProxyAgent) autoReply(ctx context.Context, reply string) (string, bool, error) {
	updateRequested := !p.config.DisableUpdateContext && wantsUpdateContext(reply)
	if isTermination(reply) || (!updateRequested && !containsCode(reply)) {
		return "", true, nil
	}

	p.mu.Lock()
	if p.autoReplies >= p.config.MaxConsecutiveAutoReply {
		p.mu.Unlock()
		p.logger.Info("%s reached %d consecutive auto replies", p.name, p.config.MaxConsecutiveAutoReply)
		return "", true, nil
	}
	p.autoReplies++
	problem := p.problem
	p.mu.Unlock()

	if !updateRequested {
		return p.config.DefaultAutoReply, false, nil
	}

	docs, err := p.nextDocuments(ctx)
	if err != nil {
		return "", false, err
	}
	if len(docs) == 0 {
		p.logger.Info("%s has no more context to offer", p.name)
		return "", true, nil
	}
	return BuildPrompt(p.config.Task, problem, rag.FormatContext(docs)), false, nil
}

func (p *RetrieveUserProxyAgent) ensureIndexed(ctx context.Context) error {
	if p.indexer == nil {
		return nil
	}
	p.indexOnce.Do(func() {
		stats, err := p.indexer.Index(ctx)
		if err != nil {
			p.indexErr = fmt.Errorf("index %s: %w", p.config.DocsPath, err)
			return
		}
		p.logger.Info("corpus ready: %d files, %d chunks", stats.IndexedFiles, stats.TotalChunks)
	})
	return p.indexErr
}

// nextDocuments returns up to TopK results for the problem not sent before.
// Each round widens the search so later rounds reach further down the ranking.
func (p *RetrieveUserProxyAgent) nextDocuments(ctx context.Context) ([]rag.RetrievalResult, error) {
	p.mu.Lock()
	p.rounds++
	want := p.config.TopK * p.rounds
	problem := p.problem
	p.mu.Unlock()

	if strings.TrimSpace(problem) == "" {
		return nil, nil
	}
	results, err := p.searcher.Search(ctx, problem, want)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fresh := make([]rag.RetrievalResult, 0, p.config.TopK)
	for _, result := range results {
		if p.seen[result.ID] {
			continue
		}
		p.seen[result.ID] = true
		fresh = append(fresh, result)
		if len(fresh) == p.config.TopK {
			break
		}
	}
	p.logger.Debug("round %d: %d new documents", p.rounds, len(fresh))
	return fresh, nil
}

func (p *RetrieveUserProxyAgent) send(recipient Agent, content string) {
	p.record(Turn{Speaker: p.name, Recipient: recipient.Name(), Content: content})
}

func (p *RetrieveUserProxyAgent) record(turn Turn) {
	p.conversation.Append(turn)
	p.mu.Lock()
	observer := p.observer
	p.mu.Unlock()
	if observer != nil {
		observer(turn)
	}
}
