package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neg-0/orion/internal/agent"
	"github.com/neg-0/orion/internal/config"
	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
	"github.com/neg-0/orion/internal/rag"
	"github.com/neg-0/orion/internal/ticket"
	"github.com/neg-0/orion/internal/workspace"
)

var ticketBindings = flagBindings{
	"ticket":         "ticket.path",
	"root":           "workspace.root",
	"model":          "chat.model",
	"task":           "chat.task",
	"config-list":    "chat.config_list",
	"clean":          "workspace.clean_shadows",
	"update-context": "retrieval.update_context",
}

func newTicketCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Chat about a ticket with the mirrored workspace as retrieval context",
		Long: `Load the ticket, mirror the workspace into .txt shadows, index them, and
start a chat between a retrieval proxy and an assistant seeded with
"Title: <title>\nBody: <body>". Any failure aborts with exit status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.flushMetrics()
			return a.runTicket(cmd.Context())
		},
	}

	cmd.Flags().String("ticket", "", "ticket JSON file (default ticket.json)")
	cmd.Flags().String("root", "", "workspace root (default workspace)")
	cmd.Flags().StringP("model", "m", "", "chat model, matched against the config list")
	cmd.Flags().String("task", "", "retrieval task: code, qa or default")
	cmd.Flags().String("config-list", "", "env var or file holding the model config list (default OAI_CONFIG_LIST)")
	cmd.Flags().Bool("clean", false, "remove shadow files after the chat")
	cmd.Flags().Bool("update-context", true, "let the assistant ask for more context with UPDATE CONTEXT")
	return cmd
}

func (a *app) runTicket(ctx context.Context) error {
	cfg := a.cfg

	tk, err := ticket.Load(cfg.Ticket.Path)
	if err != nil {
		return err
	}

	wsCfg := a.workspaceConfig()
	stats, err := workspace.Mirror(ctx, wsCfg)
	if err != nil {
		return fmt.Errorf("mirror workspace: %w", err)
	}
	a.metrics.AddMirrored(len(stats.Shadows), stats.Bytes)

	endpoints, err := config.LoadConfigList(cfg.Chat.ConfigList)
	if err != nil {
		return err
	}
	endpoint := selectEndpoint(endpoints, cfg.Chat.Model).Resolve(cfg)
	a.logger.Info("chat model %s at %s", endpoint.Model, endpoint.BaseURL)

	assistant, proxy, store, err := a.buildAgents(endpoint)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	printer := agent.NewPrinter(a.out)
	proxy.OnTurn(func(turn agent.Turn) {
		printer.PrintTurn(turn)
		a.metrics.IncChatTurn(turn.Speaker)
	})

	proxy.Reset()
	message := tk.Message()
	printer.PrintMessage(message)

	if _, err := proxy.InitiateChat(ctx, assistant, message); err != nil {
		return err
	}
	a.metrics.SetIndexedChunks(store.Count())

	if cfg.Workspace.CleanShadows {
		if _, err := workspace.Clean(ctx, wsCfg); err != nil {
			return fmt.Errorf("clean shadows: %w", err)
		}
	}
	return nil
}

// selectEndpoint prefers an entry for model and falls back to the first one.
func selectEndpoint(endpoints []config.ModelEndpoint, model string) config.ModelEndpoint {
	for _, endpoint := range endpoints {
		if endpoint.Model == model {
			return endpoint
		}
	}
	return endpoints[0]
}

// buildAgents wires the assistant and the retrieval proxy over a fresh corpus.
func (a *app) buildAgents(endpoint config.ModelEndpoint) (*agent.AssistantAgent, *agent.RetrieveUserProxyAgent, rag.VectorStore, error) {
	cfg := a.cfg
	clientCfg := a.llmConfig(endpoint.APIKey, endpoint.BaseURL)

	chatClient, err := llm.NewOpenAIClient(endpoint.Model, clientCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	embeddingClient, err := llm.NewOpenAIClient(cfg.Retrieval.EmbeddingModel, clientCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embedding client: %w", err)
	}

	ragLogger := logging.NewComponentLogger("rag")
	embedder, err := rag.NewEmbedder(embeddingClient, rag.EmbedderConfig{}, ragLogger)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := rag.NewVectorStore(rag.StoreConfig{
		PersistPath: cfg.Retrieval.PersistPath,
		Collection:  cfg.Retrieval.Collection,
	}, embedder)
	if err != nil {
		return nil, nil, nil, err
	}
	// Each run indexes the current shadows from scratch.
	if err := store.Reset(); err != nil {
		return nil, nil, nil, err
	}

	chunker, err := newChunker(rag.ChunkerConfig{
		ChunkSize:    cfg.Retrieval.ChunkSize,
		ChunkOverlap: cfg.Retrieval.ChunkOverlap,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	indexer := rag.NewIndexer(rag.IndexerConfig{DocsPath: cfg.Workspace.Root}, chunker, embedder, store, ragLogger)
	retriever := rag.NewRetriever(rag.RetrieverConfig{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	}, store)

	agentLogger := logging.NewComponentLogger("agent")
	assistant, err := agent.NewAssistantAgent(agent.AssistantConfig{
		Name:         "assistant",
		SystemPrompt: cfg.Chat.SystemPrompt,
	}, chatClient, agentLogger)
	if err != nil {
		return nil, nil, nil, err
	}
	proxy, err := agent.NewRetrieveUserProxyAgent("ragproxyagent", agent.RetrieveConfig{
		Task:                    cfg.Chat.Task,
		DocsPath:                cfg.Workspace.Root,
		Model:                   endpoint.Model,
		TopK:                    cfg.Retrieval.TopK,
		MaxConsecutiveAutoReply: cfg.Chat.MaxConsecutiveAutoReply,
		DisableUpdateContext:    !cfg.Retrieval.UpdateContext,
	}, indexer, retriever, agentLogger)
	if err != nil {
		return nil, nil, nil, err
	}
	return assistant, proxy, store, nil
}
