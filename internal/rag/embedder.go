package rag

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	orionerrors "github.com/neg-0/orion/internal/errors"
	"github.com/neg-0/orion/internal/llm"
	"github.com/neg-0/orion/internal/logging"
)

// MaxBatchSize is the largest input list sent in one embeddings request.
const MaxBatchSize = 100

// EmbedderConfig holds embedding configuration
type EmbedderConfig struct {
	CacheSize int // LRU cache size, default 10000
	Retry     orionerrors.RetryConfig
}

// Embedder generates text embeddings
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for up to MaxBatchSize texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// cachedEmbedder fronts an embeddings endpoint with an LRU cache and retries
// transient failures.
type cachedEmbedder struct {
	client llm.EmbeddingClient
	cache  *lru.Cache[string, []float32]
	retry  orionerrors.RetryConfig
	logger logging.Logger
}

// NewEmbedder wraps client with caching and retry.
func NewEmbedder(client llm.EmbeddingClient, config EmbedderConfig, logger logging.Logger) (Embedder, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding client is required")
	}
	if config.CacheSize <= 0 {
		config.CacheSize = 10000
	}
	if config.Retry == (orionerrors.RetryConfig{}) {
		config.Retry = orionerrors.DefaultRetryConfig()
	}

	cache, err := lru.New[string, []float32](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &cachedEmbedder{
		client: client,
		cache:  cache,
		retry:  config.Retry,
		logger: logging.OrNop(logger),
	}, nil
}

func (e *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (e *cachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch size exceeds limit: %d > %d", len(texts), MaxBatchSize)
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			results[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	embeddings, err := orionerrors.RetryWithResult(ctx, e.retry, func(ctx context.Context) ([][]float32, error) {
		return e.client.Embed(ctx, missTexts)
	}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(missTexts) {
		return nil, fmt.Errorf("embed batch: got %d vectors for %d texts", len(embeddings), len(missTexts))
	}

	for i, idx := range missIdx {
		e.cache.Add(texts[idx], embeddings[i])
		results[idx] = embeddings[i]
	}
	e.logger.Debug("embedded %d texts (%d cached)", len(missTexts), len(texts)-len(missTexts))
	return results, nil
}
