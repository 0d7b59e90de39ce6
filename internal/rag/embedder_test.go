package rag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orionerrors "github.com/neg-0/orion/internal/errors"
)

type scriptedEmbeddingClient struct {
	mu     sync.Mutex
	inputs [][]string
	errs   []error
}

func (c *scriptedEmbeddingClient) Model() string { return "text-embedding-3-small" }

func (c *scriptedEmbeddingClient) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append(c.inputs, append([]string(nil), texts...))
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func fastRetry() orionerrors.RetryConfig {
	return orionerrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestEmbedderCachesVectors(t *testing.T) {
	client := &scriptedEmbeddingClient{}
	embedder, err := NewEmbedder(client, EmbedderConfig{CacheSize: 8, Retry: fastRetry()}, nil)
	require.NoError(t, err)

	first, err := embedder.EmbedBatch(context.Background(), []string{"ab", "abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 1}, {3, 1}}, first)

	second, err := embedder.EmbedBatch(context.Background(), []string{"abc", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 1}, {4, 1}}, second)

	single, err := embedder.Embed(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, single)

	require.Len(t, client.inputs, 2)
	assert.Equal(t, []string{"abcd"}, client.inputs[1])
}

func TestEmbedderRetriesTransientFailures(t *testing.T) {
	client := &scriptedEmbeddingClient{errs: []error{
		orionerrors.NewTransientError(errors.New("503"), "unavailable"),
	}}
	embedder, err := NewEmbedder(client, EmbedderConfig{Retry: fastRetry()}, nil)
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, client.inputs, 2)
}

func TestEmbedderDoesNotRetryPermanentFailures(t *testing.T) {
	client := &scriptedEmbeddingClient{errs: []error{
		orionerrors.NewPermanentError(errors.New("401"), "bad key"),
	}}
	embedder, err := NewEmbedder(client, EmbedderConfig{Retry: fastRetry()}, nil)
	require.NoError(t, err)

	_, err = embedder.Embed(context.Background(), "x")
	require.ErrorContains(t, err, "bad key")
	assert.Len(t, client.inputs, 1)
}

func TestEmbedderRejectsOversizedBatch(t *testing.T) {
	embedder, err := NewEmbedder(&scriptedEmbeddingClient{}, EmbedderConfig{}, nil)
	require.NoError(t, err)

	_, err = embedder.EmbedBatch(context.Background(), make([]string, MaxBatchSize+1))
	require.ErrorContains(t, err, "exceeds limit")

	_, err = embedder.EmbedBatch(context.Background(), nil)
	require.Error(t, err)
}
