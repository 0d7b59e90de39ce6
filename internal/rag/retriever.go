package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// RetrieverConfig holds retrieval configuration
type RetrieverConfig struct {
	TopK          int     // default 5
	MinSimilarity float32 // hits below are dropped, default 0
}

// RetrievalResult is one retrieved chunk.
type RetrievalResult struct {
	ID         string
	FilePath   string
	Source     string
	StartLine  int
	EndLine    int
	Language   string
	Content    string
	Similarity float32
}

// Retriever answers similarity queries against an indexed store.
type Retriever struct {
	config RetrieverConfig
	store  VectorStore
}

// NewRetriever creates a new retriever
func NewRetriever(config RetrieverConfig, store VectorStore) *Retriever {
	if config.TopK <= 0 {
		config.TopK = 5
	}
	return &Retriever{config: config, store: store}
}

// Search returns up to topK chunks most similar to query, best first.
// topK <= 0 uses the configured default.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = r.config.TopK
	}

	hits, err := r.store.SearchByText(ctx, query, topK, r.config.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("search store: %w", err)
	}

	results := make([]RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		meta := hit.Document.Metadata
		result := RetrievalResult{
			ID:         hit.Document.ID,
			FilePath:   meta["file_path"],
			Source:     meta["source"],
			Language:   meta["language"],
			Content:    hit.Document.Content,
			Similarity: hit.Similarity,
		}
		result.StartLine, _ = strconv.Atoi(meta["start_line"])
		result.EndLine, _ = strconv.Atoi(meta["end_line"])
		results = append(results, result)
	}
	return results, nil
}

// FormatContext renders results as fenced blocks for a prompt.
func FormatContext(results []RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		name := result.Source
		if name == "" {
			name = result.FilePath
		}
		fmt.Fprintf(&sb, "File: %s (lines %d-%d)\n", name, result.StartLine+1, result.EndLine+1)
		sb.WriteString("```" + result.Language + "\n")
		sb.WriteString(strings.TrimRight(result.Content, "\n"))
		sb.WriteString("\n```\n")
	}
	return sb.String()
}
