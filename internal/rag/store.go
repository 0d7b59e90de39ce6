package rag

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration
type StoreConfig struct {
	PersistPath string // directory for the chromem database; empty keeps it in memory
	Collection  string
}

// Document represents a stored chunk
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// SearchResult represents a search hit
type SearchResult struct {
	Document   Document
	Similarity float32 // cosine similarity
}

// VectorStore manages embeddings and similarity search
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	SearchByText(ctx context.Context, queryText string, topK int, minSimilarity float32) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	Count() int
	// Reset drops every stored document.
	Reset() error
	Close() error
}

// chromemStore implements VectorStore using chromem-go
type chromemStore struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	config     StoreConfig
	embed      chromem.EmbeddingFunc
}

// NewVectorStore opens (or creates) the configured collection.
func NewVectorStore(config StoreConfig, embedder Embedder) (VectorStore, error) {
	if config.Collection == "" {
		config.Collection = "default"
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	var db *chromem.DB
	if config.PersistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(config.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	s := &chromemStore{
		db:     db,
		config: config,
		embed:  embedder.Embed,
	}
	collection, err := db.GetOrCreateCollection(config.Collection, nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collection = collection
	return s, nil
}

func (s *chromemStore) current() *chromem.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

func (s *chromemStore) Add(ctx context.Context, docs []Document) error {
	collection := s.current()
	for _, doc := range docs {
		err := collection.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// SearchByText embeds queryText and returns up to topK hits at or above
// minSimilarity, best first. chromem rejects topK above the collection size,
// so it is clamped.
func (s *chromemStore) SearchByText(ctx context.Context, queryText string, topK int, minSimilarity float32) ([]SearchResult, error) {
	collection := s.current()
	if topK <= 0 {
		topK = 5
	}
	if n := collection.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := collection.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	hits := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSimilarity {
			continue
		}
		hits = append(hits, SearchResult{
			Document: Document{
				ID:        r.ID,
				Content:   r.Content,
				Embedding: r.Embedding,
				Metadata:  r.Metadata,
			},
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

func (s *chromemStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.current().Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (s *chromemStore) Count() int {
	return s.current().Count()
}

func (s *chromemStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.config.Collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	collection, err := s.db.CreateCollection(s.config.Collection, nil, s.embed)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = collection
	return nil
}

// Close is a no-op: chromem persists on every write.
func (s *chromemStore) Close() error {
	return nil
}
