package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/neg-0/orion/internal/logging"
)

// IndexerConfig holds indexing configuration
type IndexerConfig struct {
	DocsPath    string
	Extensions  []string // file suffixes to index, default ".txt"
	ExcludeDirs []string // e.g. .git, node_modules
	Concurrency int      // files indexed in parallel, default 8
}

// Indexer loads a document tree into a VectorStore.
type Indexer struct {
	config   IndexerConfig
	chunker  *Chunker
	embedder Embedder
	store    VectorStore
	logger   logging.Logger
}

// IndexStats holds indexing statistics
type IndexStats struct {
	TotalFiles   int
	IndexedFiles int
	SkippedFiles int
	TotalChunks  int
}

// NewIndexer creates a new indexer
func NewIndexer(config IndexerConfig, chunker *Chunker, embedder Embedder, store VectorStore, logger logging.Logger) *Indexer {
	if len(config.ExcludeDirs) == 0 {
		config.ExcludeDirs = []string{".git", "node_modules", "vendor", "dist", "build"}
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".txt"}
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	return &Indexer{
		config:   config,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logging.OrNop(logger),
	}
}

// Index chunks, embeds and stores every matching file under DocsPath. The
// first embedding or storage failure cancels the remaining work.
func (idx *Indexer) Index(ctx context.Context) (*IndexStats, error) {
	files, err := idx.collectFiles()
	if err != nil {
		return nil, fmt.Errorf("collect files: %w", err)
	}

	stats := &IndexStats{TotalFiles: len(files)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.Concurrency)
	for _, file := range files {
		file := file
		g.Go(func() error {
			chunks, err := idx.indexFile(gctx, file)
			if err != nil {
				return fmt.Errorf("index %s: %w", file, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if chunks == 0 {
				stats.SkippedFiles++
			} else {
				stats.IndexedFiles++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.TotalChunks = idx.store.Count()
	idx.logger.Info("indexed %d/%d files from %s (%d chunks)", stats.IndexedFiles, stats.TotalFiles, idx.config.DocsPath, stats.TotalChunks)
	return stats, nil
}

func (idx *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	rel, err := filepath.Rel(idx.config.DocsPath, path)
	if err != nil {
		rel = path
	}
	source := idx.sourceName(rel)
	metadata := map[string]string{
		"file_path": filepath.ToSlash(rel),
		"source":    filepath.ToSlash(source),
		"language":  strings.TrimPrefix(filepath.Ext(source), "."),
	}

	chunks := idx.chunker.ChunkText(string(content), metadata)
	for start := 0; start < len(chunks); start += MaxBatchSize {
		batch := chunks[start:min(start+MaxBatchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, err
		}

		docs := make([]Document, len(batch))
		for i, chunk := range batch {
			chunk.Metadata["start_line"] = strconv.Itoa(chunk.StartLine)
			chunk.Metadata["end_line"] = strconv.Itoa(chunk.EndLine)
			docs[i] = Document{
				ID:        documentID(rel, chunk.StartLine, chunk.EndLine, start+i),
				Content:   chunk.Text,
				Embedding: embeddings[i],
				Metadata:  chunk.Metadata,
			}
		}
		if err := idx.store.Add(ctx, docs); err != nil {
			return 0, fmt.Errorf("store documents: %w", err)
		}
	}
	return len(chunks), nil
}

// sourceName strips the indexed suffix so foo.js.txt reports foo.js.
func (idx *Indexer) sourceName(rel string) string {
	for _, ext := range idx.config.Extensions {
		if trimmed := strings.TrimSuffix(rel, ext); trimmed != rel && filepath.Ext(trimmed) != "" {
			return trimmed
		}
	}
	return rel
}

func documentID(path string, startLine, endLine, seq int) string {
	key := fmt.Sprintf("%s:%d-%d#%d", filepath.ToSlash(path), startLine, endLine, seq)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}

func (idx *Indexer) collectFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(idx.config.DocsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			for _, excluded := range idx.config.ExcludeDirs {
				if d.Name() == excluded {
					return fs.SkipDir
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		for _, ext := range idx.config.Extensions {
			if strings.HasSuffix(d.Name(), ext) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	return files, err
}
