package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used by GPT-3.5/4 era models.
const DefaultEncoding = "cl100k_base"

// ChunkerConfig holds chunking configuration
type ChunkerConfig struct {
	ChunkSize    int // Tokens per chunk (default: 512)
	ChunkOverlap int // Token overlap between chunks (default: 50)
}

func (c ChunkerConfig) withDefaults() ChunkerConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 512
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 4
	}
	return c
}

// Chunk is a contiguous run of lines from one document.
type Chunk struct {
	Text      string
	StartLine int
	EndLine   int
	Metadata  map[string]string
}

// TokenCounter counts model tokens in a string.
type TokenCounter func(text string) int

// Chunker splits documents into token-bounded, line-aligned chunks.
type Chunker struct {
	config ChunkerConfig
	count  TokenCounter
}

// NewChunker creates a chunker backed by the cl100k_base tokenizer.
func NewChunker(config ChunkerConfig) (*Chunker, error) {
	encoding, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("get encoding: %w", err)
	}
	return NewChunkerWithCounter(config, func(text string) int {
		return len(encoding.Encode(text, nil, nil))
	}), nil
}

// NewChunkerWithCounter creates a chunker with a custom token counter.
func NewChunkerWithCounter(config ChunkerConfig, count TokenCounter) *Chunker {
	return &Chunker{config: config.withDefaults(), count: count}
}

// CountTokens returns the token count for text.
func (c *Chunker) CountTokens(text string) int {
	return c.count(text)
}

// ChunkText splits text into chunks no larger than ChunkSize tokens where
// possible. Consecutive chunks share up to ChunkOverlap tokens of trailing
// lines. A single line longer than ChunkSize is split by characters.
func (c *Chunker) ChunkText(text string, metadata map[string]string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	tokens := make([]int, len(lines))
	for i, line := range lines {
		tokens[i] = c.count(line + "\n")
	}

	var chunks []Chunk
	emit := func(start, end int) {
		chunks = append(chunks, Chunk{
			Text:      strings.Join(lines[start:end+1], "\n") + "\n",
			StartLine: start,
			EndLine:   end,
			Metadata:  cloneMetadata(metadata),
		})
	}

	start, size := 0, 0
	for i := 0; i < len(lines); i++ {
		if tokens[i] > c.config.ChunkSize {
			if i > start {
				emit(start, i-1)
			}
			chunks = append(chunks, c.splitLongLine(lines[i], i, metadata)...)
			start, size = i+1, 0
			continue
		}

		if size+tokens[i] > c.config.ChunkSize && i > start {
			emit(start, i-1)
			start, size = c.overlapStart(tokens, start, i)
			if size+tokens[i] > c.config.ChunkSize {
				start, size = i, 0
			}
		}
		size += tokens[i]
	}
	if start < len(lines) {
		emit(start, len(lines)-1)
	}
	return chunks
}

// overlapStart walks back from next over lines already emitted and returns
// the first line of the next chunk plus the tokens it already carries.
func (c *Chunker) overlapStart(tokens []int, prevStart, next int) (int, int) {
	start, size := next, 0
	for i := next - 1; i > prevStart; i-- {
		if size+tokens[i] > c.config.ChunkOverlap {
			break
		}
		size += tokens[i]
		start = i
	}
	return start, size
}

func (c *Chunker) splitLongLine(line string, lineNum int, metadata map[string]string) []Chunk {
	// roughly four characters per token
	step := c.config.ChunkSize * 4
	runes := []rune(line)

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := min(start+step, len(runes))
		chunks = append(chunks, Chunk{
			Text:      string(runes[start:end]),
			StartLine: lineNum,
			EndLine:   lineNum,
			Metadata:  cloneMetadata(metadata),
		})
	}
	return chunks
}

func cloneMetadata(src map[string]string) map[string]string {
	out := make(map[string]string, len(src)+2)
	for key, value := range src {
		out[key] = value
	}
	return out
}
