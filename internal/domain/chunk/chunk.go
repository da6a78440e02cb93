// Package chunk holds the retrieval unit of a document and the splitter producing it.
package chunk

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/pdfchat/internal/domain"
)

// Recognized metadata keys.
const (
	KeyPageNumber = "pageNumber"
	KeyChunkIndex = "chunkIndex"
)

// Metadata is typed chunk provenance plus an open extension map.
// PageNumber is 1-based; zero means unknown.
type Metadata struct {
	PageNumber int
	ChunkIndex int
	Extra      map[string]string
}

// With returns a copy with an extension key set. Recognized keys are ignored.
func (m Metadata) With(key, value string) Metadata {
	if key == KeyPageNumber || key == KeyChunkIndex {
		return m
	}
	out := m
	out.Extra = maps.Clone(m.Extra)
	if out.Extra == nil {
		out.Extra = make(map[string]string, 1)
	}
	out.Extra[key] = value
	return out
}

// TextChunk is a contiguous slice of extracted document text.
type TextChunk struct {
	Content  string
	Metadata Metadata
}

// Index returns the position of the chunk within its document.
func (c TextChunk) Index() int { return c.Metadata.ChunkIndex }

// EmbeddedChunk pairs a chunk with its vector and owning document.
type EmbeddedChunk struct {
	TextChunk
	DocumentID string
	Embedding  []float32
}

// RetrievedChunk is a similarity search hit. Score is a similarity in [0,1].
type RetrievedChunk struct {
	TextChunk
	DocumentID string
	Score      float64
}

// Pair associates the i-th chunk with the i-th vector.
func Pair(documentID string, chunks []TextChunk, vectors [][]float32) ([]EmbeddedChunk, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings",
			domain.ErrEmbeddingProviderError, len(chunks), len(vectors))
	}
	out := make([]EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for chunk %d",
				domain.ErrEmbeddingProviderError, c.Index())
		}
		out[i] = EmbeddedChunk{TextChunk: c, DocumentID: documentID, Embedding: vectors[i]}
	}
	return out, nil
}

// Contents returns the chunk texts in order.
func Contents(chunks []TextChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}
