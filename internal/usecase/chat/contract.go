package chat

import (
	"context"

	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
)

// DocumentReader loads document metadata.
type DocumentReader interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
}

// QueryEmbedder vectorizes a question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher finds the chunks of one document closest to a vector.
type ChunkSearcher interface {
	Search(ctx context.Context, documentID string, vector []float32, limit int) ([]domchunk.RetrievedChunk, error)
}
