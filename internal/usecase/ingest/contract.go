package ingest

import (
	"context"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
)

// DocumentStore persists document metadata and its lifecycle.
type DocumentStore interface {
	Register(ctx context.Context, doc *domdoc.Document) (created bool, err error)
	Transition(ctx context.Context, id string, c domdoc.Change) (previous domdoc.Status, err error)
}

// BlobFetcher downloads the raw PDF.
type BlobFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor turns PDF bytes into page-separated text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Embedder vectorizes chunk texts, preserving order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]domain.EmbeddedText, error)
}

// ChunkWriter stores embedded chunks of one document.
type ChunkWriter interface {
	Upsert(ctx context.Context, documentID string, chunks []domchunk.EmbeddedChunk) error
}

// Ingester runs the pipeline for one document.
type Ingester interface {
	Ingest(ctx context.Context, req Request) (Result, error)
}
