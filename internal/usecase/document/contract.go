package document

import (
	"context"

	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
)

// Repository defines the storage contract for document metadata.
type Repository interface {
	Create(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkStore reads and removes the chunks of a document.
type ChunkStore interface {
	List(ctx context.Context, documentID string) ([]domchunk.TextChunk, error)
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

// BlobStore keeps the raw PDF bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Scheduler queues background ingestion.
type Scheduler interface {
	Enqueue(req ingest.Request) error
}
