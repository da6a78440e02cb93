package pdfchat

import (
	"context"
	"fmt"
	"time"

	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
)

// DocumentService manages uploaded PDFs.
type DocumentService struct {
	svc documentUseCase
	obs *observer
}

// Upload stores a PDF and records it as uploaded. Call Process to index it.
func (s *DocumentService) Upload(ctx context.Context, fileName string, data []byte) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.upload", start, err) }()

	res, err := s.svc.Upload(ctx, documentuc.Upload{
		FileName:    fileName,
		ContentType: documentuc.PDFContentType,
		Data:        data,
	})
	if err != nil {
		return Document{}, fmt.Errorf("upload: %w", err)
	}
	return fromInternalDocument(res.Document), nil
}

// Process runs the ingestion pipeline for an uploaded document and waits for it.
// A failed run returns both the result and the error.
func (s *DocumentService) Process(ctx context.Context, id string) (_ IngestResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.process", start, err) }()

	res, err := s.svc.Process(ctx, id)
	if err != nil {
		return fromIngestResult(res), fmt.Errorf("process: %w", err)
	}
	return fromIngestResult(res), nil
}

// Ingest uploads and processes a PDF in one call.
// The returned document reflects the state after processing.
func (s *DocumentService) Ingest(ctx context.Context, fileName string, data []byte) (Document, IngestResult, error) {
	doc, err := s.Upload(ctx, fileName, data)
	if err != nil {
		return Document{}, IngestResult{}, err
	}
	res, err := s.Process(ctx, doc.ID)
	if err != nil {
		return doc, res, err
	}
	if fresh, err := s.Get(ctx, doc.ID); err == nil {
		doc = fresh
	}
	return doc, res, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (_ Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.get", start, err) }()

	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return fromInternalDocument(d), nil
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) (_ []Document, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.list", start, err) }()

	docs, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = fromInternalDocument(d)
	}
	return out, nil
}

// Chunks returns the stored chunks of a document in index order.
func (s *DocumentService) Chunks(ctx context.Context, id string) (_ []Chunk, err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.chunks", start, err) }()

	chunks, err := s.svc.Chunks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = fromInternalChunk(c)
	}
	return out, nil
}

// Delete removes a document with its chunks and stored PDF.
func (s *DocumentService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("document.delete", start, err) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func fromInternalDocument(d domdoc.Document) Document {
	return Document{
		ID:          d.ID(),
		FileName:    d.FileName(),
		BlobURL:     d.BlobURL(),
		Status:      DocumentStatus(d.Status()),
		UploadedAt:  d.UploadedAt(),
		ProcessedAt: d.ProcessedAt(),
		ChunkCount:  d.ChunkCount(),
		LastError:   d.LastError(),
	}
}

func fromInternalChunk(c domchunk.TextChunk) Chunk {
	return Chunk{
		Index:      c.Index(),
		PageNumber: c.Metadata.PageNumber,
		Content:    c.Content,
		Metadata:   c.Metadata.Extra,
	}
}

func fromIngestResult(r ingest.Result) IngestResult {
	return IngestResult{
		DocumentID: r.DocumentID,
		Success:    r.Success,
		ChunkCount: r.ChunkCount,
		ErrorKind:  r.ErrorKind,
		Error:      r.Error,
	}
}
