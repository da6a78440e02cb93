// Package document handles uploads and the document lifecycle around ingestion.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
)

// DefaultMaxUploadBytes caps uploads at 10 MB (exclusive).
const DefaultMaxUploadBytes = 10 << 20

// PDFContentType is the only accepted upload type.
const PDFContentType = "application/pdf"

// Upload is a PDF received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult reports the stored document and whether ingestion was queued.
type UploadResult struct {
	Document domdoc.Document
	Queued   bool
}

// Service handles document CRUD around the ingestion pipeline.
type Service struct {
	repo      Repository
	chunks    ChunkStore
	blobs     BlobStore
	scheduler Scheduler
	ingester  ingest.Ingester
	maxBytes  int
	newID     func() string
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a document service. A nil scheduler leaves uploads for Process.
func New(
	repo Repository, chunks ChunkStore, blobs BlobStore,
	scheduler Scheduler, ingester ingest.Ingester, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo: repo, chunks: chunks, blobs: blobs,
		scheduler: scheduler, ingester: ingester,
		maxBytes: DefaultMaxUploadBytes,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithMaxUploadBytes configures the upload size limit.
func (s *Service) WithMaxUploadBytes(n int) *Service {
	if n > 0 {
		s.maxBytes = n
	}
	return s
}

// Upload stores the PDF, records the document as uploaded and queues ingestion.
// A full queue leaves the document uploaded; it can be processed later.
// Upload bytes are capped at the configured limit, exclusive.
func (s *Service) Upload(ctx context.Context, up Upload) (UploadResult, error) {
	fileName, err := s.validateUpload(up)
	if err != nil {
		return UploadResult{}, err
	}

	id := s.newID()
	url, err := s.blobs.Put(ctx, id+"-"+fileName, up.Data, PDFContentType)
	if err != nil {
		return UploadResult{}, fmt.Errorf("store blob: %w", err)
	}

	doc, err := domdoc.New(id, fileName, url, s.now())
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.repo.Create(ctx, &doc); err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), url); delErr != nil {
			return UploadResult{}, errors.Join(fmt.Errorf("create document: %w", err), delErr)
		}
		return UploadResult{}, fmt.Errorf("create document: %w", err)
	}

	log := s.logger.With(zap.String("document_id", id))
	queued := false
	if s.scheduler != nil {
		if err := s.scheduler.Enqueue(ingest.Request{DocumentID: id, BlobURL: url, FileName: fileName}); err != nil {
			log.Warn("Ingestion not queued", zap.Error(err))
		} else {
			queued = true
		}
	}
	log.Info("Document uploaded",
		zap.String("file_name", fileName),
		zap.Int("bytes", len(up.Data)),
		zap.Bool("queued", queued),
	)

	return UploadResult{Document: doc, Queued: queued}, nil
}

func (s *Service) validateUpload(up Upload) (string, error) {
	mediaType, _, err := mime.ParseMediaType(up.ContentType)
	if err != nil || mediaType != PDFContentType {
		return "", fmt.Errorf("%w: only PDF files are allowed, got %q", domain.ErrInvalidInput, up.ContentType)
	}
	if len(up.Data) == 0 {
		return "", fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}
	if len(up.Data) >= s.maxBytes {
		return "", fmt.Errorf("%w: file must be smaller than %d bytes", domain.ErrInvalidInput, s.maxBytes)
	}
	if !bytes.HasPrefix(up.Data, []byte("%PDF-")) {
		return "", fmt.Errorf("%w: file is not a PDF", domain.ErrInvalidInput)
	}

	name := path.Base(strings.ReplaceAll(up.FileName, `\`, "/"))
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		name = "document.pdf"
	}
	return name, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if err := domdoc.ValidateID(id); err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]domdoc.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Chunks returns the stored chunks of a document in order.
func (s *Service) Chunks(ctx context.Context, id string) ([]domchunk.TextChunk, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	chunks, err := s.chunks.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// Process ingests a known document synchronously.
func (s *Service) Process(ctx context.Context, id string) (ingest.Result, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return ingest.Result{DocumentID: id, ErrorKind: domain.Kind(err), Error: err.Error()}, err
	}
	return s.ingester.Ingest(ctx, ingest.Request{
		DocumentID: doc.ID(),
		BlobURL:    doc.BlobURL(),
		FileName:   doc.FileName(),
	})
}

// Delete removes chunks, blob and metadata. Every step is attempted.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var errs []error
	n, err := s.chunks.DeleteDocument(ctx, id)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete chunks: %w", err))
	}
	if err := s.blobs.Delete(ctx, doc.BlobURL()); err != nil {
		errs = append(errs, fmt.Errorf("delete blob: %w", err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete document: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.Info("Document deleted", zap.String("document_id", id), zap.Int("chunks", n))
	return nil
}
