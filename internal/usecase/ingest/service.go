// Package ingest runs the document pipeline: fetch, extract, chunk, embed, store,
// with the document status kept in step.
package ingest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
)

// Pipeline stages, used as metric and log labels.
const (
	StageBegin    = "begin"
	StageFetch    = "fetch"
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageStore    = "store"
	StageFinalize = "finalize"
)

// Request identifies the document to ingest.
type Request struct {
	DocumentID string
	BlobURL    string
	FileName   string
}

// Result is the structured outcome of a run.
type Result struct {
	DocumentID string
	Success    bool
	ChunkCount int
	ErrorKind  string
	Error      string
}

// Timeouts bound each stage; zero disables a bound.
type Timeouts struct {
	Fetch   time.Duration
	Extract time.Duration
	Embed   time.Duration
	Store   time.Duration
}

// Options configures the pipeline.
type Options struct {
	Chunk    domchunk.Options
	Timeouts Timeouts
}

// Service ingests documents.
type Service struct {
	docs      DocumentStore
	blobs     BlobFetcher
	extractor TextExtractor
	embedder  Embedder
	chunks    ChunkWriter
	opts      Options
	group     singleflight.Group
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an ingestion service.
func New(
	docs DocumentStore, blobs BlobFetcher, extractor TextExtractor,
	embedder Embedder, chunks ChunkWriter, opts Options, logger *zap.Logger,
) (*Service, error) {
	if err := opts.Chunk.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs: docs, blobs: blobs, extractor: extractor,
		embedder: embedder, chunks: chunks, opts: opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}, nil
}

// Ingest runs the pipeline for one document. Concurrent calls for the same
// document share a single run, which ignores caller cancellation and is
// bounded by the stage timeouts instead. Failures are reported both in the
// Result and as the returned error.
func (s *Service) Ingest(ctx context.Context, req Request) (Result, error) {
	if err := domdoc.ValidateID(req.DocumentID); err != nil {
		return failed(req.DocumentID, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
	}
	if strings.TrimSpace(req.BlobURL) == "" {
		return failed(req.DocumentID, fmt.Errorf("%w: blob URL is required", domain.ErrInvalidInput))
	}

	v, err, shared := s.group.Do(req.DocumentID, func() (any, error) {
		return s.run(context.WithoutCancel(ctx), req)
	})
	if shared {
		s.logger.Debug("Joined in-flight ingestion", zap.String("document_id", req.DocumentID))
	}
	res, _ := v.(Result)
	return res, err
}

func (s *Service) run(ctx context.Context, req Request) (Result, error) {
	log := s.logger.With(zap.String("document_id", req.DocumentID))
	start := time.Now()

	if err := s.begin(ctx, req); err != nil {
		log.Error("Ingestion could not start", zap.Error(err))
		metrics.IngestRunsTotal.WithLabelValues(domain.Kind(err)).Inc()
		return failed(req.DocumentID, err)
	}

	count, err := s.process(ctx, req.DocumentID, req.BlobURL, log)
	if err == nil {
		err = s.stage(ctx, StageFinalize, s.opts.Timeouts.Store, func(ctx context.Context) error {
			_, err := s.docs.Transition(ctx, req.DocumentID, domdoc.Change{
				To: domdoc.StatusProcessed, ProcessedAt: s.now(), ChunkCount: count,
			})
			return err
		})
	}
	if err != nil {
		s.markFailed(ctx, req.DocumentID, err, log)
		metrics.IngestRunsTotal.WithLabelValues(domain.Kind(err)).Inc()
		log.Warn("Ingestion failed",
			zap.String("kind", domain.Kind(err)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return failed(req.DocumentID, err)
	}

	metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	log.Info("Document ingested",
		zap.Int("chunks", count),
		zap.Duration("duration", time.Since(start)),
	)
	return Result{DocumentID: req.DocumentID, Success: true, ChunkCount: count}, nil
}

// begin registers an unknown document and moves it to processing before any work.
func (s *Service) begin(ctx context.Context, req Request) error {
	fileName := req.FileName
	if strings.TrimSpace(fileName) == "" {
		fileName = path.Base(req.BlobURL)
	}
	doc, err := domdoc.New(req.DocumentID, fileName, req.BlobURL, s.now())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	return s.stage(ctx, StageBegin, s.opts.Timeouts.Store, func(ctx context.Context) error {
		if _, err := s.docs.Register(ctx, &doc); err != nil {
			return fmt.Errorf("register: %w", err)
		}
		if _, err := s.docs.Transition(ctx, req.DocumentID, domdoc.Change{To: domdoc.StatusProcessing}); err != nil {
			return fmt.Errorf("start processing: %w", err)
		}
		return nil
	})
}

func (s *Service) process(ctx context.Context, documentID, blobURL string, log *zap.Logger) (int, error) {
	var data []byte
	err := s.stage(ctx, StageFetch, s.opts.Timeouts.Fetch, func(ctx context.Context) error {
		var err error
		data, err = s.blobs.Fetch(ctx, blobURL)
		return ensureKind(err, domain.ErrTransport)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	log.Debug("Fetched blob", zap.Int("bytes", len(data)))

	var text string
	err = s.stage(ctx, StageExtract, s.opts.Timeouts.Extract, func(ctx context.Context) error {
		var err error
		text, err = s.extractor.Extract(ctx, data)
		return ensureKind(err, domain.ErrExtraction)
	})
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("extract: %w", domain.ErrEmptyDocument)
	}

	var chunks []domchunk.TextChunk
	err = s.stage(ctx, StageChunk, 0, func(context.Context) error {
		var err error
		chunks, err = domchunk.Split(text, s.opts.Chunk)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("chunk: %w", domain.ErrEmptyDocument)
	}
	log.Debug("Split document", zap.Int("chunks", len(chunks)), zap.Int("chars", len([]rune(text))))

	var embedded []domchunk.EmbeddedChunk
	err = s.stage(ctx, StageEmbed, s.opts.Timeouts.Embed, func(ctx context.Context) error {
		out, err := s.embedder.Embed(ctx, domchunk.Contents(chunks))
		if err != nil {
			return ensureKind(err, domain.ErrEmbeddingProviderError)
		}
		vectors := make([][]float32, len(out))
		for i, e := range out {
			vectors[i] = e.Embedding
		}
		embedded, err = domchunk.Pair(documentID, chunks, vectors)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}

	err = s.stage(ctx, StageStore, s.opts.Timeouts.Store, func(ctx context.Context) error {
		return ensureKind(s.chunks.Upsert(ctx, documentID, embedded), domain.ErrStoreUnavailable)
	})
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	metrics.ChunksStoredTotal.Add(float64(len(embedded)))

	return len(embedded), nil
}

// markFailed records the failure. It survives a cancelled request context,
// and its own failure is only logged.
func (s *Service) markFailed(ctx context.Context, documentID string, cause error, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if s.opts.Timeouts.Store > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeouts.Store)
		defer cancel()
	}

	_, err := s.docs.Transition(ctx, documentID, domdoc.Change{
		To:    domdoc.StatusFailed,
		Error: cause.Error(),
	})
	if err != nil {
		log.Error("Failed to record ingestion failure", zap.NamedError("cause", cause), zap.Error(err))
	}
}

func (s *Service) stage(
	ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error,
) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	metrics.IngestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

// ensureKind attaches sentinel to errors that carry no known kind yet,
// such as a bare deadline from the stage timeout.
func ensureKind(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if domain.Kind(err) != domain.KindInternal {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func failed(documentID string, err error) (Result, error) {
	return Result{
		DocumentID: documentID,
		ErrorKind:  domain.Kind(err),
		Error:      err.Error(),
	}, err
}
