// Package chat answers questions about one document from its most similar chunks.
package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Service runs retrieval and generation.
type Service struct {
	docs      DocumentReader
	embedder  QueryEmbedder
	chunks    ChunkSearcher
	completer domchat.Completer
	topK      int
	logger    *zap.Logger
}

// New creates a chat service. topK <= 0 uses DefaultTopK.
func New(
	docs DocumentReader, embedder QueryEmbedder, chunks ChunkSearcher,
	completer domchat.Completer, topK int, logger *zap.Logger,
) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs: docs, embedder: embedder, chunks: chunks,
		completer: completer, topK: topK, logger: logger,
	}
}

// Answer returns the whole answer. Provider failures never yield partial text.
func (s *Service) Answer(ctx context.Context, q domchat.Question) (string, error) {
	msgs, err := s.prepare(ctx, q)
	if err != nil {
		return "", err
	}
	if msgs == nil {
		return NoInformationAnswer, nil
	}

	start := time.Now()
	answer, err := s.completer.Complete(ctx, msgs)
	if err != nil {
		s.logger.Warn("Completion failed", zap.String("document_id", q.DocumentID), zap.Error(err))
		return "", ensureCompletionErr(err)
	}
	s.logger.Debug("Answered question",
		zap.String("document_id", q.DocumentID),
		zap.Duration("duration", time.Since(start)),
		zap.Int("answer_chars", len(answer)),
	)
	return answer, nil
}

// Stream starts generation and returns a handle yielding fragments.
// The handle is a *Stream; the caller must Close it.
func (s *Service) Stream(ctx context.Context, q domchat.Question) (domchat.FragmentStream, error) {
	msgs, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		return fixedStream(NoInformationAnswer), nil
	}

	up, err := s.completer.Stream(ctx, msgs)
	if err != nil {
		s.logger.Warn("Completion stream failed to start", zap.String("document_id", q.DocumentID), zap.Error(err))
		return nil, ensureCompletionErr(err)
	}

	start := time.Now()
	return upstreamStream(up, func(err error) {
		fields := []zap.Field{
			zap.String("document_id", q.DocumentID),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			s.logger.Warn("Completion stream aborted", append(fields, zap.Error(err))...)
			return
		}
		s.logger.Debug("Completion stream closed", fields...)
	}), nil
}

// prepare validates the question and retrieves context. A nil message list
// with a nil error means nothing relevant was found.
func (s *Service) prepare(ctx context.Context, q domchat.Question) ([]domchat.Message, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	doc, err := s.docs.Get(ctx, q.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if !doc.Queryable() {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrDocumentNotReady, doc.ID(), doc.Status())
	}

	vector, err := s.embedder.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := s.chunks.Search(ctx, q.DocumentID, vector, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	metrics.RetrievedChunks.Observe(float64(len(chunks)))

	if len(chunks) == 0 {
		s.logger.Info("No relevant chunks", zap.String("document_id", q.DocumentID))
		return nil, nil
	}
	return buildMessages(chunks, q), nil
}

func ensureCompletionErr(err error) error {
	if domain.Kind(err) == domain.KindCompletionProvider {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrCompletionProvider, err)
}
