// Package embedding turns texts into vectors: ordered sub-batching over the
// provider with bounded concurrency and token budget enforcement.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
)

// Sub-batch defaults.
const (
	DefaultMaxBatchItems = 256
	DefaultMaxBatchChars = 200_000
	DefaultConcurrency   = 4
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Options configures the batcher.
type Options struct {
	Provider      string
	Model         string
	MaxBatchItems int
	MaxBatchChars int
	Concurrency   int
	// Timeout bounds one Embed call including all sub-batches.
	Timeout time.Duration
}

// Batcher embeds arbitrary numbers of texts through a single-request provider.
type Batcher struct {
	inner  domain.Embedder
	opts   Options
	budget BudgetChecker
	logger *zap.Logger
}

// NewBatcher wraps an embedder. budget may be nil.
func NewBatcher(inner domain.Embedder, opts Options, budget BudgetChecker, logger *zap.Logger) *Batcher {
	if opts.MaxBatchItems <= 0 {
		opts.MaxBatchItems = DefaultMaxBatchItems
	}
	if opts.MaxBatchChars <= 0 {
		opts.MaxBatchChars = DefaultMaxBatchChars
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{inner: inner, opts: opts, budget: budget, logger: logger}
}

// Embed returns one vector per text, in input order. Any failing sub-batch
// fails the whole call; partial results are never returned.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([]domain.EmbeddedText, error) {
	if len(texts) == 0 {
		return []domain.EmbeddedText{}, nil
	}

	if b.budget != nil {
		if err := b.budget.Check(ctx); err != nil {
			b.logger.Error("Budget exceeded",
				zap.String("provider", b.opts.Provider),
				zap.Int("batch_size", len(texts)),
				zap.Error(err),
			)
			return nil, providerError(err)
		}
	}

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	batches := splitBatches(texts, b.opts.MaxBatchItems, b.opts.MaxBatchChars)
	vectors := make([][]float32, len(texts))
	var totalTokens atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for _, r := range batches {
		g.Go(func() error {
			res, err := domain.EmbedBatch(gctx, b.inner, texts[r.lo:r.hi])
			if err != nil {
				return fmt.Errorf("sub-batch [%d:%d]: %w", r.lo, r.hi, err)
			}
			if len(res.Embeddings) != r.hi-r.lo {
				return fmt.Errorf("%w: sub-batch [%d:%d] returned %d embeddings",
					domain.ErrEmbeddingProviderError, r.lo, r.hi, len(res.Embeddings))
			}
			for i, v := range res.Embeddings {
				if len(v) == 0 {
					return fmt.Errorf("%w: empty embedding at %d", domain.ErrEmbeddingProviderError, r.lo+i)
				}
				vectors[r.lo+i] = v
			}
			totalTokens.Add(int64(res.TotalTokens))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Error("Batch embedding failed",
			zap.String("provider", b.opts.Provider),
			zap.String("model", b.opts.Model),
			zap.Int("batch_size", len(texts)),
			zap.Int("sub_batches", len(batches)),
			zap.Error(err),
		)
		return nil, providerError(err)
	}

	b.recordBudget(totalTokens.Load())

	b.logger.Debug("Batch embedding completed",
		zap.String("provider", b.opts.Provider),
		zap.String("model", b.opts.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("sub_batches", len(batches)),
		zap.Int64("total_tokens", totalTokens.Load()),
	)

	out := make([]domain.EmbeddedText, len(texts))
	for i, t := range texts {
		out[i] = domain.EmbeddedText{Text: t, Embedding: vectors[i]}
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0].Embedding, nil
}

// HealthCheck delegates to the provider when it supports one.
func (b *Batcher) HealthCheck(ctx context.Context) error {
	if hc, ok := b.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (b *Batcher) recordBudget(tokens int64) {
	if b.budget == nil || tokens <= 0 {
		return
	}
	b.budget.Record(tokens)
	remaining := metrics.EmbeddingBudgetTokensRemaining
	remaining.WithLabelValues(b.opts.Provider, "daily").Set(float64(b.budget.RemainingDaily()))
	remaining.WithLabelValues(b.opts.Provider, "monthly").Set(float64(b.budget.RemainingMonthly()))
}

func providerError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingProviderError) {
		return fmt.Errorf("embed: %w", err)
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
}

type span struct{ lo, hi int }

// splitBatches cuts texts into contiguous ranges of at most maxItems texts and
// maxChars characters. A single text longer than maxChars gets its own range.
func splitBatches(texts []string, maxItems, maxChars int) []span {
	var out []span
	lo, chars := 0, 0
	for i, t := range texts {
		n := utf8.RuneCountInString(t)
		if i > lo && (i-lo >= maxItems || chars+n > maxChars) {
			out = append(out, span{lo, i})
			lo, chars = i, 0
		}
		chars += n
	}
	return append(out, span{lo, len(texts)})
}
