package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/config"
	dbValkey "github.com/kailas-cloud/pdfchat/internal/db/valkey"
	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	"github.com/kailas-cloud/pdfchat/internal/extractor"
	"github.com/kailas-cloud/pdfchat/internal/metrics"
	budgetrepo "github.com/kailas-cloud/pdfchat/internal/repository/budget"
	chunkrepo "github.com/kailas-cloud/pdfchat/internal/repository/chunk"
	documentrepo "github.com/kailas-cloud/pdfchat/internal/repository/document"
	"github.com/kailas-cloud/pdfchat/internal/repository/embcache"
	minioBlob "github.com/kailas-cloud/pdfchat/internal/transport/minio"
	openaiProvider "github.com/kailas-cloud/pdfchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/pdfchat/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/pdfchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pdfchat/internal/usecase/health"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

// app is the composition root shared by serve, ingest and ask.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store    *dbValkey.Store
	blobs    *minioBlob.Store
	docRepo  *documentrepo.Repo
	chunks   *chunkrepo.Repo
	embedder *embeddinguc.Batcher
	budget   *embeddinguc.BudgetTracker

	ingester *ingest.Service
	chat     *chatuc.Service
	usage    *usageuc.Service
	health   *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// Both drivers speak RESP with the search module loaded; rueidis serves either.
	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	a.store = store

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	metrics.RegisterProviderMetrics()
	metrics.RegisterPipelineMetrics()

	blobs, err := minioBlob.New(&minioBlob.Config{
		Endpoint:      cfg.Blob.Endpoint,
		AccessKey:     cfg.Blob.AccessKey,
		SecretKey:     cfg.Blob.SecretKey,
		Bucket:        cfg.Blob.Bucket,
		Region:        cfg.Blob.Region,
		Secure:        cfg.Blob.Secure,
		PublicURL:     cfg.Blob.PublicURL,
		MaxFetchBytes: cfg.Blob.MaxFetchBytes,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create blob store: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Blob.Bucket, err)
	}
	a.blobs = blobs

	pdf, err := extractor.New(cfg.Extractor.Backend)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.buildEmbedder(ctx)

	a.docRepo = documentrepo.New(store, documentrepo.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Timeout:   cfg.Timeouts.Store(),
	})
	a.chunks = chunkrepo.New(store, chunkrepo.Options{
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Dimensions: cfg.Embedding.Dimensions,
		HNSW: chunkrepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
		Timeout: cfg.Timeouts.Store(),
	})
	if err := a.chunks.EnsureIndex(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure chunk index: %w", err)
	}

	a.ingester, err = ingest.New(a.docRepo, blobs, pdf, a.embedder, a.chunks, ingest.Options{
		Chunk: domchunk.Options{Size: cfg.Ingest.ChunkSize, Overlap: cfg.Ingest.ChunkOverlap},
		Timeouts: ingest.Timeouts{
			Fetch:   cfg.Timeouts.Fetch(),
			Extract: cfg.Timeouts.Extract(),
			Embed:   cfg.Timeouts.Embed(),
			Store:   cfg.Timeouts.Store(),
		},
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create ingestion service: %w", err)
	}

	completer := openaiProvider.NewCompleter(&openaiProvider.CompleterConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.Completion.APIKey,
			BaseURL:  cfg.Completion.BaseURL,
			Model:    cfg.Completion.Model,
			Provider: cfg.Embedding.Provider,
			Timeout:  cfg.Timeouts.Complete(),
			Logger:   logger,
		},
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
	})
	a.chat = chatuc.New(a.docRepo, a.embedder, a.chunks, completer, cfg.Retrieval.TopK, logger)

	// Pass nil interface (not typed nil pointer) when no budget is configured.
	var budgetReader usageuc.BudgetReader
	if a.budget != nil {
		budgetReader = a.budget
	}
	a.usage = usageuc.New(budgetReader)

	a.health = healthuc.New(healthuc.DefaultTimeout, logger).
		Critical("database", healthuc.CheckerFunc(store.Ping)).
		Critical("blob", blobs).
		Optional("embedding", a.embedder)

	return a, nil
}

// buildEmbedder assembles the chain: OpenAI -> Cached -> Batcher (budget + metrics).
func (a *app) buildEmbedder(ctx context.Context) {
	cfg := a.cfg.Embedding

	var base domain.Embedder = openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Timeout:  a.cfg.Timeouts.Embed(),
			Logger:   a.logger,
		},
		Dimensions: cfg.Dimensions,
	})
	if cfg.Cache.Enabled {
		base = embcache.New(base, a.store, embcache.Options{
			KeyPrefix: a.cfg.Storage.KeyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.Cache.TTLHours) * time.Hour,
		}, metrics.EmbeddingCacheTotal, a.logger)
	}

	var checker embeddinguc.BudgetChecker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		a.budget = embeddinguc.NewBudgetTracker(embeddinguc.BudgetConfig{
			Provider:     cfg.Provider,
			KeyPrefix:    a.cfg.Storage.KeyPrefix,
			DailyLimit:   cfg.Budget.DailyTokenLimit,
			MonthlyLimit: cfg.Budget.MonthlyTokenLimit,
			Action:       embeddinguc.BudgetAction(cfg.Budget.Action),
		}, a.logger)
		// Loads current counters from the store.
		a.budget.WithStore(ctx, budgetrepo.New(a.store, 0, 0))
		checker = a.budget
	}

	a.embedder = embeddinguc.NewBatcher(base, embeddinguc.Options{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		MaxBatchItems: cfg.MaxBatchItems,
		MaxBatchChars: cfg.MaxBatchChars,
		Concurrency:   cfg.Concurrency,
		Timeout:       a.cfg.Timeouts.Embed(),
	}, checker, a.logger)

	a.logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("cache", cfg.Cache.Enabled),
	)
}

// documents builds the document service. A nil scheduler leaves ingestion to Process.
func (a *app) documents(scheduler documentuc.Scheduler) *documentuc.Service {
	return documentuc.New(a.docRepo, a.chunks, a.blobs, scheduler, a.ingester, a.logger).
		WithMaxUploadBytes(a.cfg.Ingest.MaxUploadBytes)
}

// Close releases the database connection.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
