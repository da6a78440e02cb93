package pdfchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbValkey "github.com/kailas-cloud/pdfchat/internal/db/valkey"
	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	"github.com/kailas-cloud/pdfchat/internal/extractor"
	budgetrepo "github.com/kailas-cloud/pdfchat/internal/repository/budget"
	chunkrepo "github.com/kailas-cloud/pdfchat/internal/repository/chunk"
	documentrepo "github.com/kailas-cloud/pdfchat/internal/repository/document"
	minioBlob "github.com/kailas-cloud/pdfchat/internal/transport/minio"
	openaiProvider "github.com/kailas-cloud/pdfchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/pdfchat/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/pdfchat/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pdfchat/internal/usecase/health"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultStoreTimeout     = 30 * time.Second
	defaultKeyPrefix        = "pdfchat:"
	defaultVectorDimensions = 1536
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultChatModel        = "gpt-4o-mini"
)

// Internal interfaces, swapped for fakes in tests.
type documentUseCase interface {
	Upload(ctx context.Context, up documentuc.Upload) (documentuc.UploadResult, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Chunks(ctx context.Context, id string) ([]domchunk.TextChunk, error)
	Process(ctx context.Context, id string) (ingest.Result, error)
	Delete(ctx context.Context, id string) error
}

type chatUseCase interface {
	Answer(ctx context.Context, q domchat.Question) (string, error)
	Stream(ctx context.Context, q domchat.Question) (domchat.FragmentStream, error)
}

// closer releases the database connection.
type closer interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the pdfchat SDK entry point.
type Client struct {
	store     closer
	docSvc    documentUseCase
	chatSvc   chatUseCase
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a Client, connects to the database and prepares the bucket and
// the chunk index. The provided context is used for these startup calls.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	cfg.applyDefaults()

	if len(cfg.addrs) == 0 {
		return nil, errors.New("pdfchat: database address required (use WithValkey or WithRedis)")
	}
	if cfg.blob.Endpoint == "" {
		return nil, errors.New("pdfchat: blob store required (use WithBlobStore)")
	}
	if cfg.embedder == nil && cfg.openai == nil {
		return nil, errors.New("pdfchat: embedder required (use WithEmbedder or WithOpenAI)")
	}
	if cfg.completer == nil && cfg.openai == nil {
		return nil, errors.New("pdfchat: completer required (use WithCompleter or WithOpenAI)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("pdfchat: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func (c *clientConfig) applyDefaults() {
	if c.keyPrefix == "" {
		c.keyPrefix = defaultKeyPrefix
	}
	if c.vectorDimensions <= 0 {
		c.vectorDimensions = defaultVectorDimensions
	}
	if c.chunkSize <= 0 {
		c.chunkSize = domchunk.DefaultSize
		if c.chunkOverlap == 0 {
			c.chunkOverlap = domchunk.DefaultOverlap
		}
	}
	if c.extractor == "" {
		c.extractor = "native"
	}
	if c.blob.Bucket == "" {
		c.blob.Bucket = "pdfs"
	}
	if c.openai != nil {
		if c.openai.EmbeddingModel == "" {
			c.openai.EmbeddingModel = defaultEmbeddingModel
		}
		if c.openai.ChatModel == "" {
			c.openai.ChatModel = defaultChatModel
		}
	}
}

func createStore(cfg *clientConfig) (*dbValkey.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("pdfchat: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("pdfchat: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store *dbValkey.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	blobs, err := minioBlob.New(&minioBlob.Config{
		Endpoint:  cfg.blob.Endpoint,
		AccessKey: cfg.blob.AccessKey,
		SecretKey: cfg.blob.SecretKey,
		Bucket:    cfg.blob.Bucket,
		Region:    cfg.blob.Region,
		Secure:    cfg.blob.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("pdfchat: create blob store: %w", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("pdfchat: ensure bucket: %w", err)
	}

	pdf, err := extractor.New(cfg.extractor)
	if err != nil {
		return nil, fmt.Errorf("pdfchat: %w", err)
	}

	docRepo := documentrepo.New(store, documentrepo.Options{
		KeyPrefix: cfg.keyPrefix,
		Timeout:   defaultStoreTimeout,
	})
	chunks := chunkrepo.New(store, chunkrepo.Options{
		KeyPrefix:  cfg.keyPrefix,
		Dimensions: cfg.vectorDimensions,
		HNSW:       chunkrepo.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct},
		Timeout:    defaultStoreTimeout,
	})
	if err := chunks.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("pdfchat: ensure chunk index: %w", err)
	}

	// Nil interfaces, not typed nil pointers, when no budget is set.
	var checker embeddinguc.BudgetChecker
	var reader usageuc.BudgetReader
	if cfg.dailyTokenLimit > 0 || cfg.monthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.rejectOverBudget {
			action = embeddinguc.BudgetActionReject
		}
		budget := embeddinguc.NewBudgetTracker(embeddinguc.BudgetConfig{
			Provider:     providerName(cfg),
			KeyPrefix:    cfg.keyPrefix,
			DailyLimit:   cfg.dailyTokenLimit,
			MonthlyLimit: cfg.monthlyTokenLimit,
			Action:       action,
		}, logger).WithStore(ctx, budgetrepo.New(store, 0, 0))
		checker, reader = budget, budget
	}

	embedder := embeddinguc.NewBatcher(buildEmbedder(cfg), embeddinguc.Options{
		Provider: providerName(cfg),
		Model:    embeddingModel(cfg),
	}, checker, logger)

	ingester, err := ingest.New(docRepo, blobs, pdf, embedder, chunks, ingest.Options{
		Chunk: domchunk.Options{Size: cfg.chunkSize, Overlap: cfg.chunkOverlap},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("pdfchat: %w", err)
	}

	health := healthuc.New(healthuc.DefaultTimeout, logger).
		Critical("database", healthuc.CheckerFunc(store.Ping)).
		Critical("blob", blobs).
		Optional("embedding", embedder)

	return &Client{
		store:     store,
		docSvc:    documentuc.New(docRepo, chunks, blobs, nil, ingester, logger),
		chatSvc:   chatuc.New(docRepo, embedder, chunks, buildCompleter(cfg), cfg.topK, logger),
		healthSvc: health,
		usageSvc:  usageuc.New(reader),
		obs:       obs,
	}, nil
}

func buildEmbedder(cfg *clientConfig) domain.Embedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	return openaiProvider.NewEmbedder(&openaiProvider.EmbedderConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.openai.APIKey,
			BaseURL:  cfg.openai.BaseURL,
			Model:    cfg.openai.EmbeddingModel,
			Provider: "openai",
		},
		Dimensions: cfg.vectorDimensions,
	})
}

func buildCompleter(cfg *clientConfig) domchat.Completer {
	if cfg.completer != nil {
		return &completerAdapter{inner: cfg.completer}
	}
	return openaiProvider.NewCompleter(&openaiProvider.CompleterConfig{
		Config: openaiProvider.Config{
			APIKey:   cfg.openai.APIKey,
			BaseURL:  cfg.openai.BaseURL,
			Model:    cfg.openai.ChatModel,
			Provider: "openai",
		},
		Temperature: cfg.openai.Temperature,
		MaxTokens:   cfg.openai.MaxTokens,
	})
}

func providerName(cfg *clientConfig) string {
	if cfg.embedder != nil {
		return "custom"
	}
	return "openai"
}

func embeddingModel(cfg *clientConfig) string {
	if cfg.embedder != nil {
		return "custom"
	}
	return cfg.openai.EmbeddingModel
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Documents returns the document service.
func (c *Client) Documents() *DocumentService {
	return &DocumentService{svc: c.docSvc, obs: c.obs}
}
