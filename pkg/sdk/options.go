package pdfchat

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// BlobConfig locates the S3-compatible bucket holding uploaded PDFs.
type BlobConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool
}

// OpenAIConfig configures the built-in OpenAI-compatible providers.
// Empty models fall back to text-embedding-3-small and gpt-4o-mini.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Temperature    float32
	MaxTokens      int
}

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	blob      BlobConfig
	extractor string

	embedder  Embedder
	completer Completer
	openai    *OpenAIConfig

	keyPrefix        string
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	chunkSize        int
	chunkOverlap     int
	topK             int

	dailyTokenLimit   int64
	monthlyTokenLimit int64
	rejectOverBudget  bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBlobStore sets the bucket for uploaded PDFs. Required.
func WithBlobStore(cfg BlobConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.blob = cfg
	})
}

// WithPDFToText extracts text with poppler's pdftotext instead of the built-in parser.
func WithPDFToText() Option {
	return optionFunc(func(c *clientConfig) {
		c.extractor = "pdftotext"
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithCompleter sets the chat completion provider.
func WithCompleter(cp Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cp
	})
}

// WithOpenAI uses an OpenAI-compatible API for whichever of embedder and
// completer was not set explicitly.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithKeyPrefix namespaces every key the client writes. Default "pdfchat:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithVectorDimensions sets the embedding dimension of the chunk index.
// Defaults to 1536 (text-embedding-3-small).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithChunking sets the chunk window in characters. Default: 1000 with 200 overlap.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	})
}

// WithTopK sets how many chunks ground each answer. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithTokenBudget limits embedding tokens per UTC day and month (0 = unlimited).
// With reject set, calls over budget fail with ErrEmbeddingQuotaExceeded;
// otherwise they are only logged.
func WithTokenBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyTokenLimit = daily
		c.monthlyTokenLimit = monthly
		c.rejectOverBudget = reject
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
