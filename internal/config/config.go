package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the pdfchat configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Blob       BlobConfig       `yaml:"blob"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Index      IndexConfig      `yaml:"index"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables authentication
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // 0 after defaults keeps SSE streams open
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// BlobConfig holds S3-compatible object storage settings.
type BlobConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Secure        bool   `yaml:"secure"`
	PublicURL     string `yaml:"public_url"`
	MaxFetchBytes int64  `yaml:"max_fetch_bytes"`
}

// ExtractorConfig selects the PDF text backend.
type ExtractorConfig struct {
	Backend string `yaml:"backend"` // native (default), pdftotext
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider      string       `yaml:"provider"`
	APIKey        string       `yaml:"api_key"`
	BaseURL       string       `yaml:"base_url"`
	Model         string       `yaml:"model"`
	Dimensions    int          `yaml:"dimensions"`
	MaxBatchItems int          `yaml:"max_batch_items"`
	MaxBatchChars int          `yaml:"max_batch_chars"`
	Concurrency   int          `yaml:"concurrency"`
	Budget        BudgetConfig `yaml:"budget"`
	Cache         CacheConfig  `yaml:"cache"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	TTLHours int  `yaml:"ttl_hours"` // 0 = keep forever
}

// CompletionConfig holds chat model settings.
type CompletionConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IngestConfig holds pipeline settings.
type IngestConfig struct {
	ChunkSize      int `yaml:"chunk_size"`
	ChunkOverlap   int `yaml:"chunk_overlap"`
	Workers        int `yaml:"workers"`
	QueueSize      int `yaml:"queue_size"`
	MaxUploadBytes int `yaml:"max_upload_bytes"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// TimeoutsConfig bounds external calls, in seconds.
type TimeoutsConfig struct {
	FetchSec    int `yaml:"fetch_sec"`
	ExtractSec  int `yaml:"extract_sec"`
	EmbedSec    int `yaml:"embed_sec"`
	StoreSec    int `yaml:"store_sec"`
	CompleteSec int `yaml:"complete_sec"`
}

// Fetch returns the fetch timeout.
func (t TimeoutsConfig) Fetch() time.Duration { return seconds(t.FetchSec) }

// Extract returns the extraction timeout.
func (t TimeoutsConfig) Extract() time.Duration { return seconds(t.ExtractSec) }

// Embed returns the embedding timeout.
func (t TimeoutsConfig) Embed() time.Duration { return seconds(t.EmbedSec) }

// Store returns the datastore timeout.
func (t TimeoutsConfig) Store() time.Duration { return seconds(t.StoreSec) }

// Complete returns the completion timeout.
func (t TimeoutsConfig) Complete() time.Duration { return seconds(t.CompleteSec) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 15
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "pdfchat:"
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = "pdfs"
	}
	if c.Extractor.Backend == "" {
		c.Extractor.Backend = "native"
	}
	c.Embedding.applyDefaults()
	c.Completion.applyDefaults(c.Embedding)
	c.Ingest.applyDefaults()
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	c.Timeouts.applyDefaults()
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
}

func (e *EmbeddingConfig) applyDefaults() {
	if e.Provider == "" {
		e.Provider = "openai"
	}
	if e.Model == "" {
		e.Model = "text-embedding-3-small"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 1536
	}
	if e.MaxBatchItems <= 0 {
		e.MaxBatchItems = 256
	}
	if e.MaxBatchChars <= 0 {
		e.MaxBatchChars = 200000
	}
	if e.Concurrency <= 0 {
		e.Concurrency = 4
	}
	if e.Budget.Action == "" {
		e.Budget.Action = "warn"
	}
}

// applyDefaults reuses the embedding credentials when none are set.
func (c *CompletionConfig) applyDefaults(e EmbeddingConfig) {
	if c.APIKey == "" {
		c.APIKey = e.APIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = e.BaseURL
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
}

func (i *IngestConfig) applyDefaults() {
	// Overlap defaults only together with the window size.
	if i.ChunkSize <= 0 {
		i.ChunkSize = 1000
		if i.ChunkOverlap == 0 {
			i.ChunkOverlap = 200
		}
	}
	if i.Workers <= 0 {
		i.Workers = 2
	}
	if i.QueueSize <= 0 {
		i.QueueSize = 64
	}
	if i.MaxUploadBytes <= 0 {
		i.MaxUploadBytes = 10 << 20
	}
}

func (t *TimeoutsConfig) applyDefaults() {
	if t.FetchSec <= 0 {
		t.FetchSec = 30
	}
	if t.ExtractSec <= 0 {
		t.ExtractSec = 60
	}
	if t.EmbedSec <= 0 {
		t.EmbedSec = 120
	}
	if t.StoreSec <= 0 {
		t.StoreSec = 30
	}
	if t.CompleteSec <= 0 {
		t.CompleteSec = 120
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Blob.Endpoint == "" {
		return fmt.Errorf("blob.endpoint is required")
	}
	switch c.Extractor.Backend {
	case "native", "pdftotext":
	default:
		return fmt.Errorf("extractor.backend must be \"native\" or \"pdftotext\", got %q", c.Extractor.Backend)
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
		// ok
	default:
		return fmt.Errorf(
			"embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Embedding.Budget.Action,
		)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0, %d), got %d",
			c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %v", c.Completion.Temperature)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
