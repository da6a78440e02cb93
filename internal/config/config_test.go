package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Blob:     BlobConfig{Endpoint: "localhost:9000"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Budget.Action = "invalid_action"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }},
		{"missing valkey addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"missing blob endpoint", func(c *Config) { c.Blob.Endpoint = "" }},
		{"unknown extractor", func(c *Config) { c.Extractor.Backend = "ocr" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"overlap equals size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Ingest.ChunkOverlap = -1 }},
		{"temperature too high", func(c *Config) { c.Completion.Temperature = 3 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 0 {
		t.Errorf("expected WriteTimeoutSec=0 for streaming, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 16 || cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Storage.KeyPrefix != "pdfchat:" {
		t.Errorf("expected KeyPrefix='pdfchat:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("unexpected chunk defaults: %+v", cfg.Ingest)
	}
	if cfg.Ingest.MaxUploadBytes != 10<<20 {
		t.Errorf("expected MaxUploadBytes=10MB, got %d", cfg.Ingest.MaxUploadBytes)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Dimensions != 1536 || cfg.Embedding.Budget.Action != "warn" {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Timeouts.Embed() != 120*time.Second {
		t.Errorf("expected embed timeout 120s, got %v", cfg.Timeouts.Embed())
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
		Ingest:   IngestConfig{ChunkSize: 500},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 0 {
		t.Errorf("explicit chunk size must keep overlap, got %+v", cfg.Ingest)
	}
}

func TestApplyDefaults_CompletionInheritsCredentials(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "sk-test", BaseURL: "http://llm:8000/v1"}}
	cfg.ApplyDefaults()

	if cfg.Completion.APIKey != "sk-test" || cfg.Completion.BaseURL != "http://llm:8000/v1" {
		t.Errorf("completion = %+v", cfg.Completion)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("PDFCHAT_TEST_PORT", "9090")
	yml := `
http:
  port: ${PDFCHAT_TEST_PORT}
database:
  addrs: ["${PDFCHAT_TEST_VALKEY:-localhost:6379}"]
blob:
  endpoint: localhost:9000
`
	cfg, err := Parse([]byte(yml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("Addrs = %v", cfg.Database.Addrs)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("http:\n  port: 8080\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("err = %v, want invalid config", err)
	}
}

func TestLoad_RepositoryConfigs(t *testing.T) {
	for _, env := range []string{"local", "prod"} {
		t.Run(env, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv("MINIO_ENDPOINT", "minio:9000")
			t.Setenv("VALKEY_ADDR", "valkey:6379")
			if _, err := Load(env); err != nil {
				t.Fatalf("Load(%s): %v", env, err)
			}
		})
	}
}

func TestLoadFile_MissingReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "failed to read config") {
		t.Fatalf("err = %v, want read error", err)
	}
}
