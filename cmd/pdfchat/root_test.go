package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/pdfchat/internal/version"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--config", "/does/not/exist.yaml"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version.String() {
		t.Errorf("output = %q, want %q", got, version.String())
	}
}

func TestRootOptions_Load(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	cfgPath := filepath.Join(dir, "test.yaml")

	if err := os.WriteFile(dotenv, []byte("PDFCHAT_TEST_PORT=9191\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	yaml := `
http:
  port: ${PDFCHAT_TEST_PORT}
database:
  addrs: ["localhost:6379"]
blob:
  endpoint: localhost:9000
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PDFCHAT_TEST_PORT") })

	opts := &rootOptions{configPath: cfgPath, dotenv: dotenv, logLevel: "debug"}
	if err := opts.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts.cfg.HTTP.Port != 9191 {
		t.Errorf("port = %d, want 9191 from dotenv", opts.cfg.HTTP.Port)
	}
	if opts.cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want flag override", opts.cfg.Logging.Level)
	}
}

func TestRootOptions_LoadMissingDotenv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "test.yaml")
	yaml := "http:\n  port: 8080\ndatabase:\n  addrs: [\"localhost:6379\"]\nblob:\n  endpoint: localhost:9000\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := &rootOptions{configPath: cfgPath, dotenv: filepath.Join(dir, "missing.env")}
	if err := opts.load(); err != nil {
		t.Fatalf("missing dotenv must be ignored: %v", err)
	}
}

func TestRootOptions_LoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("http:\n  port: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts := &rootOptions{configPath: cfgPath}
	if err := opts.load(); err == nil {
		t.Fatal("expected validation error")
	}
}
