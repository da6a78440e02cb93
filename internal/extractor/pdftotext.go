package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kailas-cloud/pdfchat/internal/domain"
)

// ErrPdftotextNotFound is returned when the poppler binary is not installed.
var ErrPdftotextNotFound = fmt.Errorf("%w: pdftotext not found in PATH", domain.ErrExtraction)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPdftotextNotFound
	}
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PdftotextReader shells out to poppler's pdftotext. Pages come back
// separated by form feeds.
type PdftotextReader struct {
	runner CommandRunner
}

// NewPdftotextReader builds a reader on top of runner.
func NewPdftotextReader(runner CommandRunner) *PdftotextReader {
	return &PdftotextReader{runner: runner}
}

// ReadPages writes data to a temp file and converts it in one invocation.
func (p *PdftotextReader) ReadPages(ctx context.Context, data []byte) ([]string, error) {
	f, err := os.CreateTemp("", "pdfchat-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name()) //nolint:errcheck // temp cleanup

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck,gosec // write error wins
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}
	return splitPages(string(out)), nil
}

func splitPages(out string) []string {
	out = strings.TrimSuffix(out, "\f")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\f")
}
