// Package extractor turns PDF bytes into page-ordered plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	"github.com/kailas-cloud/pdfchat/internal/domain/chunk"
)

// Backend names accepted by New.
const (
	BackendNative    = "native"
	BackendPdftotext = "pdftotext"
)

// PageReader returns the raw text of every page, page 1 first.
type PageReader interface {
	ReadPages(ctx context.Context, data []byte) ([]string, error)
}

// Extractor normalizes pages and joins them with chunk.PageSeparator.
type Extractor struct {
	pages PageReader
}

// New returns an extractor for the named backend.
func New(backend string) (*Extractor, error) {
	switch backend {
	case "", BackendNative:
		return NewWithReader(NativeReader{}), nil
	case BackendPdftotext:
		return NewWithReader(NewPdftotextReader(ExecRunner{})), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", backend)
	}
}

// NewWithReader wraps a custom PageReader.
func NewWithReader(r PageReader) *Extractor {
	return &Extractor{pages: r}
}

// Extract returns the document text. Empty pages stay in place as empty
// segments so the separator count still maps offsets to page numbers.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty buffer", domain.ErrExtraction)
	}

	pages, err := e.pages.ReadPages(ctx, data)
	if err != nil {
		if errors.Is(err, domain.ErrExtraction) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	for i, p := range pages {
		pages[i] = normalizePage(p)
	}
	text := strings.Join(pages, chunk.PageSeparator)
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyDocument
	}
	return text, nil
}

// normalizePage collapses every whitespace run, line breaks included, into one space.
func normalizePage(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
