package pdfchat

import "github.com/kailas-cloud/pdfchat/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrDocumentNotReady       = domain.ErrDocumentNotReady
	ErrInvalidInput           = domain.ErrInvalidInput
	ErrInvalidTransition      = domain.ErrInvalidTransition
	ErrEmptyDocument          = domain.ErrEmptyDocument
	ErrExtraction             = domain.ErrExtraction
	ErrTransport              = domain.ErrTransport
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrCompletionProvider     = domain.ErrCompletionProvider
)

// ErrorKind classifies an error returned by the client, e.g. "not_found".
func ErrorKind(err error) string { return domain.Kind(err) }
