package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport signals that blob storage or a remote URL could not be reached.
	ErrTransport = errors.New("transport error")
	// ErrExtraction signals an unparseable PDF or a page that failed to decode.
	ErrExtraction = errors.New("extraction error")
	// ErrEmptyDocument signals that extraction produced no text.
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrInvalidChunkConfig signals chunk options that cannot make progress.
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrStoreUnavailable signals a vector or metadata store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCompletionProvider signals a completion provider failure.
	ErrCompletionProvider = errors.New("completion provider error")

	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDocumentNotReady signals a document that has not finished processing.
	ErrDocumentNotReady = errors.New("document not processed yet")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQueueFull signals that no ingestion job can be accepted right now.
	ErrQueueFull = errors.New("ingest queue is full")
	// ErrInvalidTransition signals a status change outside the document lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error kinds reported in structured ingestion results.
const (
	KindTransport          = "transport_error"
	KindExtraction         = "extraction_error"
	KindEmptyDocument      = "empty_document"
	KindInvalidChunkConfig = "invalid_chunk_config"
	KindEmbeddingProvider  = "embedding_provider_error"
	KindQuotaExceeded      = "quota_exceeded"
	KindStoreUnavailable   = "store_unavailable"
	KindCompletionProvider = "completion_provider_error"
	KindNotFound           = "not_found"
	KindNotReady           = "not_ready"
	KindInvalidInput       = "invalid_input"
	KindInvalidTransition  = "invalid_transition"
	KindQueueFull          = "queue_full"
	KindInternal           = "internal_error"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrEmptyDocument, KindEmptyDocument},
	{ErrExtraction, KindExtraction},
	{ErrInvalidChunkConfig, KindInvalidChunkConfig},
	{ErrEmbeddingQuotaExceeded, KindQuotaExceeded},
	{ErrEmbeddingProviderError, KindEmbeddingProvider},
	{ErrCompletionProvider, KindCompletionProvider},
	{ErrTransport, KindTransport},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrDocumentNotFound, KindNotFound},
	{ErrDocumentNotReady, KindNotReady},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrInvalidInput, KindInvalidInput},
	{ErrQueueFull, KindQueueFull},
}

// Kind returns the error kind of the first known sentinel in err's chain.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// TransitionError wraps ErrInvalidTransition with the status found in the store.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewTransitionError creates a transition error.
func NewTransitionError(from, to string) error {
	return &TransitionError{From: from, To: to}
}
