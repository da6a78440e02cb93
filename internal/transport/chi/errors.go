package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	logpkg "github.com/kailas-cloud/pdfchat/internal/logger"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// sentinelStatuses maps sentinels to HTTP statuses. Order matters: a quota
// error is also a provider error.
var sentinelStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrDocumentNotFound, http.StatusNotFound},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrInvalidChunkConfig, http.StatusBadRequest},
	{domain.ErrDocumentNotReady, http.StatusConflict},
	{domain.ErrEmbeddingQuotaExceeded, http.StatusTooManyRequests},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway},
	{domain.ErrCompletionProvider, http.StatusBadGateway},
	{domain.ErrTransport, http.StatusBadGateway},
	{domain.ErrQueueFull, http.StatusServiceUnavailable},
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{domain.ErrEmptyDocument, http.StatusUnprocessableEntity},
	{domain.ErrExtraction, http.StatusUnprocessableEntity},
}

func defaultErrorHandlers() []errorHandler {
	handlers := []errorHandler{transitionConflictHandler}
	for _, s := range sentinelStatuses {
		handlers = append(handlers, sentinelHandler(s.err, s.status))
	}
	return handlers
}

// statusOf returns the HTTP status for err, 500 when unknown.
func statusOf(err error) int {
	if errors.Is(err, domain.ErrInvalidTransition) {
		return http.StatusConflict
	}
	for _, s := range sentinelStatuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// safeDomainMessage returns a message for the client without exposing internals.
// Validation messages are built from client input and are returned as is.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return domain.ErrInvalidTransition.Error()
	}
	for _, s := range sentinelStatuses {
		if errors.Is(err, s.err) {
			return s.err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	code := domain.Kind(sentinel)
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// transitionConflictHandler reports the status the document is currently in.
func transitionConflictHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return false
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":           domain.KindInvalidTransition,
			"message":        msg,
			"current_status": te.From,
		})
		return true
	}
	writeError(w, http.StatusConflict, domain.KindInvalidTransition, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, domain.KindInternal, "internal error")
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l := logpkg.FromContext(r.Context()); l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}
