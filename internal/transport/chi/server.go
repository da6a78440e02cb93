package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	healthuc "github.com/kailas-cloud/pdfchat/internal/usecase/health"
	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

const (
	uploadFormField = "file"
	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 1 << 20
	maxChatBodyBytes  = 1 << 20
)

// Server implements ServerInterface.
type Server struct {
	documents      DocumentService
	chat           ChatService
	usage          UsageReporter
	health         HealthChecker
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	documents DocumentService,
	chat ChatService,
	usage UsageReporter,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		documents:      documents,
		chat:           chat,
		usage:          usage,
		health:         health,
		maxUploadBytes: documentuc.DefaultMaxUploadBytes,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// WithMaxUploadBytes sets the largest accepted PDF.
func (s *Server) WithMaxUploadBytes(n int64) *Server {
	if n > 0 {
		s.maxUploadBytes = n
	}
	return s
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]DocumentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: items})
}

// UploadDocument handles POST /documents (multipart, field "file").
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.KindInvalidInput,
				fmt.Sprintf("file must be smaller than %d bytes", s.maxUploadBytes))
			return
		}
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput,
			fmt.Sprintf("multipart field %q is required", uploadFormField))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, "could not read uploaded file")
		return
	}

	res, err := s.documents.Upload(r.Context(), documentuc.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/documents/"+res.Document.ID())
	writeJSON(w, http.StatusCreated, UploadResponse{
		Document: documentToResponse(&res.Document),
		Queued:   res.Queued,
	})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request, id DocumentID) {
	doc, err := s.documents.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request, id DocumentID) {
	if err := s.documents.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProcessDocument handles POST /documents/{id}/process.
// Failures still answer with a ProcessResponse body.
func (s *Server) ProcessDocument(w http.ResponseWriter, r *http.Request, id DocumentID) {
	res, err := s.documents.Process(r.Context(), id)
	if err != nil {
		s.requestLogger(r).Warn("Processing failed", zap.String("document_id", id), zap.Error(err))
		writeJSON(w, statusOf(err), ProcessResponse{
			DocumentID: id,
			Error:      safeDomainMessage(err),
			Kind:       domain.Kind(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponse{
		DocumentID: res.DocumentID,
		Success:    res.Success,
		ChunkCount: res.ChunkCount,
	})
}

// ListChunks handles GET /documents/{id}/chunks.
func (s *Server) ListChunks(w http.ResponseWriter, r *http.Request, id DocumentID) {
	chunks, err := s.documents.Chunks(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]ChunkResponse, len(chunks))
	for i, c := range chunks {
		items[i] = chunkToResponse(c)
	}
	writeJSON(w, http.StatusOK, ChunkListResponse{DocumentID: id, Items: items})
}

// Chat handles POST /documents/{id}/chat. With "stream": true the answer is
// sent as server-sent events.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request, id DocumentID) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, "Invalid request body: "+err.Error())
		return
	}

	q, err := questionFromRequest(id, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.KindInvalidInput, err.Error())
		return
	}

	if !req.Stream {
		answer, err := s.chat.Answer(r.Context(), q)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ChatResponse{DocumentID: id, Answer: answer})
		return
	}

	stream, err := s.chat.Stream(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer stream.Close()

	s.pipeStream(w, r, stream)
}

// pipeStream relays fragments until EOF, an upstream error or a client disconnect.
func (s *Server) pipeStream(w http.ResponseWriter, r *http.Request, stream domchat.FragmentStream) {
	log := s.requestLogger(r)
	sse := newSSEWriter(w)

	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			_ = sse.Event(eventDone, struct{}{})
			return
		}
		if err != nil {
			if r.Context().Err() != nil {
				log.Debug("Client went away during stream", zap.Error(err))
				return
			}
			log.Warn("Stream failed", zap.Error(err))
			_ = sse.Event(eventError, ErrorResponse{Code: domain.Kind(err), Message: safeDomainMessage(err)})
			return
		}
		if err := sse.Event(eventMessage, ChatFragment{Content: frag}); err != nil {
			log.Debug("Stream write failed", zap.Error(err))
			return
		}
	}
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams) {
	raw := ""
	if params.Period != nil {
		raw = *params.Period
	}
	period, err := usageuc.ParsePeriod(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, UsageResponse{
		Provider:        report.Provider,
		Period:          string(report.Period),
		PeriodStartAt:   report.Start,
		PeriodEndAt:     report.End,
		TokensLimit:     report.Limit,
		TokensUsed:      report.Used,
		TokensRemaining: report.Remaining,
		IsExhausted:     report.Exhausted,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// InvalidParamHandler answers parameter binding failures.
func InvalidParamHandler(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusBadRequest, domain.KindInvalidInput, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func documentToResponse(doc *domdoc.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:         doc.ID(),
		FileName:   doc.FileName(),
		BlobURL:    doc.BlobURL(),
		Status:     string(doc.Status()),
		UploadedAt: doc.UploadedAt(),
		ChunkCount: doc.ChunkCount(),
		Error:      doc.LastError(),
	}
	if t := doc.ProcessedAt(); !t.IsZero() {
		resp.ProcessedAt = &t
	}
	return resp
}

func chunkToResponse(c domchunk.TextChunk) ChunkResponse {
	return ChunkResponse{
		Index:      c.Index(),
		PageNumber: c.Metadata.PageNumber,
		Content:    c.Content,
		Metadata:   c.Metadata.Extra,
	}
}

func questionFromRequest(id string, req ChatRequest) (domchat.Question, error) {
	msgs := make([]domchat.Message, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = domchat.Message{Role: domchat.Role(m.Role), Content: m.Content}
	}
	q, err := domchat.FromMessages(id, msgs)
	if err != nil {
		return domchat.Question{}, fmt.Errorf("invalid messages: %w", err)
	}
	return q, nil
}
