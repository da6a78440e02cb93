package pdfchat

import (
	"context"
	"io"
	"time"

	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	healthuc "github.com/kailas-cloud/pdfchat/internal/usecase/health"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

// --- documentUseCase mock ---

type mockDocumentUC struct {
	uploadFn  func(ctx context.Context, up documentuc.Upload) (documentuc.UploadResult, error)
	getFn     func(ctx context.Context, id string) (domdoc.Document, error)
	listFn    func(ctx context.Context) ([]domdoc.Document, error)
	chunksFn  func(ctx context.Context, id string) ([]domchunk.TextChunk, error)
	processFn func(ctx context.Context, id string) (ingest.Result, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockDocumentUC) Upload(ctx context.Context, up documentuc.Upload) (documentuc.UploadResult, error) {
	return m.uploadFn(ctx, up)
}

func (m *mockDocumentUC) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return m.getFn(ctx, id)
}

func (m *mockDocumentUC) List(ctx context.Context) ([]domdoc.Document, error) {
	return m.listFn(ctx)
}

func (m *mockDocumentUC) Chunks(ctx context.Context, id string) ([]domchunk.TextChunk, error) {
	return m.chunksFn(ctx, id)
}

func (m *mockDocumentUC) Process(ctx context.Context, id string) (ingest.Result, error) {
	return m.processFn(ctx, id)
}

func (m *mockDocumentUC) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// --- chatUseCase mock ---

type mockChatUC struct {
	answerFn func(ctx context.Context, q domchat.Question) (string, error)
	streamFn func(ctx context.Context, q domchat.Question) (domchat.FragmentStream, error)
}

func (m *mockChatUC) Answer(ctx context.Context, q domchat.Question) (string, error) {
	return m.answerFn(ctx, q)
}

func (m *mockChatUC) Stream(ctx context.Context, q domchat.Question) (domchat.FragmentStream, error) {
	return m.streamFn(ctx, q)
}

// sliceStream replays fragments, then err (io.EOF when nil).
type sliceStream struct {
	frags  []string
	err    error
	closed int
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.frags) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	f := s.frags[0]
	s.frags = s.frags[1:]
	return f, nil
}

func (s *sliceStream) Close() { s.closed++ }

// --- health and usage mocks ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

type mockUsageUC struct {
	gotPeriod usageuc.Period
	report    usageuc.Report
}

func (m *mockUsageUC) GetReport(_ context.Context, p usageuc.Period) usageuc.Report {
	m.gotPeriod = p
	return m.report
}

// --- public provider mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockCompleter struct {
	completeFn func(ctx context.Context, msgs []ChatMessage) (string, error)
	streamFn   func(ctx context.Context, msgs []ChatMessage) (FragmentStream, error)
}

func (m *mockCompleter) Complete(ctx context.Context, msgs []ChatMessage) (string, error) {
	return m.completeFn(ctx, msgs)
}

func (m *mockCompleter) Stream(ctx context.Context, msgs []ChatMessage) (FragmentStream, error) {
	return m.streamFn(ctx, msgs)
}

// --- helpers ---

func testDocument(id string, status domdoc.Status) domdoc.Document {
	uploaded := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var processed time.Time
	if status == domdoc.StatusProcessed {
		processed = uploaded.Add(time.Minute)
	}
	return domdoc.Reconstruct(id, "report.pdf", "http://blob/pdfs/"+id, status, uploaded, processed, 3, "")
}

func testClient(docSvc documentUseCase, chatSvc chatUseCase) *Client {
	return &Client{docSvc: docSvc, chatSvc: chatSvc}
}
