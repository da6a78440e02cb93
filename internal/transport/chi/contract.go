package chi

import (
	"context"

	domchat "github.com/kailas-cloud/pdfchat/internal/domain/chat"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
	documentuc "github.com/kailas-cloud/pdfchat/internal/usecase/document"
	healthuc "github.com/kailas-cloud/pdfchat/internal/usecase/health"
	"github.com/kailas-cloud/pdfchat/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/pdfchat/internal/usecase/usage"
)

// DocumentService manages uploaded documents.
type DocumentService interface {
	Upload(ctx context.Context, up documentuc.Upload) (documentuc.UploadResult, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	List(ctx context.Context) ([]domdoc.Document, error)
	Chunks(ctx context.Context, id string) ([]domchunk.TextChunk, error)
	Process(ctx context.Context, id string) (ingest.Result, error)
	Delete(ctx context.Context, id string) error
}

// ChatService answers questions about a processed document.
type ChatService interface {
	Answer(ctx context.Context, q domchat.Question) (string, error)
	Stream(ctx context.Context, q domchat.Question) (domchat.FragmentStream, error)
}

// UsageReporter reports embedding token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}

// HealthChecker aggregates dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
