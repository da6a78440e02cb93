package document

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxIDLength bounds document identifiers.
const MaxIDLength = 128

// Status is the ingestion lifecycle state of a document.
type Status string

const (
	// StatusUploaded is the initial state after the blob is stored.
	StatusUploaded Status = "uploaded"
	// StatusProcessing is set before any pipeline work starts.
	StatusProcessing Status = "processing"
	// StatusProcessed means chunks are stored and searchable.
	StatusProcessed Status = "processed"
	// StatusFailed means a pipeline stage failed.
	StatusFailed Status = "processing_failed"
)

// transitions lists, per target status, the statuses it may be entered from.
// processing is re-enterable so a crashed run can be retried.
var transitions = map[Status][]Status{
	StatusProcessing: {StatusUploaded, StatusProcessing, StatusProcessed, StatusFailed},
	StatusProcessed:  {StatusProcessing},
	StatusFailed:     {StatusUploaded, StatusProcessing},
}

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown document status %q", s)
	}
}

// AllowedFrom returns the statuses from which next may be entered.
func AllowedFrom(next Status) []Status {
	return slices.Clone(transitions[next])
}

// CanTransition reports whether from -> to is part of the lifecycle.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[to], from)
}

// IsTerminal reports whether no pipeline run is in progress.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Change is a status transition plus the outcome fields written with it.
type Change struct {
	To          Status
	ProcessedAt time.Time
	ChunkCount  int
	Error       string
}

// Document is the uploaded PDF aggregate (immutable value object).
type Document struct {
	id          string
	fileName    string
	blobURL     string
	status      Status
	uploadedAt  time.Time
	processedAt time.Time
	chunkCount  int
	lastError   string
}

// ValidateID checks a document identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a Document in the uploaded state.
func New(id, fileName, blobURL string, uploadedAt time.Time) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if strings.TrimSpace(fileName) == "" {
		return Document{}, fmt.Errorf("file name is required")
	}
	if blobURL == "" {
		return Document{}, fmt.Errorf("blob URL is required")
	}
	return Document{
		id:         id,
		fileName:   fileName,
		blobURL:    blobURL,
		status:     StatusUploaded,
		uploadedAt: uploadedAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, fileName, blobURL string, status Status,
	uploadedAt, processedAt time.Time, chunkCount int, lastError string,
) Document {
	return Document{
		id: id, fileName: fileName, blobURL: blobURL, status: status,
		uploadedAt: uploadedAt, processedAt: processedAt,
		chunkCount: chunkCount, lastError: lastError,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// FileName returns the original upload name.
func (d *Document) FileName() string { return d.fileName }

// BlobURL returns where the raw PDF is stored.
func (d *Document) BlobURL() string { return d.blobURL }

// Status returns the lifecycle state.
func (d *Document) Status() Status { return d.status }

// UploadedAt returns the upload time.
func (d *Document) UploadedAt() time.Time { return d.uploadedAt }

// ProcessedAt returns the completion time, zero until processed.
func (d *Document) ProcessedAt() time.Time { return d.processedAt }

// ChunkCount returns the number of stored chunks.
func (d *Document) ChunkCount() int { return d.chunkCount }

// LastError returns the failure message of the last run.
func (d *Document) LastError() string { return d.lastError }

// Queryable reports whether chat can run against this document.
func (d *Document) Queryable() bool { return d.status == StatusProcessed }
