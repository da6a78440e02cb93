package pdfchat

import "time"

// DocumentStatus is the lifecycle state of an uploaded PDF.
type DocumentStatus string

// Document status constants.
const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "processing_failed"
)

// Document is the metadata of an uploaded PDF.
type Document struct {
	ID          string
	FileName    string
	BlobURL     string
	Status      DocumentStatus
	UploadedAt  time.Time
	ProcessedAt time.Time // zero until processed
	ChunkCount  int
	LastError   string
}

// Chunk is a stored slice of document text.
type Chunk struct {
	Index      int
	PageNumber int // 1-based, zero when unknown
	Content    string
	Metadata   map[string]string
}

// IngestResult is the outcome of one pipeline run.
type IngestResult struct {
	DocumentID string
	Success    bool
	ChunkCount int
	ErrorKind  string // empty on success
	Error      string
}

// Role identifies the author of a conversation turn.
type Role string

// Role constants.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one earlier turn passed as conversation history.
type Message struct {
	Role    Role
	Content string
}
