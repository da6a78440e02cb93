package chi

import "time"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DocumentResponse describes one uploaded document.
type DocumentResponse struct {
	ID          string     `json:"id"`
	FileName    string     `json:"fileName"`
	BlobURL     string     `json:"blobUrl"`
	Status      string     `json:"status"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ChunkCount  int        `json:"chunkCount"`
	Error       string     `json:"error,omitempty"`
}

// DocumentListResponse lists documents, newest first.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
}

// UploadResponse is returned by POST /documents.
type UploadResponse struct {
	Document DocumentResponse `json:"document"`
	Queued   bool             `json:"queued"`
}

// ProcessResponse is the outcome of synchronous ingestion.
type ProcessResponse struct {
	DocumentID string `json:"documentId"`
	Success    bool   `json:"success"`
	ChunkCount int    `json:"chunkCount"`
	Error      string `json:"error,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// ChunkResponse is one stored chunk.
type ChunkResponse struct {
	Index      int               `json:"index"`
	PageNumber int               `json:"pageNumber,omitempty"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ChunkListResponse lists the chunks of a document in order.
type ChunkListResponse struct {
	DocumentID string          `json:"documentId"`
	Items      []ChunkResponse `json:"items"`
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /documents/{id}/chat.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatResponse is a complete, non-streamed answer.
type ChatResponse struct {
	DocumentID string `json:"documentId"`
	Answer     string `json:"answer"`
}

// ChatFragment is the data of an SSE "message" event.
type ChatFragment struct {
	Content string `json:"content"`
}

// UsageResponse reports embedding token consumption.
type UsageResponse struct {
	Provider        string    `json:"provider,omitempty"`
	Period          string    `json:"period"`
	PeriodStartAt   time.Time `json:"periodStartAt"`
	PeriodEndAt     time.Time `json:"periodEndAt"`
	TokensLimit     int64     `json:"tokensLimit"`
	TokensUsed      int64     `json:"tokensUsed"`
	TokensRemaining int64     `json:"tokensRemaining"`
	IsExhausted     bool      `json:"isExhausted"`
}

// HealthResponse reports service health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
