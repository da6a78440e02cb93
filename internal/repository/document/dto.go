package document

import (
	"strconv"
	"time"

	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
)

// Hash field names of a document record.
const (
	fieldID          = "id"
	fieldFileName    = "file_name"
	fieldBlobURL     = "blob_url"
	fieldStatus      = "status"
	fieldUploadedAt  = "uploaded_at"
	fieldProcessedAt = "processed_at"
	fieldChunkCount  = "chunk_count"
	fieldError       = "error"
)

// buildHashFields flattens a document for HSET.
func buildHashFields(doc *domdoc.Document) map[string]string {
	return map[string]string{
		fieldID:          doc.ID(),
		fieldFileName:    doc.FileName(),
		fieldBlobURL:     doc.BlobURL(),
		fieldStatus:      string(doc.Status()),
		fieldUploadedAt:  formatTime(doc.UploadedAt()),
		fieldProcessedAt: formatTime(doc.ProcessedAt()),
		fieldChunkCount:  strconv.Itoa(doc.ChunkCount()),
		fieldError:       doc.LastError(),
	}
}

// flatten turns a field map into the HSET argument list scripts expect.
func flatten(fields map[string]string) []string {
	out := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		out = append(out, k, v)
	}
	return out
}

// parseHashFields hydrates a document. ok is false for an empty hash.
func parseHashFields(m map[string]string) (domdoc.Document, bool, error) {
	if len(m) == 0 || m[fieldID] == "" {
		return domdoc.Document{}, false, nil
	}
	status, err := domdoc.ParseStatus(m[fieldStatus])
	if err != nil {
		return domdoc.Document{}, false, err
	}
	count, _ := strconv.Atoi(m[fieldChunkCount])

	return domdoc.Reconstruct(
		m[fieldID], m[fieldFileName], m[fieldBlobURL], status,
		parseTime(m[fieldUploadedAt]), parseTime(m[fieldProcessedAt]),
		count, m[fieldError],
	), true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
