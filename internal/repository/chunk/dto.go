package chunk

import (
	"encoding/json"
	"strconv"

	"github.com/kailas-cloud/pdfchat/internal/db"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
)

// buildHashFields flattens an embedded chunk. Text and vector live in one hash.
func buildHashFields(documentID string, c *domchunk.EmbeddedChunk) (map[string]string, error) {
	fields := map[string]string{
		fieldDocumentID: documentID,
		fieldChunkIndex: strconv.Itoa(c.Metadata.ChunkIndex),
		fieldPageNumber: strconv.Itoa(c.Metadata.PageNumber),
		fieldContent:    c.Content,
		fieldVector:     db.EncodeVector(c.Embedding),
	}
	if len(c.Metadata.Extra) > 0 {
		extra, err := json.Marshal(c.Metadata.Extra)
		if err != nil {
			return nil, err
		}
		fields[fieldExtra] = string(extra)
	}
	return fields, nil
}

// parseTextChunk reads the text part of a chunk hash.
func parseTextChunk(m map[string]string) domchunk.TextChunk {
	idx, _ := strconv.Atoi(m[fieldChunkIndex])
	page, _ := strconv.Atoi(m[fieldPageNumber])

	md := domchunk.Metadata{PageNumber: page, ChunkIndex: idx}
	if raw := m[fieldExtra]; raw != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(raw), &extra); err == nil && len(extra) > 0 {
			md.Extra = extra
		}
	}
	return domchunk.TextChunk{Content: m[fieldContent], Metadata: md}
}
