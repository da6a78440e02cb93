package chunk

import "github.com/kailas-cloud/pdfchat/internal/db"

// Hash field names of a stored chunk.
const (
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"
	fieldPageNumber = "page_number"
	fieldContent    = "content"
	fieldExtra      = "extra"
	fieldVector     = "__vector"
	vectorAlias     = "vector"
)

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// buildIndex describes the chunk index: tag-filterable by document,
// cosine HNSW over the embedding.
func buildIndex(prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(indexName(prefix)).
		Prefix(prefix+"chunk:").
		Tag(fieldDocumentID).
		Numeric(fieldChunkIndex).
		Numeric(fieldPageNumber).
		VectorHNSW(fieldVector, vectorAlias, dim, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
}

func indexName(prefix string) string {
	return prefix + "chunk:idx"
}
