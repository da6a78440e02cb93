// Package chunk is the vector store gateway: embedded chunks as Valkey hashes
// under one HNSW index, searched with a per-document tag pre-filter.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/pdfchat/internal/db"
	"github.com/kailas-cloud/pdfchat/internal/domain"
	domchunk "github.com/kailas-cloud/pdfchat/internal/domain/chunk"
)

// store is the consumer interface for chunks (ISP).
type store interface {
	ReplaceHashes(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options configures the gateway.
type Options struct {
	KeyPrefix  string
	Dimensions int
	HNSW       HNSWConfig
	// Timeout bounds every store call; zero disables it.
	Timeout time.Duration
}

// Repo stores chunks under <prefix>chunk:<documentID>:<chunkIndex>.
type Repo struct {
	store store
	opts  Options
}

// New creates a chunk repository.
func New(s store, opts Options) *Repo {
	if opts.HNSW.M <= 0 {
		opts.HNSW.M = 16
	}
	if opts.HNSW.EFConstruct <= 0 {
		opts.HNSW.EFConstruct = 200
	}
	return &Repo{store: s, opts: opts}
}

// EnsureIndex creates the chunk index. An existing index is not an error.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex(r.opts.KeyPrefix, r.opts.Dimensions, r.opts.HNSW)
	if err != nil {
		return fmt.Errorf("build chunk index: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("%w: create index %s: %w", domain.ErrStoreUnavailable, def.Name, err)
	}
	return nil
}

// Upsert replaces all chunks of a document in one transaction, then removes
// chunks left over from a previous, longer run. Keys are (documentID,
// chunkIndex), so re-ingesting the same text overwrites instead of duplicating.
func (r *Repo) Upsert(ctx context.Context, documentID string, chunks []domchunk.EmbeddedChunk) error {
	items := make([]db.HashSetItem, 0, len(chunks))
	keep := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if r.opts.Dimensions > 0 && len(c.Embedding) != r.opts.Dimensions {
			return fmt.Errorf("%w: chunk %d has %d dimensions, index expects %d",
				domain.ErrEmbeddingProviderError, c.Index(), len(c.Embedding), r.opts.Dimensions)
		}
		fields, err := buildHashFields(documentID, c)
		if err != nil {
			return fmt.Errorf("encode chunk %d: %w", c.Index(), err)
		}
		key := r.chunkKey(documentID, c.Index())
		items = append(items, db.HashSetItem{Key: key, Fields: fields})
		keep[key] = struct{}{}
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if len(items) > 0 {
		if err := r.store.ReplaceHashes(ctx, items); err != nil {
			return fmt.Errorf("%w: upsert chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
		}
	}

	keys, err := r.store.Scan(ctx, r.documentPattern(documentID))
	if err != nil {
		return fmt.Errorf("%w: scan chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	var stale []string
	for _, k := range keys {
		if _, ok := keep[k]; !ok {
			stale = append(stale, k)
		}
	}
	if err := r.store.Del(ctx, stale...); err != nil {
		return fmt.Errorf("%w: prune chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	return nil
}

// searchOverFetch multiplies the requested limit so that chunks tied at the
// cut-off are ranked here by chunk index rather than picked by the server.
const searchOverFetch = 2

// Search returns up to limit chunks of one document, most similar first.
// Equal scores are ordered by chunk index.
func (r *Repo) Search(
	ctx context.Context, documentID string, vector []float32, limit int,
) ([]domchunk.RetrievedChunk, error) {
	if limit <= 0 {
		return []domchunk.RetrievedChunk{}, nil
	}

	q := &db.KNNQuery{
		IndexName:  indexName(r.opts.KeyPrefix),
		TagFilters: map[string]string{fieldDocumentID: documentID},
		Vector:     vector,
		K:          limit * searchOverFetch,
		ReturnFields: []string{
			fieldDocumentID, fieldChunkIndex, fieldPageNumber, fieldContent, fieldExtra, db.ScoreField,
		},
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: search chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}

	return parseSearchResult(sr, documentID, limit), nil
}

func parseSearchResult(sr *db.SearchResult, documentID string, limit int) []domchunk.RetrievedChunk {
	out := make([]domchunk.RetrievedChunk, 0, limit)
	if sr == nil {
		return out
	}
	for _, e := range sr.Entries {
		if e.Fields[fieldDocumentID] != documentID {
			continue
		}
		out = append(out, domchunk.RetrievedChunk{
			TextChunk:  parseTextChunk(e.Fields),
			DocumentID: documentID,
			Score:      e.Score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index() < out[j].Index()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// List returns every chunk of a document ordered by chunk index.
func (r *Repo) List(ctx context.Context, documentID string) ([]domchunk.TextChunk, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	keys, err := r.store.Scan(ctx, r.documentPattern(documentID))
	if err != nil {
		return nil, fmt.Errorf("%w: scan chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	if len(keys) == 0 {
		return []domchunk.TextChunk{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: load chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}

	out := make([]domchunk.TextChunk, 0, len(hashes))
	for _, m := range hashes {
		if len(m) == 0 {
			continue
		}
		out = append(out, parseTextChunk(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index() < out[j].Index() })
	return out, nil
}

// DeleteDocument removes every chunk of a document. Returns the number removed.
func (r *Repo) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	keys, err := r.store.Scan(ctx, r.documentPattern(documentID))
	if err != nil {
		return 0, fmt.Errorf("%w: scan chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("%w: delete chunks of %s: %w", domain.ErrStoreUnavailable, documentID, err)
	}
	return len(keys), nil
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func (r *Repo) chunkKey(documentID string, index int) string {
	return r.opts.KeyPrefix + "chunk:" + documentID + ":" + strconv.Itoa(index)
}

func (r *Repo) documentPattern(documentID string) string {
	return r.opts.KeyPrefix + "chunk:" + escapeGlob(documentID) + ":*"
}

var globEscaper = strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `\`, `\\`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
