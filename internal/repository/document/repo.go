// Package document persists document metadata as Valkey hashes.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/kailas-cloud/pdfchat/internal/db"
	"github.com/kailas-cloud/pdfchat/internal/domain"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	RunScript(ctx context.Context, s *db.Script, keys, args []string) (db.ScriptReply, error)
}

// Options configures the repository.
type Options struct {
	KeyPrefix string
	// Timeout bounds every store call; zero disables it.
	Timeout time.Duration
}

// Repo stores documents under <prefix>document:<id>.
type Repo struct {
	store store
	opts  Options
}

// New creates a document repository.
func New(s store, opts Options) *Repo {
	return &Repo{store: s, opts: opts}
}

// Create stores a new document. An existing id is rejected.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document) error {
	created, err := r.create(ctx, doc)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("document %s already exists: %w", doc.ID(), domain.ErrInvalidInput)
	}
	return nil
}

// Register stores doc unless its id is already known. Reports whether it was created.
func (r *Repo) Register(ctx context.Context, doc *domdoc.Document) (bool, error) {
	return r.create(ctx, doc)
}

func (r *Repo) create(ctx context.Context, doc *domdoc.Document) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.docKey(doc.ID())
	reply, err := r.store.RunScript(ctx, createScript, []string{key}, flatten(buildHashFields(doc)))
	if err != nil {
		return false, fmt.Errorf("%w: create %s: %w", domain.ErrStoreUnavailable, key, err)
	}
	return reply.Code == 1, nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("%w: hgetall %s: %w", domain.ErrStoreUnavailable, key, err)
	}

	doc, ok, err := parseHashFields(m)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// List returns every document, newest upload first.
func (r *Repo) List(ctx context.Context) ([]domdoc.Document, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	keys, err := r.store.Scan(ctx, r.opts.KeyPrefix+"document:*")
	if err != nil {
		return nil, fmt.Errorf("%w: scan documents: %w", domain.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return []domdoc.Document{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%w: load documents: %w", domain.ErrStoreUnavailable, err)
	}

	docs := make([]domdoc.Document, 0, len(hashes))
	for _, m := range hashes {
		doc, ok, err := parseHashFields(m)
		if err != nil || !ok {
			// Deleted between SCAN and HGETALL, or not a document record.
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i].UploadedAt(), docs[j].UploadedAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return docs[i].ID() < docs[j].ID()
	})
	return docs, nil
}

// Transition atomically moves a document to c.To if its current status allows it.
// Returns the status the document had before the change.
func (r *Repo) Transition(ctx context.Context, id string, c domdoc.Change) (domdoc.Status, error) {
	allowed := domdoc.AllowedFrom(c.To)
	if len(allowed) == 0 {
		return "", fmt.Errorf("no transition leads to %q: %w", c.To, domain.ErrInvalidTransition)
	}

	args := make([]string, 0, 2+len(allowed)+8)
	args = append(args, string(c.To), strconv.Itoa(len(allowed)))
	for _, s := range allowed {
		args = append(args, string(s))
	}
	args = append(args, flatten(changeFields(c))...)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.docKey(id)
	reply, err := r.store.RunScript(ctx, transitionScript, []string{key}, args)
	if err != nil {
		return "", fmt.Errorf("%w: transition %s: %w", domain.ErrStoreUnavailable, key, err)
	}

	switch reply.Code {
	case 1:
		return domdoc.Status(reply.Value), nil
	case 0:
		return domdoc.Status(reply.Value), domain.NewTransitionError(reply.Value, string(c.To))
	default:
		return "", domain.ErrDocumentNotFound
	}
}

func changeFields(c domdoc.Change) map[string]string {
	fields := map[string]string{fieldError: c.Error}
	switch c.To {
	case domdoc.StatusProcessing:
		fields[fieldProcessedAt] = ""
	case domdoc.StatusProcessed:
		fields[fieldProcessedAt] = formatTime(c.ProcessedAt)
		fields[fieldChunkCount] = strconv.Itoa(c.ChunkCount)
	}
	return fields
}

// Delete removes a document record. Missing records are not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.docKey(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("%w: del %s: %w", domain.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.opts.Timeout)
}

func (r *Repo) docKey(id string) string {
	return r.opts.KeyPrefix + "document:" + id
}
