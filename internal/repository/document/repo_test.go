package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/pdfchat/internal/db"
	"github.com/kailas-cloud/pdfchat/internal/domain"
	domdoc "github.com/kailas-cloud/pdfchat/internal/domain/document"
)

var errBoom = errors.New("connection refused")

func newDoc(t *testing.T, id string, at time.Time) domdoc.Document {
	t.Helper()
	d, err := domdoc.New(id, id+".pdf", "http://blob/"+id, at)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return d
}

func pairs(args []string) map[string]string {
	m := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		m[args[i]] = args[i+1]
	}
	return m
}

func TestCreate_WritesHash(t *testing.T) {
	var gotKeys, gotArgs []string
	ms := &mockStore{
		runScriptFn: func(_ context.Context, s *db.Script, keys, args []string) (db.ScriptReply, error) {
			if s != createScript {
				t.Errorf("script = %s, want create", s.Name)
			}
			gotKeys, gotArgs = keys, args
			return db.ScriptReply{Code: 1}, nil
		},
	}
	r := New(ms, Options{KeyPrefix: "pdfchat:"})
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := newDoc(t, "doc-1", at)

	if err := r.Create(context.Background(), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotKeys) != 1 || gotKeys[0] != "pdfchat:document:doc-1" {
		t.Errorf("keys = %v", gotKeys)
	}
	f := pairs(gotArgs)
	if f[fieldStatus] != "uploaded" || f[fieldFileName] != "doc-1.pdf" {
		t.Errorf("fields = %v", f)
	}
	if f[fieldUploadedAt] != "2026-01-02T03:04:05Z" {
		t.Errorf("uploaded_at = %q", f[fieldUploadedAt])
	}
	if f[fieldProcessedAt] != "" {
		t.Errorf("processed_at = %q, want empty", f[fieldProcessedAt])
	}
}

func TestCreate_Exists(t *testing.T) {
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			return db.ScriptReply{Code: 0, Value: "processed"}, nil
		},
	}
	d := newDoc(t, "doc-1", time.Now())
	err := New(ms, Options{}).Create(context.Background(), &d)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRegister(t *testing.T) {
	code := int64(0)
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			return db.ScriptReply{Code: code}, nil
		},
	}
	r := New(ms, Options{})
	d := newDoc(t, "doc-1", time.Now())

	created, err := r.Register(context.Background(), &d)
	if err != nil || created {
		t.Fatalf("existing: created=%v err=%v", created, err)
	}
	code = 1
	created, err = r.Register(context.Background(), &d)
	if err != nil || !created {
		t.Fatalf("new: created=%v err=%v", created, err)
	}
}

func TestCreate_StoreError(t *testing.T) {
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			return db.ScriptReply{}, errBoom
		},
	}
	d := newDoc(t, "doc-1", time.Now())
	if err := New(ms, Options{}).Create(context.Background(), &d); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestGet(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != "p:document:doc-1" {
				t.Errorf("key = %q", key)
			}
			return map[string]string{
				fieldID:          "doc-1",
				fieldFileName:    "a.pdf",
				fieldBlobURL:     "http://blob/a",
				fieldStatus:      "processed",
				fieldUploadedAt:  "2026-01-02T03:04:05Z",
				fieldProcessedAt: "2026-01-02T03:05:00.5Z",
				fieldChunkCount:  "12",
			}, nil
		},
	}
	d, err := New(ms, Options{KeyPrefix: "p:"}).Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status() != domdoc.StatusProcessed || d.ChunkCount() != 12 || !d.Queryable() {
		t.Errorf("unexpected document: %+v", d)
	}
	if d.ProcessedAt().Nanosecond() != 500000000 {
		t.Errorf("processed_at = %v", d.ProcessedAt())
	}
}

func TestGet_NotFound(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string) (map[string]string, error)
	}{
		{"empty hash", func(context.Context, string) (map[string]string, error) { return map[string]string{}, nil }},
		{"key not found", func(context.Context, string) (map[string]string, error) { return nil, db.ErrKeyNotFound }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(&mockStore{hgetAllFn: tc.fn}, Options{}).Get(context.Background(), "x")
			if !errors.Is(err, domain.ErrDocumentNotFound) {
				t.Fatalf("err = %v, want ErrDocumentNotFound", err)
			}
		})
	}
}

func TestGet_StoreError(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) { return nil, errBoom },
	}
	_, err := New(ms, Options{}).Get(context.Background(), "x")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestGet_CorruptStatus(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(context.Context, string) (map[string]string, error) {
			return map[string]string{fieldID: "x", fieldStatus: "weird"}, nil
		},
	}
	_, err := New(ms, Options{}).Get(context.Background(), "x")
	if err == nil || errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	ms := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "p:document:*" {
				t.Errorf("pattern = %q", pattern)
			}
			return []string{"p:document:a", "p:document:b", "p:document:gone", "p:document:c"}, nil
		},
		hgetAllMultiFn: func(_ context.Context, keys []string) ([]map[string]string, error) {
			return []map[string]string{
				{fieldID: "a", fieldStatus: "uploaded", fieldUploadedAt: "2026-01-01T00:00:00Z"},
				{fieldID: "b", fieldStatus: "processed", fieldUploadedAt: "2026-03-01T00:00:00Z"},
				{},
				{fieldID: "c", fieldStatus: "processing", fieldUploadedAt: "2026-02-01T00:00:00Z"},
			}, nil
		},
	}
	docs, err := New(ms, Options{KeyPrefix: "p:"}).List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	for i := range docs {
		ids = append(ids, docs[i].ID())
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Errorf("order = %v, want [b c a]", ids)
	}
}

func TestList_Empty(t *testing.T) {
	ms := &mockStore{
		hgetAllMultiFn: func(context.Context, []string) ([]map[string]string, error) {
			t.Error("HGetAllMulti must not be called without keys")
			return nil, nil
		},
	}
	docs, err := New(ms, Options{}).List(context.Background())
	if err != nil || docs == nil || len(docs) != 0 {
		t.Fatalf("docs=%v err=%v, want empty non-nil", docs, err)
	}
}

func TestList_ScanError(t *testing.T) {
	ms := &mockStore{
		scanFn: func(context.Context, string) ([]string, error) { return nil, errBoom },
	}
	if _, err := New(ms, Options{}).List(context.Background()); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestTransition_ToProcessed(t *testing.T) {
	var gotArgs []string
	ms := &mockStore{
		runScriptFn: func(_ context.Context, s *db.Script, _ []string, args []string) (db.ScriptReply, error) {
			if s != transitionScript {
				t.Errorf("script = %s", s.Name)
			}
			gotArgs = args
			return db.ScriptReply{Code: 1, Value: "processing"}, nil
		},
	}
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	prev, err := New(ms, Options{}).Transition(context.Background(), "doc-1", domdoc.Change{
		To: domdoc.StatusProcessed, ProcessedAt: at, ChunkCount: 7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev != domdoc.StatusProcessing {
		t.Errorf("previous = %q", prev)
	}
	if gotArgs[0] != "processed" || gotArgs[1] != "1" || gotArgs[2] != "processing" {
		t.Fatalf("header args = %v", gotArgs[:3])
	}
	f := pairs(gotArgs[3:])
	if f[fieldChunkCount] != "7" || f[fieldProcessedAt] != "2026-05-06T07:08:09Z" {
		t.Errorf("fields = %v", f)
	}
	if v, ok := f[fieldError]; !ok || v != "" {
		t.Errorf("error field must be cleared, got %q (present=%v)", v, ok)
	}
}

func TestTransition_ToProcessingClearsCompletion(t *testing.T) {
	var gotArgs []string
	ms := &mockStore{
		runScriptFn: func(_ context.Context, _ *db.Script, _ []string, args []string) (db.ScriptReply, error) {
			gotArgs = args
			return db.ScriptReply{Code: 1, Value: "processed"}, nil
		},
	}
	if _, err := New(ms, Options{}).Transition(context.Background(), "d", domdoc.Change{To: domdoc.StatusProcessing}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotArgs[1] != "4" {
		t.Errorf("allowed count = %s, want 4", gotArgs[1])
	}
	f := pairs(gotArgs[2+4:])
	if v, ok := f[fieldProcessedAt]; !ok || v != "" {
		t.Errorf("processed_at must be cleared, fields = %v", f)
	}
	if _, ok := f[fieldChunkCount]; ok {
		t.Error("chunk_count must be left alone when entering processing")
	}
}

func TestTransition_Rejected(t *testing.T) {
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			return db.ScriptReply{Code: 0, Value: "processed"}, nil
		},
	}
	prev, err := New(ms, Options{}).Transition(context.Background(), "d", domdoc.Change{To: domdoc.StatusFailed, Error: "x"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
	var te *domain.TransitionError
	if !errors.As(err, &te) || te.From != "processed" || te.To != "processing_failed" {
		t.Errorf("transition error = %+v", te)
	}
	if prev != domdoc.StatusProcessed {
		t.Errorf("current = %q", prev)
	}
}

func TestTransition_Missing(t *testing.T) {
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			return db.ScriptReply{Code: -1}, nil
		},
	}
	_, err := New(ms, Options{}).Transition(context.Background(), "d", domdoc.Change{To: domdoc.StatusProcessing})
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestTransition_ToUploadedIsInvalid(t *testing.T) {
	ms := &mockStore{
		runScriptFn: func(context.Context, *db.Script, []string, []string) (db.ScriptReply, error) {
			t.Error("store must not be called")
			return db.ScriptReply{}, nil
		},
	}
	_, err := New(ms, Options{}).Transition(context.Background(), "d", domdoc.Change{To: domdoc.StatusUploaded})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDelete(t *testing.T) {
	var got []string
	ms := &mockStore{
		delFn: func(_ context.Context, keys ...string) error {
			got = keys
			return nil
		},
	}
	r := New(ms, Options{KeyPrefix: "p:"})
	if err := r.Delete(context.Background(), "d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != "p:document:d" {
		t.Errorf("keys = %v", got)
	}

	ms.delFn = func(context.Context, ...string) error { return errBoom }
	if err := r.Delete(context.Background(), "d"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestStoreCallsAreBounded(t *testing.T) {
	var deadlines []bool
	record := func(ctx context.Context) {
		_, ok := ctx.Deadline()
		deadlines = append(deadlines, ok)
	}
	ms := &mockStore{
		hgetAllFn: func(ctx context.Context, _ string) (map[string]string, error) {
			record(ctx)
			return nil, db.ErrKeyNotFound
		},
		scanFn: func(ctx context.Context, _ string) ([]string, error) {
			record(ctx)
			return nil, nil
		},
		delFn: func(ctx context.Context, _ ...string) error {
			record(ctx)
			return nil
		},
		runScriptFn: func(ctx context.Context, _ *db.Script, _, _ []string) (db.ScriptReply, error) {
			record(ctx)
			return db.ScriptReply{Code: 1, Value: string(domdoc.StatusUploaded)}, nil
		},
	}
	d := newDoc(t, "d", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	run := func(r *Repo) {
		ctx := context.Background()
		_ = r.Create(ctx, &d)
		_, _ = r.Get(ctx, "d")
		_, _ = r.List(ctx)
		_, _ = r.Transition(ctx, "d", domdoc.Change{To: domdoc.StatusProcessing})
		_ = r.Delete(ctx, "d")
	}

	run(New(ms, Options{Timeout: time.Second}))
	if len(deadlines) != 5 {
		t.Fatalf("store calls = %d, want 5", len(deadlines))
	}
	for i, ok := range deadlines {
		if !ok {
			t.Errorf("call %d ran without a deadline", i)
		}
	}

	deadlines = nil
	run(New(ms, Options{}))
	for i, ok := range deadlines {
		if ok {
			t.Errorf("call %d got a deadline with no timeout configured", i)
		}
	}
}
