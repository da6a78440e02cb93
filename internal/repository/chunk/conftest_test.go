package chunk

import (
	"context"

	"github.com/kailas-cloud/pdfchat/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	replaceHashesFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllMultiFn  func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn           func(ctx context.Context, keys ...string) error
	scanFn          func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn   func(ctx context.Context, def *db.IndexDefinition) error
	searchKNNFn     func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) ReplaceHashes(ctx context.Context, items []db.HashSetItem) error {
	if m.replaceHashesFn != nil {
		return m.replaceHashesFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// memStore keeps hashes in memory so upsert/list/delete can be checked end to end.
type memStore struct {
	mockStore
	hashes map[string]map[string]string
}

func newMemStore() *memStore {
	s := &memStore{hashes: map[string]map[string]string{}}
	s.replaceHashesFn = func(_ context.Context, items []db.HashSetItem) error {
		for _, it := range items {
			s.hashes[it.Key] = it.Fields
		}
		return nil
	}
	s.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		out := make([]map[string]string, len(keys))
		for i, k := range keys {
			out[i] = s.hashes[k]
		}
		return out, nil
	}
	s.delFn = func(_ context.Context, keys ...string) error {
		for _, k := range keys {
			delete(s.hashes, k)
		}
		return nil
	}
	s.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		prefix := pattern[:len(pattern)-1]
		var out []string
		for k := range s.hashes {
			if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
				out = append(out, k)
			}
		}
		return out, nil
	}
	return s
}
