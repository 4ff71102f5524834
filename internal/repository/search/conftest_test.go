package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	calls    []*db.SearchQuery
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	m.calls = append(m.calls, q)
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestIndex(t *testing.T) (*Index, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, HashLayout{Prefix: "cms:"})
	return repo.Bind("site"), ms
}

func mustQuery(t *testing.T, b *query.Builder) query.Query {
	t.Helper()
	q, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return q
}
