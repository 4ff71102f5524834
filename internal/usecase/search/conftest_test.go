package search

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

// --- Mocks ---

type searchCall struct {
	offset, count int
}

type mockEngine struct {
	mu         sync.Mutex
	docs       []result.Document
	total      int // overrides len(docs) when > 0
	facets     map[string]int
	searchErr  error
	searches   []searchCall
	highlights [][]string
	hl         result.Highlights
	hlErr      error
	lookup     map[string]result.Document
	lookupErr  error
	lookupWith [][]string
}

func (m *mockEngine) Search(_ context.Context, _ query.Query, offset, count int) (result.Hits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, searchCall{offset: offset, count: count})
	if m.searchErr != nil {
		return result.Hits{}, m.searchErr
	}
	total := len(m.docs)
	if m.total > 0 {
		total = m.total
	}
	lo := min(offset, len(m.docs))
	hi := min(offset+count, len(m.docs))
	return result.Hits{Total: total, Documents: slices.Clone(m.docs[lo:hi]), Facets: m.facets}, nil
}

func (m *mockEngine) Highlight(_ context.Context, _ query.Query, ids []string) (result.Highlights, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highlights = append(m.highlights, slices.Clone(ids))
	if m.hlErr != nil {
		return nil, m.hlErr
	}
	out := result.Highlights{}
	for _, id := range ids {
		if h, ok := m.hl[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (m *mockEngine) Lookup(_ context.Context, field, value string, fields []string) (result.Document, error) {
	m.mu.Lock()
	m.lookupWith = append(m.lookupWith, slices.Clone(fields))
	m.mu.Unlock()
	if m.lookupErr != nil {
		return result.Document{}, m.lookupErr
	}
	d, ok := m.lookup[field+"="+value]
	if !ok {
		return result.Document{}, fmt.Errorf("%s=%s: %w", field, value, domain.ErrNotFound)
	}
	return d, nil
}

type mockResolver struct {
	mu      sync.Mutex
	allowed map[string]bool // nil allows everything
	errs    map[string]error
	panics  map[string]bool
	calls   []string
}

func allowOnly(ids ...string) *mockResolver {
	m := &mockResolver{allowed: map[string]bool{}}
	for _, id := range ids {
		m.allowed[id] = true
	}
	return m
}

func (m *mockResolver) Resolve(_ context.Context, _ domain.Caller, id string) (domain.Resource, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.mu.Unlock()
	if m.panics[id] {
		panic("resolver exploded")
	}
	if err, ok := m.errs[id]; ok {
		return domain.Resource{}, err
	}
	if m.allowed != nil && !m.allowed[id] {
		return domain.Resource{}, domain.ErrPermissionDenied
	}
	return domain.NewResource("res-"+id, "/sites/default/"+id, "article"), nil
}

type mockRoles struct {
	roles map[string][]string
	err   error
}

func (m *mockRoles) HasRole(_ context.Context, user, role string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return slices.Contains(m.roles[user], role), nil
}

type mockSecrets struct {
	content string
	err     error
	calls   int
}

func (m *mockSecrets) ReadContent(_ context.Context, _ domain.Caller, _ string) (string, error) {
	m.calls++
	return m.content, m.err
}

type mockPost struct {
	err    error
	seen   []string
	failOn string
}

func (m *mockPost) Process(_ context.Context, doc result.Document, res domain.Resource) (result.Document, error) {
	m.seen = append(m.seen, doc.ID())
	if m.err != nil && (m.failOn == "" || m.failOn == doc.ID()) {
		return result.Document{}, m.err
	}
	return doc.WithField("resource", res.ID()), nil
}

type mockRecorder struct {
	calls int
	stats result.Stats
	page  result.Page
}

func (m *mockRecorder) RecordSearch(_ context.Context, _ string, _ domain.Caller, _ query.Query, page result.Page, stats result.Stats) {
	m.calls++
	m.page = page
	m.stats = stats
}

// --- Helpers ---

// corpus returns n checkable documents doc-0..doc-n-1 in rank order.
func corpus(n int) []result.Document {
	docs := make([]result.Document, n)
	for i := range docs {
		id := fmt.Sprintf("doc-%d", i)
		docs[i] = result.NewDocument(id, float64(n-i), map[string]string{
			query.FieldPath: "/sites/default/" + id,
			query.FieldType: "article",
		}, true)
	}
	return docs
}

func mustSettings(t *testing.T, c index.Config) index.Settings {
	t.Helper()
	if c.Name == "" {
		c.Name = "site"
	}
	s, err := index.New(c)
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	return s
}

func mustQuery(t *testing.T, b *query.Builder) query.Query {
	t.Helper()
	q, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return q
}

func pageQuery(t *testing.T, start, rows int) query.Query {
	t.Helper()
	return mustQuery(t, query.NewBuilder().Text("news").Start(start).Rows(rows))
}

func newTestService(t *testing.T, eng Engine, res PermissionResolver, c index.Config) *Service {
	t.Helper()
	reg, err := NewRegistry(NewIndex(mustSettings(t, c), eng, nil))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return New(reg, NewGuard(nil, nil, nil), res, NewThrottle(0), nil)
}

var (
	guest  = domain.NewCaller("", nil)
	editor = domain.NewCaller("bob", []string{"editors"})
)
