package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
)

// --- Search ---

func TestSearch_HappyPath(t *testing.T) {
	idx, ms := newTestIndex(t)

	ms.searchFn = func(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
		if q.IndexName != "cms:site:idx" {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		if q.Offset != 0 || q.Limit != 50 {
			t.Errorf("offset=%d limit=%d", q.Offset, q.Limit)
		}
		if q.Text != "harbor" {
			t.Errorf("text = %q", q.Text)
		}
		if !slices.Contains(q.ReturnFields, query.FieldSource) {
			t.Errorf("return fields %v must include source", q.ReturnFields)
		}
		return &db.SearchResult{
			Total: 9,
			Entries: []db.SearchEntry{
				{Key: "cms:site:doc-1", Score: 2, Fields: map[string]string{"path": "/a.html", "type": "article"}},
				{Key: "cms:site:ext-1", Score: 1, Fields: map[string]string{"path": "http://x", "source": "external"}},
			},
		}, nil
	}

	hits, err := idx.Search(context.Background(), mustQuery(t, query.NewBuilder().Text("harbor")), 0, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Total != 9 {
		t.Errorf("Total = %d", hits.Total)
	}
	if len(hits.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(hits.Documents))
	}
	if d := hits.Documents[0]; d.ID() != "doc-1" || !d.Checkable() || d.Path() != "/a.html" {
		t.Errorf("doc[0] = %s checkable=%v path=%s", d.ID(), d.Checkable(), d.Path())
	}
	if hits.Documents[1].Checkable() {
		t.Error("external documents must not be checkable")
	}
	if _, ok := hits.Documents[1].Fields()[query.FieldSource]; ok {
		t.Error("source was not requested and must not be returned")
	}
}

func TestSearch_KeepsRequestedSource(t *testing.T) {
	idx, ms := newTestIndex(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "cms:site:ext-1", Fields: map[string]string{"path": "http://x", "source": "external"}},
		}}, nil
	}

	hits, err := idx.Search(context.Background(), mustQuery(t, query.NewBuilder().Fields(query.FieldSource)), 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := hits.Documents[0].Field(query.FieldSource); got != query.SourceExternal {
		t.Errorf("source = %q", got)
	}
}

func TestSearch_MatchAllSendsEmptyText(t *testing.T) {
	idx, ms := newTestIndex(t)
	if _, err := idx.Search(context.Background(), mustQuery(t, query.NewBuilder()), 0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.calls[0].Text != "" {
		t.Errorf("Text = %q, want empty", ms.calls[0].Text)
	}
}

func TestSearch_SortAndFacets(t *testing.T) {
	idx, ms := newTestIndex(t)
	q := mustQuery(t, query.NewBuilder().Sort("released", true).Fields(query.AllFields))

	if _, err := idx.Search(context.Background(), q, 0, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sq := ms.calls[0]
	if len(sq.Sort) != 1 || sq.Sort[0].Field != "released" || !sq.Sort[0].Desc {
		t.Errorf("Sort = %+v", sq.Sort)
	}
	if sq.ReturnFields != nil {
		t.Errorf("ReturnFields = %v, want nil for all fields", sq.ReturnFields)
	}
}

func TestSearch_Error(t *testing.T) {
	idx, ms := newTestIndex(t)
	ms.searchFn = func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
	}

	_, err := idx.Search(context.Background(), mustQuery(t, query.NewBuilder()), 0, 5)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected wrapped db.Error, got %v", err)
	}
}

// --- Highlight ---

func TestHighlight_RestrictsToIDs(t *testing.T) {
	idx, ms := newTestIndex(t)
	q := mustQuery(t, query.NewBuilder().Text("harbor").Highlight(query.Highlight{
		Fields: []string{"content"}, RequireFieldMatch: true,
	}))

	ms.searchFn = func(_ context.Context, sq *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "cms:site:a", Highlights: map[string][]string{"content": {"<em>harbor</em>"}}},
			{Key: "cms:site:b"},
		}}, nil
	}

	h, err := idx.Highlight(context.Background(), q, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sq := ms.calls[0]
	if !slices.Equal(sq.InKeys, []string{"cms:site:a", "cms:site:b"}) {
		t.Errorf("InKeys = %v", sq.InKeys)
	}
	if sq.Limit != 2 {
		t.Errorf("Limit = %d", sq.Limit)
	}
	if !slices.Equal(sq.TextFields, []string{"content"}) {
		t.Errorf("TextFields = %v", sq.TextFields)
	}
	if sq.Highlight == nil || sq.Highlight.Pre != query.DefaultPre || sq.Highlight.Fragments != query.DefaultFragments {
		t.Errorf("Highlight = %+v", sq.Highlight)
	}
	if h["a"]["content"][0] != "<em>harbor</em>" {
		t.Errorf("highlights = %v", h)
	}
	if _, ok := h["b"]; ok {
		t.Error("documents without snippets must be omitted")
	}
}

func TestHighlight_NotRequested(t *testing.T) {
	idx, ms := newTestIndex(t)
	h, err := idx.Highlight(context.Background(), mustQuery(t, query.NewBuilder()), []string{"a"})
	if err != nil || h != nil {
		t.Errorf("Highlight = %v, %v", h, err)
	}
	if len(ms.calls) != 0 {
		t.Error("engine must not be called")
	}
}

// --- Lookup ---

func TestLookup_Found(t *testing.T) {
	idx, ms := newTestIndex(t)
	ms.searchFn = func(_ context.Context, sq *db.SearchQuery) (*db.SearchResult, error) {
		if sq.Limit != 1 || len(sq.Filters) != 1 || sq.Filters[0].Field() != "path" {
			t.Errorf("query = %+v", sq)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "cms:site:doc-7", Fields: map[string]string{"path": "/a.html"}},
		}}, nil
	}

	doc, err := idx.Lookup(context.Background(), "path", "/a.html", []string{query.AllFields})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "doc-7" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if ms.calls[0].ReturnFields != nil {
		t.Errorf("ReturnFields = %v, want nil for all fields", ms.calls[0].ReturnFields)
	}
}

func TestLookup_RestrictsReturnFields(t *testing.T) {
	idx, ms := newTestIndex(t)
	ms.searchFn = func(_ context.Context, sq *db.SearchQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "cms:site:doc-7", Fields: map[string]string{"path": "/a.html", "type": "article", "source": "cms"}},
		}}, nil
	}

	doc, err := idx.Lookup(context.Background(), "path", "/a.html", []string{"path", "type"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ms.calls[0].ReturnFields; !slices.Equal(got, []string{"path", "type", "source"}) {
		t.Errorf("ReturnFields = %v", got)
	}
	if _, ok := doc.Fields()[query.FieldSource]; ok || !doc.Checkable() {
		t.Errorf("fields = %v checkable=%v", doc.Fields(), doc.Checkable())
	}
}

func TestLookup_NotFound(t *testing.T) {
	idx, _ := newTestIndex(t)
	_, err := idx.Lookup(context.Background(), "path", "/missing.html", []string{query.AllFields})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- Layout ---

func TestLayouts(t *testing.T) {
	h := HashLayout{Prefix: "cms:"}
	if h.IndexName("site") != "cms:site:idx" || h.KeyPrefix("site") != "cms:site:" {
		t.Errorf("hash layout = %s %s", h.IndexName("site"), h.KeyPrefix("site"))
	}
	f := FlatLayout{}
	if f.IndexName("site") != "site" || f.KeyPrefix("site") != "" {
		t.Errorf("flat layout = %s %q", f.IndexName("site"), f.KeyPrefix("site"))
	}
}

func TestDefinition(t *testing.T) {
	repo := New(&mockStore{}, HashLayout{Prefix: "cms:"})
	def := repo.Definition("site")
	if def.Name != "cms:site:idx" || !slices.Equal(def.Prefixes, []string{"cms:site:"}) {
		t.Errorf("definition = %s", def)
	}
	if f, ok := def.Field(FieldReleased); !ok || f.Type != db.IndexFieldNumeric {
		t.Errorf("released = %+v %v", f, ok)
	}
	if f, _ := def.Field(FieldTitle); f.Weight != TitleWeight || !f.Sortable {
		t.Errorf("title = %+v", f)
	}
	if def.Language != DefaultLanguage {
		t.Errorf("language = %q", def.Language)
	}

	flat := New(&mockStore{}, nil).Definition("site")
	if flat.Name != "site" || len(flat.Prefixes) != 0 {
		t.Errorf("flat definition = %s", flat)
	}
}
