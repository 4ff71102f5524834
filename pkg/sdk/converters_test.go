package cmsearch

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

func TestToInternalQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := toInternalQuery(Query{
		Text:       "festival",
		Start:      10,
		Rows:       ptr(5),
		Fields:     []string{"title"},
		Sort:       []SortField{{Field: "released", Desc: true}},
		Locales:    []string{"en"},
		Categories: []string{"news"},
		DateRanges: []DateRange{{Field: "released", From: &from}},
		Highlight:  &HighlightOptions{Fields: []string{"title"}},
	})
	if err != nil {
		t.Fatalf("toInternalQuery: %v", err)
	}
	if q.Text() != "festival" || q.Start() != 10 || q.Rows() != 5 {
		t.Errorf("query = %s", q)
	}
	if !slices.Equal(q.Fields(), []string{"title"}) {
		t.Errorf("Fields = %v", q.Fields())
	}
	if s := q.Sort(); len(s) != 1 || s[0].Field != "released" || !s[0].Desc {
		t.Errorf("Sort = %+v", s)
	}
	if !slices.Equal(q.Locales(), []string{"en"}) {
		t.Errorf("Locales = %v", q.Locales())
	}
	if len(q.Facets()) != 1 || q.Facets()[0].Name != "released" {
		t.Errorf("Facets = %+v", q.Facets())
	}
	h := q.Highlight()
	if h == nil || h.FragSize <= 0 || h.Pre == "" {
		t.Errorf("highlight defaults not applied: %+v", h)
	}
}

func TestToInternalQuery_UnboundedDateRange(t *testing.T) {
	_, err := toInternalQuery(Query{DateRanges: []DateRange{{Field: "released"}}})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestFromInternalPage_PseudoResource(t *testing.T) {
	doc := result.NewDocument("ext-1", 1, map[string]string{"source": "external"}, false)
	p := fromInternalPage(result.NewPage(result.Spec{
		Entries:  []result.Entry{result.NewEntry(doc, domain.NoPermissionCheck)},
		Fallback: result.ClampedToLastAvailable,
	}))
	if len(p.Hits) != 1 || p.Hits[0].Resource != nil {
		t.Errorf("hits = %+v", p.Hits)
	}
	if p.Fallback != FallbackClamped {
		t.Errorf("Fallback = %q", p.Fallback)
	}
}

func TestCallerRoundTrip(t *testing.T) {
	c := fromInternalCaller(toInternalCaller(Caller{User: "bob", Roles: []string{"editor"}}))
	if c.User != "bob" || !slices.Equal(c.Roles, []string{"editor"}) {
		t.Errorf("caller = %+v", c)
	}
}

func TestTimePtr(t *testing.T) {
	if timePtr(time.Time{}) != nil {
		t.Error("zero time must map to nil")
	}
	now := time.Now()
	if p := timePtr(now); p == nil || !p.Equal(now) {
		t.Errorf("timePtr = %v", p)
	}
}

func TestSearchBuilder(t *testing.T) {
	c := newMockClient(&mockSearch{})
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b := c.Index("site").Search().
		Text("harbor").
		As("alice", "editor").
		Fields("title").
		Locales("en", "de").
		Under("/sites/default/").
		Categories("news").
		Types("article").
		Between("released", from, time.Time{}).
		SortBy("released", true).
		Highlight("content").
		Page(3, 10).
		Debug("s3cret")

	q := b.Query()
	if q.Text != "harbor" || q.Start != 20 || q.Rows == nil || *q.Rows != 10 {
		t.Errorf("query = %+v", q)
	}
	if q.DateRanges[0].From == nil || q.DateRanges[0].To != nil {
		t.Errorf("date range = %+v", q.DateRanges[0])
	}
	if q.DebugSecret != "s3cret" || q.Highlight == nil || q.Highlight.Fields[0] != "content" {
		t.Errorf("query = %+v", q)
	}
	if b.caller.User != "alice" || !slices.Equal(b.caller.Roles, []string{"editor"}) {
		t.Errorf("caller = %+v", b.caller)
	}

	if got := c.Index("site").Search().Page(0, 10).Query().Start; got != 0 {
		t.Errorf("Page(0) start = %d, want 0", got)
	}
}

func TestSearchBuilder_Do(t *testing.T) {
	m := &mockSearch{}
	c := newMockClient(m)

	_, err := c.Index("staff").Search().As("bob").Text("x").Do(t.Context())
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if m.lastIndex != "staff" || m.lastCaller.User() != "bob" || m.lastQuery.Text() != "x" {
		t.Errorf("forwarded index=%q caller=%v query=%s", m.lastIndex, m.lastCaller, m.lastQuery)
	}
}
