package search

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

func highlightQuery(t *testing.T, rows int) query.Query {
	t.Helper()
	return mustQuery(t, query.NewBuilder().Text("festival").Rows(rows).Highlight(query.Highlight{}))
}

// Snippets are requested only for the documents on the returned page.
func TestSearch_HighlightsExactlyThePage(t *testing.T) {
	eng := &mockEngine{
		docs: corpus(3),
		hl: result.Highlights{
			"doc-0": {"content": {"<em>festival</em> opens"}},
			"doc-2": {"content": {"the <em>festival</em>"}},
		},
	}
	svc := newTestService(t, eng, &mockResolver{}, index.Config{})

	p, err := svc.Search(context.Background(), "site", editor, highlightQuery(t, 10))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if eng.searches[0].count != 50 {
		t.Errorf("candidate count = %d, want 50", eng.searches[0].count)
	}
	if len(eng.highlights) != 1 {
		t.Fatalf("highlight calls = %d, want 1", len(eng.highlights))
	}
	if !slices.Equal(eng.highlights[0], []string{"doc-0", "doc-1", "doc-2"}) {
		t.Errorf("highlight ids = %v", eng.highlights[0])
	}
	if got := p.Highlights()["doc-0"]["content"]; len(got) != 1 {
		t.Errorf("doc-0 snippets = %v", got)
	}
}

func TestSearch_HighlightsSkipDeniedCandidates(t *testing.T) {
	eng := &mockEngine{docs: corpus(20)}
	svc := newTestService(t, eng, allowOnly("doc-4", "doc-9"), index.Config{})

	if _, err := svc.Search(context.Background(), "site", editor, highlightQuery(t, 5)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !slices.Equal(eng.highlights[0], []string{"doc-4", "doc-9"}) {
		t.Errorf("highlight ids = %v", eng.highlights[0])
	}
}

func TestSearch_HighlightFailureIsNotFatal(t *testing.T) {
	eng := &mockEngine{docs: corpus(3), hlErr: errors.New("engine busy")}
	svc := newTestService(t, eng, &mockResolver{}, index.Config{})

	p, err := svc.Search(context.Background(), "site", editor, highlightQuery(t, 10))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if p.Len() != 3 || p.Highlights() != nil {
		t.Errorf("len=%d highlights=%v", p.Len(), p.Highlights())
	}
}

func TestSearch_NoHighlightCallWhenNotRequestedOrEmpty(t *testing.T) {
	eng := &mockEngine{docs: corpus(3)}
	svc := newTestService(t, eng, allowOnly(), index.Config{})

	if _, err := svc.Search(context.Background(), "site", editor, pageQuery(t, 0, 5)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := svc.Search(context.Background(), "site", editor, highlightQuery(t, 5)); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(eng.highlights) != 0 {
		t.Errorf("highlight calls = %d, want 0", len(eng.highlights))
	}
}
