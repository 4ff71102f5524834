package cmsearch

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

func toInternalCaller(c Caller) domain.Caller {
	return domain.NewCaller(c.User, c.Roles)
}

func fromInternalCaller(c domain.Caller) Caller {
	return Caller{User: c.User(), Roles: c.Roles()}
}

func toInternalQuery(q Query) (query.Query, error) {
	b := query.NewBuilder().
		Text(q.Text).
		Start(q.Start).
		Fields(q.Fields...).
		Locales(q.Locales...).
		SiteRoots(q.SiteRoots...).
		Categories(q.Categories...).
		ResourceTypes(q.Types...).
		IgnoreMaxRows(q.IgnoreMaxRows).
		DebugSecret(q.DebugSecret)
	if q.Rows != nil {
		b.Rows(*q.Rows)
	}
	for _, s := range q.Sort {
		b.Sort(s.Field, s.Desc)
	}
	for _, r := range q.DateRanges {
		b.DateRange(r.Field, r.From, r.To)
	}
	if h := q.Highlight; h != nil {
		b.Highlight(query.Highlight{
			Fields:            h.Fields,
			FragSize:          h.FragSize,
			Fragments:         h.Fragments,
			Pre:               h.Pre,
			Post:              h.Post,
			RequireFieldMatch: h.RequireFieldMatch,
		})
	}

	iq, err := b.Build()
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return iq, nil
}

func fromInternalEntry(e result.Entry, hl map[string][]string) Hit {
	doc := e.Document()
	h := Hit{
		ID:         doc.ID(),
		Score:      doc.Score(),
		Fields:     doc.Fields(),
		Highlights: hl,
	}
	if res := e.Resource(); !res.IsPseudo() && res.ID() != "" {
		h.Resource = &Resource{ID: res.ID(), Path: res.Path(), Type: res.Type()}
	}
	return h
}

func fromInternalPage(p result.Page) Page {
	hl := p.Highlights()
	hits := make([]Hit, 0, p.Len())
	for _, e := range p.Entries() {
		hits = append(hits, fromInternalEntry(e, hl[e.Document().ID()]))
	}
	return Page{
		Hits:        hits,
		Start:       p.Start(),
		End:         p.End(),
		Rows:        p.Rows(),
		Page:        p.PageNumber(),
		VisibleHits: p.VisibleHits(),
		EngineHits:  p.EngineHits(),
		MaxScore:    p.MaxScore(),
		Fallback:    p.Fallback().String(),
		Facets:      p.Facets(),
		Took:        p.Timing().Total(),
	}
}

func ptr[T any](v T) *T { return &v }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
