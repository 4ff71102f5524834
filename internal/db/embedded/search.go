package embedded

import (
	"context"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// Markers emitted by the html highlighter.
const (
	markOpen  = "<mark>"
	markClose = "</mark>"
)

// Search runs q against the named bleve index.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ix, err := s.lookup(q.IndexName)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q, ix.def), q.Limit, q.Offset, false)
	if q.ReturnFields == nil {
		req.Fields = []string{"*"}
	} else {
		req.Fields = q.ReturnFields
	}
	if len(q.Sort) > 0 {
		order := make([]string, 0, len(q.Sort)+1)
		for _, k := range q.Sort {
			if k.Desc {
				order = append(order, "-"+k.Field)
			} else {
				order = append(order, k.Field)
			}
		}
		req.SortBy(append(order, "-_score"))
	}
	if h := q.Highlight; h != nil && len(h.Fields) > 0 {
		req.Highlight = bleve.NewHighlightWithStyle(html.Name)
		req.Highlight.Fields = h.Fields
	}
	for _, f := range q.Facets {
		fr := bleve.NewFacetRequest(f.Field, 1)
		fr.AddNumericRange(f.Name, f.Min, f.Max)
		req.AddFacet(f.Name, fr)
	}

	res, err := ix.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	out := &db.SearchResult{
		Total:   int(res.Total),
		Entries: make([]db.SearchEntry, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		entry := db.SearchEntry{
			Key:    hit.ID,
			Score:  hit.Score,
			Fields: stringFields(hit.Fields),
		}
		if q.Highlight != nil {
			entry.Highlights = fragments(hit.Fragments, q.Highlight)
		}
		out.Entries = append(out.Entries, entry)
	}
	if len(q.Facets) > 0 {
		out.Facets = make(map[string]int, len(q.Facets))
		for _, f := range q.Facets {
			out.Facets[f.Name] = facetCount(res.Facets, f.Name)
		}
	}
	return out, nil
}

func buildQuery(q *db.SearchQuery, def *db.IndexDefinition) query.Query {
	var must []query.Query
	if !q.MatchesAll() {
		must = append(must, textQuery(q.Text, q.TextFields, def))
	}
	for _, f := range q.Filters {
		must = append(must, filterQuery(f))
	}
	if len(q.InKeys) > 0 {
		must = append(must, bleve.NewDocIDQuery(q.InKeys))
	}
	switch len(must) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return must[0]
	default:
		return bleve.NewConjunctionQuery(must...)
	}
}

// textQuery matches text in fields, or in every text field when fields is
// empty. Weighted fields add a boosted clause so their matches rank higher.
func textQuery(text string, fields []string, def *db.IndexDefinition) query.Query {
	if len(fields) == 0 {
		alts := []query.Query{bleve.NewMatchQuery(text)}
		if def != nil {
			for _, f := range def.Fields {
				if f.Type != db.IndexFieldText || f.Weight == 0 {
					continue
				}
				mq := bleve.NewMatchQuery(text)
				mq.SetField(f.Name)
				mq.SetBoost(f.Weight)
				alts = append(alts, mq)
			}
		}
		if len(alts) == 1 {
			return alts[0]
		}
		return bleve.NewDisjunctionQuery(alts...)
	}
	alts := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(f)
		alts = append(alts, mq)
	}
	return bleve.NewDisjunctionQuery(alts...)
}

func filterQuery(f filter.Filter) query.Query {
	switch f.Kind() {
	case filter.KindRange:
		lo, loIncl := f.Range().Lower()
		hi, hiIncl := f.Range().Upper()
		rq := bleve.NewNumericRangeInclusiveQuery(lo, hi, &loIncl, &hiIncl)
		rq.SetField(f.Field())
		return rq
	case filter.KindPrefix:
		alts := make([]query.Query, 0, len(f.Values()))
		for _, v := range f.Values() {
			pq := bleve.NewPrefixQuery(v)
			pq.SetField(f.Field())
			alts = append(alts, pq)
		}
		return bleve.NewDisjunctionQuery(alts...)
	default:
		alts := make([]query.Query, 0, len(f.Values()))
		for _, v := range f.Values() {
			tq := bleve.NewTermQuery(v)
			tq.SetField(f.Field())
			alts = append(alts, tq)
		}
		return bleve.NewDisjunctionQuery(alts...)
	}
}

func stringFields(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = stringValue(v)
	}
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, stringValue(p))
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

func fragments(in bsearch.FieldFragmentMap, h *db.HighlightSpec) map[string][]string {
	if len(in) == 0 {
		return nil
	}
	marks := strings.NewReplacer(markOpen, h.Pre, markClose, h.Post)
	out := make(map[string][]string, len(in))
	for field, frags := range in {
		if h.Fragments > 0 && len(frags) > h.Fragments {
			frags = frags[:h.Fragments]
		}
		conv := make([]string, len(frags))
		for i, f := range frags {
			conv[i] = marks.Replace(f)
		}
		out[field] = conv
	}
	return out
}

func facetCount(facets bsearch.FacetResults, name string) int {
	fr, ok := facets[name]
	if !ok || fr == nil {
		return 0
	}
	for _, r := range fr.NumericRanges {
		if r.Name == name {
			return r.Count
		}
	}
	return 0
}
