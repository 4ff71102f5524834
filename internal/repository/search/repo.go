package search

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Layout names engine indexes and document keys.
type Layout interface {
	IndexName(engineIndex string) string
	KeyPrefix(engineIndex string) string
}

// HashLayout keys documents as <prefix><index>:<id> and names the FT index
// <prefix><index>:idx.
type HashLayout struct {
	Prefix string
}

// IndexName implements Layout.
func (l HashLayout) IndexName(engineIndex string) string {
	return fmt.Sprintf("%s%s:idx", l.Prefix, engineIndex)
}

// KeyPrefix implements Layout.
func (l HashLayout) KeyPrefix(engineIndex string) string {
	return fmt.Sprintf("%s%s:", l.Prefix, engineIndex)
}

// FlatLayout uses the engine index name as is and document ids as keys.
type FlatLayout struct{}

// IndexName implements Layout.
func (FlatLayout) IndexName(engineIndex string) string { return engineIndex }

// KeyPrefix implements Layout.
func (FlatLayout) KeyPrefix(string) string { return "" }

// Repo maps domain queries onto a db.Searcher.
type Repo struct {
	store  store
	layout Layout
}

// New creates a search repository.
func New(s store, layout Layout) *Repo {
	if layout == nil {
		layout = FlatLayout{}
	}
	return &Repo{store: s, layout: layout}
}

// Definition returns the engine schema for engineIndex.
func (r *Repo) Definition(engineIndex string) *db.IndexDefinition {
	b := db.NewIndex(r.layout.IndexName(engineIndex))
	if p := r.layout.KeyPrefix(engineIndex); p != "" {
		b = b.Prefix(p)
	}
	return b.
		Language(DefaultLanguage).
		Tag(query.FieldPath).
		Tag(query.FieldType).
		Tag(query.FieldSource).
		TagWithOpts(query.FieldLocale, ",", false).
		TagWithOpts(query.FieldCategory, ",", false).
		SortableText(FieldTitle).Weight(TitleWeight).
		Text(FieldDescription).Weight(DescriptionWeight).
		Text(query.FieldContent).
		Numeric(FieldReleased).
		Numeric(FieldModified).
		MustBuild()
}

// Schema fields beyond the query package's well-known set.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldReleased    = "released"
	FieldModified    = "modified"
)

// DefaultLanguage stems text fields.
const DefaultLanguage = "english"

// Relevance weights of text fields relative to content.
const (
	TitleWeight       = 5
	DescriptionWeight = 2
)

// Bind returns an engine client for one index.
func (r *Repo) Bind(engineIndex string) *Index {
	return &Index{
		repo:   r,
		name:   engineIndex,
		index:  r.layout.IndexName(engineIndex),
		prefix: r.layout.KeyPrefix(engineIndex),
	}
}

// Index is a Repo bound to one engine index.
type Index struct {
	repo   *Repo
	name   string
	index  string
	prefix string
}

// Name returns the engine index name.
func (i *Index) Name() string { return i.name }

// Search fetches count ranked candidates starting at offset.
func (i *Index) Search(ctx context.Context, q query.Query, offset, count int) (result.Hits, error) {
	fields, stripSource := withSource(q.ReturnFields())
	sq := &db.SearchQuery{
		IndexName:    i.index,
		Text:         engineText(q),
		Filters:      q.Filters(),
		Offset:       offset,
		Limit:        count,
		ReturnFields: fields,
		Sort:         sortKeys(q.Sort()),
		Facets:       rangeFacets(q.Facets()),
	}

	sr, err := i.repo.store.Search(ctx, sq)
	if err != nil {
		return result.Hits{}, fmt.Errorf("search %s: %w", i.name, err)
	}

	return result.Hits{
		Total:     sr.Total,
		Documents: i.documents(sr, stripSource),
		Facets:    sr.Facets,
	}, nil
}

// Highlight fetches snippets for exactly the given document ids.
func (i *Index) Highlight(ctx context.Context, q query.Query, ids []string) (result.Highlights, error) {
	h := q.Highlight()
	if h == nil || len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for n, id := range ids {
		keys[n] = i.prefix + id
	}
	sq := &db.SearchQuery{
		IndexName:    i.index,
		Text:         engineText(q),
		Filters:      q.Filters(),
		Limit:        len(ids),
		ReturnFields: []string{query.FieldPath},
		InKeys:       keys,
		Highlight: &db.HighlightSpec{
			Fields:    h.Fields,
			FragSize:  h.FragSize,
			Fragments: h.Fragments,
			Pre:       h.Pre,
			Post:      h.Post,
		},
	}
	if h.RequireFieldMatch {
		sq.TextFields = h.Fields
	}

	sr, err := i.repo.store.Search(ctx, sq)
	if err != nil {
		return nil, fmt.Errorf("highlight %s: %w", i.name, err)
	}

	out := make(result.Highlights, len(sr.Entries))
	for _, e := range sr.Entries {
		if len(e.Highlights) > 0 {
			out[strings.TrimPrefix(e.Key, i.prefix)] = e.Highlights
		}
	}
	return out, nil
}

// Lookup fetches the single document whose field equals value.
func (i *Index) Lookup(ctx context.Context, field, value string, fields []string) (result.Document, error) {
	f, err := filter.Terms(field, value)
	if err != nil {
		return result.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	returned, stripSource := withSource(query.ReturnFieldsFor(fields))
	sr, err := i.repo.store.Search(ctx, &db.SearchQuery{
		IndexName:    i.index,
		Filters:      []filter.Filter{f},
		Limit:        1,
		ReturnFields: returned,
	})
	if err != nil {
		return result.Document{}, fmt.Errorf("lookup %s: %w", i.name, err)
	}

	docs := i.documents(sr, stripSource)
	if len(docs) == 0 {
		return result.Document{}, fmt.Errorf("%s=%s: %w", field, value, domain.ErrNotFound)
	}
	return docs[0], nil
}

// documents converts engine entries. stripSource drops the source field when
// it was fetched only to decide checkability.
func (i *Index) documents(sr *db.SearchResult, stripSource bool) []result.Document {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	docs := make([]result.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		id := strings.TrimPrefix(e.Key, i.prefix)
		checkable := e.Fields[query.FieldSource] != query.SourceExternal
		if stripSource {
			delete(e.Fields, query.FieldSource)
		}
		docs = append(docs, result.NewDocument(id, e.Score, e.Fields, checkable))
	}
	return docs
}

// withSource adds the source field to an explicit field list and reports
// whether it was added. nil (all fields) is returned unchanged.
func withSource(fields []string) ([]string, bool) {
	if fields == nil || slices.Contains(fields, query.FieldSource) {
		return fields, false
	}
	return append(slices.Clone(fields), query.FieldSource), true
}

func engineText(q query.Query) string {
	if q.IsMatchAll() {
		return ""
	}
	return q.Text()
}

func sortKeys(in []query.SortField) []db.SortKey {
	if len(in) == 0 {
		return nil
	}
	out := make([]db.SortKey, len(in))
	for i, s := range in {
		out[i] = db.SortKey{Field: s.Field, Desc: s.Desc}
	}
	return out
}

func rangeFacets(in []query.Facet) []db.RangeFacet {
	if len(in) == 0 {
		return nil
	}
	out := make([]db.RangeFacet, len(in))
	for i, f := range in {
		out[i] = db.RangeFacet{Name: f.Name, Field: f.Field, Min: f.From, Max: f.To}
	}
	return out
}
