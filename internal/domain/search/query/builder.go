package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// Builder assembles a Query. Category, resource type, date range and explicit
// filters replace an earlier filter on the same field instead of adding a
// second one.
type Builder struct {
	q       Query
	rowsSet bool
	errs    []error
}

// NewBuilder creates a Builder for a match-all query.
func NewBuilder() *Builder {
	return &Builder{}
}

// Text sets the text predicate. Blank text means match all.
func (b *Builder) Text(text string) *Builder {
	b.q.text = strings.TrimSpace(text)
	if b.q.text == MatchAll {
		b.q.text = ""
	}
	return b
}

// Locales restricts results to documents in one of locales.
func (b *Builder) Locales(locales ...string) *Builder {
	b.q.locales = nonEmpty(locales)
	if len(b.q.locales) == 0 {
		b.remove(FieldLocale)
		return b
	}
	return b.terms(FieldLocale, b.q.locales)
}

// SiteRoots restricts results to documents below one of roots.
func (b *Builder) SiteRoots(roots ...string) *Builder {
	clean := nonEmpty(roots)
	for i, r := range clean {
		if !strings.HasSuffix(r, "/") {
			clean[i] = r + "/"
		}
	}
	b.q.siteRoots = clean
	if len(clean) == 0 {
		b.remove(FieldPath)
		return b
	}
	f, err := filter.Prefix(FieldPath, clean...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.Filter(f)
}

// Categories restricts results to documents in one of categories.
func (b *Builder) Categories(categories ...string) *Builder {
	return b.terms(FieldCategory, nonEmpty(categories))
}

// ResourceTypes restricts results to documents of one of types.
func (b *Builder) ResourceTypes(types ...string) *Builder {
	return b.terms(FieldType, nonEmpty(types))
}

// DateRange restricts field to [from, to] and asks for the bucket count.
// A nil bound is open. Dates are compared as Unix milliseconds.
func (b *Builder) DateRange(field string, from, to *time.Time) *Builder {
	lo, hi := millis(from), millis(to)
	r, err := filter.Between(lo, hi)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("date range on %q: %w", field, err))
		return b
	}
	f, err := filter.NewRange(field, r)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.Filter(f)

	facet := Facet{Name: field, Field: field, From: lo, To: hi}
	if i := slices.IndexFunc(b.q.facets, func(x Facet) bool { return x.Name == field }); i >= 0 {
		b.q.facets[i] = facet
	} else {
		b.q.facets = append(b.q.facets, facet)
	}
	return b
}

// Filter adds f, replacing any filter on the same field.
func (b *Builder) Filter(f filter.Filter) *Builder {
	if f.IsZero() {
		b.errs = append(b.errs, errors.New("uninitialized filter"))
		return b
	}
	if i := slices.IndexFunc(b.q.filters, func(x filter.Filter) bool { return x.Field() == f.Field() }); i >= 0 {
		b.q.filters[i] = f
		return b
	}
	b.q.filters = append(b.q.filters, f)
	return b
}

// Fields sets the requested return fields. "*" requests all.
func (b *Builder) Fields(fields ...string) *Builder {
	b.q.fields = nonEmpty(fields)
	return b
}

// Sort appends a sort criterion.
func (b *Builder) Sort(field string, desc bool) *Builder {
	b.q.sort = append(b.q.sort, SortField{Field: field, Desc: desc})
	return b
}

// Start sets the offset in visible results.
func (b *Builder) Start(start int) *Builder {
	b.q.start = start
	return b
}

// Rows sets the page size. Zero returns no documents.
func (b *Builder) Rows(rows int) *Builder {
	b.q.rows = rows
	b.rowsSet = true
	return b
}

// IgnoreMaxRows skips the hard row ceiling.
func (b *Builder) IgnoreMaxRows(ignore bool) *Builder {
	b.q.ignoreMaxRows = ignore
	return b
}

// Highlight requests snippets.
func (b *Builder) Highlight(h Highlight) *Builder {
	h = h.withDefaults()
	h.Fields = slices.Clone(h.Fields)
	b.q.highlight = &h
	return b
}

// DebugSecret attaches a debug credential.
func (b *Builder) DebugSecret(secret string) *Builder {
	b.q.debugSecret = secret
	return b
}

// Build validates and returns the Query.
func (b *Builder) Build() (Query, error) {
	if len(b.errs) > 0 {
		return Query{}, errors.Join(b.errs...)
	}
	if len(b.q.text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if b.q.start < 0 {
		return Query{}, fmt.Errorf("start must not be negative")
	}
	if b.q.rows < 0 {
		return Query{}, fmt.Errorf("rows must not be negative")
	}
	if len(b.q.sort) > MaxSortFields {
		return Query{}, fmt.Errorf("too many sort fields (max %d)", MaxSortFields)
	}
	for _, s := range b.q.sort {
		if s.Field == "" {
			return Query{}, fmt.Errorf("sort field is required")
		}
	}

	q := b.q
	if !b.rowsSet {
		q.rows = DefaultRows
	}
	if q.start > MaxWindowEnd || q.rows > MaxWindowEnd-q.start {
		return Query{}, fmt.Errorf("start+rows must not exceed %d", MaxWindowEnd)
	}
	q.filters = slices.Clone(q.filters)
	q.facets = slices.Clone(q.facets)
	q.sort = slices.Clone(q.sort)
	q.fields = slices.Clone(q.fields)
	return q, nil
}

func (b *Builder) terms(field string, values []string) *Builder {
	if len(values) == 0 {
		b.remove(field)
		return b
	}
	f, err := filter.Terms(field, values...)
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	return b.Filter(f)
}

func (b *Builder) remove(field string) {
	b.q.filters = slices.DeleteFunc(b.q.filters, func(f filter.Filter) bool { return f.Field() == field })
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func millis(t *time.Time) *float64 {
	if t == nil {
		return nil
	}
	v := float64(t.UnixMilli())
	return &v
}
