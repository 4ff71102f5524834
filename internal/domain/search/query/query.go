package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// Well-known document fields.
const (
	FieldPath     = "path"
	FieldType     = "type"
	FieldLocale   = "locale"
	FieldCategory = "category"
	FieldContent  = "content"
	FieldLink     = "link"
	// FieldSource is "external" for documents not backed by a CMS resource.
	FieldSource = "source"
)

// SourceExternal marks documents that are not permission-checkable.
const SourceExternal = "external"

// AllFields requests every stored field.
const AllFields = "*"

// MatchAll is the text predicate of a query without text.
const MatchAll = "*"

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search text length.
	MaxQueryLength = 4096
	DefaultRows    = 10
	MaxSortFields  = 4
	// MaxWindowEnd bounds start+rows so oversampled fetch counts stay in range.
	MaxWindowEnd = 1 << 24
)

// minimalFields are always returned by the engine.
var minimalFields = []string{FieldPath, FieldType}

// MinimalFields returns the fields every query requests.
func MinimalFields() []string { return slices.Clone(minimalFields) }

// SortField orders results by a field.
type SortField struct {
	Field string
	Desc  bool
}

// Facet asks the engine to count matches with field inside [From, To].
type Facet struct {
	Name  string
	Field string
	From  *float64
	To    *float64
}

// Highlight carries snippet options.
type Highlight struct {
	Fields            []string
	FragSize          int
	Fragments         int
	Pre               string
	Post              string
	RequireFieldMatch bool
}

// Highlight defaults.
const (
	DefaultFragSize  = 100
	DefaultFragments = 3
	DefaultPre       = "<em>"
	DefaultPost      = "</em>"
)

func (h Highlight) withDefaults() Highlight {
	if len(h.Fields) == 0 {
		h.Fields = []string{FieldContent}
	}
	if h.FragSize <= 0 {
		h.FragSize = DefaultFragSize
	}
	if h.Fragments <= 0 {
		h.Fragments = DefaultFragments
	}
	if h.Pre == "" && h.Post == "" {
		h.Pre, h.Post = DefaultPre, DefaultPost
	}
	return h
}

// Query is a built search request. Copies are independent.
type Query struct {
	text          string
	filters       []filter.Filter
	facets        []Facet
	start         int
	rows          int
	sort          []SortField
	fields        []string
	locales       []string
	siteRoots     []string
	highlight     *Highlight
	ignoreMaxRows bool
	debugSecret   string
}

// Text returns the text predicate; MatchAll when no text was given.
func (q Query) Text() string {
	if q.text == "" {
		return MatchAll
	}
	return q.text
}

// IsMatchAll reports whether the query has no text predicate.
func (q Query) IsMatchAll() bool { return q.text == "" }

// Filters returns the filter predicates in insertion order.
func (q Query) Filters() []filter.Filter { return q.filters }

// Facets returns the requested range facets.
func (q Query) Facets() []Facet { return q.facets }

// Start returns the requested offset in visible results.
func (q Query) Start() int { return q.start }

// Rows returns the requested page size.
func (q Query) Rows() int { return q.rows }

// Sort returns the sort specification; empty means by relevance.
func (q Query) Sort() []SortField { return q.sort }

// Fields returns the caller-requested fields.
func (q Query) Fields() []string { return q.fields }

// Locales returns the accepted locales.
func (q Query) Locales() []string { return q.locales }

// SiteRoots returns the accepted site roots.
func (q Query) SiteRoots() []string { return q.siteRoots }

// Highlight returns the highlight options, nil when not requested.
func (q Query) Highlight() *Highlight { return q.highlight }

// IgnoreMaxRows reports whether the hard row ceiling should be skipped.
func (q Query) IgnoreMaxRows() bool { return q.ignoreMaxRows }

// DebugSecret returns the debug credential sent with the request.
func (q Query) DebugSecret() string { return q.debugSecret }

// ReturnFields is the engine field list: the minimal fields plus the requested
// ones. nil means all stored fields.
func (q Query) ReturnFields() []string { return ReturnFieldsFor(q.fields) }

// ReturnFieldsFor is the engine field list for the requested fields. nil
// means all stored fields.
func ReturnFieldsFor(fields []string) []string {
	if slices.Contains(fields, AllFields) {
		return nil
	}
	out := MinimalFields()
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// WithFields returns a copy of q requesting fields.
func (q Query) WithFields(fields []string) Query {
	q.fields = slices.Clone(fields)
	return q
}

// WithoutDebugSecret returns a copy of q with the debug credential removed.
func (q Query) WithoutDebugSecret() Query {
	q.debugSecret = ""
	return q
}

// String renders q for diagnostics. The debug secret is never included.
func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s start=%d rows=%d", q.Text(), q.start, q.rows)
	for _, f := range q.filters {
		switch f.Kind() {
		case filter.KindRange:
			lo, _ := f.Range().Lower()
			hi, _ := f.Range().Upper()
			fmt.Fprintf(&b, " fq=%s:[%s TO %s]", f.Field(), bound(lo), bound(hi))
		default:
			fmt.Fprintf(&b, " fq=%s:%s(%s)", f.Field(), f.Kind(), strings.Join(f.Values(), "|"))
		}
	}
	if len(q.fields) > 0 {
		fmt.Fprintf(&b, " fl=%s", strings.Join(q.fields, ","))
	}
	for _, s := range q.sort {
		dir := "asc"
		if s.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&b, " sort=%s %s", s.Field, dir)
	}
	return b.String()
}

func bound(v *float64) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprintf("%g", *v)
}
