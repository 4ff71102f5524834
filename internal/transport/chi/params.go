package chi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
)

// Caller and debug headers.
const (
	HeaderCallerUser  = "X-Caller-User"
	HeaderCallerRoles = "X-Caller-Roles"
	HeaderDebugSecret = "X-Search-Debug"
)

// DefaultDateField is the field a from/to range applies to when date_field is unset.
const DefaultDateField = "released"

// SearchParams are the query parameters of GET /v1/indexes/{index}/search.
type SearchParams struct {
	Q                   *string
	Start               *int
	Rows                *int
	Fields              *[]string
	Sort                *[]string
	Locale              *[]string
	Category            *[]string
	Type                *[]string
	SiteRoot            *[]string
	DateField           *string
	From                *time.Time
	To                  *time.Time
	IgnoreMaxRows       *bool
	Highlight           *bool
	HighlightFields     *[]string
	HighlightFragSize   *int
	HighlightSnippets   *int
	HighlightPre        *string
	HighlightPost       *string
	HighlightFieldMatch *bool
}

// LookupParams are the query parameters of GET /v1/indexes/{index}/lookup.
type LookupParams struct {
	Field string
	Value string
}

type binding struct {
	name     string
	required bool
	dest     any
}

func bindAll(values url.Values, bindings []binding) error {
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, b.required, b.name, values, b.dest); err != nil {
			return fmt.Errorf("%w: parameter %s: %w", domain.ErrInvalidQuery, b.name, err)
		}
	}
	return nil
}

func bindSearchParams(r *http.Request) (SearchParams, error) {
	var p SearchParams
	err := bindAll(r.URL.Query(), []binding{
		{name: "q", dest: &p.Q},
		{name: "start", dest: &p.Start},
		{name: "rows", dest: &p.Rows},
		{name: "fl", dest: &p.Fields},
		{name: "sort", dest: &p.Sort},
		{name: "locale", dest: &p.Locale},
		{name: "category", dest: &p.Category},
		{name: "type", dest: &p.Type},
		{name: "site_root", dest: &p.SiteRoot},
		{name: "date_field", dest: &p.DateField},
		{name: "from", dest: &p.From},
		{name: "to", dest: &p.To},
		{name: "ignore_max_rows", dest: &p.IgnoreMaxRows},
		{name: "hl", dest: &p.Highlight},
		{name: "hl.fl", dest: &p.HighlightFields},
		{name: "hl.fragsize", dest: &p.HighlightFragSize},
		{name: "hl.snippets", dest: &p.HighlightSnippets},
		{name: "hl.pre", dest: &p.HighlightPre},
		{name: "hl.post", dest: &p.HighlightPost},
		{name: "hl.require_field_match", dest: &p.HighlightFieldMatch},
	})
	return p, err
}

func bindLookupParams(r *http.Request) (LookupParams, error) {
	var p LookupParams
	err := bindAll(r.URL.Query(), []binding{
		{name: "field", required: true, dest: &p.Field},
		{name: "value", required: true, dest: &p.Value},
	})
	return p, err
}

// callerFromRequest reads the caller identity asserted by the fronting CMS.
func callerFromRequest(r *http.Request) domain.Caller {
	var roles []string
	for _, h := range r.Header.Values(HeaderCallerRoles) {
		roles = append(roles, strings.Split(h, ",")...)
	}
	return domain.NewCaller(r.Header.Get(HeaderCallerUser), roles)
}

// queryFromParams builds a validated query from p.
func queryFromParams(p SearchParams, debugSecret string) (query.Query, error) {
	b := query.NewBuilder().
		Text(deref(p.Q)).
		Start(deref(p.Start)).
		Fields(derefSlice(p.Fields)...).
		Locales(derefSlice(p.Locale)...).
		SiteRoots(derefSlice(p.SiteRoot)...).
		Categories(derefSlice(p.Category)...).
		ResourceTypes(derefSlice(p.Type)...).
		IgnoreMaxRows(deref(p.IgnoreMaxRows)).
		DebugSecret(strings.TrimSpace(debugSecret))
	if p.Rows != nil {
		b.Rows(*p.Rows)
	}
	for _, s := range derefSlice(p.Sort) {
		field, desc := parseSort(s)
		b.Sort(field, desc)
	}
	if p.From != nil || p.To != nil {
		field := deref(p.DateField)
		if field == "" {
			field = DefaultDateField
		}
		b.DateRange(field, p.From, p.To)
	}
	if deref(p.Highlight) || p.HighlightFields != nil {
		b.Highlight(query.Highlight{
			Fields:            derefSlice(p.HighlightFields),
			FragSize:          deref(p.HighlightFragSize),
			Fragments:         deref(p.HighlightSnippets),
			Pre:               deref(p.HighlightPre),
			Post:              deref(p.HighlightPost),
			RequireFieldMatch: deref(p.HighlightFieldMatch),
		})
	}

	q, err := b.Build()
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return q, nil
}

// parseSort accepts "field", "-field", "field asc" and "field desc".
func parseSort(s string) (field string, desc bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return strings.TrimSpace(rest), true
	}
	field, dir, _ := strings.Cut(s, " ")
	return field, strings.EqualFold(strings.TrimSpace(dir), "desc")
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func derefSlice[T any](p *[]T) []T {
	if p == nil {
		return nil
	}
	return *p
}
