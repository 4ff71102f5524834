package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// summarizeSeparator joins SUMMARIZE fragments; it never occurs in indexed text.
const summarizeSeparator = "\x1e"

// avgWordLen converts a fragment size in characters to SUMMARIZE LEN words.
const avgWordLen = 5

// Search runs FT.SEARCH with scores and, when facets are requested, one
// LIMIT 0 0 count per facet.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	queryStr := buildQuery(q)
	args := buildSearchArgs(q, queryStr)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %s", db.ErrIndexNotFound, q.IndexName)}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := parseSearchResult(raw, q.Highlight)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if len(q.Facets) > 0 {
		res.Facets = make(map[string]int, len(q.Facets))
		for _, f := range q.Facets {
			n, err := s.count(ctx, q.IndexName, joinQuery(queryStr, buildNumericFilter(f.Field, facetRange(f))))
			if err != nil {
				return nil, &db.Error{Op: db.OpFacet, Err: fmt.Errorf("facet %s: %w", f.Name, err)}
			}
			res.Facets[f.Name] = n
		}
	}

	return res, nil
}

// count returns the match count via FT.SEARCH with LIMIT 0 0.
func (s *Store) count(ctx context.Context, index, query string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, query, "LIMIT", "0", "0", "DIALECT", "2").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func buildSearchArgs(q *db.SearchQuery, queryStr string) []string {
	args := []string{q.IndexName, queryStr, "WITHSCORES"}

	if len(q.InKeys) > 0 {
		args = append(args, "INKEYS", strconv.Itoa(len(q.InKeys)))
		args = append(args, q.InKeys...)
	}

	if fields := returnFields(q); len(fields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(fields)))
		args = append(args, fields...)
	}

	if h := q.Highlight; h != nil && len(h.Fields) > 0 {
		words := max(1, h.FragSize/avgWordLen)
		args = append(args, "SUMMARIZE", "FIELDS", strconv.Itoa(len(h.Fields)))
		args = append(args, h.Fields...)
		args = append(args,
			"FRAGS", strconv.Itoa(max(1, h.Fragments)),
			"LEN", strconv.Itoa(words),
			"SEPARATOR", summarizeSeparator,
		)
		args = append(args, "HIGHLIGHT", "FIELDS", strconv.Itoa(len(h.Fields)))
		args = append(args, h.Fields...)
		args = append(args, "TAGS", h.Pre, h.Post)
	}

	if len(q.Sort) > 0 {
		dir := "ASC"
		if q.Sort[0].Desc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.Sort[0].Field, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args
}

// returnFields adds highlighted fields to an explicit RETURN list, since
// FT.SEARCH only summarizes returned fields.
func returnFields(q *db.SearchQuery) []string {
	if len(q.ReturnFields) == 0 {
		return nil
	}
	fields := slices.Clone(q.ReturnFields)
	if q.Highlight != nil {
		for _, f := range q.Highlight.Fields {
			if !slices.Contains(fields, f) {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage, h *db.HighlightSpec) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		}
		if h != nil {
			entry.Highlights = extractHighlights(entry.Fields, h)
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// extractHighlights moves summarized fields out of fields.
func extractHighlights(fields map[string]string, h *db.HighlightSpec) map[string][]string {
	out := make(map[string][]string, len(h.Fields))
	for _, name := range h.Fields {
		v, ok := fields[name]
		if !ok {
			continue
		}
		delete(fields, name)
		var frags []string
		for _, frag := range strings.Split(v, summarizeSeparator) {
			if frag = strings.TrimSpace(frag); frag != "" {
				frags = append(frags, frag)
			}
		}
		if h.Fragments > 0 && len(frags) > h.Fragments {
			frags = frags[:h.Fragments]
		}
		if len(frags) > 0 {
			out[name] = frags
		}
	}
	return out
}

// --- Query building ---

// buildQuery translates text and filters into an FT.SEARCH query string.
func buildQuery(q *db.SearchQuery) string {
	var parts []string
	if !q.MatchesAll() {
		text := "(" + escapeQuery(q.Text) + ")"
		if len(q.TextFields) > 0 {
			text = "@" + strings.Join(q.TextFields, "|") + ":" + text
		}
		parts = append(parts, text)
	}
	if f := buildFilter(q.Filters); f != "" {
		parts = append(parts, f)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func joinQuery(query, extra string) string {
	if query == "*" {
		return extra
	}
	return query + " " + extra
}

// buildFilter ANDs all filters into an FT.SEARCH pre-filter string.
func buildFilter(filters []filter.Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if c := buildCondition(f); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

func buildCondition(f filter.Filter) string {
	switch f.Kind() {
	case filter.KindTerms:
		return buildTagFilter(f.Field(), f.Values(), false)
	case filter.KindPrefix:
		return buildTagFilter(f.Field(), f.Values(), true)
	case filter.KindRange:
		return buildNumericFilter(f.Field(), *f.Range())
	}
	return ""
}

func buildTagFilter(key string, values []string, prefix bool) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
		if prefix {
			escaped[i] += "*"
		}
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound, maxBound := "-inf", "+inf"
	if lo, incl := r.Lower(); lo != nil {
		minBound = numericBound(*lo, incl)
	}
	if hi, incl := r.Upper(); hi != nil {
		maxBound = numericBound(*hi, incl)
	}
	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// numericBound renders one end of a numeric range; "(" marks it exclusive.
func numericBound(v float64, inclusive bool) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !inclusive {
		return "(" + s
	}
	return s
}

func facetRange(f db.RangeFacet) filter.Range {
	r, err := filter.Between(f.Min, f.Max)
	if err != nil {
		// Unbounded facet counts every match.
		return filter.Range{}
	}
	return r
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
