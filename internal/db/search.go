package db

import (
	"errors"

	"github.com/kailas-cloud/cmsearch/internal/domain/search/filter"
)

// SearchQuery is the input of a single engine round trip.
type SearchQuery struct {
	IndexName string
	// Text is the free-text predicate. Empty or "*" matches everything.
	Text string
	// TextFields scopes Text to the listed fields; empty searches all text.
	TextFields []string
	Filters    []filter.Filter
	Offset     int
	Limit      int
	// ReturnFields limits the stored fields returned; nil returns all.
	ReturnFields []string
	Sort         []SortKey
	// InKeys restricts the match to the given document keys.
	InKeys    []string
	Highlight *HighlightSpec
	Facets    []RangeFacet
}

// SortKey orders hits by a stored field.
type SortKey struct {
	Field string
	Desc  bool
}

// HighlightSpec requests snippets for the listed fields.
type HighlightSpec struct {
	Fields    []string
	FragSize  int
	Fragments int
	Pre       string
	Post      string
}

// RangeFacet counts matches whose numeric field lies within [Min, Max].
type RangeFacet struct {
	Name  string
	Field string
	Min   *float64
	Max   *float64
}

// Validate checks the query is executable.
func (q *SearchQuery) Validate() error {
	if q.IndexName == "" {
		return errors.Join(ErrInvalidQuery, errors.New("index name is required"))
	}
	if q.Offset < 0 || q.Limit < 0 {
		return errors.Join(ErrInvalidQuery, errors.New("offset and limit must not be negative"))
	}
	for _, f := range q.Filters {
		if f.IsZero() {
			return errors.Join(ErrInvalidQuery, errors.New("uninitialized filter"))
		}
	}
	return nil
}

// MatchesAll reports whether the text predicate is empty.
func (q *SearchQuery) MatchesAll() bool {
	return q.Text == "" || q.Text == "*"
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	// Total is the engine-reported match count, not the number of entries.
	Total   int
	Entries []SearchEntry
	Facets  map[string]int
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key        string
	Score      float64
	Fields     map[string]string
	Highlights map[string][]string
}
