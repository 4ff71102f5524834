package chi

import (
	"time"

	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/cmsearch/internal/usecase/search"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest      ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized    ErrorResponseCode = "unauthorized"
	ErrorResponseCodeAccessDenied    ErrorResponseCode = "access_denied"
	ErrorResponseCodeLimitExceeded   ErrorResponseCode = "limit_exceeded"
	ErrorResponseCodeIndexNotFound   ErrorResponseCode = "index_not_found"
	ErrorResponseCodeNotFound        ErrorResponseCode = "not_found"
	ErrorResponseCodeInvalidQuery    ErrorResponseCode = "invalid_query"
	ErrorResponseCodeEngineError     ErrorResponseCode = "engine_error"
	ErrorResponseCodePostProcessFail ErrorResponseCode = "post_process_failed"
	ErrorResponseCodeInternalError   ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code       ErrorResponseCode `json:"code"`
	Message    string            `json:"message"`
	Constraint string            `json:"constraint,omitempty"`
	Limit      string            `json:"limit,omitempty"`
	Requested  string            `json:"requested,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// IndexResponse describes one search index.
type IndexResponse struct {
	Name             string   `json:"name"`
	Visibility       string   `json:"visibility"`
	Disabled         bool     `json:"disabled"`
	CheckPermissions bool     `json:"check_permissions"`
	MaxRowsPerPage   int      `json:"max_rows_per_page,omitempty"`
	MaxRows          int      `json:"max_rows,omitempty"`
	AllowedFields    []string `json:"allowed_fields,omitempty"`
}

// IndexListResponse is the body of GET /v1/indexes.
type IndexListResponse struct {
	Items []IndexResponse `json:"items"`
}

// ResourceResponse is the CMS resource backing a search item.
type ResourceResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// SearchItem is one visible document.
type SearchItem struct {
	ID         string              `json:"id"`
	Score      float64             `json:"score"`
	Fields     map[string]string   `json:"fields"`
	Resource   *ResourceResponse   `json:"resource,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// TimingResponse reports per-stage time in milliseconds.
type TimingResponse struct {
	EngineMs    float64 `json:"engine_ms"`
	FilterMs    float64 `json:"filter_ms"`
	HighlightMs float64 `json:"highlight_ms"`
	TotalMs     float64 `json:"total_ms"`
}

// SearchResponse is the body of GET /v1/indexes/{index}/search.
type SearchResponse struct {
	Index       string         `json:"index"`
	Items       []SearchItem   `json:"items"`
	Start       int            `json:"start"`
	End         int            `json:"end"`
	Rows        int            `json:"rows"`
	Page        int            `json:"page"`
	VisibleHits int            `json:"visible_hits"`
	EngineHits  int            `json:"engine_hits"`
	MaxScore    float64        `json:"max_score"`
	Fallback    string         `json:"fallback"`
	Facets      map[string]int `json:"facets,omitempty"`
	Timing      TimingResponse `json:"timing"`
}

// LookupResponse is the body of GET /v1/indexes/{index}/lookup.
type LookupResponse struct {
	Index string     `json:"index"`
	Item  SearchItem `json:"item"`
}

func entryToItem(e result.Entry, hl map[string][]string) SearchItem {
	doc := e.Document()
	item := SearchItem{
		ID:         doc.ID(),
		Score:      doc.Score(),
		Fields:     doc.Fields(),
		Highlights: hl,
	}
	if item.Fields == nil {
		item.Fields = map[string]string{}
	}
	if res := e.Resource(); !res.IsPseudo() && res.ID() != "" {
		item.Resource = &ResourceResponse{ID: res.ID(), Path: res.Path(), Type: res.Type()}
	}
	return item
}

func pageToResponse(index string, p result.Page) SearchResponse {
	hl := p.Highlights()
	items := make([]SearchItem, 0, p.Len())
	for _, e := range p.Entries() {
		items = append(items, entryToItem(e, hl[e.Document().ID()]))
	}
	t := p.Timing()
	return SearchResponse{
		Index:       index,
		Items:       items,
		Start:       p.Start(),
		End:         p.End(),
		Rows:        p.Rows(),
		Page:        p.PageNumber(),
		VisibleHits: p.VisibleHits(),
		EngineHits:  p.EngineHits(),
		MaxScore:    p.MaxScore(),
		Fallback:    p.Fallback().String(),
		Facets:      p.Facets(),
		Timing: TimingResponse{
			EngineMs:    millis(t.Engine),
			FilterMs:    millis(t.Filter),
			HighlightMs: millis(t.Highlight),
			TotalMs:     millis(t.Total()),
		},
	}
}

func indexToResponse(idx *searchuc.Index) IndexResponse {
	s := idx.Settings()
	return IndexResponse{
		Name:             s.Name(),
		Visibility:       string(s.Visibility()),
		Disabled:         s.Disabled(),
		CheckPermissions: s.CheckPermissions(),
		MaxRowsPerPage:   s.MaxRowsPerPage(),
		MaxRows:          s.MaxRows(),
		AllowedFields:    s.AllowedFields(),
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
