package cmsearch

import "time"

// Visibility is the project class an index serves.
type Visibility string

// Visibility constants.
const (
	Online  Visibility = "online"
	Offline Visibility = "offline"
)

// Fallback values reported in Page.Fallback.
const (
	FallbackExact   = "exact"
	FallbackClamped = "clamped_to_last_available"
)

// IndexOptions configures one search index.
type IndexOptions struct {
	Name             string
	EngineIndex      string // defaults to Name
	Visibility       Visibility
	OfflineRole      string
	RowCap           int
	MaxRowsPerPage   int
	MaxRows          int
	AllowedFields    []string
	DebugSecretPath  string
	CheckPermissions *bool // nil means true
	PostProcessor    string
	LinkPrefix       string
	SiteRoots        []string
}

// Caller identifies who is searching. An empty User is the guest.
type Caller struct {
	User  string
	Roles []string
}

// Resource is the CMS resource backing a document.
type Resource struct {
	ID   string
	Path string
	Type string
}

// SortField orders results by a field.
type SortField struct {
	Field string
	Desc  bool
}

// HighlightOptions requests snippets. Zero values take the engine defaults.
type HighlightOptions struct {
	Fields            []string
	FragSize          int
	Fragments         int
	Pre               string
	Post              string
	RequireFieldMatch bool
}

// DateRange restricts Field to [From, To]. A nil bound is open.
type DateRange struct {
	Field string
	From  *time.Time
	To    *time.Time
}

// Query is a search request. Rows nil means the default page size.
type Query struct {
	Text          string
	Start         int
	Rows          *int
	Fields        []string
	Sort          []SortField
	Locales       []string
	SiteRoots     []string
	Categories    []string
	Types         []string
	DateRanges    []DateRange
	Highlight     *HighlightOptions
	IgnoreMaxRows bool
	DebugSecret   string
}

// Hit is one visible document.
type Hit struct {
	ID         string
	Score      float64
	Fields     map[string]string
	Resource   *Resource // nil when the index waives permission checks
	Highlights map[string][]string
}

// Page is one page of visible documents.
type Page struct {
	Hits        []Hit
	Start       int
	End         int
	Rows        int
	Page        int
	VisibleHits int
	EngineHits  int
	MaxScore    float64
	Fallback    string
	Facets      map[string]int
	Took        time.Duration
}
