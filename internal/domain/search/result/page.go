package result

import (
	"maps"
	"slices"
	"time"
)

// Fallback tells whether the page is the one requested.
type Fallback uint8

const (
	// Exact means the page covers the requested window.
	Exact Fallback = iota
	// ClampedToLastAvailable means the requested window held no visible
	// documents and the last page that has content was returned instead.
	ClampedToLastAvailable
)

func (f Fallback) String() string {
	switch f {
	case Exact:
		return "exact"
	case ClampedToLastAvailable:
		return "clamped_to_last_available"
	default:
		return "unknown"
	}
}

// Timing is the time spent per stage.
type Timing struct {
	Engine    time.Duration
	Filter    time.Duration
	Highlight time.Duration
}

// Total returns the sum of all stages.
func (t Timing) Total() time.Duration { return t.Engine + t.Filter + t.Highlight }

// Highlights maps document id -> field -> snippets.
type Highlights map[string]map[string][]string

// Spec carries everything a Page is built from.
type Spec struct {
	Entries     []Entry
	Start       int
	End         int
	Rows        int
	PageNumber  int
	VisibleHits int
	EngineHits  int
	MaxScore    float64
	Fallback    Fallback
	Timing      Timing
	Facets      map[string]int
}

// Page is an assembled result page. It is never mutated; With* return copies.
type Page struct {
	entries     []Entry
	start       int
	end         int
	rows        int
	page        int
	visibleHits int
	engineHits  int
	maxScore    float64
	fallback    Fallback
	timing      Timing
	highlights  Highlights
	facets      map[string]int
}

// NewPage creates a Page from s.
func NewPage(s Spec) Page {
	return Page{
		entries:     slices.Clone(s.Entries),
		start:       s.Start,
		end:         s.End,
		rows:        s.Rows,
		page:        s.PageNumber,
		visibleHits: s.VisibleHits,
		engineHits:  s.EngineHits,
		maxScore:    s.MaxScore,
		fallback:    s.Fallback,
		timing:      s.Timing,
		facets:      maps.Clone(s.Facets),
	}
}

// Entries returns the visible entries of the page.
func (p Page) Entries() []Entry { return p.entries }

// Len returns the number of entries.
func (p Page) Len() int { return len(p.entries) }

// IDs returns the document ids of the entries in order.
func (p Page) IDs() []string {
	ids := make([]string, len(p.entries))
	for i, e := range p.entries {
		ids[i] = e.doc.id
	}
	return ids
}

// Start returns the offset of the first entry in visible results.
func (p Page) Start() int { return p.start }

// End returns the offset after the last entry.
func (p Page) End() int { return p.end }

// Rows returns the effective page size.
func (p Page) Rows() int { return p.rows }

// PageNumber returns the 1-based page number, 0 when rows is 0.
func (p Page) PageNumber() int { return p.page }

// VisibleHits returns the engine total minus documents the caller may not read.
func (p Page) VisibleHits() int { return p.visibleHits }

// EngineHits returns the total reported by the engine.
func (p Page) EngineHits() int { return p.engineHits }

// MaxScore returns the best score on the page.
func (p Page) MaxScore() float64 { return p.maxScore }

// Fallback tells whether a different page than requested was returned.
func (p Page) Fallback() Fallback { return p.fallback }

// Timing returns the per-stage durations.
func (p Page) Timing() Timing { return p.timing }

// Highlights returns the snippets, nil when none were computed.
func (p Page) Highlights() Highlights { return p.highlights }

// Facets returns the bucket counts of requested facets.
func (p Page) Facets() map[string]int { return p.facets }

// WithHighlights returns a copy of p carrying h and the highlight duration.
func (p Page) WithHighlights(h Highlights, took time.Duration) Page {
	p.highlights = h
	p.timing.Highlight = took
	return p
}

// WithHighlightTime returns a copy of p with the highlight duration set.
func (p Page) WithHighlightTime(took time.Duration) Page {
	p.timing.Highlight = took
	return p
}

// Stats counts candidates dropped while assembling a page.
type Stats struct {
	Denied int
	Failed int
}

// Dropped returns the number of candidates removed from the visible count.
func (s Stats) Dropped() int { return s.Denied + s.Failed }

// WithTiming returns a copy of p with the engine and filter durations set.
func (p Page) WithTiming(engine, filter time.Duration) Page {
	p.timing.Engine = engine
	p.timing.Filter = filter
	return p
}
