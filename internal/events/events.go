// Package events publishes search analytics to Kafka.
package events

import "time"

// Type names an analytics event.
type Type string

const (
	// TypeSearch is emitted for every completed search.
	TypeSearch Type = "search"
	// TypeZeroResult is emitted for searches with no visible hits.
	TypeZeroResult Type = "zero_result"
)

// SearchEvent summarizes one completed search.
type SearchEvent struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	RequestID   string    `json:"request_id,omitempty"`
	Index       string    `json:"index"`
	User        string    `json:"user"`
	Query       string    `json:"query"`
	Start       int       `json:"start"`
	Rows        int       `json:"rows"`
	Returned    int       `json:"returned"`
	VisibleHits int       `json:"visible_hits"`
	EngineHits  int       `json:"engine_hits"`
	Denied      int       `json:"denied"`
	Failed      int       `json:"failed"`
	Fallback    string    `json:"fallback"`
	EngineMs    int64     `json:"engine_ms"`
	FilterMs    int64     `json:"filter_ms"`
	HighlightMs int64     `json:"highlight_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
