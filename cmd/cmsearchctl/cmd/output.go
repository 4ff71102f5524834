package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	chiTransport "github.com/kailas-cloud/cmsearch/internal/transport/chi"
)

// Highlight markers requested in text mode and replaced by Styles.Highlight.
const (
	markOpen  = "«"
	markClose = "»"
)

// preferredFields are printed first, in this order.
var preferredFields = []string{"title", "path", "type", "locale", "released"}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSearch(w io.Writer, s Styles, resp chiTransport.SearchResponse) {
	_, _ = fmt.Fprintf(w, "%s %s\n",
		s.Header.Render(fmt.Sprintf("%s: %d-%d of ~%d visible", resp.Index, resp.Start+1, resp.End, resp.VisibleHits)),
		s.Label.Render(fmt.Sprintf("(page %d, %d engine hits, %.1fms)", resp.Page, resp.EngineHits, resp.Timing.TotalMs)),
	)
	if resp.Fallback != "" && resp.Fallback != "exact" {
		_, _ = fmt.Fprintln(w, s.Warning.Render("requested page is past the last result; showing the last page"))
	}
	if len(resp.Items) == 0 {
		_, _ = fmt.Fprintln(w, s.Dim.Render("no results"))
		return
	}
	for i, item := range resp.Items {
		_, _ = fmt.Fprintln(w)
		printItem(w, s, resp.Start+i+1, item)
	}
	if len(resp.Facets) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, name := range slices.Sorted(maps.Keys(resp.Facets)) {
			_, _ = fmt.Fprintf(w, "%s %d\n", s.Label.Render(name+":"), resp.Facets[name])
		}
	}
}

func printItem(w io.Writer, s Styles, n int, item chiTransport.SearchItem) {
	head := s.ID.Render(item.ID)
	if n > 0 {
		head = fmt.Sprintf("%s %s", s.Label.Render(fmt.Sprintf("%d.", n)), head)
	}
	if title := item.Fields["title"]; title != "" {
		head += " " + s.Title.Render(title)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", head, s.Dim.Render(fmt.Sprintf("score %.3f", item.Score)))

	for _, name := range orderedFields(item.Fields) {
		if name == "title" {
			continue
		}
		_, _ = fmt.Fprintf(w, "   %s %s\n", s.Label.Render(name+":"), item.Fields[name])
	}
	if item.Resource != nil {
		_, _ = fmt.Fprintf(w, "   %s %s %s\n", s.Label.Render("resource:"), item.Resource.ID, s.Dim.Render(item.Resource.Path))
	}
	for _, field := range slices.Sorted(maps.Keys(item.Highlights)) {
		for _, snippet := range item.Highlights[field] {
			_, _ = fmt.Fprintf(w, "   %s %s\n", s.Label.Render(field+"~"), renderSnippet(snippet, s))
		}
	}
}

func printIndexes(w io.Writer, s Styles, resp chiTransport.IndexListResponse) {
	if len(resp.Items) == 0 {
		_, _ = fmt.Fprintln(w, s.Dim.Render("no indexes"))
		return
	}
	for _, ix := range resp.Items {
		var notes []string
		if ix.Disabled {
			notes = append(notes, s.Error.Render("disabled"))
		}
		if !ix.CheckPermissions {
			notes = append(notes, s.Warning.Render("unchecked"))
		}
		if ix.MaxRowsPerPage > 0 {
			notes = append(notes, fmt.Sprintf("rows<=%d", ix.MaxRowsPerPage))
		}
		if ix.MaxRows > 0 {
			notes = append(notes, fmt.Sprintf("window<=%d", ix.MaxRows))
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n", s.ID.Render(ix.Name), s.Label.Render(ix.Visibility), strings.Join(notes, " "))
	}
}

func printHealth(w io.Writer, s Styles, resp chiTransport.HealthResponse) {
	_, _ = fmt.Fprintf(w, "%s %s\n", s.Header.Render("status:"), statusStyle(s, resp.Status).Render(resp.Status))
	for _, name := range slices.Sorted(maps.Keys(resp.Checks)) {
		v := resp.Checks[name]
		_, _ = fmt.Fprintf(w, "   %s %s\n", s.Label.Render(name+":"), statusStyle(s, v).Render(v))
	}
}

func statusStyle(s Styles, status string) lipgloss.Style {
	switch status {
	case "ok":
		return s.Success
	case "degraded":
		return s.Warning
	default:
		return s.Error
	}
}

// renderSnippet styles the text between highlight markers.
func renderSnippet(snippet string, s Styles) string {
	var b strings.Builder
	for {
		before, rest, ok := strings.Cut(snippet, markOpen)
		b.WriteString(before)
		if !ok {
			break
		}
		term, after, ok := strings.Cut(rest, markClose)
		b.WriteString(s.Highlight.Render(term))
		if !ok {
			break
		}
		snippet = after
	}
	return b.String()
}

func orderedFields(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range preferredFields {
		if _, ok := fields[f]; ok {
			out = append(out, f)
		}
	}
	for _, f := range slices.Sorted(maps.Keys(fields)) {
		if !slices.Contains(preferredFields, f) {
			out = append(out, f)
		}
	}
	return out
}
