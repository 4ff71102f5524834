// Package postprocess holds the per-index document transformers applied to
// every entry placed on a result page.
package postprocess

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

// Processor names.
const (
	None = "none"
	Link = "link"
)

// Processor transforms one visible document.
type Processor interface {
	Process(ctx context.Context, doc result.Document, res domain.Resource) (result.Document, error)
}

// ForIndex returns the processor configured for s, nil for None.
func ForIndex(s index.Settings) (Processor, error) {
	switch s.PostProcessor() {
	case None, "":
		return nil, nil
	case Link:
		return NewLinker(s.LinkPrefix(), s.SiteRoots()), nil
	default:
		return nil, fmt.Errorf("index %s: unknown post_processor %q", s.Name(), s.PostProcessor())
	}
}

// Linker sets the link field from the document path: the longest matching
// site root is stripped and prefix prepended.
type Linker struct {
	prefix string
	roots  []string
}

// NewLinker creates a Linker.
func NewLinker(prefix string, roots []string) *Linker {
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if r = strings.TrimSpace(r); r != "" {
			clean = append(clean, strings.TrimSuffix(r, "/"))
		}
	}
	return &Linker{prefix: strings.TrimSuffix(prefix, "/"), roots: clean}
}

// Process implements Processor. Documents without a path are rejected.
func (l *Linker) Process(_ context.Context, doc result.Document, res domain.Resource) (result.Document, error) {
	path := doc.Path()
	if path == "" && !res.IsPseudo() {
		path = res.Path()
	}
	if path == "" {
		return result.Document{}, fmt.Errorf("document %s has no path", doc.ID())
	}

	rel := path
	best := 0
	for _, root := range l.roots {
		if len(root) > best && (path == root || strings.HasPrefix(path, root+"/")) {
			rel = strings.TrimPrefix(path, root)
			best = len(root)
		}
	}
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return doc.WithField(query.FieldLink, l.prefix+rel), nil
}
