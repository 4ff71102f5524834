package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	"github.com/kailas-cloud/cmsearch/internal/metrics"
)

// Highlighter attaches snippets to an assembled page.
type Highlighter struct {
	logger *zap.Logger
}

// NewHighlighter creates a Highlighter.
func NewHighlighter(logger *zap.Logger) *Highlighter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Highlighter{logger: logger}
}

// Apply asks the engine for snippets of exactly the documents on page.
// Failures are logged and the page is returned without highlights.
func (h *Highlighter) Apply(ctx context.Context, idx *Index, q query.Query, page result.Page) result.Page {
	if q.Highlight() == nil || page.Len() == 0 {
		return page
	}

	started := time.Now()
	hl, err := idx.engine.Highlight(ctx, q, page.IDs())
	took := time.Since(started)
	if err != nil {
		metrics.SearchHighlightFailures.WithLabelValues(idx.Name()).Inc()
		logpkg.FromContext(ctx, h.logger).Warn("Highlighting failed",
			zap.String("index", idx.Name()),
			zap.Int("documents", page.Len()),
			zap.Error(err),
		)
		return page.WithHighlightTime(took)
	}
	return page.WithHighlights(hl, took)
}
