package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
)

// Oversampling is the multiplier applied to start+rows when fetching
// candidates, leaving room for documents the caller may not read.
const Oversampling = 5

// Window is the requested slice of the visible result sequence.
type Window struct {
	Start int
	Rows  int
	End   int
}

// NewWindow clamps the rows of q to rowCap unless q ignores the ceiling.
func NewWindow(q query.Query, rowCap int) Window {
	rows := q.Rows()
	if !q.IgnoreMaxRows() && rowCap > 0 && rows > rowCap {
		rows = rowCap
	}
	return Window{Start: q.Start(), Rows: rows, End: q.Start() + rows}
}

// FetchCount is the number of candidates requested from the engine, always
// from offset 0. It is 0 when no rows are requested.
func (w Window) FetchCount() int {
	if w.Rows == 0 {
		return 0
	}
	return Oversampling * w.End
}

// Assembler walks ranked candidates in order and keeps the ones the caller
// may read, counting positions in the visible sequence.
type Assembler struct {
	resolver PermissionResolver
	logger   *zap.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(resolver PermissionResolver, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{resolver: resolver, logger: logger}
}

// Assemble builds the page for w from hits. Resolver failures only skip the
// candidate; post-processor failures abort with domain.ErrPostProcess.
func (a *Assembler) Assemble(
	ctx context.Context, idx *Index, caller domain.Caller, w Window, hits result.Hits,
) (result.Page, result.Stats, error) {
	var stats result.Stats
	visible := hits.Total

	if w.Rows == 0 {
		return result.NewPage(result.Spec{
			VisibleHits: visible,
			EngineHits:  hits.Total,
			Facets:      hits.Facets,
		}), stats, nil
	}

	check := idx.settings.CheckPermissions() && a.resolver != nil
	var (
		cnt      int
		maxScore float64
		allDocs  []result.Entry
		out      []result.Entry
	)
	for _, doc := range hits.Documents {
		if cnt >= w.End {
			break
		}
		if err := ctx.Err(); err != nil {
			return result.Page{}, stats, err
		}

		res := domain.NoPermissionCheck
		if check && doc.Checkable() {
			r, err := a.resolve(ctx, caller, doc)
			if err != nil {
				visible--
				if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrNotFound) {
					stats.Denied++
				} else {
					stats.Failed++
					logpkg.FromContext(ctx, a.logger).Warn("Skipping candidate after resolver failure",
						zap.String("index", idx.Name()),
						zap.String("id", doc.ID()),
						zap.Error(err),
					)
				}
				continue
			}
			res = r
		}

		entry := result.NewEntry(doc, res)
		allDocs = append(allDocs, entry)
		if cnt >= w.Start {
			processed, err := a.process(ctx, idx, entry)
			if err != nil {
				return result.Page{}, stats, err
			}
			out = append(out, processed)
			maxScore = max(maxScore, doc.Score())
		}
		cnt++
	}

	start, end := w.Start, w.End
	fallback := result.Exact
	if len(out) == 0 && len(allDocs) > 0 {
		lastStart := ((len(allDocs) - 1) / w.Rows) * w.Rows
		for _, entry := range allDocs[lastStart:] {
			processed, err := a.process(ctx, idx, entry)
			if err != nil {
				return result.Page{}, stats, err
			}
			out = append(out, processed)
			maxScore = max(maxScore, entry.Document().Score())
		}
		start, end = lastStart, len(allDocs)
		fallback = result.ClampedToLastAvailable
	}

	visible = max(visible, 0)
	return result.NewPage(result.Spec{
		Entries:     out,
		Start:       min(start, visible),
		End:         min(end, visible),
		Rows:        w.Rows,
		PageNumber:  (len(allDocs)-1)/w.Rows + 1,
		VisibleHits: visible,
		EngineHits:  hits.Total,
		MaxScore:    maxScore,
		Fallback:    fallback,
		Facets:      hits.Facets,
	}), stats, nil
}

// resolve converts resolver panics into errors so one bad candidate cannot
// fail the page.
func (a *Assembler) resolve(ctx context.Context, caller domain.Caller, doc result.Document) (res domain.Resource, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolve %s: panic: %v", doc.ID(), r)
		}
	}()
	return a.resolver.Resolve(ctx, caller, doc.ID())
}

func (a *Assembler) process(ctx context.Context, idx *Index, entry result.Entry) (result.Entry, error) {
	if idx.post == nil {
		return entry, nil
	}
	doc, err := idx.post.Process(ctx, entry.Document(), entry.Resource())
	if err != nil {
		return result.Entry{}, fmt.Errorf("%w: %s: %w", domain.ErrPostProcess, entry.Document().ID(), err)
	}
	return result.NewEntry(doc, entry.Resource()), nil
}
