package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	"github.com/kailas-cloud/cmsearch/internal/metrics"
)

// Service runs permission-filtered searches against the registered indexes.
type Service struct {
	registry    *Registry
	guard       *Guard
	resolver    PermissionResolver
	assembler   *Assembler
	highlighter *Highlighter
	throttle    *Throttle
	recorder    Recorder
	logger      *zap.Logger
}

// New creates a search service.
func New(
	registry *Registry, guard *Guard, resolver PermissionResolver,
	throttle *Throttle, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:    registry,
		guard:       guard,
		resolver:    resolver,
		assembler:   NewAssembler(resolver, logger),
		highlighter: NewHighlighter(logger),
		throttle:    throttle,
		logger:      logger,
	}
}

// WithRecorder sends a summary of every completed search to r.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Indexes returns the registered indexes ordered by name.
func (s *Service) Indexes() []*Index { return s.registry.List() }

// Search runs q against the named index on behalf of caller.
func (s *Service) Search(ctx context.Context, name string, caller domain.Caller, q query.Query) (result.Page, error) {
	idx, err := s.registry.Get(name)
	if err != nil {
		return result.Page{}, err
	}

	ctx = logpkg.With(ctx, s.logger, zap.String("user", caller.User()))
	page, err := s.search(ctx, idx, caller, q)
	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	metrics.SearchRequestsTotal.WithLabelValues(idx.Name(), status).Inc()
	return page, err
}

func (s *Service) search(ctx context.Context, idx *Index, caller domain.Caller, q query.Query) (result.Page, error) {
	q, err := s.guard.Check(ctx, idx.settings, caller, q)
	if err != nil {
		return result.Page{}, err
	}

	page, stats, err := s.execute(ctx, idx, caller, q)
	if err != nil {
		return result.Page{}, err
	}
	page = s.highlighter.Apply(ctx, idx, q, page)

	s.observe(idx, page, stats)
	if s.recorder != nil {
		s.recorder.RecordSearch(ctx, idx.Name(), caller, q, page, stats)
	}
	return page, nil
}

// execute runs the engine round trip and the filtering loop in the
// background lane.
func (s *Service) execute(
	ctx context.Context, idx *Index, caller domain.Caller, q query.Query,
) (result.Page, result.Stats, error) {
	restore, err := s.throttle.Lower(ctx)
	if err != nil {
		return result.Page{}, result.Stats{}, err
	}
	defer restore()

	w := NewWindow(q, idx.settings.RowCap())

	started := time.Now()
	hits, err := idx.engine.Search(ctx, q, 0, w.FetchCount())
	engineTook := time.Since(started)
	if err != nil {
		logpkg.FromContext(ctx, s.logger).Error("Engine search failed",
			zap.String("index", idx.Name()),
			zap.Stringer("query", q),
			zap.Error(err),
		)
		return result.Page{}, result.Stats{}, &domain.EngineError{Query: q.String(), Err: err}
	}

	started = time.Now()
	page, stats, err := s.assembler.Assemble(ctx, idx, caller, w, hits)
	if err != nil {
		return result.Page{}, stats, err
	}
	return page.WithTiming(engineTook, time.Since(started)), stats, nil
}

// Lookup returns the document whose unique field equals value, if caller may
// read it. Denied documents are reported as domain.ErrNotFound. debugSecret
// lifts the index limits as it does for Search.
func (s *Service) Lookup(
	ctx context.Context, name string, caller domain.Caller, field, value, debugSecret string,
) (result.Entry, error) {
	idx, err := s.registry.Get(name)
	if err != nil {
		return result.Entry{}, err
	}
	ctx = logpkg.With(ctx, s.logger, zap.String("user", caller.User()))
	fields, err := s.guard.CheckLookup(ctx, idx.settings, caller, debugSecret)
	if err != nil {
		return result.Entry{}, err
	}

	doc, err := idx.engine.Lookup(ctx, field, value, fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidQuery) {
			return result.Entry{}, err
		}
		return result.Entry{}, &domain.EngineError{Query: field + "=" + value, Err: err}
	}

	if !idx.settings.CheckPermissions() || !doc.Checkable() || s.resolver == nil {
		return result.NewEntry(doc, domain.NoPermissionCheck), nil
	}
	res, err := s.resolver.Resolve(ctx, caller, doc.ID())
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		return result.Entry{}, fmt.Errorf("%s=%s: %w", field, value, domain.ErrNotFound)
	case err != nil:
		return result.Entry{}, fmt.Errorf("resolve %s: %w", doc.ID(), err)
	}
	return result.NewEntry(doc, res), nil
}

func (s *Service) observe(idx *Index, page result.Page, stats result.Stats) {
	t := page.Timing()
	metrics.SearchStageDuration.WithLabelValues(idx.Name(), "engine").Observe(t.Engine.Seconds())
	metrics.SearchStageDuration.WithLabelValues(idx.Name(), "filter").Observe(t.Filter.Seconds())
	if t.Highlight > 0 {
		metrics.SearchStageDuration.WithLabelValues(idx.Name(), "highlight").Observe(t.Highlight.Seconds())
	}
	if stats.Denied > 0 {
		metrics.SearchCandidatesDropped.WithLabelValues(idx.Name(), "denied").Add(float64(stats.Denied))
	}
	if stats.Failed > 0 {
		metrics.SearchCandidatesDropped.WithLabelValues(idx.Name(), "error").Add(float64(stats.Failed))
	}
	if page.Fallback() == result.ClampedToLastAvailable {
		metrics.SearchFallbacksTotal.WithLabelValues(idx.Name()).Inc()
	}
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrSearchAccessDenied):
		return "denied"
	case errors.Is(err, domain.ErrSearchLimit):
		return "limit"
	case errors.Is(err, domain.ErrEngine):
		return "engine_error"
	case errors.Is(err, domain.ErrPostProcess):
		return "postprocess_error"
	default:
		return "error"
	}
}
