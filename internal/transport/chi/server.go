package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	healthuc "github.com/kailas-cloud/cmsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cmsearch/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the search HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		limitHandler,
		accessDeniedHandler,
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, ErrorResponseCodeIndexNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorResponseCodeInvalidQuery),
		sentinelHandler(domain.ErrEngine, http.StatusBadGateway, ErrorResponseCodeEngineError),
		sentinelHandler(domain.ErrPostProcess, http.StatusInternalServerError, ErrorResponseCodePostProcessFail),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1/indexes", func(r chi.Router) {
		r.Get("/", s.ListIndexes)
		r.Get("/{index}/search", s.Search)
		r.Get("/{index}/lookup", s.Lookup)
	})
}

// ListIndexes handles GET /v1/indexes.
func (s *Server) ListIndexes(w http.ResponseWriter, _ *http.Request) {
	indexes := s.search.Indexes()
	items := make([]IndexResponse, len(indexes))
	for i, idx := range indexes {
		items[i] = indexToResponse(idx)
	}
	writeJSON(w, http.StatusOK, IndexListResponse{Items: items})
}

// Search handles GET /v1/indexes/{index}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")

	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}
	q, err := queryFromParams(params, r.Header.Get(HeaderDebugSecret))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeInvalidQuery, err.Error())
		return
	}

	page, err := s.search.Search(r.Context(), name, callerFromRequest(r), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageToResponse(name, page))
}

// Lookup handles GET /v1/indexes/{index}/lookup.
func (s *Server) Lookup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")

	params, err := bindLookupParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	entry, err := s.search.Lookup(r.Context(), name, callerFromRequest(r),
		params.Field, params.Value, strings.TrimSpace(r.Header.Get(HeaderDebugSecret)))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LookupResponse{Index: name, Item: entryToItem(entry, nil)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidQuery,
		domain.ErrSearchAccessDenied,
		domain.ErrSearchLimit,
		domain.ErrEngine,
		domain.ErrPostProcess,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// limitHandler reports the violated constraint with its limit and the requested value.
func limitHandler(w http.ResponseWriter, err error, msg string) bool {
	var le *domain.LimitError
	if !errors.As(err, &le) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:       ErrorResponseCodeLimitExceeded,
		Message:    msg,
		Constraint: string(le.Constraint),
		Limit:      le.Limit,
		Requested:  le.Requested,
	})
	return true
}

// accessDeniedHandler answers 403 when the caller lacks the role and 503 when
// the role lookup itself failed.
func accessDeniedHandler(w http.ResponseWriter, err error, msg string) bool {
	var ae *domain.AccessDeniedError
	if !errors.As(err, &ae) {
		return false
	}
	if !ae.Unauthorized && ae.Err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrorResponseCodeAccessDenied, msg)
		return true
	}
	writeError(w, http.StatusForbidden, ErrorResponseCodeAccessDenied, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
