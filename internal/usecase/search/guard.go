package search

import (
	"context"
	"crypto/subtle"
	"errors"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/cmsearch/internal/logger"
	"github.com/kailas-cloud/cmsearch/internal/metrics"
)

// Guard decides whether a caller may run a query against an index.
type Guard struct {
	roles   RoleChecker
	secrets SecretReader
	logger  *zap.Logger
}

// NewGuard creates a Guard. roles and secrets may be nil: asserted roles are
// then the only ones known and the debug bypass is unavailable.
func NewGuard(roles RoleChecker, secrets SecretReader, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{roles: roles, secrets: secrets, logger: logger}
}

// Check verifies access and enforces the index limits. It returns q with the
// field list rewritten to the allow-list when "*" was requested, and with the
// debug credential removed.
func (g *Guard) Check(ctx context.Context, s index.Settings, caller domain.Caller, q query.Query) (query.Query, error) {
	if err := g.CheckAccess(ctx, s, caller); err != nil {
		return query.Query{}, err
	}

	if g.bypass(ctx, s, caller, q.DebugSecret()) {
		logpkg.FromContext(ctx, g.logger).Debug("Search limits bypassed",
			zap.String("index", s.Name()),
		)
		return q.WithoutDebugSecret(), nil
	}

	q, err := g.enforceLimits(s, q)
	if err != nil {
		return query.Query{}, violation(err)
	}
	return q.WithoutDebugSecret(), nil
}

// CheckLookup verifies that caller may fetch a single document from s. It
// returns the fields the lookup may return; "*" means every stored field.
func (g *Guard) CheckLookup(ctx context.Context, s index.Settings, caller domain.Caller, secret string) ([]string, error) {
	if err := g.CheckAccess(ctx, s, caller); err != nil {
		return nil, err
	}

	all := []string{query.AllFields}
	if g.bypass(ctx, s, caller, secret) {
		logpkg.FromContext(ctx, g.logger).Debug("Lookup limits bypassed",
			zap.String("index", s.Name()),
		)
		return all, nil
	}
	if s.Disabled() {
		return nil, violation(disabledError(s))
	}
	if allowed := s.AllowedFields(); len(allowed) > 0 {
		return slices.Clone(allowed), nil
	}
	return all, nil
}

func violation(err error) error {
	var le *domain.LimitError
	if errors.As(err, &le) {
		metrics.SearchLimitViolations.WithLabelValues(le.Index, string(le.Constraint)).Inc()
	}
	return err
}

func disabledError(s index.Settings) *domain.LimitError {
	return &domain.LimitError{
		Index: s.Name(), Constraint: domain.ConstraintDisabled,
		Limit: "0", Requested: "1",
	}
}

// CheckAccess verifies that caller may search the project class of s.
func (g *Guard) CheckAccess(ctx context.Context, s index.Settings, caller domain.Caller) error {
	if s.IsOnline() {
		return nil
	}
	role := s.OfflineRole()
	if caller.HasRole(role) {
		return nil
	}
	if caller.IsGuest() || g.roles == nil {
		return &domain.AccessDeniedError{Index: s.Name(), Role: role, Unauthorized: true}
	}

	ok, err := g.roles.HasRole(ctx, caller.User(), role)
	if err != nil {
		logpkg.FromContext(ctx, g.logger).Warn("Role lookup failed",
			zap.String("index", s.Name()),
			zap.Error(err),
		)
		return &domain.AccessDeniedError{Index: s.Name(), Role: role, Err: err}
	}
	if !ok {
		return &domain.AccessDeniedError{Index: s.Name(), Role: role, Unauthorized: true}
	}
	return nil
}

func (g *Guard) bypass(ctx context.Context, s index.Settings, caller domain.Caller, secret string) bool {
	if secret == "" || s.DebugSecretPath() == "" || g.secrets == nil {
		return false
	}
	stored, err := g.secrets.ReadContent(ctx, caller, s.DebugSecretPath())
	if err != nil {
		logpkg.FromContext(ctx, g.logger).Debug("Debug secret unavailable",
			zap.String("index", s.Name()),
			zap.String("path", s.DebugSecretPath()),
			zap.Error(err),
		)
		return false
	}
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		logpkg.FromContext(ctx, g.logger).Debug("Debug secret mismatch", zap.String("index", s.Name()))
		return false
	}
	return true
}

func (g *Guard) enforceLimits(s index.Settings, q query.Query) (query.Query, error) {
	if s.Disabled() {
		return q, disabledError(s)
	}
	if limit := s.MaxRowsPerPage(); limit > 0 && q.Rows() > limit {
		return q, &domain.LimitError{
			Index: s.Name(), Constraint: domain.ConstraintRowsPerPage,
			Limit: strconv.Itoa(limit), Requested: strconv.Itoa(q.Rows()),
		}
	}
	if limit := s.MaxRows(); limit > 0 && q.Start()+q.Rows() > limit {
		return q, &domain.LimitError{
			Index: s.Name(), Constraint: domain.ConstraintRows,
			Limit: strconv.Itoa(limit), Requested: strconv.Itoa(q.Start() + q.Rows()),
		}
	}

	allowed := s.AllowedFields()
	if len(allowed) == 0 {
		return q, nil
	}
	if h := q.Highlight(); h != nil {
		if err := checkFields(s, allowed, h.Fields); err != nil {
			return q, err
		}
	}
	if slices.Contains(q.Fields(), query.AllFields) {
		return q.WithFields(allowed), nil
	}
	return q, checkFields(s, allowed, q.Fields())
}

func checkFields(s index.Settings, allowed, fields []string) error {
	for _, f := range fields {
		if !slices.Contains(allowed, f) {
			return &domain.LimitError{
				Index: s.Name(), Constraint: domain.ConstraintFields,
				Limit: strings.Join(allowed, ","), Requested: f,
			}
		}
	}
	return nil
}
