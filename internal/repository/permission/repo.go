// Package permission resolves search documents to CMS resources the caller
// may read, backed by the CMS permission tables in PostgreSQL.
package permission

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kailas-cloud/cmsearch/internal/domain"
)

// Repo implements the search usecase's PermissionResolver, RoleChecker and
// SecretReader.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a permission repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db, now: time.Now}
}

const resolveSQL = `
SELECT r.id, r.path, r.type,
       EXISTS (SELECT 1 FROM cms_resource_readers rr
               WHERE rr.resource_id = r.id AND rr.principal = ANY($2)) AS readable
FROM cms_resources r
WHERE r.id = $1
  AND NOT r.deleted
  AND (r.released_at IS NULL OR r.released_at <= $3)
  AND (r.expires_at IS NULL OR r.expires_at > $3)`

// Resolve returns the resource behind a search document.
// Missing, deleted, unreleased or expired resources yield domain.ErrNotFound;
// resources the caller may not read yield domain.ErrPermissionDenied.
func (r *Repo) Resolve(ctx context.Context, caller domain.Caller, id string) (domain.Resource, error) {
	var (
		resID, path, typ string
		readable         bool
	)
	err := r.db.QueryRowContext(ctx, resolveSQL, id, pq.Array(caller.Principals()), r.now()).
		Scan(&resID, &path, &typ, &readable)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Resource{}, fmt.Errorf("resource %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Resource{}, fmt.Errorf("resolve resource %s: %w", id, err)
	}
	if !readable {
		return domain.Resource{}, fmt.Errorf("resource %s: %w", id, domain.ErrPermissionDenied)
	}
	return domain.NewResource(resID, path, typ), nil
}

// HasRole reports whether the CMS grants role to user.
func (r *Repo) HasRole(ctx context.Context, user, role string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cms_user_roles WHERE user_name = $1 AND role = $2)`,
		user, role,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query role %s: %w", role, err)
	}
	return ok, nil
}

const readContentSQL = `
SELECT c.content,
       EXISTS (SELECT 1 FROM cms_resource_readers rr
               WHERE rr.resource_id = r.id AND rr.principal = ANY($2)) AS readable
FROM cms_resources r
JOIN cms_resource_contents c ON c.resource_id = r.id
WHERE r.path = $1 AND NOT r.deleted`

// ReadContent returns the content of the resource at path, read with the
// caller's permissions.
func (r *Repo) ReadContent(ctx context.Context, caller domain.Caller, path string) (string, error) {
	var (
		content  string
		readable bool
	)
	err := r.db.QueryRowContext(ctx, readContentSQL, path, pq.Array(caller.Principals())).
		Scan(&content, &readable)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resource %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read resource %s: %w", path, err)
	}
	if !readable {
		return "", fmt.Errorf("resource %s: %w", path, domain.ErrPermissionDenied)
	}
	return content, nil
}

// Ping checks the permission store.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping permission store: %w", err)
	}
	return nil
}
