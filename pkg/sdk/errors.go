package cmsearch

import "github.com/kailas-cloud/cmsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrPermissionDenied   = domain.ErrPermissionDenied
	ErrIndexNotFound      = domain.ErrIndexNotFound
	ErrInvalidQuery       = domain.ErrInvalidQuery
	ErrSearchAccessDenied = domain.ErrSearchAccessDenied
	ErrSearchLimit        = domain.ErrSearchLimit
	ErrEngine             = domain.ErrEngine
	ErrPostProcess        = domain.ErrPostProcess
)
