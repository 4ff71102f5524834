package search

import (
	"context"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
)

// Engine is the search engine bound to one index. Implementations must be
// safe for concurrent use and keep no per-caller session state.
type Engine interface {
	// Search returns up to count ranked candidates starting at offset,
	// together with the engine-reported total.
	Search(ctx context.Context, q query.Query, offset, count int) (result.Hits, error)
	// Highlight returns snippets for exactly the given document ids.
	Highlight(ctx context.Context, q query.Query, ids []string) (result.Highlights, error)
	// Lookup returns the single document whose field equals value, carrying
	// the minimal fields plus fields ("*" for all stored fields).
	Lookup(ctx context.Context, field, value string, fields []string) (result.Document, error)
}

// PermissionResolver maps a document to the resource the caller may read.
// It returns domain.ErrPermissionDenied or domain.ErrNotFound for documents
// the caller must not see.
type PermissionResolver interface {
	Resolve(ctx context.Context, caller domain.Caller, id string) (domain.Resource, error)
}

// RoleChecker looks up roles the calling runtime did not assert.
type RoleChecker interface {
	HasRole(ctx context.Context, user, role string) (bool, error)
}

// SecretReader reads a resource's content with the caller's permissions.
type SecretReader interface {
	ReadContent(ctx context.Context, caller domain.Caller, path string) (string, error)
}

// PostProcessor transforms each included document. It runs on the request
// goroutine and must not retain doc or res. Errors fail the request.
type PostProcessor interface {
	Process(ctx context.Context, doc result.Document, res domain.Resource) (result.Document, error)
}

// Recorder receives one summary per completed search.
type Recorder interface {
	RecordSearch(ctx context.Context, index string, caller domain.Caller, q query.Query, page result.Page, stats result.Stats)
}
