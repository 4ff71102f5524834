// Package db defines the engine-neutral contract the search repository talks
// to: index schemas, search requests and their results. Drivers live in the
// redis and embedded subpackages.
package db

import (
	"context"
	"time"
)

// Store is a search engine connection.
type Store interface {
	Pinger
	IndexManager
	Searcher
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Pinger reports engine reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager creates indexes and checks that they exist.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher executes one SearchQuery.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}
