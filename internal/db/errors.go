package db

import "errors"

var (
	// ErrIndexNotFound means the named engine index does not exist.
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex for an existing index.
	ErrIndexExists = errors.New("db: index already exists")
	// ErrInvalidQuery rejects a SearchQuery before it reaches the engine.
	ErrInvalidQuery = errors.New("db: invalid query")
)

// Operation names carried by Error.
const (
	OpCreateIndex = "create index"
	OpIndexInfo   = "index info"
	OpSearch      = "search"
	OpFacet       = "facet count"
	OpPut         = "put"
	OpDelete      = "delete"
)

// Error tags an engine failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
