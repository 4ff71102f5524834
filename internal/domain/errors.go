package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource or document.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied signals that the caller may not read a resource.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrIndexNotFound signals an unknown search index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrSearchAccessDenied signals that the caller may not search the index at all.
	ErrSearchAccessDenied = errors.New("search access denied")
	// ErrSearchLimit signals a violated per-index operational limit.
	ErrSearchLimit = errors.New("search limit exceeded")
	// ErrEngine signals a failed round trip to the search engine.
	ErrEngine = errors.New("search engine error")
	// ErrPostProcess signals a failing result post-processor.
	ErrPostProcess = errors.New("post-processing failed")
)

// AccessDeniedError wraps ErrSearchAccessDenied.
// Unauthorized is true when the caller lacks the required role, false when the
// caller's authorization could not be determined.
type AccessDeniedError struct {
	Index        string
	Role         string
	Unauthorized bool
	Err          error
}

func (e *AccessDeniedError) Error() string {
	if e.Unauthorized {
		return fmt.Sprintf("%s: index %q requires role %q", ErrSearchAccessDenied, e.Index, e.Role)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: index %q: %v", ErrSearchAccessDenied, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: index %q", ErrSearchAccessDenied, e.Index)
}

func (e *AccessDeniedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSearchAccessDenied}
	}
	return []error{ErrSearchAccessDenied, e.Err}
}

// Constraint names a per-index operational limit.
type Constraint string

const (
	// ConstraintDisabled rejects every query against the index.
	ConstraintDisabled Constraint = "disabled"
	// ConstraintRowsPerPage bounds rows.
	ConstraintRowsPerPage Constraint = "max_rows_per_page"
	// ConstraintRows bounds start+rows.
	ConstraintRows Constraint = "max_rows"
	// ConstraintFields restricts returnable fields.
	ConstraintFields Constraint = "allowed_fields"
)

// LimitError wraps ErrSearchLimit with the violated constraint, its configured
// limit and the requested value.
type LimitError struct {
	Index      string
	Constraint Constraint
	Limit      string
	Requested  string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s: index %q: %s is %s, requested %s",
		ErrSearchLimit, e.Index, e.Constraint, e.Limit, e.Requested)
}

func (e *LimitError) Unwrap() error { return ErrSearchLimit }

// EngineError wraps an engine failure with the query that triggered it.
type EngineError struct {
	Query string
	Err   error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: query %q: %v", ErrEngine, e.Query, e.Err)
}

func (e *EngineError) Unwrap() []error { return []error{ErrEngine, e.Err} }
