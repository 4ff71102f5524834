package cmsearch

import (
	"context"
	"time"
)

// IndexHandle runs fluent searches against one index.
type IndexHandle struct {
	client *Client
	name   string
}

// Name returns the index name.
func (h *IndexHandle) Name() string { return h.name }

// Search starts a fluent query as the guest caller.
func (h *IndexHandle) Search() *SearchBuilder {
	return &SearchBuilder{handle: h}
}

// Lookup returns the document whose unique field equals value.
func (h *IndexHandle) Lookup(ctx context.Context, caller Caller, field, value string) (Hit, error) {
	return h.client.Lookup(ctx, h.name, caller, field, value)
}

// SearchBuilder is a fluent builder for search queries.
type SearchBuilder struct {
	handle *IndexHandle
	caller Caller
	q      Query
}

// As runs the search on behalf of user with the asserted roles.
func (b *SearchBuilder) As(user string, roles ...string) *SearchBuilder {
	b.caller = Caller{User: user, Roles: roles}
	return b
}

// Text sets the text predicate. Empty text matches all documents.
func (b *SearchBuilder) Text(text string) *SearchBuilder {
	b.q.Text = text
	return b
}

// Fields sets the returned fields. "*" requests all allowed fields.
func (b *SearchBuilder) Fields(fields ...string) *SearchBuilder {
	b.q.Fields = fields
	return b
}

// Locales restricts results to the given locales.
func (b *SearchBuilder) Locales(locales ...string) *SearchBuilder {
	b.q.Locales = locales
	return b
}

// Under restricts results to documents below one of the site roots.
func (b *SearchBuilder) Under(roots ...string) *SearchBuilder {
	b.q.SiteRoots = roots
	return b
}

// Categories restricts results to the given categories.
func (b *SearchBuilder) Categories(categories ...string) *SearchBuilder {
	b.q.Categories = categories
	return b
}

// Types restricts results to the given resource types.
func (b *SearchBuilder) Types(types ...string) *SearchBuilder {
	b.q.Types = types
	return b
}

// Between restricts field to [from, to]. A zero time is an open bound.
func (b *SearchBuilder) Between(field string, from, to time.Time) *SearchBuilder {
	b.q.DateRanges = append(b.q.DateRanges, DateRange{Field: field, From: timePtr(from), To: timePtr(to)})
	return b
}

// SortBy appends a sort criterion.
func (b *SearchBuilder) SortBy(field string, desc bool) *SearchBuilder {
	b.q.Sort = append(b.q.Sort, SortField{Field: field, Desc: desc})
	return b
}

// Highlight requests snippets for fields with default options.
func (b *SearchBuilder) Highlight(fields ...string) *SearchBuilder {
	b.q.Highlight = &HighlightOptions{Fields: fields}
	return b
}

// HighlightWith requests snippets with explicit options.
func (b *SearchBuilder) HighlightWith(o HighlightOptions) *SearchBuilder {
	b.q.Highlight = &o
	return b
}

// Window sets the offset and page size in visible results.
func (b *SearchBuilder) Window(start, rows int) *SearchBuilder {
	b.q.Start = start
	b.q.Rows = ptr(rows)
	return b
}

// Page selects the 1-based page n of the given size.
func (b *SearchBuilder) Page(n, size int) *SearchBuilder {
	return b.Window(max(n-1, 0)*size, size)
}

// Debug attaches the debug secret that lifts the index limits.
func (b *SearchBuilder) Debug(secret string) *SearchBuilder {
	b.q.DebugSecret = secret
	return b
}

// Query returns the query built so far.
func (b *SearchBuilder) Query() Query { return b.q }

// Do executes the search.
func (b *SearchBuilder) Do(ctx context.Context) (Page, error) {
	return b.handle.client.Search(ctx, b.handle.name, b.caller, b.q)
}
