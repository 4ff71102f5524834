// Package cmsearch embeds the permission-filtered CMS search engine in a Go
// program, backed by Redis with the search module or by an embedded bleve
// index.
//
// # Low-level API
//
//	client, _ := cmsearch.New(ctx,
//	    cmsearch.WithRedis("localhost:6379", ""),
//	    cmsearch.WithIndex(cmsearch.IndexOptions{Name: "site"}),
//	    cmsearch.WithPermissionResolver(resolver),
//	)
//	page, _ := client.Search(ctx, "site", cmsearch.Caller{User: "alice"}, cmsearch.Query{
//	    Text: "festival",
//	})
//
// # Fluent API
//
//	page, _ := client.Index("site").Search().
//	    Text("festival").
//	    As("alice", "editor").
//	    Locales("en").
//	    Highlight("content").
//	    Page(2, 10).
//	    Do(ctx)
//
// Pages only ever contain documents the caller may read. Page.VisibleHits
// estimates how many such documents exist, and Page.Fallback tells whether a
// request past the last visible document was clamped to the last page.
package cmsearch
