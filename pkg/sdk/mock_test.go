package cmsearch

import (
	"context"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/cmsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/cmsearch/internal/usecase/search"
)

type mockSearch struct {
	searchFn func(ctx context.Context, name string, caller domain.Caller, q query.Query) (result.Page, error)
	lookupFn func(ctx context.Context, name string, caller domain.Caller, field, value string) (result.Entry, error)
	indexes  []*searchuc.Index

	lastIndex  string
	lastCaller domain.Caller
	lastQuery  query.Query
}

func (m *mockSearch) Search(ctx context.Context, name string, caller domain.Caller, q query.Query) (result.Page, error) {
	m.lastIndex, m.lastCaller, m.lastQuery = name, caller, q
	if m.searchFn == nil {
		return result.NewPage(result.Spec{}), nil
	}
	return m.searchFn(ctx, name, caller, q)
}

func (m *mockSearch) Lookup(ctx context.Context, name string, caller domain.Caller, field, value, _ string) (result.Entry, error) {
	m.lastIndex, m.lastCaller = name, caller
	return m.lookupFn(ctx, name, caller, field, value)
}

func (m *mockSearch) Indexes() []*searchuc.Index { return m.indexes }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type mockResolver struct {
	deny map[string]bool
}

func (m *mockResolver) Resolve(_ context.Context, _ Caller, id string) (Resource, error) {
	if m.deny[id] {
		return Resource{}, ErrPermissionDenied
	}
	return Resource{ID: "res-" + id, Path: "/content/" + id, Type: "page"}, nil
}

func newMockClient(s *mockSearch) *Client {
	obs, _ := newObserver(nil, nil)
	return &Client{searchSvc: s, healthSvc: &mockHealth{}, obs: obs}
}
