package cmsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/cmsearch/internal/db"
	"github.com/kailas-cloud/cmsearch/internal/db/embedded"
	dbRedis "github.com/kailas-cloud/cmsearch/internal/db/redis"
	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/result"
	searchrepo "github.com/kailas-cloud/cmsearch/internal/repository/search"
	healthuc "github.com/kailas-cloud/cmsearch/internal/usecase/health"
	"github.com/kailas-cloud/cmsearch/internal/usecase/postprocess"
	searchuc "github.com/kailas-cloud/cmsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "cms:"
)

// PermissionResolver decides whether a caller may read a document. It returns
// ErrPermissionDenied or ErrNotFound for documents the caller must not see.
type PermissionResolver interface {
	Resolve(ctx context.Context, caller Caller, id string) (Resource, error)
}

// Internal interfaces, swapped out in tests.
type searchUseCase interface {
	Search(ctx context.Context, name string, caller domain.Caller, q query.Query) (result.Page, error)
	Lookup(ctx context.Context, name string, caller domain.Caller, field, value, debugSecret string) (result.Entry, error)
	Indexes() []*searchuc.Index
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the cmsearch SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a cmsearch Client, connects to the engine and creates the
// configured indexes. The provided context is used for the initial readiness
// check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("cmsearch: engine required (use WithRedis or WithBleve)")
	}
	if len(cfg.indexes) == 0 {
		return nil, errors.New("cmsearch: at least one index required (use WithIndex)")
	}

	store, layout, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("cmsearch: engine not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, layout, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, searchrepo.Layout, error) {
	switch cfg.driver {
	case driverRedis:
		if len(cfg.addrs) == 0 || cfg.addrs[0] == "" {
			return nil, nil, errors.New("cmsearch: redis address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Username: cfg.username,
			Password: cfg.password,
			DB:       cfg.db,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cmsearch: create redis store: %w", err)
		}
		return s, searchrepo.HashLayout{Prefix: cfg.keyPrefix}, nil
	case driverBleve:
		s, err := embedded.NewStore(embedded.Config{Dir: cfg.dir})
		if err != nil {
			return nil, nil, fmt.Errorf("cmsearch: create bleve store: %w", err)
		}
		return s, searchrepo.FlatLayout{}, nil
	default:
		return nil, nil, fmt.Errorf("cmsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(
	ctx context.Context, store db.Store, layout searchrepo.Layout, cfg *clientConfig, obs *observer,
) (*Client, error) {
	repo := searchrepo.New(store, layout)

	indexes := make([]*searchuc.Index, 0, len(cfg.indexes))
	for _, o := range cfg.indexes {
		settings, err := toSettings(o)
		if err != nil {
			return nil, fmt.Errorf("cmsearch: %w", err)
		}
		err = store.CreateIndex(ctx, repo.Definition(settings.EngineIndex()))
		if err != nil && !errors.Is(err, db.ErrIndexExists) {
			return nil, fmt.Errorf("cmsearch: create index %s: %w", settings.Name(), err)
		}
		post, err := postprocess.ForIndex(settings)
		if err != nil {
			return nil, fmt.Errorf("cmsearch: %w", err)
		}
		// Pass a nil interface, not a typed nil pointer.
		var pp searchuc.PostProcessor
		if post != nil {
			pp = post
		}
		indexes = append(indexes, searchuc.NewIndex(settings, repo.Bind(settings.EngineIndex()), pp))
	}
	registry, err := searchuc.NewRegistry(indexes...)
	if err != nil {
		return nil, fmt.Errorf("cmsearch: %w", err)
	}

	var resolver searchuc.PermissionResolver
	if cfg.resolver != nil {
		resolver = &resolverAdapter{inner: cfg.resolver}
	}

	guard := searchuc.NewGuard(nil, nil, nil)
	searchSvc := searchuc.New(registry, guard, resolver, searchuc.NewThrottle(cfg.backgroundSlots), nil)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		healthSvc: healthuc.New(store, resolverPinger(cfg.resolver)).WithTimeout(cfg.healthTimeout),
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	call := c.obs.begin("ping", "")
	defer func() { call.end(err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Indexes returns the registered index names in order.
func (c *Client) Indexes() []string {
	idx := c.searchSvc.Indexes()
	names := make([]string, len(idx))
	for i, ix := range idx {
		names[i] = ix.Name()
	}
	return names
}

// Search runs q against the named index on behalf of caller.
func (c *Client) Search(ctx context.Context, indexName string, caller Caller, q Query) (_ Page, err error) {
	call := c.obs.begin("search", indexName)
	defer func() { call.end(err) }()

	iq, err := toInternalQuery(q)
	if err != nil {
		return Page{}, err
	}
	page, err := c.searchSvc.Search(ctx, indexName, toInternalCaller(caller), iq)
	if err != nil {
		return Page{}, fmt.Errorf("search %s: %w", indexName, err)
	}
	out := fromInternalPage(page)
	call.page(len(out.Hits))
	return out, nil
}

// Lookup returns the document of the named index whose unique field equals
// value. Documents the caller may not read are reported as ErrNotFound.
func (c *Client) Lookup(ctx context.Context, indexName string, caller Caller, field, value string) (_ Hit, err error) {
	call := c.obs.begin("lookup", indexName)
	defer func() { call.end(err) }()

	entry, err := c.searchSvc.Lookup(ctx, indexName, toInternalCaller(caller), field, value, "")
	if err != nil {
		return Hit{}, fmt.Errorf("lookup %s: %w", indexName, err)
	}
	return fromInternalEntry(entry, nil), nil
}

// Index returns a handle for fluent searches against one index.
func (c *Client) Index(name string) *IndexHandle {
	return &IndexHandle{client: c, name: name}
}

// resolverAdapter wraps the public PermissionResolver to satisfy the internal one.
type resolverAdapter struct {
	inner PermissionResolver
}

func (a *resolverAdapter) Resolve(ctx context.Context, caller domain.Caller, id string) (domain.Resource, error) {
	r, err := a.inner.Resolve(ctx, fromInternalCaller(caller), id)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("resolve %s: %w", id, err)
	}
	return domain.NewResource(r.ID, r.Path, r.Type), nil
}

func toSettings(o IndexOptions) (index.Settings, error) {
	s, err := index.New(index.Config{
		Name:             o.Name,
		EngineIndex:      o.EngineIndex,
		Visibility:       index.Visibility(o.Visibility),
		OfflineRole:      o.OfflineRole,
		RowCap:           o.RowCap,
		MaxRowsPerPage:   o.MaxRowsPerPage,
		MaxRows:          o.MaxRows,
		AllowedFields:    o.AllowedFields,
		DebugSecretPath:  o.DebugSecretPath,
		CheckPermissions: o.CheckPermissions,
		PostProcessor:    o.PostProcessor,
		LinkPrefix:       o.LinkPrefix,
		SiteRoots:        o.SiteRoots,
	})
	if err != nil {
		return index.Settings{}, fmt.Errorf("index options: %w", err)
	}
	return s, nil
}
