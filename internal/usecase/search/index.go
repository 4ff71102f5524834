package search

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/index"
)

// Index is a configured search index bound to its engine.
type Index struct {
	settings index.Settings
	engine   Engine
	post     PostProcessor
}

// NewIndex binds settings to engine. post may be nil.
func NewIndex(settings index.Settings, engine Engine, post PostProcessor) *Index {
	return &Index{settings: settings, engine: engine, post: post}
}

// Name returns the public index name.
func (i *Index) Name() string { return i.settings.Name() }

// Settings returns the validated index configuration.
func (i *Index) Settings() index.Settings { return i.settings }

// Registry holds the indexes served by one process.
type Registry struct {
	indexes map[string]*Index
}

// NewRegistry creates a registry. Index names must be unique.
func NewRegistry(indexes ...*Index) (*Registry, error) {
	r := &Registry{indexes: make(map[string]*Index, len(indexes))}
	for _, idx := range indexes {
		if idx == nil || idx.engine == nil {
			return nil, fmt.Errorf("index without engine")
		}
		if _, ok := r.indexes[idx.Name()]; ok {
			return nil, fmt.Errorf("duplicate index %q", idx.Name())
		}
		r.indexes[idx.Name()] = idx
	}
	return r, nil
}

// Get returns the index called name.
func (r *Registry) Get(name string) (*Index, error) {
	idx, ok := r.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	return idx, nil
}

// List returns every index ordered by name.
func (r *Registry) List() []*Index {
	out := make([]*Index, 0, len(r.indexes))
	for _, idx := range r.indexes {
		out = append(out, idx)
	}
	slices.SortFunc(out, func(a, b *Index) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}
