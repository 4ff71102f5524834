// Package embedded implements db.Store on an in-process bleve index, used for
// local development and for tests that need real ranking and highlighting.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/kailas-cloud/cmsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("embedded store is closed")

// Config holds store parameters.
type Config struct {
	// Dir holds one bleve index per subdirectory. Empty keeps indexes in memory.
	Dir string
}

type index struct {
	idx bleve.Index
	def *db.IndexDefinition
}

// Store keeps named bleve indexes.
type Store struct {
	dir string

	mu      sync.RWMutex
	indexes map[string]*index
	closed  bool
}

// NewStore creates an embedded store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir %s: %w", cfg.Dir, err)
		}
	}
	return &Store{dir: cfg.Dir, indexes: make(map[string]*index)}, nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// WaitForReady returns immediately: the store is ready once constructed.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// Close closes all indexes.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ix := range s.indexes {
		_ = ix.idx.Close()
	}
	s.indexes = nil
}

// CreateIndex creates or opens the index described by def.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}

	m := buildMapping(def)

	var (
		idx bleve.Index
		err error
	)
	if s.dir == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		path := filepath.Join(s.dir, safeDirName(def.Name))
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s.indexes[def.Name] = &index{idx: idx, def: def}
	return nil
}

// IndexExists reports whether the index was created or opened.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.indexes[name]
	return ok, nil
}

// Put indexes a document under key. Tag values are split on the field
// separator; numeric values must parse as floats.
func (s *Store) Put(_ context.Context, indexName, key string, fields map[string]string) error {
	ix, err := s.lookup(indexName)
	if err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}

	doc := make(map[string]any, len(fields))
	for name, value := range fields {
		f, ok := ix.def.Field(name)
		if !ok {
			continue
		}
		switch {
		case f.Type == db.IndexFieldNumeric:
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return &db.Error{Op: db.OpPut, Err: fmt.Errorf("field %s: %w", name, err)}
			}
			doc[name] = n
		case f.Type == db.IndexFieldTag && f.TagSeparator != "":
			doc[name] = splitTags(value, f.TagSeparator)
		default:
			doc[name] = value
		}
	}

	if err := ix.idx.Index(key, doc); err != nil {
		return &db.Error{Op: db.OpPut, Err: err}
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, indexName, key string) error {
	ix, err := s.lookup(indexName)
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	if err := ix.idx.Delete(key); err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

func (s *Store) lookup(name string) (*index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	ix, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrIndexNotFound, name)
	}
	return ix, nil
}

func buildMapping(def *db.IndexDefinition) *mapping.IndexMappingImpl {
	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false

	analyzer := analyzerFor(def.Language)
	for _, f := range def.Fields {
		var fm *mapping.FieldMapping
		switch f.Type {
		case db.IndexFieldNumeric:
			fm = bleve.NewNumericFieldMapping()
			fm.IncludeInAll = false
		case db.IndexFieldTag:
			fm = bleve.NewKeywordFieldMapping()
			fm.IncludeInAll = false
		default:
			fm = bleve.NewTextFieldMapping()
			fm.Analyzer = analyzer
			fm.IncludeTermVectors = true
			fm.IncludeInAll = true
		}
		fm.Store = true
		fm.DocValues = f.Sortable || f.Type != db.IndexFieldText
		dm.AddFieldMappingsAt(f.Name, fm)
	}

	m := bleve.NewIndexMapping()
	m.DefaultMapping = dm
	if analyzer != "" {
		m.DefaultAnalyzer = analyzer
	}
	m.StoreDynamic = false
	m.IndexDynamic = false
	return m
}

// analyzerFor maps a stemming language to a bleve analyzer; unknown
// languages keep the standard analyzer.
func analyzerFor(lang string) string {
	switch strings.ToLower(lang) {
	case "english", "en":
		return en.AnalyzerName
	default:
		return ""
	}
}

func splitTags(value, sep string) []string {
	parts := strings.Split(value, sep)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func safeDirName(name string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(name)
}
