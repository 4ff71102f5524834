package result

import (
	"maps"

	"github.com/kailas-cloud/cmsearch/internal/domain"
	"github.com/kailas-cloud/cmsearch/internal/domain/search/query"
)

// Document is a ranked engine hit.
type Document struct {
	id        string
	score     float64
	fields    map[string]string
	checkable bool
}

// NewDocument creates a Document. checkable is true for documents backed by a
// CMS resource and false for external pseudo-resources.
func NewDocument(id string, score float64, fields map[string]string, checkable bool) Document {
	if fields == nil {
		fields = map[string]string{}
	}
	return Document{id: id, score: score, fields: fields, checkable: checkable}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// Score returns the relevance score.
func (d Document) Score() float64 { return d.score }

// Fields returns the stored fields.
func (d Document) Fields() map[string]string { return d.fields }

// Field returns one stored field.
func (d Document) Field(name string) string { return d.fields[name] }

// Path returns the document's logical path.
func (d Document) Path() string { return d.fields[query.FieldPath] }

// Type returns the document's resource type.
func (d Document) Type() string { return d.fields[query.FieldType] }

// Checkable reports whether the document is backed by a permission-checked resource.
func (d Document) Checkable() bool { return d.checkable }

// WithField returns a copy of d with name set to value.
func (d Document) WithField(name, value string) Document {
	fields := maps.Clone(d.fields)
	fields[name] = value
	d.fields = fields
	return d
}

// Entry pairs a visible document with its backing resource.
type Entry struct {
	doc      Document
	resource domain.Resource
}

// NewEntry creates an Entry.
func NewEntry(doc Document, res domain.Resource) Entry {
	return Entry{doc: doc, resource: res}
}

// Document returns the engine document.
func (e Entry) Document() Document { return e.doc }

// Resource returns the backing resource, domain.NoPermissionCheck when waived.
func (e Entry) Resource() domain.Resource { return e.resource }

// Hits is one engine round trip: ranked candidates plus the engine-reported
// total, which counts matches the caller may not be able to read.
type Hits struct {
	Total     int
	Documents []Document
	Facets    map[string]int
}
