package domain

// Resource is the CMS resource backing a search document.
type Resource struct {
	id       string
	path     string
	typeName string
	pseudo   bool
}

// NewResource creates a resolved resource.
func NewResource(id, path, typeName string) Resource {
	return Resource{id: id, path: path, typeName: typeName}
}

// NoPermissionCheck stands in for the backing resource on indexes that waive
// permission checks.
var NoPermissionCheck = Resource{id: "no-permission-check", pseudo: true}

// ID returns the resource identifier.
func (r Resource) ID() string { return r.id }

// Path returns the resource's root path.
func (r Resource) Path() string { return r.path }

// Type returns the resource type name.
func (r Resource) Type() string { return r.typeName }

// IsPseudo reports whether r is a placeholder rather than a resolved resource.
func (r Resource) IsPseudo() bool { return r.pseudo }
