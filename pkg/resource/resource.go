package resource

import (
	"context"
	"errors"
	"maps"
)

// Sentinel errors returned by every Client implementation.
var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalid is returned when a resource is missing required fields.
	ErrInvalid = errors.New("invalid resource")
)

// ContentAttr is the attribute holding a container's serialized diagram.
const ContentAttr = "content"

// Resource is a backend record.
type Resource struct {
	ID         string         `json:"id" bson:"_id"`
	Collection string         `json:"collection" bson:"collection"`
	Source     string         `json:"source,omitempty" bson:"source,omitempty"` // Relations only
	Target     string         `json:"target,omitempty" bson:"target,omitempty"` // Relations only
	Attributes map[string]any `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// IsNew reports whether the resource has not been created on the backend yet.
func (r Resource) IsNew() bool { return r.ID == "" }

// IsRelation reports whether the resource links two entities.
func (r Resource) IsRelation() bool { return r.Source != "" || r.Target != "" }

// Clone returns a copy with its own attribute map.
func (r Resource) Clone() Resource {
	r.Attributes = maps.Clone(r.Attributes)
	return r
}

// Attr returns the string attribute name, or "" if missing or not a string.
func (r Resource) Attr(name string) string {
	s, _ := r.Attributes[name].(string)
	return s
}

// Spec names a collection to fetch and optional equality filters on attributes.
type Spec struct {
	Collection string            `json:"collection" toml:"collection"`
	Query      map[string]string `json:"query,omitempty" toml:"query"`
}

// Matches reports whether r belongs to the spec's collection and satisfies
// every query filter.
func (s Spec) Matches(r Resource) bool {
	if r.Collection != s.Collection {
		return false
	}
	for k, v := range s.Query {
		if r.Attr(k) != v {
			return false
		}
	}
	return true
}

// Client performs CRUD against backend resources. Every method blocks until
// the backend answers; callers needing asynchrony wrap calls with loop.Go.
type Client interface {
	// FetchCollection returns all resources matching spec in a stable,
	// backend-defined order (creation order for the memory and Redis stores).
	FetchCollection(ctx context.Context, spec Spec) ([]Resource, error)

	// FetchOne returns a single resource, or ErrNotFound.
	FetchOne(ctx context.Context, collection, id string) (Resource, error)

	// Create stores a new resource and returns it with its assigned ID.
	Create(ctx context.Context, r Resource) (Resource, error)

	// Update replaces an existing resource, or returns ErrNotFound.
	Update(ctx context.Context, r Resource) (Resource, error)

	// Delete removes a resource, or returns ErrNotFound.
	Delete(ctx context.Context, r Resource) error
}

// =============================================================================
// Container
// =============================================================================

// Container is the record holding the serialized diagram layout.
// An empty Content means no layout has been saved yet.
type Container struct {
	ID         string
	Collection string
	Content    string
	Attributes map[string]any
}

// ContainerFromResource extracts the container view of r.
func ContainerFromResource(r Resource) Container {
	attrs := maps.Clone(r.Attributes)
	delete(attrs, ContentAttr)
	return Container{
		ID:         r.ID,
		Collection: r.Collection,
		Content:    r.Attr(ContentAttr),
		Attributes: attrs,
	}
}

// Resource converts the container back into a resource for Update.
func (c Container) Resource() Resource {
	attrs := maps.Clone(c.Attributes)
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[ContentAttr] = c.Content
	return Resource{ID: c.ID, Collection: c.Collection, Attributes: attrs}
}
