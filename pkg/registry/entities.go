package registry

import (
	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/resource"
)

// Collection is the loaded content of one entity source.
type Collection struct {
	Key       string
	Resources []resource.Resource
}

// Entry is a registered entity and its placement state.
type Entry struct {
	Resource       resource.Resource
	PresentOnGraph bool
}

type bucket struct {
	order   []string
	entries map[string]*Entry
}

func newBucket() *bucket {
	return &bucket{entries: make(map[string]*Entry)}
}

// Entities is the entity registry.
type Entities struct {
	idKey   string
	keys    []string
	buckets map[string]*bucket
}

// NewEntities creates an empty registry correlating cells via idKey.
func NewEntities(idKey string) *Entities {
	if idKey == "" {
		idKey = diagram.DefaultIDKey
	}
	return &Entities{idKey: idKey, buckets: make(map[string]*bucket)}
}

// Set replaces the registry content. Every entity starts as not present.
func (r *Entities) Set(collections []Collection) {
	r.keys = r.keys[:0]
	r.buckets = make(map[string]*bucket, len(collections))
	for _, c := range collections {
		b := r.bucket(c.Key)
		for _, res := range c.Resources {
			b.put(res)
		}
	}
}

// AddSingle registers a newly created entity for cell, stores its id on the
// cell and marks it present.
func (r *Entities) AddSingle(cell *diagram.Cell, res resource.Resource) {
	cell.SetBackendID(r.idKey, res.ID)
	e := r.bucket(cell.EntityKey).put(res)
	e.PresentOnGraph = true
}

// GetSingle returns the entity correlated to cell. The boolean is false when
// the cell has no backend id yet or the entity is not registered.
func (r *Entities) GetSingle(cell *diagram.Cell) (resource.Resource, bool) {
	e, ok := r.entry(cell)
	if !ok {
		return resource.Resource{}, false
	}
	return e.Resource, true
}

// Lookup returns the entry for an entity by source key and id.
func (r *Entities) Lookup(key, id string) (Entry, bool) {
	b, ok := r.buckets[key]
	if !ok {
		return Entry{}, false
	}
	e, ok := b.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Remove drops an entity entirely. It reports whether it was registered.
func (r *Entities) Remove(key string, res resource.Resource) bool {
	b, ok := r.buckets[key]
	if !ok {
		return false
	}
	if _, ok := b.entries[res.ID]; !ok {
		return false
	}
	delete(b.entries, res.ID)
	for i, id := range b.order {
		if id == res.ID {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
	return true
}

// MarkPresentOnGraph flags the entity correlated to cell as placed.
func (r *Entities) MarkPresentOnGraph(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	if ok {
		e.PresentOnGraph = true
	}
	return ok
}

// MarkRemovedFromGraph flags the entity correlated to cell as not placed.
func (r *Entities) MarkRemovedFromGraph(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	if ok {
		e.PresentOnGraph = false
	}
	return ok
}

// IsPresent reports whether the entity correlated to cell is placed.
func (r *Entities) IsPresent(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	return ok && e.PresentOnGraph
}

// Collections returns a snapshot of all entities in source order.
func (r *Entities) Collections() []Collection {
	out := make([]Collection, 0, len(r.keys))
	for _, key := range r.keys {
		b := r.buckets[key]
		c := Collection{Key: key, Resources: make([]resource.Resource, 0, len(b.order))}
		for _, id := range b.order {
			c.Resources = append(c.Resources, b.entries[id].Resource.Clone())
		}
		out = append(out, c)
	}
	return out
}

// Present returns the ids of placed entities under key.
func (r *Entities) Present(key string) []string {
	b, ok := r.buckets[key]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range b.order {
		if b.entries[id].PresentOnGraph {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of registered entities.
func (r *Entities) Len() int {
	n := 0
	for _, b := range r.buckets {
		n += len(b.entries)
	}
	return n
}

func (r *Entities) entry(cell *diagram.Cell) (*Entry, bool) {
	if cell == nil {
		return nil, false
	}
	id, ok := cell.BackendID(r.idKey)
	if !ok {
		return nil, false
	}
	b, ok := r.buckets[cell.EntityKey]
	if !ok {
		return nil, false
	}
	e, ok := b.entries[id]
	return e, ok
}

func (r *Entities) bucket(key string) *bucket {
	b, ok := r.buckets[key]
	if !ok {
		b = newBucket()
		r.buckets[key] = b
		r.keys = append(r.keys, key)
	}
	return b
}

func (b *bucket) put(res resource.Resource) *Entry {
	if e, ok := b.entries[res.ID]; ok {
		e.Resource = res
		return e
	}
	e := &Entry{Resource: res}
	b.entries[res.ID] = e
	b.order = append(b.order, res.ID)
	return e
}
