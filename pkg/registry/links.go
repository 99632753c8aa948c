package registry

import (
	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/resource"
)

type linkEntry struct {
	relation resource.Resource
	present  bool
}

// Links is the relation registry.
type Links struct {
	idKey   string
	order   []string
	entries map[string]*linkEntry
}

// NewLinks creates an empty registry correlating cells via idKey.
func NewLinks(idKey string) *Links {
	if idKey == "" {
		idKey = diagram.DefaultIDKey
	}
	return &Links{idKey: idKey, entries: make(map[string]*linkEntry)}
}

// Set replaces the registry content.
func (r *Links) Set(relations []resource.Resource) {
	r.order = r.order[:0]
	r.entries = make(map[string]*linkEntry, len(relations))
	for _, rel := range relations {
		r.put(rel)
	}
}

// AddSingle registers a newly created relation for cell, stores its id on the
// cell and marks it present.
func (r *Links) AddSingle(cell *diagram.Cell, rel resource.Resource) {
	cell.SetBackendID(r.idKey, rel.ID)
	r.put(rel).present = true
}

// GetSingle returns the relation correlated to cell.
func (r *Links) GetSingle(cell *diagram.Cell) (resource.Resource, bool) {
	e, ok := r.entry(cell)
	if !ok {
		return resource.Resource{}, false
	}
	return e.relation, true
}

// Remove unregisters the relation correlated to cell.
func (r *Links) Remove(cell *diagram.Cell) bool {
	id, ok := cell.BackendID(r.idKey)
	if !ok {
		return false
	}
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// MarkPresentOnGraph flags the relation correlated to cell as drawn.
func (r *Links) MarkPresentOnGraph(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	if ok {
		e.present = true
	}
	return ok
}

// MarkRemovedFromGraph flags the relation correlated to cell as not drawn.
func (r *Links) MarkRemovedFromGraph(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	if ok {
		e.present = false
	}
	return ok
}

// IsPresent reports whether the relation correlated to cell is drawn.
func (r *Links) IsPresent(cell *diagram.Cell) bool {
	e, ok := r.entry(cell)
	return ok && e.present
}

// Relations returns a snapshot of all relations in registration order.
func (r *Links) Relations() []resource.Resource {
	out := make([]resource.Resource, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].relation.Clone())
	}
	return out
}

// Len returns the number of registered relations.
func (r *Links) Len() int { return len(r.entries) }

func (r *Links) entry(cell *diagram.Cell) (*linkEntry, bool) {
	if cell == nil {
		return nil, false
	}
	id, ok := cell.BackendID(r.idKey)
	if !ok {
		return nil, false
	}
	e, ok := r.entries[id]
	return e, ok
}

func (r *Links) put(rel resource.Resource) *linkEntry {
	if e, ok := r.entries[rel.ID]; ok {
		e.relation = rel
		return e
	}
	e := &linkEntry{relation: rel}
	r.entries[rel.ID] = e
	r.order = append(r.order, rel.ID)
	return e
}
