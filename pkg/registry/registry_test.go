package registry

import (
	"testing"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/resource"
)

func person(id, name string) resource.Resource {
	return resource.Resource{ID: id, Collection: "people", Attributes: map[string]any{"name": name}}
}

func nodeFor(key, id string) *diagram.Cell {
	c := diagram.NewNode(key, nil, diagram.Point{})
	if id != "" {
		c.SetBackendID(diagram.DefaultIDKey, id)
	}
	return c
}

func TestEntitiesSetAndGetSingle(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{
		{Key: "people", Resources: []resource.Resource{person("1", "Ada"), person("2", "Bob")}},
		{Key: "teams", Resources: []resource.Resource{{ID: "1", Collection: "teams"}}},
	})

	got, ok := r.GetSingle(nodeFor("people", "2"))
	if !ok || got.Attr("name") != "Bob" {
		t.Errorf("GetSingle(people/2) = %+v, %v", got, ok)
	}

	// Same id under another key is a different entity.
	got, ok = r.GetSingle(nodeFor("teams", "1"))
	if !ok || got.Collection != "teams" {
		t.Errorf("GetSingle(teams/1) = %+v, %v", got, ok)
	}

	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestEntitiesAbsenceIsNotAnError(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{{Key: "people", Resources: []resource.Resource{person("1", "Ada")}}})

	tests := []struct {
		name string
		cell *diagram.Cell
	}{
		{"nil cell", nil},
		{"no backend id", nodeFor("people", "")},
		{"unknown key", nodeFor("robots", "1")},
		{"unknown id", nodeFor("people", "99")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := r.GetSingle(tt.cell); ok {
				t.Error("GetSingle() ok = true, want false")
			}
			if r.MarkPresentOnGraph(tt.cell) {
				t.Error("MarkPresentOnGraph() = true, want false")
			}
			if r.MarkRemovedFromGraph(tt.cell) {
				t.Error("MarkRemovedFromGraph() = true, want false")
			}
		})
	}
}

func TestEntitiesPresence(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{{Key: "people", Resources: []resource.Resource{person("1", "Ada"), person("2", "Bob")}}})
	cell := nodeFor("people", "1")

	if r.IsPresent(cell) {
		t.Error("loaded entity should start not present")
	}
	r.MarkPresentOnGraph(cell)
	if !r.IsPresent(cell) {
		t.Error("MarkPresentOnGraph did not mark")
	}
	if got := r.Present("people"); len(got) != 1 || got[0] != "1" {
		t.Errorf("Present() = %v, want [1]", got)
	}
	r.MarkRemovedFromGraph(cell)
	if r.IsPresent(cell) {
		t.Error("MarkRemovedFromGraph did not clear")
	}
	if _, ok := r.GetSingle(cell); !ok {
		t.Error("removal from graph must keep the entity registered")
	}
}

func TestEntitiesAddSingle(t *testing.T) {
	r := NewEntities("")
	r.Set(nil)
	cell := nodeFor("people", "")

	r.AddSingle(cell, person("7", "X"))

	if id, ok := cell.BackendID(diagram.DefaultIDKey); !ok || id != "7" {
		t.Errorf("cell backend id = %q, %v, want 7", id, ok)
	}
	if !r.IsPresent(cell) {
		t.Error("AddSingle should mark present")
	}
	cols := r.Collections()
	if len(cols) != 1 || cols[0].Key != "people" || len(cols[0].Resources) != 1 {
		t.Errorf("Collections() = %+v", cols)
	}
}

func TestEntitiesRemove(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{{Key: "people", Resources: []resource.Resource{person("1", "Ada"), person("2", "Bob")}}})

	if !r.Remove("people", person("1", "")) {
		t.Fatal("Remove() = false, want true")
	}
	if r.Remove("people", person("1", "")) {
		t.Error("second Remove() = true, want false")
	}
	if r.Remove("robots", person("2", "")) {
		t.Error("Remove() with unknown key = true, want false")
	}
	if _, ok := r.Lookup("people", "1"); ok {
		t.Error("removed entity still registered")
	}
	cols := r.Collections()
	if len(cols[0].Resources) != 1 || cols[0].Resources[0].ID != "2" {
		t.Errorf("Collections() = %+v", cols)
	}
}

func TestEntitiesCollectionsKeepSourceOrder(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{{Key: "zeta"}, {Key: "alpha"}, {Key: "mid"}})

	cols := r.Collections()
	want := []string{"zeta", "alpha", "mid"}
	for i, c := range cols {
		if c.Key != want[i] {
			t.Errorf("Collections()[%d].Key = %q, want %q", i, c.Key, want[i])
		}
	}
}

func TestEntitiesSetResets(t *testing.T) {
	r := NewEntities("")
	r.Set([]Collection{{Key: "people", Resources: []resource.Resource{person("1", "Ada")}}})
	r.Set([]Collection{{Key: "teams"}})

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if cols := r.Collections(); len(cols) != 1 || cols[0].Key != "teams" {
		t.Errorf("Collections() = %+v", cols)
	}
}

func TestEntitiesCustomIDKey(t *testing.T) {
	r := NewEntities("uuid")
	r.Set([]Collection{{Key: "people", Resources: []resource.Resource{person("1", "Ada")}}})

	cell := diagram.NewNode("people", nil, diagram.Point{})
	cell.SetBackendID(diagram.DefaultIDKey, "1")
	if _, ok := r.GetSingle(cell); ok {
		t.Error("lookup should use the configured id key")
	}
	cell.SetBackendID("uuid", "1")
	if _, ok := r.GetSingle(cell); !ok {
		t.Error("lookup by configured id key failed")
	}
}

func TestLinks(t *testing.T) {
	r := NewLinks("")
	r.Set([]resource.Resource{
		{ID: "10", Collection: "memberships", Source: "1", Target: "2"},
	})

	loaded := diagram.NewLink("a", "b")
	loaded.SetBackendID(diagram.DefaultIDKey, "10")
	if rel, ok := r.GetSingle(loaded); !ok || rel.Source != "1" {
		t.Errorf("GetSingle(loaded) = %+v, %v", rel, ok)
	}

	fresh := diagram.NewLink("b", "c")
	if _, ok := r.GetSingle(fresh); ok {
		t.Error("link without backend id should be absent")
	}
	r.AddSingle(fresh, resource.Resource{ID: "11", Collection: "memberships", Source: "2", Target: "3"})
	if !r.IsPresent(fresh) {
		t.Error("AddSingle should mark present")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	if !r.Remove(loaded) {
		t.Error("Remove(loaded) = false, want true")
	}
	if r.Remove(loaded) {
		t.Error("second Remove(loaded) = true, want false")
	}
	rels := r.Relations()
	if len(rels) != 1 || rels[0].ID != "11" {
		t.Errorf("Relations() = %+v", rels)
	}
}

func TestLinksPresence(t *testing.T) {
	r := NewLinks("")
	r.Set([]resource.Resource{{ID: "10", Collection: "memberships"}})
	cell := diagram.NewLink("a", "b")
	cell.SetBackendID(diagram.DefaultIDKey, "10")

	if r.IsPresent(cell) {
		t.Error("loaded relation should start not present")
	}
	r.MarkPresentOnGraph(cell)
	if !r.IsPresent(cell) {
		t.Error("MarkPresentOnGraph did not mark")
	}
	r.MarkRemovedFromGraph(cell)
	if r.IsPresent(cell) {
		t.Error("MarkRemovedFromGraph did not clear")
	}
}
