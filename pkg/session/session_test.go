package session

import (
	"testing"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/resource"
)

func validDescriptor() Descriptor {
	return Descriptor{
		Container: ContainerRef{Collection: "graphs", ID: "g1"},
		Entities: []EntitySource{
			{Key: "people", Spec: resource.Spec{Collection: "people"}},
			{Key: "teams", Spec: resource.Spec{Collection: "teams"}},
		},
		Relations: resource.Spec{Collection: "memberships"},
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	d := validDescriptor()
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if d.IDKey != diagram.DefaultIDKey {
		t.Errorf("IDKey = %q, want %q", d.IDKey, diagram.DefaultIDKey)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"no container collection", func(d *Descriptor) { d.Container.Collection = "" }},
		{"bad container id", func(d *Descriptor) { d.Container.ID = "a:b" }},
		{"no entities", func(d *Descriptor) { d.Entities = nil }},
		{"duplicate key", func(d *Descriptor) { d.Entities[1].Key = "people" }},
		{"empty key", func(d *Descriptor) { d.Entities[0].Key = "" }},
		{"bad entity collection", func(d *Descriptor) { d.Entities[0].Spec.Collection = "system.x" }},
		{"no relations", func(d *Descriptor) { d.Relations.Collection = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor()
			tt.mutate(&d)
			err := d.Validate()
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if errors.GetCode(err) == "" {
				t.Errorf("Validate() error %v has no code", err)
			}
		})
	}
}

func TestKeysAndSource(t *testing.T) {
	d := validDescriptor()
	keys := d.Keys()
	if len(keys) != 2 || keys[0] != "people" || keys[1] != "teams" {
		t.Errorf("Keys() = %v, want [people teams]", keys)
	}

	src, ok := d.Source("teams")
	if !ok || src.Spec.Collection != "teams" {
		t.Errorf("Source(teams) = %+v, %v", src, ok)
	}
	if _, ok := d.Source("nope"); ok {
		t.Error("Source(nope) should be absent")
	}
}

func TestNew(t *testing.T) {
	s1, err := New(validDescriptor())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s2, _ := New(validDescriptor())
	if s1.ID == "" || s1.ID == s2.ID {
		t.Errorf("session ids %q and %q should be unique and non-empty", s1.ID, s2.ID)
	}
	if _, err := New(Descriptor{}); err == nil {
		t.Error("New() with empty descriptor should fail")
	}
}
