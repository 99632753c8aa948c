// Package session describes one graph editing session: which container holds
// the diagram, which entity collections feed the nodes and in what order, and
// which collection holds the relations.
//
// # Usage
//
//	desc := session.Descriptor{
//	    Container: session.ContainerRef{Collection: "graphs", ID: "g1"},
//	    Entities: []session.EntitySource{
//	        {Key: "people", Spec: resource.Spec{Collection: "people"}},
//	        {Key: "teams", Spec: resource.Spec{Collection: "teams"}},
//	    },
//	    Relations: resource.Spec{Collection: "memberships"},
//	}
//	sess, err := session.New(desc)
//
// Entity sources are a slice, not a map: the load fetches them one after the
// other in exactly this order.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/resource"
)

// ContainerRef identifies the backend record holding the diagram layout.
type ContainerRef struct {
	Collection string `json:"collection" toml:"collection"`
	ID         string `json:"id" toml:"id"`
}

// EntitySource is one entity collection shown on the diagram. Key is the
// identifier nodes carry in their entityIdentifier field.
type EntitySource struct {
	Key  string        `json:"key" toml:"key"`
	Spec resource.Spec `json:"spec" toml:"spec"`
}

// Descriptor is everything the load needs to bootstrap a session.
type Descriptor struct {
	Container ContainerRef   `json:"container"`
	Entities  []EntitySource `json:"entities"`
	Relations resource.Spec  `json:"relations"`

	// IDKey is the BackendModelParams key holding backend ids.
	// Defaults to diagram.DefaultIDKey.
	IDKey string `json:"id_key,omitempty"`
}

// Keys returns the entity source keys in load order.
func (d Descriptor) Keys() []string {
	keys := make([]string, len(d.Entities))
	for i, e := range d.Entities {
		keys[i] = e.Key
	}
	return keys
}

// Source returns the entity source with the given key.
func (d Descriptor) Source(key string) (EntitySource, bool) {
	for _, e := range d.Entities {
		if e.Key == key {
			return e, true
		}
	}
	return EntitySource{}, false
}

// Validate checks identifiers and fills defaults.
func (d *Descriptor) Validate() error {
	if d.IDKey == "" {
		d.IDKey = diagram.DefaultIDKey
	}
	if err := errors.ValidateCollectionName(d.Container.Collection); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "container")
	}
	if err := errors.ValidateIdentifier("container id", d.Container.ID); err != nil {
		return err
	}
	if len(d.Entities) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one entity source is required")
	}

	seen := make(map[string]bool, len(d.Entities))
	for _, e := range d.Entities {
		if err := errors.ValidateIdentifier("entity key", e.Key); err != nil {
			return err
		}
		if seen[e.Key] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate entity key %q", e.Key)
		}
		seen[e.Key] = true
		if err := errors.ValidateCollectionName(e.Spec.Collection); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "entity source %q", e.Key)
		}
	}

	if err := errors.ValidateCollectionName(d.Relations.Collection); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "relations")
	}
	return nil
}

// Session is one started editing session.
type Session struct {
	ID         string
	Descriptor Descriptor
	StartedAt  time.Time
}

// New validates desc and starts a session with a fresh random id.
func New(desc Descriptor) (*Session, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Descriptor: desc, StartedAt: time.Now()}, nil
}

// GenerateID creates a random URL-safe session id.
func GenerateID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
