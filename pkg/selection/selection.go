// Package selection tracks the selected diagram node and the entity behind it.
//
// The tracker has three states. Selecting cells or an entity makes the new
// value Pending: listeners see it, but it can still be reverted. SyncSelection
// commits it. RevertSelection goes back to the last committed value, and Clear
// empties both.
package selection

import (
	"slices"

	"github.com/matzehuels/graphsync/pkg/resource"
)

// State of the tracker.
type State int

const (
	Empty State = iota
	Pending
	Committed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Selection is a selected set of cells and the entity they represent.
type Selection struct {
	CellIDs []string           `json:"cell_ids,omitempty"`
	Key     string             `json:"key,omitempty"`
	Entity  *resource.Resource `json:"entity,omitempty"`
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return len(s.CellIDs) == 0 && s.Entity == nil
}

// Is reports whether the selection's entity is res from source key.
func (s Selection) Is(key string, res resource.Resource) bool {
	return s.Entity != nil && s.Key == key && s.Entity.ID == res.ID
}

func (s Selection) clone() Selection {
	out := Selection{CellIDs: slices.Clone(s.CellIDs), Key: s.Key}
	if s.Entity != nil {
		e := s.Entity.Clone()
		out.Entity = &e
	}
	return out
}

// Resolver maps a selected cell id to the entity it represents.
type Resolver func(cellID string) (key string, res resource.Resource, ok bool)

// Tracker holds the current selection. It is not safe for concurrent use.
type Tracker struct {
	resolve   Resolver
	state     State
	current   Selection
	committed Selection
	listeners []func(Selection)
}

// NewTracker creates an empty tracker. A nil resolver selects cells without
// entities.
func NewTracker(resolve Resolver) *Tracker {
	if resolve == nil {
		resolve = func(string) (string, resource.Resource, bool) { return "", resource.Resource{}, false }
	}
	return &Tracker{resolve: resolve}
}

// OnChange registers fn to be called with every selection change.
func (t *Tracker) OnChange(fn func(Selection)) {
	t.listeners = append(t.listeners, fn)
}

// State returns the tracker state.
func (t *Tracker) State() State { return t.state }

// Current returns the selection listeners currently see.
func (t *Tracker) Current() Selection { return t.current.clone() }

// CommittedSelection returns the last committed selection.
func (t *Tracker) CommittedSelection() Selection { return t.committed.clone() }

// Select makes the given cells the pending selection. The entity is resolved
// from the first cell that has one. Selecting no cells clears.
func (t *Tracker) Select(ids []string) {
	if len(ids) == 0 {
		t.Clear()
		return
	}
	sel := Selection{CellIDs: slices.Clone(ids)}
	for _, id := range ids {
		if key, res, ok := t.resolve(id); ok {
			sel.Key = key
			sel.Entity = &res
			break
		}
	}
	t.set(Pending, sel)
}

// SelectEntity makes an entity the pending selection without any cell, as
// when it is picked from a list rather than on the diagram.
func (t *Tracker) SelectEntity(res resource.Resource, key string) {
	t.set(Pending, Selection{Key: key, Entity: &res})
}

// SelectedEntity returns the entity of the current selection.
func (t *Tracker) SelectedEntity() (string, resource.Resource, bool) {
	if t.current.Entity == nil {
		return "", resource.Resource{}, false
	}
	return t.current.Key, t.current.Entity.Clone(), true
}

// SyncSelection commits a pending selection and makes listeners re-read the
// committed value.
func (t *Tracker) SyncSelection() {
	if t.state == Pending {
		t.committed = t.current.clone()
		t.state = Committed
	}
	t.notify()
}

// RevertSelection discards a pending selection and restores the committed one.
func (t *Tracker) RevertSelection() {
	state := Committed
	if t.committed.IsZero() {
		state = Empty
	}
	t.set(state, t.committed.clone())
}

// Clear empties the selection, committed value included.
func (t *Tracker) Clear() {
	t.committed = Selection{}
	t.set(Empty, Selection{})
}

// ClearAndRevert discards any pending change, then clears.
func (t *Tracker) ClearAndRevert() {
	if t.state == Pending {
		t.RevertSelection()
	}
	t.Clear()
}

func (t *Tracker) set(state State, sel Selection) {
	t.state = state
	t.current = sel
	t.notify()
}

func (t *Tracker) notify() {
	for _, fn := range t.listeners {
		fn(t.current.clone())
	}
}
