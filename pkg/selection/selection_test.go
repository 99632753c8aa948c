package selection

import (
	"testing"

	"github.com/matzehuels/graphsync/pkg/resource"
)

func resolver(cells map[string]resource.Resource) Resolver {
	return func(id string) (string, resource.Resource, bool) {
		r, ok := cells[id]
		return "people", r, ok
	}
}

func newTestTracker() (*Tracker, *[]Selection) {
	tr := NewTracker(resolver(map[string]resource.Resource{
		"cell-a": {ID: "1", Collection: "people"},
		"cell-b": {ID: "2", Collection: "people"},
	}))
	var seen []Selection
	tr.OnChange(func(s Selection) { seen = append(seen, s) })
	return tr, &seen
}

func TestSelectIsPendingUntilSynced(t *testing.T) {
	tr, seen := newTestTracker()

	tr.Select([]string{"link-x", "cell-a"})
	if tr.State() != Pending {
		t.Errorf("State() = %v, want pending", tr.State())
	}
	key, res, ok := tr.SelectedEntity()
	if !ok || key != "people" || res.ID != "1" {
		t.Errorf("SelectedEntity() = %q, %+v, %v", key, res, ok)
	}
	if !tr.CommittedSelection().IsZero() {
		t.Error("committed selection should still be empty")
	}

	tr.SyncSelection()
	if tr.State() != Committed {
		t.Errorf("State() = %v, want committed", tr.State())
	}
	if !tr.CommittedSelection().Is("people", resource.Resource{ID: "1"}) {
		t.Errorf("CommittedSelection() = %+v", tr.CommittedSelection())
	}
	if len(*seen) != 2 {
		t.Errorf("listener calls = %d, want 2", len(*seen))
	}
}

func TestRevertRestoresCommitted(t *testing.T) {
	tr, seen := newTestTracker()
	tr.Select([]string{"cell-a"})
	tr.SyncSelection()
	tr.Select([]string{"cell-b"})

	tr.RevertSelection()
	if tr.State() != Committed {
		t.Errorf("State() = %v, want committed", tr.State())
	}
	if _, res, _ := tr.SelectedEntity(); res.ID != "1" {
		t.Errorf("SelectedEntity().ID = %q, want 1", res.ID)
	}
	last := (*seen)[len(*seen)-1]
	if !last.Is("people", resource.Resource{ID: "1"}) {
		t.Errorf("last notification = %+v, want cell-a entity", last)
	}
}

func TestRevertWithoutCommitIsEmpty(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Select([]string{"cell-a"})
	tr.RevertSelection()
	if tr.State() != Empty {
		t.Errorf("State() = %v, want empty", tr.State())
	}
	if !tr.Current().IsZero() {
		t.Errorf("Current() = %+v, want zero", tr.Current())
	}
}

func TestClearAndRevert(t *testing.T) {
	tr, seen := newTestTracker()
	tr.Select([]string{"cell-a"})
	tr.SyncSelection()
	tr.Select([]string{"cell-b"})
	before := len(*seen)

	tr.ClearAndRevert()

	if tr.State() != Empty {
		t.Errorf("State() = %v, want empty", tr.State())
	}
	if !tr.CommittedSelection().IsZero() {
		t.Error("ClearAndRevert should drop the committed value")
	}
	// One notification for the revert, one for the clear.
	if got := len(*seen) - before; got != 2 {
		t.Errorf("notifications = %d, want 2", got)
	}
	if !(*seen)[before].Is("people", resource.Resource{ID: "1"}) {
		t.Errorf("revert notification = %+v", (*seen)[before])
	}
}

func TestSelectNothingClears(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Select([]string{"cell-a"})
	tr.Select(nil)
	if tr.State() != Empty {
		t.Errorf("State() = %v, want empty", tr.State())
	}
}

func TestSelectEntity(t *testing.T) {
	tr, _ := newTestTracker()
	tr.SelectEntity(resource.Resource{ID: "9", Collection: "teams"}, "teams")

	key, res, ok := tr.SelectedEntity()
	if !ok || key != "teams" || res.ID != "9" {
		t.Errorf("SelectedEntity() = %q, %+v, %v", key, res, ok)
	}
	if len(tr.Current().CellIDs) != 0 {
		t.Error("entity selection should carry no cells")
	}
}

func TestCurrentIsACopy(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Select([]string{"cell-a"})
	cur := tr.Current()
	cur.CellIDs[0] = "mutated"
	cur.Entity.ID = "mutated"

	if tr.Current().CellIDs[0] != "cell-a" || tr.Current().Entity.ID != "1" {
		t.Error("Current() leaked internal state")
	}
}

func TestNilResolver(t *testing.T) {
	tr := NewTracker(nil)
	tr.Select([]string{"x"})
	if _, _, ok := tr.SelectedEntity(); ok {
		t.Error("nil resolver should not resolve entities")
	}
	if tr.State() != Pending {
		t.Errorf("State() = %v, want pending", tr.State())
	}
}
