package diagram

import (
	"encoding/json"
	"testing"
)

type recorder struct {
	NopListener
	events []string
}

func (r *recorder) CellAdded(c *Cell)    { r.events = append(r.events, "added:"+c.ID) }
func (r *recorder) NodeRemoving(c *Cell) { r.events = append(r.events, "removing:"+c.ID) }
func (r *recorder) CellRemoved(c *Cell, cause RemovalCause) {
	r.events = append(r.events, "removed:"+c.ID+":"+cause.String())
}
func (r *recorder) ConnectionStarted(id string) { r.events = append(r.events, "start:"+id) }
func (r *recorder) ConnectionEnded(id string)   { r.events = append(r.events, "end:"+id) }
func (r *recorder) PositionChanged(id string)   { r.events = append(r.events, "moved:"+id) }

func node(id string) *Cell {
	c := NewNode("people", nil, Point{})
	c.ID = id
	return c
}

func TestRemoveNodeCascadesLinksFirst(t *testing.T) {
	m := NewMemory()
	m.AddCells([]*Cell{node("a"), node("b"), node("c")})
	ab := NewLink("a", "b")
	ab.ID = "ab"
	bc := NewLink("b", "c")
	bc.ID = "bc"
	m.AddCells([]*Cell{ab, bc})

	rec := &recorder{}
	m.Subscribe(rec)

	if !m.RemoveCell("a", UserInitiated) {
		t.Fatal("RemoveCell() = false, want true")
	}

	want := []string{"removed:ab:cascade", "removing:a", "removed:a:user"}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, rec.events[i], want[i])
		}
	}
	if _, ok := m.Cell("bc"); !ok {
		t.Error("unrelated link was removed")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestRemoveMissingCell(t *testing.T) {
	m := NewMemory()
	if m.RemoveCell("nope", UserInitiated) {
		t.Error("RemoveCell() on missing cell = true, want false")
	}
}

func TestConnectEmitsStartAddEnd(t *testing.T) {
	m := NewMemory()
	m.AddCells([]*Cell{node("a"), node("b")})
	rec := &recorder{}
	m.Subscribe(rec)

	link, err := m.Connect("a", "b")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	want := []string{"start:a", "added:" + link.ID, "end:" + link.ID}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, rec.events[i], want[i])
		}
	}
	if !link.IsLink() || !link.Touches("a") || !link.Touches("b") {
		t.Error("link endpoints not set")
	}

	if _, err := m.Connect("a", "missing"); err == nil {
		t.Error("Connect() to missing node should fail")
	}
	if _, err := m.Connect("a", link.ID); err == nil {
		t.Error("Connect() to a link should fail")
	}
}

func TestHighlightIgnoresUnknownAndClearsOnRemove(t *testing.T) {
	m := NewMemory()
	m.AddCells([]*Cell{node("a"), node("b")})

	got := m.Highlight("a", "zzz")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("Highlight() = %v, want [a]", got)
	}
	m.RemoveCell("a", UserInitiated)
	if len(m.Selected()) != 0 {
		t.Errorf("Selected() = %v, want empty", m.Selected())
	}
}

func TestMoveEmitsPositionChanged(t *testing.T) {
	m := NewMemory()
	m.AddCell(node("a"))
	rec := &recorder{}
	m.Subscribe(rec)

	if err := m.Move("a", Point{X: 5, Y: 6}); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	c, _ := m.Cell("a")
	if c.Position.X != 5 || c.Position.Y != 6 {
		t.Errorf("Position = %+v", *c.Position)
	}
	if len(rec.events) != 1 || rec.events[0] != "moved:a" {
		t.Errorf("events = %v", rec.events)
	}
	if err := m.Move("nope", Point{}); err == nil {
		t.Error("Move() on missing cell should fail")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := NewMemory()
	a := node("a")
	a.SetBackendID(DefaultIDKey, "7")
	m.AddCells([]*Cell{a, node("b")})
	link := NewLink("a", "b")
	m.AddCell(link)

	data, err := m.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := raw["cells"]; !ok {
		t.Fatal("serialized form has no cells key")
	}

	content, err := ParseContent(string(data))
	if err != nil {
		t.Fatalf("ParseContent() error = %v", err)
	}
	if len(content.Nodes()) != 2 || len(content.Links()) != 1 {
		t.Fatalf("nodes = %d, links = %d, want 2, 1", len(content.Nodes()), len(content.Links()))
	}
	if id, ok := content.Nodes()[0].BackendID(DefaultIDKey); !ok || id != "7" {
		t.Errorf("BackendID() = %q, %v, want 7, true", id, ok)
	}
	if _, ok := content.Nodes()[1].BackendID(DefaultIDKey); ok {
		t.Error("node without backend id should report absence")
	}
}

func TestParseContentEmpty(t *testing.T) {
	c, err := ParseContent("")
	if err != nil {
		t.Fatalf("ParseContent(\"\") error = %v", err)
	}
	if len(c.Cells) != 0 {
		t.Errorf("cells = %d, want 0", len(c.Cells))
	}
	if _, err := ParseContent("{not json"); err == nil {
		t.Error("ParseContent() on bad json should fail")
	}
}

func TestBackendIDTreatsEmptyAsAbsent(t *testing.T) {
	c := NewNode("people", map[string]any{"name": "X"}, Point{X: 10, Y: 20})
	if _, ok := c.BackendID(DefaultIDKey); ok {
		t.Error("new node should have no backend id")
	}
	c.BackendModelParams[DefaultIDKey] = ""
	if _, ok := c.BackendID(DefaultIDKey); ok {
		t.Error("empty backend id should count as absent")
	}
	c.SetBackendID(DefaultIDKey, "undefined")
	if id, ok := c.BackendID(DefaultIDKey); !ok || id != "undefined" {
		t.Error("any non-empty id is a real id")
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := NewNode("people", map[string]any{"name": "X"}, Point{X: 1, Y: 2})
	c.SetBackendID(DefaultIDKey, "1")
	cp := c.Clone()
	cp.Position.X = 99
	cp.BackendModelParams[DefaultIDKey] = "2"
	cp.Attrs["name"] = "Y"

	if c.Position.X != 1 || c.BackendModelParams[DefaultIDKey] != "1" || c.Attrs["name"] != "X" {
		t.Error("Clone() shares state with the original")
	}
}
