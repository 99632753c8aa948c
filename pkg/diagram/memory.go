package diagram

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Memory is a headless Surface. Besides the Surface contract it offers the
// user gestures a rendering widget would translate into events: Connect,
// Move and Select.
type Memory struct {
	cells     map[string]*Cell
	order     []string
	selected  []string
	listeners []Listener
}

// NewMemory creates an empty surface.
func NewMemory() *Memory {
	return &Memory{cells: make(map[string]*Cell)}
}

func (m *Memory) Subscribe(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Memory) AddCell(c *Cell) {
	if _, exists := m.cells[c.ID]; !exists {
		m.order = append(m.order, c.ID)
	}
	m.cells[c.ID] = c
	for _, l := range m.listeners {
		l.CellAdded(c)
	}
}

func (m *Memory) AddCells(cs []*Cell) {
	for _, c := range cs {
		m.AddCell(c)
	}
}

func (m *Memory) Cell(id string) (*Cell, bool) {
	c, ok := m.cells[id]
	return c, ok
}

// Cells returns all cells in insertion order.
func (m *Memory) Cells() []*Cell {
	out := make([]*Cell, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.cells[id])
	}
	return out
}

// Len returns the number of cells.
func (m *Memory) Len() int { return len(m.order) }

// LinksOf returns the links attached to nodeID.
func (m *Memory) LinksOf(nodeID string) []*Cell {
	var out []*Cell
	for _, id := range m.order {
		if c := m.cells[id]; c.Touches(nodeID) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) RemoveCell(id string, cause RemovalCause) bool {
	c, ok := m.cells[id]
	if !ok {
		return false
	}

	if c.IsChartNode {
		for _, link := range m.LinksOf(id) {
			m.detach(link, CascadeFromNodeRemoval)
		}
		for _, l := range m.listeners {
			l.NodeRemoving(c)
		}
	}
	m.detach(c, cause)
	return true
}

func (m *Memory) detach(c *Cell, cause RemovalCause) {
	if _, ok := m.cells[c.ID]; !ok {
		return
	}
	delete(m.cells, c.ID)
	m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == c.ID })
	m.selected = slices.DeleteFunc(m.selected, func(id string) bool { return id == c.ID })
	for _, l := range m.listeners {
		l.CellRemoved(c, cause)
	}
}

func (m *Memory) Highlight(ids ...string) []string {
	m.selected = m.selected[:0]
	for _, id := range ids {
		if _, ok := m.cells[id]; ok {
			m.selected = append(m.selected, id)
		}
	}
	return slices.Clone(m.selected)
}

// Selected returns the highlighted cell ids.
func (m *Memory) Selected() []string {
	return slices.Clone(m.selected)
}

func (m *Memory) Serialize() ([]byte, error) {
	return json.Marshal(Content{Cells: m.Cells()})
}

// =============================================================================
// User gestures
// =============================================================================

// Connect simulates dragging a link from source to target. It emits
// ConnectionStarted, adds the link and emits ConnectionEnded.
func (m *Memory) Connect(sourceID, targetID string) (*Cell, error) {
	for _, id := range []string{sourceID, targetID} {
		c, ok := m.cells[id]
		if !ok {
			return nil, fmt.Errorf("connect: no cell %q", id)
		}
		if !c.IsChartNode {
			return nil, fmt.Errorf("connect: cell %q is not a node", id)
		}
	}

	for _, l := range m.listeners {
		l.ConnectionStarted(sourceID)
	}
	link := NewLink(sourceID, targetID)
	m.AddCell(link)
	for _, l := range m.listeners {
		l.ConnectionEnded(link.ID)
	}
	return link, nil
}

// Move repositions a node and emits PositionChanged.
func (m *Memory) Move(id string, to Point) error {
	c, ok := m.cells[id]
	if !ok {
		return fmt.Errorf("move: no cell %q", id)
	}
	c.Position = &to
	for _, l := range m.listeners {
		l.PositionChanged(id)
	}
	return nil
}

// Select simulates the user selecting cells and emits SelectionChanged.
func (m *Memory) Select(ids ...string) []string {
	selected := m.Highlight(ids...)
	for _, l := range m.listeners {
		l.SelectionChanged(slices.Clone(selected))
	}
	return selected
}

var _ Surface = (*Memory)(nil)
