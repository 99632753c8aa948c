package diagram

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Cell types written by NewNode and NewLink.
const (
	TypeNode = "chart.Node"
	TypeLink = "chart.Link"
)

// DefaultIDKey is the BackendModelParams key holding the backend id.
const DefaultIDKey = "id"

// Point is a position on the diagram.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a node's extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Endpoint references the cell a link is attached to.
type Endpoint struct {
	ID   string `json:"id"`
	Port string `json:"port,omitempty"`
}

// Cell is one diagram node or link.
type Cell struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	IsChartNode bool      `json:"isChartNode,omitempty"`
	EntityKey   string    `json:"entityIdentifier,omitempty"` // entity source key, nodes only
	Position    *Point    `json:"position,omitempty"`
	Size        *Size     `json:"size,omitempty"`
	Source      *Endpoint `json:"source,omitempty"`
	Target      *Endpoint `json:"target,omitempty"`

	// BackendModelParams correlates the cell to its backend resource. A cell
	// with no entry under the id key has not been created on the backend yet.
	BackendModelParams map[string]string `json:"backendModelParams,omitempty"`

	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewNode creates a chart node for an entity of the given source key.
func NewNode(entityKey string, attrs map[string]any, at Point) *Cell {
	return &Cell{
		ID:                 uuid.NewString(),
		Type:               TypeNode,
		IsChartNode:        true,
		EntityKey:          entityKey,
		Position:           &at,
		Size:               &Size{Width: 120, Height: 40},
		BackendModelParams: make(map[string]string),
		Attrs:              maps.Clone(attrs),
	}
}

// NewLink creates a link between two node cells.
func NewLink(sourceID, targetID string) *Cell {
	return &Cell{
		ID:                 uuid.NewString(),
		Type:               TypeLink,
		Source:             &Endpoint{ID: sourceID},
		Target:             &Endpoint{ID: targetID},
		BackendModelParams: make(map[string]string),
	}
}

// IsLink reports whether the cell connects two other cells.
func (c *Cell) IsLink() bool {
	return !c.IsChartNode && c.Source != nil && c.Target != nil
}

// BackendID returns the correlated backend id stored under idKey.
func (c *Cell) BackendID(idKey string) (string, bool) {
	id, ok := c.BackendModelParams[idKey]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SetBackendID records the correlated backend id under idKey.
func (c *Cell) SetBackendID(idKey, id string) {
	if c.BackendModelParams == nil {
		c.BackendModelParams = make(map[string]string)
	}
	c.BackendModelParams[idKey] = id
}

// Touches reports whether the link has nodeID as one of its endpoints.
func (c *Cell) Touches(nodeID string) bool {
	if !c.IsLink() {
		return false
	}
	return c.Source.ID == nodeID || c.Target.ID == nodeID
}

// Clone returns a deep copy of the cell.
func (c *Cell) Clone() *Cell {
	out := *c
	if c.Position != nil {
		p := *c.Position
		out.Position = &p
	}
	if c.Size != nil {
		s := *c.Size
		out.Size = &s
	}
	if c.Source != nil {
		e := *c.Source
		out.Source = &e
	}
	if c.Target != nil {
		e := *c.Target
		out.Target = &e
	}
	out.BackendModelParams = maps.Clone(c.BackendModelParams)
	out.Attrs = maps.Clone(c.Attrs)
	return &out
}

// =============================================================================
// Content - persisted layout
// =============================================================================

// Content is the persisted diagram layout.
type Content struct {
	Cells []*Cell `json:"cells"`
}

// ParseContent decodes a serialized layout. An empty string is an empty layout.
func ParseContent(s string) (Content, error) {
	if s == "" {
		return Content{}, nil
	}
	var c Content
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Content{}, fmt.Errorf("decode diagram content: %w", err)
	}
	return c, nil
}

// Nodes returns the chart node cells.
func (c Content) Nodes() []*Cell {
	var out []*Cell
	for _, cell := range c.Cells {
		if cell.IsChartNode {
			out = append(out, cell)
		}
	}
	return out
}

// Links returns the link cells.
func (c Content) Links() []*Cell {
	var out []*Cell
	for _, cell := range c.Cells {
		if cell.IsLink() {
			out = append(out, cell)
		}
	}
	return out
}
