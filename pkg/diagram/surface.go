package diagram

// RemovalCause tells removal listeners why a cell left the surface.
type RemovalCause int

const (
	// UserInitiated is a direct delete by the user.
	UserInitiated RemovalCause = iota

	// CascadeFromNodeRemoval is a link removed because one of its endpoint
	// nodes is being removed. The node removal saves the diagram itself.
	CascadeFromNodeRemoval

	// RollbackOfFailedCreate is an optimistic cell removed because its backend
	// creation failed. Removal listeners must not act on it.
	RollbackOfFailedCreate
)

// String returns the cause name.
func (c RemovalCause) String() string {
	switch c {
	case UserInitiated:
		return "user"
	case CascadeFromNodeRemoval:
		return "cascade"
	case RollbackOfFailedCreate:
		return "rollback"
	default:
		return "unknown"
	}
}

// Listener receives structural change events from a Surface. Calls are
// synchronous and happen inside the surface call that caused them.
type Listener interface {
	// CellAdded is called after a cell is added.
	CellAdded(c *Cell)

	// NodeRemoving is called before a node cell leaves the surface. Attached
	// links have already been removed with CascadeFromNodeRemoval.
	NodeRemoving(c *Cell)

	// CellRemoved is called after a cell left the surface.
	CellRemoved(c *Cell, cause RemovalCause)

	// ConnectionStarted is called when the user starts dragging a link out
	// of nodeID.
	ConnectionStarted(nodeID string)

	// ConnectionEnded is called when a dragged link was dropped on a target
	// node and added to the surface.
	ConnectionEnded(linkID string)

	// SelectionChanged is called when the user changes the selected cells.
	SelectionChanged(ids []string)

	// PositionChanged is called when a cell was moved.
	PositionChanged(id string)
}

// Surface is the canonical in-memory diagram.
type Surface interface {
	AddCell(c *Cell)
	AddCells(cs []*Cell)

	// Cell returns the cell with the given id.
	Cell(id string) (*Cell, bool)

	// Len returns the number of cells.
	Len() int

	// RemoveCell removes a cell. Removing a node first removes its attached
	// links with CascadeFromNodeRemoval.
	RemoveCell(id string, cause RemovalCause) bool

	// Highlight replaces the visual selection without emitting
	// SelectionChanged and returns the ids that were selected.
	Highlight(ids ...string) []string

	// Serialize returns the persisted layout of the current diagram.
	Serialize() ([]byte, error)

	Subscribe(l Listener)
}

// NopListener implements Listener with no-ops. Embed it to handle a subset
// of events.
type NopListener struct{}

func (NopListener) CellAdded(*Cell)                 {}
func (NopListener) NodeRemoving(*Cell)              {}
func (NopListener) CellRemoved(*Cell, RemovalCause) {}
func (NopListener) ConnectionStarted(string)        {}
func (NopListener) ConnectionEnded(string)          {}
func (NopListener) SelectionChanged([]string)       {}
func (NopListener) PositionChanged(string)          {}
