package engine

import (
	"time"

	"github.com/matzehuels/graphsync/pkg/diagram"
)

// handle is a cell shown on the surface before the backend confirmed it.
type handle struct {
	cell    *diagram.Cell
	kind    string
	started time.Time
}

// tentativeAdd puts c on the surface unless it is already there and tracks it
// until commit or rollback.
func (e *Engine) tentativeAdd(c *diagram.Cell, kind string) *handle {
	if _, ok := e.surface.Cell(c.ID); !ok {
		e.surface.AddCell(c)
	}
	h := &handle{cell: c, kind: kind, started: time.Now()}
	e.tentative[c.ID] = h
	return h
}

// isTentative reports whether c awaits backend confirmation.
func (e *Engine) isTentative(c *diagram.Cell) bool {
	h, ok := e.tentative[c.ID]
	return ok && h.cell == c
}

// commit ends tracking of h. It reports whether the cell is still on the
// surface; false means the user removed it while the backend call was in
// flight.
func (e *Engine) commit(h *handle) bool {
	e.release(h)
	return e.onSurface(h.cell)
}

// rollback ends tracking of h and takes the cell off the surface. Removal
// listeners see RollbackOfFailedCreate and leave the backend alone.
func (e *Engine) rollback(h *handle) {
	e.release(h)
	if e.onSurface(h.cell) {
		e.surface.RemoveCell(h.cell.ID, diagram.RollbackOfFailedCreate)
	}
}

func (e *Engine) release(h *handle) {
	if cur, ok := e.tentative[h.cell.ID]; ok && cur == h {
		delete(e.tentative, h.cell.ID)
	}
}

func (e *Engine) onSurface(c *diagram.Cell) bool {
	cur, ok := e.surface.Cell(c.ID)
	return ok && cur == c
}
