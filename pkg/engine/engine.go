// Package engine keeps a diagram surface synchronized with backend resources.
//
// An [Engine] owns the per-session state: the entity and link registries, the
// selection tracker and the persistence scheduler. It listens to the diagram
// surface and turns user edits into backend calls:
//
//   - dropping an entity creates the node optimistically, then the entity
//   - connecting two nodes creates the relation, or removes the link again
//   - removing a node unplaces its entity and saves the layout
//   - removing a link deletes its relation
//
// Everything runs on a [loop.Loop]. Backend calls are issued with [loop.Go]
// and their continuations come back onto the loop, so handlers never block and
// never race each other. Failures are published as [events.ApplicationError].
//
// # Usage
//
//	l := loop.New(logger)
//	surface := diagram.NewMemory()
//	eng := engine.New(ctx, engine.Config{Loop: l, Client: store, Surface: surface})
//	if err := eng.Load(ctx, desc); err != nil {
//	    return err
//	}
//	return l.RunUntilIdle(ctx)
package engine

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/events"
	"github.com/matzehuels/graphsync/pkg/loop"
	"github.com/matzehuels/graphsync/pkg/persist"
	"github.com/matzehuels/graphsync/pkg/registry"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/selection"
	"github.com/matzehuels/graphsync/pkg/session"
)

// Config wires an engine to its collaborators.
type Config struct {
	Loop    *loop.Loop
	Client  resource.Client
	Surface diagram.Surface

	// Bus receives produced events. A new bus is created when nil.
	Bus *events.Bus

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Engine is the synchronization engine for one diagram surface. Methods that
// touch state must run on the loop; use [loop.Loop.Do] from other goroutines.
type Engine struct {
	ctx     context.Context
	loop    *loop.Loop
	client  resource.Client
	surface diagram.Surface
	bus     *events.Bus
	logger  *log.Logger

	session   *session.Session
	idKey     string
	loading   bool
	loaded    bool
	entities  *registry.Entities
	links     *registry.Links
	selection *selection.Tracker
	saver     *persist.Scheduler
	tentative map[string]*handle
}

// New creates an engine and subscribes it to the surface. Backend calls
// started by diagram events use ctx.
func New(ctx context.Context, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}

	e := &Engine{
		ctx:       ctx,
		loop:      cfg.Loop,
		client:    cfg.Client,
		surface:   cfg.Surface,
		bus:       bus,
		logger:    logger,
		idKey:     diagram.DefaultIDKey,
		tentative: make(map[string]*handle),
	}
	e.entities = registry.NewEntities(e.idKey)
	e.links = registry.NewLinks(e.idKey)
	e.selection = selection.NewTracker(e.resolveSelection)
	e.selection.OnChange(func(sel selection.Selection) {
		e.bus.Publish(events.SelectionChanged{Selection: sel})
	})
	e.saver = persist.New(cfg.Loop, cfg.Client, cfg.Surface, logger)
	e.saver.OnError(func(err error) {
		e.bus.Publish(events.ApplicationError{Code: errors.ErrCodeSaveFailure, Err: err})
	})

	cfg.Surface.Subscribe(listener{e})
	return e
}

// Bus returns the bus produced events are published on.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Session returns the current session, or nil before the first Load.
func (e *Engine) Session() *session.Session { return e.session }

// Loaded reports whether the last Load completed.
func (e *Engine) Loaded() bool { return e.loaded }

// Entities returns the entity registry.
func (e *Engine) Entities() *registry.Entities { return e.entities }

// Links returns the link registry.
func (e *Engine) Links() *registry.Links { return e.links }

// Selection returns the selection tracker.
func (e *Engine) Selection() *selection.Tracker { return e.selection }

// Saves returns the number of layout saves issued.
func (e *Engine) Saves() int { return e.saver.Saves() }

// Container returns the container as of the last successful save or load.
func (e *Engine) Container() resource.Container { return e.saver.Container() }

func (e *Engine) resolveSelection(cellID string) (string, resource.Resource, bool) {
	c, ok := e.surface.Cell(cellID)
	if !ok || !c.IsChartNode {
		return "", resource.Resource{}, false
	}
	res, ok := e.entities.GetSingle(c)
	if !ok {
		return "", resource.Resource{}, false
	}
	return c.EntityKey, res, true
}

// fail logs err and publishes it as an application error.
func (e *Engine) fail(code errors.Code, err error, format string, args ...any) {
	wrapped := errors.Wrap(code, err, format, args...)
	e.logger.Error("sync failed", "code", code, "err", wrapped)
	e.bus.Publish(events.ApplicationError{Code: code, Err: wrapped})
}

// =============================================================================
// Surface listener
// =============================================================================

// listener adapts the engine to diagram.Listener without exporting the
// handler methods on Engine.
type listener struct{ e *Engine }

func (l listener) CellAdded(c *diagram.Cell) {
	l.e.logger.Debug("cell added", "cell", c.ID, "type", c.Type)
}

func (l listener) NodeRemoving(c *diagram.Cell)                            { l.e.nodeRemoving(c) }
func (l listener) CellRemoved(c *diagram.Cell, cause diagram.RemovalCause) { l.e.cellRemoved(c, cause) }
func (l listener) ConnectionStarted(nodeID string)                         { l.e.connectionStarted(nodeID) }
func (l listener) ConnectionEnded(linkID string)                           { l.e.connectionEnded(linkID) }
func (l listener) SelectionChanged(ids []string)                           { l.e.selection.Select(ids) }
func (l listener) PositionChanged(id string)                               { l.e.positionChanged(id) }
