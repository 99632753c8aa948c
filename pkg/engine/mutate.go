package engine

import (
	"context"
	"maps"
	"time"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/loop"
	"github.com/matzehuels/graphsync/pkg/observability"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/session"
)

// Resource kinds reported to observability hooks.
const (
	KindEntity   = "entity"
	KindRelation = "relation"
)

// DropCommand places an entity on the diagram at Point.
type DropCommand struct {
	EntityKey  string         `json:"entity_key"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Point      diagram.Point  `json:"point"`

	// ExistingID places an entity that was loaded but not yet on the
	// diagram. No backend entity is created.
	ExistingID string `json:"existing_id,omitempty"`
}

// RemoveEntityCommand deletes a loaded entity from the backend.
type RemoveEntityCommand struct {
	Entity resource.Resource `json:"entity"`
	Key    string            `json:"key"`
}

// Drop adds a node for cmd. A new entity is created on the backend while the
// node is already shown; if creation fails, the node is removed again and a
// CREATE_FAILURE is published. On success the entity is registered, the node
// selected and the layout saved.
func (e *Engine) Drop(cmd DropCommand) (*diagram.Cell, error) {
	if err := e.requireLoaded(); err != nil {
		return nil, err
	}
	src, ok := e.session.Descriptor.Source(cmd.EntityKey)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidKey, "unknown entity source %q", cmd.EntityKey)
	}

	cell := diagram.NewNode(cmd.EntityKey, cmd.Attributes, cmd.Point)
	if cmd.ExistingID != "" {
		return cell, e.place(cell, cmd.ExistingID)
	}

	h := e.tentativeAdd(cell, KindEntity)
	draft := resource.Resource{
		Collection: src.Spec.Collection,
		Attributes: withQuery(cmd.Attributes, src.Spec.Query),
	}
	sess := e.session
	e.logger.Debug("creating entity", "cell", cell.ID, "key", cmd.EntityKey)

	loop.Go(e.loop, e.ctx,
		func(ctx context.Context) (resource.Resource, error) {
			return e.client.Create(ctx, draft)
		},
		func(res resource.Resource, err error) {
			observability.Sync().OnCreate(e.ctx, KindEntity, draft.Collection, time.Since(h.started), err)
			if e.stale(sess, cell) {
				e.rollback(h)
				return
			}
			if err != nil {
				e.rollback(h)
				e.fail(errors.ErrCodeCreateFailure, err, "create %s entity", cmd.EntityKey)
				return
			}
			if !e.commit(h) {
				// Removed while in flight: keep the entity as loaded, not placed.
				e.entities.AddSingle(cell, res)
				e.entities.MarkRemovedFromGraph(cell)
				e.logger.Warn("node removed before its entity was created", "cell", cell.ID, "id", res.ID)
				return
			}
			e.entities.AddSingle(cell, res)
			e.highlight(cell)
			e.saver.Schedule(e.ctx)
			e.logger.Info("entity created", "cell", cell.ID, "key", cmd.EntityKey, "id", res.ID)
		},
	)
	return cell, nil
}

// place adds a node for an entity that is already registered.
func (e *Engine) place(cell *diagram.Cell, id string) error {
	entry, ok := e.entities.Lookup(cell.EntityKey, id)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "entity %s/%s is not loaded", cell.EntityKey, id)
	}
	if entry.PresentOnGraph {
		return errors.New(errors.ErrCodeInvalidInput, "entity %s/%s is already on the graph", cell.EntityKey, id)
	}
	cell.SetBackendID(e.idKey, id)
	e.surface.AddCell(cell)
	e.entities.MarkPresentOnGraph(cell)
	e.saver.Schedule(e.ctx)
	return nil
}

// Remove deletes a cell as the user would. Removing a node also removes its
// links.
func (e *Engine) Remove(cellID string) error {
	if !e.surface.RemoveCell(cellID, diagram.UserInitiated) {
		return errors.New(errors.ErrCodeCellNotFound, "no cell %q", cellID)
	}
	return nil
}

// RemoveEntity deletes an entity that is not placed on the diagram. On
// success it leaves the registry; on failure a DELETE_FAILURE is published
// and the entity stays registered.
func (e *Engine) RemoveEntity(cmd RemoveEntityCommand) error {
	if err := e.requireLoaded(); err != nil {
		return err
	}
	if _, ok := e.session.Descriptor.Source(cmd.Key); !ok {
		return errors.New(errors.ErrCodeInvalidKey, "unknown entity source %q", cmd.Key)
	}
	entry, ok := e.entities.Lookup(cmd.Key, cmd.Entity.ID)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "entity %s/%s is not loaded", cmd.Key, cmd.Entity.ID)
	}
	if entry.PresentOnGraph {
		return errors.New(errors.ErrCodeInvalidInput, "entity %s/%s is on the graph, remove its node first", cmd.Key, cmd.Entity.ID)
	}

	ent := entry.Resource
	sess := e.session
	start := time.Now()
	loop.Go(e.loop, e.ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.client.Delete(ctx, ent)
		},
		func(_ struct{}, err error) {
			observability.Sync().OnDelete(e.ctx, KindEntity, ent.Collection, time.Since(start), err)
			if e.session != sess {
				return
			}
			if err != nil {
				e.fail(errors.ErrCodeDeleteFailure, err, "delete %s entity %s", cmd.Key, ent.ID)
				return
			}
			e.entities.Remove(cmd.Key, ent)
			if e.selection.Current().Is(cmd.Key, ent) {
				e.selection.Clear()
			}
			e.logger.Info("entity deleted", "key", cmd.Key, "id", ent.ID)
		},
	)
	return nil
}

// =============================================================================
// Surface event handlers
// =============================================================================

func (e *Engine) connectionStarted(nodeID string) {
	e.logger.Debug("connection started", "cell", nodeID)
	e.selection.ClearAndRevert()
	e.surface.Highlight()
}

// connectionEnded creates the relation for a freshly drawn link. The link is
// taken off the surface again if the relation cannot be created.
func (e *Engine) connectionEnded(linkID string) {
	link, ok := e.surface.Cell(linkID)
	if !ok || !link.IsLink() {
		e.logger.Warn("connection ended without link", "cell", linkID)
		return
	}

	h := e.tentativeAdd(link, KindRelation)
	if err := e.requireLoaded(); err != nil {
		e.rollback(h)
		e.fail(errors.ErrCodeCreateFailure, err, "create relation")
		return
	}
	source, srcOK := e.endpointEntity(link.Source.ID)
	target, tgtOK := e.endpointEntity(link.Target.ID)
	if !srcOK || !tgtOK {
		e.rollback(h)
		e.fail(errors.ErrCodeCreateFailure,
			errors.New(errors.ErrCodeInvalidInput, "both endpoints need a backend entity"),
			"create relation for link %s", link.ID)
		return
	}

	spec := e.session.Descriptor.Relations
	draft := resource.Resource{
		Collection: spec.Collection,
		Source:     source.ID,
		Target:     target.ID,
		Attributes: withQuery(nil, spec.Query),
	}
	sess := e.session
	loop.Go(e.loop, e.ctx,
		func(ctx context.Context) (resource.Resource, error) {
			return e.client.Create(ctx, draft)
		},
		func(rel resource.Resource, err error) {
			observability.Sync().OnCreate(e.ctx, KindRelation, draft.Collection, time.Since(h.started), err)
			if e.stale(sess, link) {
				e.rollback(h)
				return
			}
			if err != nil {
				e.rollback(h)
				e.fail(errors.ErrCodeCreateFailure, err, "create relation %s -> %s", source.ID, target.ID)
				return
			}
			if !e.commit(h) {
				e.links.AddSingle(link, rel)
				e.links.MarkRemovedFromGraph(link)
				e.logger.Warn("link removed before its relation was created", "cell", link.ID, "id", rel.ID)
				return
			}
			e.links.AddSingle(link, rel)
			e.saver.Schedule(e.ctx)
			e.logger.Info("relation created", "cell", link.ID, "id", rel.ID)
		},
	)
}

// nodeRemoving runs before a node leaves the surface. Its links are gone
// already. The entity stays on the backend and in the registry, unplaced.
func (e *Engine) nodeRemoving(c *diagram.Cell) {
	res, ok := e.entities.GetSingle(c)
	if !ok {
		e.logger.Debug("removing node without entity", "cell", c.ID)
		return
	}
	if e.selection.Current().Is(c.EntityKey, res) || e.selection.CommittedSelection().Is(c.EntityKey, res) {
		e.selection.Clear()
		e.surface.Highlight()
	}
	e.entities.MarkRemovedFromGraph(c)
	e.saver.Schedule(e.ctx)
}

// cellRemoved deletes the relation of a removed link. Rollbacks are ignored,
// and a cascade from a node removal does not save since the node removal did.
func (e *Engine) cellRemoved(c *diagram.Cell, cause diagram.RemovalCause) {
	if !c.IsLink() || cause == diagram.RollbackOfFailedCreate {
		return
	}
	if e.isTentative(c) {
		e.logger.Debug("link removed before its relation was created", "cell", c.ID)
		return
	}
	rel, ok := e.links.GetSingle(c)
	if !ok {
		return
	}

	e.links.MarkRemovedFromGraph(c)
	sess := e.session
	start := time.Now()
	loop.Go(e.loop, e.ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.client.Delete(ctx, rel)
		},
		func(_ struct{}, err error) {
			observability.Sync().OnDelete(e.ctx, KindRelation, rel.Collection, time.Since(start), err)
			if e.session != sess {
				return
			}
			if err != nil {
				e.fail(errors.ErrCodeDeleteFailure, err, "delete relation %s", rel.ID)
				return
			}
			e.links.Remove(c)
			if cause != diagram.CascadeFromNodeRemoval {
				e.saver.Schedule(e.ctx)
			}
			e.logger.Info("relation deleted", "cell", c.ID, "id", rel.ID, "cause", cause)
		},
	)
}

func (e *Engine) positionChanged(id string) {
	c, ok := e.surface.Cell(id)
	if !ok || e.isTentative(c) {
		return
	}
	e.saver.Schedule(e.ctx)
}

// =============================================================================
// Helpers
// =============================================================================

func (e *Engine) requireLoaded() error {
	if e.session == nil || !e.loaded {
		return errors.New(errors.ErrCodeInvalidInput, "no graph loaded")
	}
	return nil
}

// stale reports whether a backend answer belongs to an earlier session. The
// caller rolls back its optimistic cell, which the new session never
// registered.
func (e *Engine) stale(sess *session.Session, c *diagram.Cell) bool {
	if e.session == sess {
		return false
	}
	e.logger.Debug("dropping result from previous session", "cell", c.ID)
	return true
}

func (e *Engine) endpointEntity(cellID string) (resource.Resource, bool) {
	c, ok := e.surface.Cell(cellID)
	if !ok {
		return resource.Resource{}, false
	}
	return e.entities.GetSingle(c)
}

// highlight selects c on the surface and commits it as the selection.
func (e *Engine) highlight(c *diagram.Cell) {
	ids := e.surface.Highlight(c.ID)
	e.selection.Select(ids)
	e.selection.SyncSelection()
}

// withQuery returns attrs with the source query filled in, so new resources
// match the spec they are loaded with.
func withQuery(attrs map[string]any, query map[string]string) map[string]any {
	out := maps.Clone(attrs)
	if out == nil {
		out = make(map[string]any, len(query))
	}
	for k, v := range query {
		if _, set := out[k]; !set {
			out[k] = v
		}
	}
	return out
}
