package engine

import (
	"context"
	"time"

	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/events"
	"github.com/matzehuels/graphsync/pkg/loop"
	"github.com/matzehuels/graphsync/pkg/observability"
	"github.com/matzehuels/graphsync/pkg/registry"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/session"
)

// Load stages reported to observability hooks.
const (
	StageContainer = "container"
	StageEntities  = "entities"
	StageRelations = "relations"
	StageDiagram   = "diagram"
)

// Load starts a new session for desc. It resets the registries and the
// selection, then runs the load stages in order on the loop:
//
//  1. fetch the container
//  2. fetch every entity source, each after the previous one returned
//  3. register the entities and publish EntitiesLoaded
//  4. fetch and register the relations and publish RelationsLoaded
//  5. publish ResourcesLoaded, then add the saved cells to the surface
//
// Load returns after validating desc; stages run as the loop turns. A failing
// stage stops the load and publishes a LOAD_FAILURE application error. State
// registered by earlier stages is kept. The surface must be empty: cells left
// from an earlier session would not be registered in the new one.
func (e *Engine) Load(ctx context.Context, desc session.Descriptor) error {
	if e.loading {
		return errors.New(errors.ErrCodeInvalidInput, "a load is already running")
	}
	if n := e.surface.Len(); n > 0 {
		return errors.New(errors.ErrCodeInvalidInput, "surface still holds %d cells, clear it before loading", n)
	}
	sess, err := session.New(desc)
	if err != nil {
		return err
	}

	e.session = sess
	e.idKey = sess.Descriptor.IDKey
	e.entities = registry.NewEntities(e.idKey)
	e.links = registry.NewLinks(e.idKey)
	e.tentative = make(map[string]*handle)
	e.selection.Clear()
	e.saver.SetContainer(resource.Container{})
	e.loading = true
	e.loaded = false

	e.logger.Info("loading graph", "session", sess.ID,
		"container", sess.Descriptor.Container.ID, "sources", len(sess.Descriptor.Entities))

	l := &loader{e: e, ctx: ctx, sess: sess, start: time.Now()}
	l.fetchContainer()
	return nil
}

// loader carries one load through its stages.
type loader struct {
	e     *Engine
	ctx   context.Context
	sess  *session.Session
	start time.Time

	container   resource.Container
	collections []registry.Collection
	relations   []resource.Resource
}

func (l *loader) fetchContainer() {
	ref := l.sess.Descriptor.Container
	start := time.Now()
	loop.Go(l.e.loop, l.ctx,
		func(ctx context.Context) (resource.Resource, error) {
			return l.e.client.FetchOne(ctx, ref.Collection, ref.ID)
		},
		func(r resource.Resource, err error) {
			l.stageDone(StageContainer, start, err)
			if err != nil {
				l.abort(err, "fetch container %s/%s", ref.Collection, ref.ID)
				return
			}
			l.container = resource.ContainerFromResource(r)
			l.e.saver.SetContainer(l.container)
			l.fetchEntities(0)
		},
	)
}

// fetchEntities fetches source i and chains the next one from its
// continuation, so sources are requested strictly in descriptor order.
func (l *loader) fetchEntities(i int) {
	sources := l.sess.Descriptor.Entities
	if i == len(sources) {
		l.e.entities.Set(l.collections)
		l.e.bus.Publish(events.EntitiesLoaded{Collections: l.e.entities.Collections()})
		l.fetchRelations()
		return
	}

	src := sources[i]
	start := time.Now()
	l.e.logger.Debug("fetching entities", "key", src.Key, "collection", src.Spec.Collection)
	loop.Go(l.e.loop, l.ctx,
		func(ctx context.Context) ([]resource.Resource, error) {
			return l.e.client.FetchCollection(ctx, src.Spec)
		},
		func(rs []resource.Resource, err error) {
			l.stageDone(StageEntities+":"+src.Key, start, err)
			if err != nil {
				l.abort(err, "fetch entities %q", src.Key)
				return
			}
			l.collections = append(l.collections, registry.Collection{Key: src.Key, Resources: rs})
			l.fetchEntities(i + 1)
		},
	)
}

func (l *loader) fetchRelations() {
	spec := l.sess.Descriptor.Relations
	start := time.Now()
	loop.Go(l.e.loop, l.ctx,
		func(ctx context.Context) ([]resource.Resource, error) {
			return l.e.client.FetchCollection(ctx, spec)
		},
		func(rs []resource.Resource, err error) {
			l.stageDone(StageRelations, start, err)
			if err != nil {
				l.abort(err, "fetch relations %q", spec.Collection)
				return
			}
			l.relations = rs
			l.e.links.Set(rs)
			l.e.bus.Publish(events.RelationsLoaded{Relations: l.e.links.Relations()})
			l.e.bus.Publish(events.ResourcesLoaded{SessionID: l.sess.ID})
			l.populate()
		},
	)
}

// populate adds the saved layout to the surface. Only entities and relations
// referenced by saved cells are marked present.
func (l *loader) populate() {
	start := time.Now()
	content, err := diagram.ParseContent(l.container.Content)
	l.stageDone(StageDiagram, start, err)
	if err != nil {
		l.abort(err, "parse container %s content", l.container.ID)
		return
	}

	for _, c := range content.Cells {
		switch {
		case c.IsChartNode:
			if !l.e.entities.MarkPresentOnGraph(c) {
				l.e.logger.Warn("saved node has no entity", "cell", c.ID, "key", c.EntityKey)
			}
		case c.IsLink():
			l.e.links.MarkPresentOnGraph(c)
		}
	}
	l.e.surface.AddCells(content.Cells)

	l.e.loading = false
	l.e.loaded = true
	observability.Sync().OnLoadComplete(l.ctx, l.e.entities.Len(), len(l.relations), len(content.Cells), time.Since(l.start), nil)
	l.e.logger.Info("graph loaded", "session", l.sess.ID,
		"entities", l.e.entities.Len(), "relations", len(l.relations), "cells", len(content.Cells),
		"took", time.Since(l.start).Round(time.Millisecond))
}

func (l *loader) stageDone(stage string, start time.Time, err error) {
	observability.Sync().OnLoadStage(l.ctx, stage, time.Since(start), err)
}

func (l *loader) abort(err error, format string, args ...any) {
	l.e.loading = false
	observability.Sync().OnLoadComplete(l.ctx, l.e.entities.Len(), l.e.links.Len(), 0, time.Since(l.start), err)
	l.e.fail(errors.ErrCodeLoadFailure, err, format, args...)
}
