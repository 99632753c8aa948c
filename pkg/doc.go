// Package pkg provides the core libraries for graphsync diagram synchronization.
//
// # Overview
//
// graphsync keeps a node-and-link diagram in step with a backend domain
// model. Every chart node stands for a backend entity, every link for a
// relation, and the diagram layout itself is saved on a container resource.
//
// # Architecture
//
// The data flow of one session:
//
//	Backend store (memory, Redis, MongoDB)
//	         ↓
//	    [engine] load: container → entity sources in order → relations
//	         ↓
//	    [registry] entity and link registries
//	         ↓
//	    [diagram] surface cells
//	         ↓
//	    [engine] mutations ←→ [resource] client
//	         ↓
//	    [persist] coalesced layout save
//
// All session state lives on one [loop.Loop]. Backend calls run on their own
// goroutines and post their continuations back onto the loop, so handlers
// never need locks.
//
// # Quick Start
//
//	l := loop.New(logger)
//	surface := diagram.NewMemory()
//	eng := engine.New(ctx, engine.Config{Loop: l, Client: store, Surface: surface})
//
//	if err := eng.Load(ctx, desc); err != nil {
//	    return err
//	}
//	if err := l.RunUntilIdle(ctx); err != nil {
//	    return err
//	}
//
// # Main Packages
//
// [engine] - Load orchestration and the mutation coordinator that turns
// diagram events into backend creates and deletes, with optimistic rollback.
//
// [registry] - Entity and link registries correlating cells with resources
// and tracking which entities are placed on the diagram.
//
// [selection] - Selection tracker with empty, pending and committed states.
//
// [persist] - Persistence scheduler that coalesces layout saves per loop turn.
//
// [loop] - Cooperative single-threaded task loop.
//
// [resource] - Backend client interface with memory, Redis and MongoDB stores.
//
// [diagram] - Cell model, saved layout format and an in-memory surface.
//
// [events] - Typed events published to the embedding application.
//
// [session] - Session descriptors: entity sources, relations and container.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for load stages, backend calls and saves.
package pkg
