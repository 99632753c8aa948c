// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about session loads, backend mutations, diagram saves and
// resource store calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSyncHooks(&mySyncHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Sync().OnLoadStage(ctx, "entities", duration, err)
//	observability.Store().OnRequest(ctx, "redis", "create", collection)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Sync Hooks
// =============================================================================

// SyncHooks receives events from the diagram synchronization engine.
type SyncHooks interface {
	// Load events
	OnLoadStage(ctx context.Context, stage string, duration time.Duration, err error)
	OnLoadComplete(ctx context.Context, entities, relations, cells int, duration time.Duration, err error)

	// Mutation events. Kind is "entity" or "relation".
	OnCreate(ctx context.Context, kind, collection string, duration time.Duration, err error)
	OnDelete(ctx context.Context, kind, collection string, duration time.Duration, err error)

	// OnSave records one persisted diagram content update.
	OnSave(ctx context.Context, size int, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from resource store backends.
type StoreHooks interface {
	// OnRequest records an outgoing store operation.
	OnRequest(ctx context.Context, backend, op, collection string)

	// OnResponse records a completed store operation.
	OnResponse(ctx context.Context, backend, op, collection string, duration time.Duration)

	// OnError records a failed store operation.
	OnError(ctx context.Context, backend, op, collection string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSyncHooks is a no-op implementation of SyncHooks.
type NoopSyncHooks struct{}

func (NoopSyncHooks) OnLoadStage(context.Context, string, time.Duration, error) {}
func (NoopSyncHooks) OnLoadComplete(context.Context, int, int, int, time.Duration, error) {
}
func (NoopSyncHooks) OnCreate(context.Context, string, string, time.Duration, error) {}
func (NoopSyncHooks) OnDelete(context.Context, string, string, time.Duration, error) {}
func (NoopSyncHooks) OnSave(context.Context, int, time.Duration, error)              {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnRequest(context.Context, string, string, string)                 {}
func (NoopStoreHooks) OnResponse(context.Context, string, string, string, time.Duration) {}
func (NoopStoreHooks) OnError(context.Context, string, string, string, error)            {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	syncHooks  SyncHooks  = NoopSyncHooks{}
	storeHooks StoreHooks = NoopStoreHooks{}
	hooksMu    sync.RWMutex
)

// SetSyncHooks registers custom sync hooks.
// This should be called once at application startup before any session loads.
func SetSyncHooks(h SyncHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		syncHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Sync returns the registered sync hooks.
func Sync() SyncHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return syncHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	syncHooks = NoopSyncHooks{}
	storeHooks = NoopStoreHooks{}
}

// ObserveStore wraps a single store call with request/response/error hooks.
func ObserveStore(ctx context.Context, backend, op, collection string, fn func() error) error {
	h := Store()
	h.OnRequest(ctx, backend, op, collection)
	start := time.Now()
	if err := fn(); err != nil {
		h.OnError(ctx, backend, op, collection, err)
		return err
	}
	h.OnResponse(ctx, backend, op, collection, time.Since(start))
	return nil
}
