package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Sync hooks
	s := NoopSyncHooks{}
	s.OnLoadStage(ctx, "container", time.Second, nil)
	s.OnLoadComplete(ctx, 10, 4, 14, time.Second, nil)
	s.OnCreate(ctx, "entity", "people", time.Second, nil)
	s.OnDelete(ctx, "relation", "links", time.Second, errors.New("boom"))
	s.OnSave(ctx, 2048, time.Second, nil)

	// Store hooks
	st := NoopStoreHooks{}
	st.OnRequest(ctx, "redis", "create", "people")
	st.OnResponse(ctx, "redis", "create", "people", time.Second)
	st.OnError(ctx, "redis", "create", "people", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Sync().(NoopSyncHooks); !ok {
		t.Error("Sync() should return NoopSyncHooks by default")
	}
	if _, ok := Store().(NoopStoreHooks); !ok {
		t.Error("Store() should return NoopStoreHooks by default")
	}

	customSync := &testSyncHooks{}
	SetSyncHooks(customSync)
	if Sync() != customSync {
		t.Error("SetSyncHooks should set custom hooks")
	}

	customStore := &testStoreHooks{}
	SetStoreHooks(customStore)
	if Store() != customStore {
		t.Error("SetStoreHooks should set custom hooks")
	}

	Reset()
	if _, ok := Sync().(NoopSyncHooks); !ok {
		t.Error("Reset() should restore NoopSyncHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSyncHooks{}
	SetSyncHooks(custom)
	SetSyncHooks(nil)

	if Sync() != custom {
		t.Error("SetSyncHooks(nil) should be ignored")
	}

	Reset()
}

func TestObserveStore(t *testing.T) {
	Reset()
	defer Reset()

	h := &testStoreHooks{}
	SetStoreHooks(h)
	ctx := context.Background()

	if err := ObserveStore(ctx, "memory", "fetch", "people", func() error { return nil }); err != nil {
		t.Fatalf("ObserveStore() error = %v", err)
	}
	if h.requests != 1 || h.responses != 1 || h.errors != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0", h.requests, h.responses, h.errors)
	}

	boom := errors.New("boom")
	if err := ObserveStore(ctx, "memory", "fetch", "people", func() error { return boom }); err != boom {
		t.Errorf("ObserveStore() error = %v, want %v", err, boom)
	}
	if h.requests != 2 || h.responses != 1 || h.errors != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", h.requests, h.responses, h.errors)
	}
}

// Test implementations
type testSyncHooks struct{ NoopSyncHooks }

type testStoreHooks struct {
	NoopStoreHooks
	requests, responses, errors int
}

func (h *testStoreHooks) OnRequest(context.Context, string, string, string) { h.requests++ }
func (h *testStoreHooks) OnResponse(context.Context, string, string, string, time.Duration) {
	h.responses++
}
func (h *testStoreHooks) OnError(context.Context, string, string, string, error) { h.errors++ }
