package engine

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/matzehuels/graphsync/pkg/observability"
)

type recordingHooks struct {
	observability.NoopSyncHooks
	stages  []string
	creates []string
	saves   int
	loaded  int
}

func (h *recordingHooks) OnLoadStage(_ context.Context, stage string, _ time.Duration, _ error) {
	h.stages = append(h.stages, stage)
}

func (h *recordingHooks) OnLoadComplete(_ context.Context, entities, _, _ int, _ time.Duration, err error) {
	if err == nil {
		h.loaded = entities
	}
}

func (h *recordingHooks) OnCreate(_ context.Context, kind, collection string, _ time.Duration, _ error) {
	h.creates = append(h.creates, kind+":"+collection)
}

func (h *recordingHooks) OnSave(context.Context, int, time.Duration, error) {
	h.saves++
}

func TestSyncHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetSyncHooks(hooks)
	defer observability.Reset()

	f := newFixture(t, "")
	f.load()
	f.turn(func() { _, _ = f.engine.Drop(DropCommand{EntityKey: "teams"}) })

	wantStages := []string{"container", "entities:people", "entities:teams", "relations", "diagram"}
	if !slices.Equal(hooks.stages, wantStages) {
		t.Errorf("stages = %v, want %v", hooks.stages, wantStages)
	}
	if hooks.loaded != 3 {
		t.Errorf("loaded entities = %d, want 3", hooks.loaded)
	}
	if !slices.Equal(hooks.creates, []string{"entity:teams"}) {
		t.Errorf("creates = %v", hooks.creates)
	}
	if hooks.saves != 1 {
		t.Errorf("saves = %d, want 1", hooks.saves)
	}
}
