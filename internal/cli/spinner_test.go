package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerShowsMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "loading graph")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("loaded entities:people")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "loading graph") {
		t.Error("output should contain the initial message")
	}
	if !strings.Contains(got, "loaded entities:people") {
		t.Error("output should contain the updated message")
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after Stop")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, &syncBuffer{}, "loading")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "loading")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestStageHooks(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "loading")
	h := stageHooks{spinner: s}

	h.OnLoadStage(context.Background(), "relations", time.Millisecond, nil)
	if s.message != "loaded relations" {
		t.Errorf("message = %q, want %q", s.message, "loaded relations")
	}
	h.OnLoadStage(context.Background(), "diagram", time.Millisecond, context.Canceled)
	if s.message != "loaded relations" {
		t.Errorf("message changed on failed stage: %q", s.message)
	}
}
