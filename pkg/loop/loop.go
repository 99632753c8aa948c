// Package loop provides a single-threaded cooperative task loop.
//
// Every piece of synchronization state (registries, selection, the diagram
// surface) is touched only from tasks running on the loop, so none of it needs
// locking. Blocking backend calls run on their own goroutines through [Go],
// which posts the continuation back onto the loop when the call returns.
//
// A task posted with [Loop.Post] runs after every task already queued, which
// makes Post the "end of the current turn" deferral point used to coalesce work.
package loop

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Loop runs posted tasks one at a time in FIFO order.
type Loop struct {
	mu       sync.Mutex
	queue    []func()
	inflight int
	wake     chan struct{}
	logger   *log.Logger
}

// New creates an idle loop. If logger is nil, log.Default() is used.
func New(logger *log.Logger) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Post appends fn to the task queue. It is safe to call from any goroutine,
// including from a task running on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Pending reports the number of queued tasks and in-flight async calls.
func (l *Loop) Pending() (tasks, inflight int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue), l.inflight
}

// Run processes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop running")
	for {
		if fn, ok := l.next(); ok {
			fn()
			continue
		}
		select {
		case <-ctx.Done():
			tasks, inflight := l.Pending()
			l.logger.Debug("loop stopped", "queued", tasks, "inflight", inflight)
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// RunUntilIdle processes tasks until the queue is empty and no async call is
// in flight, or until ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		if fn, ok := l.next(); ok {
			fn()
			continue
		}
		if l.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do posts fn and blocks until it has run on the loop. It must not be called
// from a loop task, and a loop must be running in another goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs op on a new goroutine and posts then(result, err) back onto the
// loop once op returns. The loop counts the call as in flight until the
// continuation is queued, so RunUntilIdle waits for it.
func Go[T any](l *Loop, ctx context.Context, op func(context.Context) (T, error), then func(T, error)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		res, err := op(ctx)
		l.mu.Lock()
		l.queue = append(l.queue, func() { then(res, err) })
		l.inflight--
		l.mu.Unlock()
		l.signal()
	}()
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0 && l.inflight == 0
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
