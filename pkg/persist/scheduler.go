// Package persist saves the diagram layout onto its backend container.
//
// Saves are coalesced per loop turn: any number of [Scheduler.Schedule] calls
// made before the loop gets to the deferred save produce one serialization and
// one backend update, reflecting every mutation made up to that point.
//
// At most one update is in flight. A save requested while another is running
// is sent when that one completes, with the layout serialized at that time, so
// the backend always ends up holding the newest layout.
package persist

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/loop"
	"github.com/matzehuels/graphsync/pkg/observability"
	"github.com/matzehuels/graphsync/pkg/resource"
)

// Serializer produces the persisted layout. diagram.Surface implements it.
type Serializer interface {
	Serialize() ([]byte, error)
}

// Scheduler coalesces save requests and writes the layout to the container.
// All methods must be called from the loop.
type Scheduler struct {
	loop      *loop.Loop
	client    resource.Client
	surface   Serializer
	logger    *log.Logger
	container resource.Container
	onError   func(error)

	pending  bool
	inflight bool // an Update has been issued and not completed
	dirty    bool // a save was requested while inflight
	seq      int  // last issued save
	acked    int  // last save acknowledged by the backend
}

// New creates a scheduler. If logger is nil, log.Default() is used.
func New(l *loop.Loop, client resource.Client, surface Serializer, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		loop:    l,
		client:  client,
		surface: surface,
		logger:  logger,
	}
}

// SetContainer sets the container saves are written to.
// A save still owed to the previous container is dropped.
func (s *Scheduler) SetContainer(c resource.Container) {
	s.container = c
	s.dirty = false
}

// Container returns the container as of the last acknowledged save.
func (s *Scheduler) Container() resource.Container {
	return s.container
}

// OnError sets the function receiving SAVE_FAILURE errors.
func (s *Scheduler) OnError(fn func(error)) {
	s.onError = fn
}

// Schedule requests a save at the end of the current turn. Calls made while a
// save is already scheduled are absorbed by it.
func (s *Scheduler) Schedule(ctx context.Context) {
	if s.pending {
		return
	}
	s.pending = true
	s.loop.Post(func() { s.flush(ctx) })
}

// Pending reports whether a save is scheduled but not yet issued.
func (s *Scheduler) Pending() bool { return s.pending || s.dirty }

// Inflight reports whether a backend update is running.
func (s *Scheduler) Inflight() bool { return s.inflight }

// Saves returns the number of backend updates issued so far.
func (s *Scheduler) Saves() int { return s.seq }

func (s *Scheduler) flush(ctx context.Context) {
	s.pending = false
	if s.inflight {
		s.dirty = true
		return
	}

	if s.container.ID == "" {
		s.fail(errors.New(errors.ErrCodeSaveFailure, "save graph: no container loaded"))
		return
	}

	data, err := s.surface.Serialize()
	if err != nil {
		s.fail(errors.Wrap(errors.ErrCodeSaveFailure, err, "serialize graph"))
		return
	}

	c := s.container
	c.Content = string(data)
	s.seq++
	seq := s.seq
	start := time.Now()
	s.inflight = true
	s.logger.Debug("saving graph", "container", c.ID, "bytes", len(data), "save", seq)

	loop.Go(s.loop, ctx,
		func(ctx context.Context) (resource.Resource, error) {
			return s.client.Update(ctx, c.Resource())
		},
		func(saved resource.Resource, err error) {
			observability.Sync().OnSave(ctx, len(data), time.Since(start), err)
			s.inflight = false
			if err != nil {
				s.fail(errors.Wrap(errors.ErrCodeSaveFailure, err, "save graph %s", c.ID))
			} else if seq > s.acked && saved.ID == s.container.ID {
				s.acked = seq
				s.container = resource.ContainerFromResource(saved)
			}
			if s.dirty {
				s.dirty = false
				s.flush(ctx)
			}
		},
	)
}

func (s *Scheduler) fail(err error) {
	s.logger.Error("save failed", "container", s.container.ID, "err", err)
	if s.onError != nil {
		s.onError(err)
	}
}
