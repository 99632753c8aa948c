package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/graphsync/pkg/buildinfo"
	"github.com/matzehuels/graphsync/pkg/diagram"
	"github.com/matzehuels/graphsync/pkg/engine"
	"github.com/matzehuels/graphsync/pkg/errors"
	"github.com/matzehuels/graphsync/pkg/loop"
	"github.com/matzehuels/graphsync/pkg/resource"
	"github.com/matzehuels/graphsync/pkg/selection"
)

// maxRecentErrors bounds the GET /errors response.
const maxRecentErrors = 50

// server exposes a workspace over HTTP. Every handler touches engine state
// through onLoop, so the loop must be running.
type server struct {
	ws     *workspace
	logger *log.Logger
}

func newRouter(ws *workspace, logger *log.Logger) http.Handler {
	s := &server{ws: ws, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/diagram", s.getDiagram)
	r.Post("/nodes", s.dropNode)
	r.Delete("/nodes/{id}", s.removeCell(true))
	r.Patch("/nodes/{id}/position", s.moveNode)
	r.Post("/links", s.connect)
	r.Delete("/links/{id}", s.removeCell(false))
	r.Get("/entities", s.listEntities)
	r.Delete("/entities/{key}/{id}", s.removeEntity)
	r.Get("/selection", s.getSelection)
	r.Post("/selection/{op}", s.changeSelection)
	r.Get("/errors", s.listErrors)
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set("Server", buildinfo.UserAgent())
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "took", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// result carries a loop task's answer back to its handler.
type result[T any] struct {
	val T
	err error
}

// onLoop runs fn on l and returns its answer. If ctx ends first, fn still runs
// later, but its answer lands in the buffered channel and is dropped.
func onLoop[T any](ctx context.Context, l *loop.Loop, fn func() (T, error)) (T, error) {
	ch := make(chan result[T], 1)
	if err := l.Do(ctx, func() {
		v, err := fn()
		ch <- result[T]{v, err}
	}); err != nil {
		var zero T
		return zero, errors.Wrap(errors.ErrCodeTimeout, err, "request cancelled")
	}
	res := <-ch
	return res.val, res.err
}

// =============================================================================
// Handlers
// =============================================================================

func (s *server) getDiagram(w http.ResponseWriter, r *http.Request) {
	data, err := onLoop(r.Context(), s.ws.loop, s.ws.surface.Serialize)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *server) dropNode(w http.ResponseWriter, r *http.Request) {
	var cmd engine.DropCommand
	if !decode(w, r, &cmd) {
		return
	}
	cell, err := onLoop(r.Context(), s.ws.loop, func() (*diagram.Cell, error) {
		c, err := s.ws.engine.Drop(cmd)
		if err != nil {
			return nil, err
		}
		return c.Clone(), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cell)
}

func (s *server) removeCell(node bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, err := onLoop(r.Context(), s.ws.loop, func() (struct{}, error) {
			c, ok := s.ws.surface.Cell(id)
			if !ok || c.IsChartNode != node {
				return struct{}{}, errors.New(errors.ErrCodeCellNotFound, "no such cell %q", id)
			}
			return struct{}{}, s.ws.engine.Remove(id)
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *server) moveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var to diagram.Point
	if !decode(w, r, &to) {
		return
	}
	_, err := onLoop(r.Context(), s.ws.loop, func() (struct{}, error) {
		if err := s.ws.surface.Move(id, to); err != nil {
			return struct{}{}, errors.Wrap(errors.ErrCodeCellNotFound, err, "move")
		}
		return struct{}{}, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *server) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decode(w, r, &req) {
		return
	}
	link, err := onLoop(r.Context(), s.ws.loop, func() (*diagram.Cell, error) {
		c, err := s.ws.surface.Connect(req.Source, req.Target)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "connect")
		}
		return c.Clone(), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, link)
}

type entityCollection struct {
	Key      string              `json:"key"`
	Entities []resource.Resource `json:"entities"`
	Placed   []string            `json:"placed"`
}

func (s *server) listEntities(w http.ResponseWriter, r *http.Request) {
	out, err := onLoop(r.Context(), s.ws.loop, func() ([]entityCollection, error) {
		var out []entityCollection
		reg := s.ws.engine.Entities()
		for _, col := range reg.Collections() {
			out = append(out, entityCollection{Key: col.Key, Entities: col.Resources, Placed: reg.Present(col.Key)})
		}
		return out, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) removeEntity(w http.ResponseWriter, r *http.Request) {
	cmd := engine.RemoveEntityCommand{
		Key:    chi.URLParam(r, "key"),
		Entity: resource.Resource{ID: chi.URLParam(r, "id")},
	}
	_, err := onLoop(r.Context(), s.ws.loop, func() (struct{}, error) {
		return struct{}{}, s.ws.engine.RemoveEntity(cmd)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type selectionResponse struct {
	State     string              `json:"state"`
	Selection selection.Selection `json:"selection"`
}

func (s *server) getSelection(w http.ResponseWriter, r *http.Request) {
	resp, err := onLoop(r.Context(), s.ws.loop, func() (selectionResponse, error) {
		return s.selection(), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type selectRequest struct {
	IDs []string `json:"ids"`
}

func (s *server) changeSelection(w http.ResponseWriter, r *http.Request) {
	op := chi.URLParam(r, "op")
	var req selectRequest
	if op == "select" && !decode(w, r, &req) {
		return
	}

	resp, err := onLoop(r.Context(), s.ws.loop, func() (selectionResponse, error) {
		tracker := s.ws.engine.Selection()
		switch op {
		case "select":
			s.ws.surface.Select(req.IDs...)
		case "sync":
			tracker.SyncSelection()
		case "revert":
			tracker.RevertSelection()
			s.ws.surface.Highlight(tracker.Current().CellIDs...)
		case "clear":
			tracker.Clear()
			s.ws.surface.Highlight()
		case "discard":
			tracker.ClearAndRevert()
			s.ws.surface.Highlight()
		default:
			return selectionResponse{}, errors.New(errors.ErrCodeInvalidInput, "unknown selection operation %q", op)
		}
		return s.selection(), nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) selection() selectionResponse {
	tracker := s.ws.engine.Selection()
	return selectionResponse{State: tracker.State().String(), Selection: tracker.Current()}
}

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

func (s *server) listErrors(w http.ResponseWriter, r *http.Request) {
	out, err := onLoop(r.Context(), s.ws.loop, func() ([]errorResponse, error) {
		var out []errorResponse
		errs := s.ws.errs
		if len(errs) > maxRecentErrors {
			errs = errs[len(errs)-maxRecentErrors:]
		}
		for _, e := range errs {
			out = append(out, errorResponse{Code: e.Code, Error: e.Error()})
		}
		return out, nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Encoding
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorResponse{Code: code, Error: errors.UserMessage(err)})
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidKey:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeCellNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
