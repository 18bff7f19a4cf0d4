package actionloghttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogdiagram"
)

const graphvizContentType = "text/vnd.graphviz"

// Server serves the diagram and document query APIs over a collector's
// store. Its own requests run as actions like everything else, via the
// manager's middleware.
type Server struct {
	store  actionlogdiagram.Store
	router chi.Router
}

var _ http.Handler = (*Server)(nil)

// NewServer constructs a Server over the given store, wrapped in the
// manager's action middleware.
func NewServer(m *actionlog.Manager, store actionlogdiagram.Store) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(Middleware(m, nil))
	r.Get("/diagram/arch", s.handleArchDiagram)
	r.Get("/diagram/action/{id}", s.handleActionDiagram)
	r.Get("/actions/{id}", s.handleGetAction)
	r.Get("/actions", s.handleQueryActions)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleArchDiagram serves GET /diagram/arch?hours=N&exclude=a,b.
func (s *Server) handleArchDiagram(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.fail(w, r, actionlog.ErrorCodeValidationError, "invalid hours")
			return
		}
		hours = n
	}

	var exclude []string
	if v := r.URL.Query().Get("exclude"); v != "" {
		exclude = strings.Split(v, ",")
	}

	dot, err := actionlogdiagram.Arch(r.Context(), s.store, hours, exclude)
	if err != nil {
		s.fail(w, r, actionlog.ErrorCodeRemoteServiceError, "arch diagram failed")
		return
	}

	w.Header().Set("content-type", graphvizContentType)
	w.Write([]byte(dot))
}

// handleActionDiagram serves GET /diagram/action/{id}.
func (s *Server) handleActionDiagram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dot, err := actionlogdiagram.Action(r.Context(), s.store, id)
	switch {
	case errors.Is(err, actionlogdiagram.ErrNotFound):
		s.fail(w, r, actionlog.ErrorCodeNotFound, "unknown action id")
		return
	case err != nil:
		s.fail(w, r, actionlog.ErrorCodeRemoteServiceError, "action diagram failed")
		return
	}

	w.Header().Set("content-type", graphvizContentType)
	w.Write([]byte(dot))
}

// handleGetAction serves GET /actions/{id}, returning the stored document.
func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, actionlogdiagram.ErrNotFound):
		s.fail(w, r, actionlog.ErrorCodeNotFound, "unknown action id")
		return
	case err != nil:
		s.fail(w, r, actionlog.ErrorCodeRemoteServiceError, "get action failed")
		return
	}

	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

// handleQueryActions serves GET /actions?correlation-id=x,y&limit=N,
// returning documents whose correlation id set intersects the given ids.
func (s *Server) handleQueryActions(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("correlation-id"), ",")
	var clean []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		s.fail(w, r, actionlog.ErrorCodeValidationError, "correlation-id is required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.fail(w, r, actionlog.ErrorCodeValidationError, "invalid limit")
			return
		}
		limit = n
	}

	docs, err := s.store.ByCorrelation(r.Context(), clean, limit)
	if err != nil {
		s.fail(w, r, actionlog.ErrorCodeRemoteServiceError, "query actions failed")
		return
	}

	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(docs)
}

// fail records the error code on the current action and answers with the
// translated HTTP status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, errorCode, message string) {
	if al, ok := actionlog.Current(r.Context()); ok {
		ev := actionlog.MakeEvent(levelForStatus(StatusFor(errorCode)), "http", "%s", message)
		ev.ErrorCode = errorCode
		al.Process(ev)
	}
	http.Error(w, message, StatusFor(errorCode))
}
