package actionloghttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogdiagram"
	"github.com/corewire/actionlog/actionloghttp"
)

type fakeStore struct {
	docs map[string]*actionlog.ActionDocument
}

func (s *fakeStore) Get(ctx context.Context, id string) (*actionlog.ActionDocument, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, actionlogdiagram.ErrNotFound
	}
	return doc, nil
}

func (s *fakeStore) ByIDs(ctx context.Context, ids []string) ([]*actionlog.ActionDocument, error) {
	var out []*actionlog.ActionDocument
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *fakeStore) ByCorrelation(ctx context.Context, correlationIDs []string, limit int) ([]*actionlog.ActionDocument, error) {
	want := map[string]bool{}
	for _, id := range correlationIDs {
		want[id] = true
	}

	var out []*actionlog.ActionDocument
	for _, doc := range s.docs {
		for _, cid := range doc.CorrelationIDs {
			if want[cid] {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) Aggregate(ctx context.Context, hours int) ([]actionlogdiagram.AggRow, error) {
	return []actionlogdiagram.AggRow{
		{App: "svc-b", Action: "http:GET:/one", Client: "svc-a", Count: 1},
	}, nil
}

func newTestServer() *actionloghttp.Server {
	m := actionlog.NewManager(actionlog.ManagerConfig{App: "query-server", Sink: actionlog.SinkFunc(func(*actionlog.ActionDocument) {})})
	store := &fakeStore{docs: map[string]*actionlog.ActionDocument{
		"aaaaaaaaaaaaaaaaaaaaaaaa": {
			ID: "aaaaaaaaaaaaaaaaaaaaaaaa", App: "svc-a", Action: "http:GET:/root",
			CorrelationIDs: []string{"aaaaaaaaaaaaaaaaaaaaaaaa"}, IsRoot: true,
		},
	}}
	return actionloghttp.NewServer(m, store)
}

func TestServerArchDiagram(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest("GET", "/diagram/arch?hours=12", nil))

	if want, have := http.StatusOK, rec.Code; want != have {
		t.Fatalf("want status %d, have %d: %s", want, have, rec.Body.String())
	}
	if want, have := "text/vnd.graphviz", rec.Header().Get("content-type"); want != have {
		t.Errorf("want content type %q, have %q", want, have)
	}
	if !strings.Contains(rec.Body.String(), "digraph arch") {
		t.Errorf("want dot output, have %q", rec.Body.String())
	}
}

func TestServerActionDiagram(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest("GET", "/diagram/action/aaaaaaaaaaaaaaaaaaaaaaaa", nil))

	if want, have := http.StatusOK, rec.Code; want != have {
		t.Fatalf("want status %d, have %d: %s", want, have, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "digraph action") {
		t.Errorf("want dot output, have %q", rec.Body.String())
	}
}

func TestServerActionDiagramNotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest("GET", "/diagram/action/unknown", nil))

	if want, have := http.StatusNotFound, rec.Code; want != have {
		t.Errorf("want status %d, have %d", want, have)
	}
}

func TestServerGetAction(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest("GET", "/actions/aaaaaaaaaaaaaaaaaaaaaaaa", nil))

	if want, have := http.StatusOK, rec.Code; want != have {
		t.Fatalf("want status %d, have %d", want, have)
	}

	var doc actionlog.ActionDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want, have := "http:GET:/root", doc.Action; want != have {
		t.Errorf("want action %q, have %q", want, have)
	}
}

func TestServerQueryActionsValidation(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest("GET", "/actions", nil))

	if want, have := http.StatusBadRequest, rec.Code; want != have {
		t.Errorf("want status %d, have %d", want, have)
	}
}
