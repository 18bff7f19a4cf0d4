package actionlogcorr_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcorr"
)

func TestCorrelationRoundTrip(t *testing.T) {
	t.Parallel()

	ma := actionlog.NewManager(actionlog.ManagerConfig{App: "app-a", Sink: actionlog.SinkFunc(func(*actionlog.ActionDocument) {})})

	// A is a root action in app-a making an outbound call.
	_, a := ma.Begin(context.Background(), "http:GET:/hello", "")

	h := http.Header{}
	actionlogcorr.Inject(h, a, "app-a")

	// B receives the call in app-b.
	var bdoc *actionlog.ActionDocument
	mb := actionlog.NewManager(actionlog.ManagerConfig{App: "app-b", Sink: actionlog.SinkFunc(func(d *actionlog.ActionDocument) { bdoc = d })})

	_, b := mb.Begin(context.Background(), "http:GET:/downstream", "")
	actionlogcorr.Extract(h).Apply(b)
	mb.End(b, nil)

	if diff := cmp.Diff([]string{a.ID()}, bdoc.RefIDs); diff != "" {
		t.Errorf("ref ids mismatch (-want +have):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"app-a"}, bdoc.Clients); diff != "" {
		t.Errorf("clients mismatch (-want +have):\n%s", diff)
	}
	if diff := cmp.Diff([]string{a.ID()}, bdoc.CorrelationIDs); diff != "" {
		t.Errorf("correlation ids mismatch (-want +have):\n%s", diff)
	}
	if bdoc.IsRoot {
		t.Error("downstream action must not be a root")
	}

	ma.End(a, nil)
}

func TestCorrelationPassThrough(t *testing.T) {
	t.Parallel()

	// B is itself downstream of root R; its outbound headers must carry R's
	// id as the correlation id, not B's own.
	rootID := "aaaaaaaaaaaaaaaaaaaaaaaa"

	m := actionlog.NewManager(actionlog.ManagerConfig{App: "app-b", Sink: actionlog.SinkFunc(func(*actionlog.ActionDocument) {})})
	_, b := m.Begin(context.Background(), "kafka:topic-x", "")
	b.SetUpstream([]string{rootID}, []string{"bbbbbbbbbbbbbbbbbbbbbbbb"}, []string{"app-a"})

	h := http.Header{}
	actionlogcorr.Inject(h, b, "app-b")

	if want, have := rootID, h.Get(actionlogcorr.HeaderCorrelationID); want != have {
		t.Errorf("want correlation id %s, have %s", want, have)
	}
	if want, have := b.ID(), h.Get(actionlogcorr.HeaderRefID); want != have {
		t.Errorf("want ref id %s, have %s", want, have)
	}
	if want, have := "app-b", h.Get(actionlogcorr.HeaderClient); want != have {
		t.Errorf("want client %s, have %s", want, have)
	}

	m.End(b, nil)
}

func TestCorrelationMultipleIDs(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set(actionlogcorr.HeaderCorrelationID, "aaaaaaaaaaaaaaaaaaaaaaaa, bbbbbbbbbbbbbbbbbbbbbbbb")

	up := actionlogcorr.Extract(h)

	want := []string{"aaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbb"}
	if diff := cmp.Diff(want, up.CorrelationIDs); diff != "" {
		t.Errorf("correlation ids mismatch (-want +have):\n%s", diff)
	}
}

func TestCascadePropagation(t *testing.T) {
	t.Parallel()

	var doc *actionlog.ActionDocument
	m := actionlog.NewManager(actionlog.ManagerConfig{App: "app-b", Sink: actionlog.SinkFunc(func(d *actionlog.ActionDocument) { doc = d })})

	// A has trace=CASCADE; its outbound headers carry x-trace=CASCADE.
	_, a := m.Begin(context.Background(), "http:GET:/x", "")
	a.SetTraceMode(actionlog.TraceCascade)

	h := http.Header{}
	actionlogcorr.Inject(h, a, "app-a")

	if want, have := "CASCADE", h.Get(actionlogcorr.HeaderTrace); want != have {
		t.Errorf("want x-trace %s, have %s", want, have)
	}

	// B inherits CASCADE, flushes its trace with no warn events, and
	// re-emits the header downstream.
	up := actionlogcorr.Extract(h)
	_, b := m.Begin(context.Background(), "http:GET:/y", "")
	up.Apply(b)

	if want, have := actionlog.TraceCascade, b.TraceMode(); want != have {
		t.Errorf("want trace mode %s, have %s", want, have)
	}

	h2 := http.Header{}
	actionlogcorr.Inject(h2, b, "app-b")
	if want, have := "CASCADE", h2.Get(actionlogcorr.HeaderTrace); want != have {
		t.Errorf("want re-emitted x-trace %s, have %s", want, have)
	}

	b.Infof("routine event")
	m.End(b, nil)

	if doc.TraceLog == "" {
		t.Error("want trace log present under CASCADE regardless of events")
	}

	m.End(a, nil)
}

func TestCurrentDoesNotCrossHops(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	h.Set(actionlogcorr.HeaderTrace, "CURRENT")

	up := actionlogcorr.Extract(h)
	if want, have := actionlog.TraceNone, up.Trace; want != have {
		t.Errorf("want %s on receive of CURRENT, have %s", want, have)
	}
}
