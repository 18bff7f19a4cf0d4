package actionlog

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestActionLogOKWithStat(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "id1")
	al.Stat("hit", 1)
	al.Stat("hit", 1)
	al.end(nil)

	doc := al.document("svc", "host1")

	if want, have := "OK", doc.Result; want != have {
		t.Errorf("want result %s, have %s", want, have)
	}
	if want, have := "", doc.ErrorCode; want != have {
		t.Errorf("want no error code, have %q", have)
	}
	if want, have := 2.0, doc.Stats["hit"]; want != have {
		t.Errorf("want stats.hit %v, have %v", want, have)
	}
	if doc.TraceLog != "" {
		t.Errorf("want no trace log, have %q", doc.TraceLog)
	}
}

func TestActionLogContextOverflow(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.Context("k", strings.Repeat("x", maxContextValueLengthDefault+1))
	al.end(nil)

	doc := al.document("svc", "host1")

	if want, have := "WARN", doc.Result; want != have {
		t.Errorf("want result %s, have %s", want, have)
	}
	if !strings.Contains(doc.ErrorMessage, "context value is too long") {
		t.Errorf("want overflow error message, have %q", doc.ErrorMessage)
	}
	if !strings.Contains(doc.ErrorMessage, "key=k") {
		t.Errorf("want key in error message, have %q", doc.ErrorMessage)
	}
	if diff := cmp.Diff([]string{""}, doc.Context["k"]); diff != "" {
		t.Errorf("context.k mismatch (-want +have):\n%s", diff)
	}
}

func TestActionLogContextOrder(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.Context("k", "a")
	al.Context("k", "b")
	al.Context("other", "c")
	al.end(nil)

	doc := al.document("svc", "host1")

	if diff := cmp.Diff([]string{"a", "b"}, doc.Context["k"]); diff != "" {
		t.Errorf("context.k mismatch (-want +have):\n%s", diff)
	}
}

func TestActionLogWarnDefaultsCode(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.Warnf("warn msg")
	al.end(nil)

	doc := al.document("svc", "host1")

	if want, have := "WARN", doc.Result; want != have {
		t.Errorf("want result %s, have %s", want, have)
	}
	if want, have := ErrorCodeUnassigned, doc.ErrorCode; want != have {
		t.Errorf("want error code %s, have %s", want, have)
	}
	if want, have := "warn msg", doc.ErrorMessage; want != have {
		t.Errorf("want error message %q, have %q", want, have)
	}
	if doc.TraceLog == "" {
		t.Error("want trace log present after warn event")
	}
}

func TestActionLogResultMonotonic(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")

	if want, have := ResultOK, al.Result(); want != have {
		t.Errorf("want initial %s, have %s", want, have)
	}

	al.Errorf("boom")
	if want, have := ResultError, al.Result(); want != have {
		t.Errorf("want %s after error, have %s", want, have)
	}

	// A later warning never downgrades.
	al.Warnf("anomaly")
	if want, have := ResultError, al.Result(); want != have {
		t.Errorf("want %s after late warn, have %s", want, have)
	}

	// Informational events never escalate.
	al2 := newActionLog("test", "")
	al2.Tracef("t")
	al2.Infof("i")
	if want, have := ResultOK, al2.Result(); want != have {
		t.Errorf("want %s after info events, have %s", want, have)
	}
}

func TestActionLogBeginTraceLine(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")

	if want, have := "actionlog - begin", al.Trace(1000, 10000); !strings.Contains(have, want) {
		t.Errorf("want %q in trace, have %q", want, have)
	}

	// The begin line is below WARN and does not force a flush on its own.
	if al.FlushTraceLog() {
		t.Error("begin line alone must not flush the trace")
	}
}

func TestActionLogFirstCodeWins(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.Warnf("first anomaly")

	// The first event at or above WARN claims the code slot, even with the
	// UNASSIGNED default; a later event carrying a real code never
	// reassigns it.
	ev := MakeEvent(LevelError, "", "not found")
	ev.ErrorCode = ErrorCodeNotFound
	al.Process(ev)

	if want, have := ErrorCodeUnassigned, al.ErrorCode(); want != have {
		t.Errorf("want code %s, have %s", want, have)
	}

	al.end(nil)
	doc := al.document("svc", "h")
	if want, have := "first anomaly", doc.ErrorMessage; want != have {
		t.Errorf("want message %q, have %q", want, have)
	}
	if want, have := "ERROR", doc.Result; want != have {
		t.Errorf("want result %s, have %s", want, have)
	}
}

func TestActionLogErrorMessageTruncated(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.Warnf("%s", strings.Repeat("y", maxContextValueLengthDefault+500))
	al.end(nil)

	doc := al.document("svc", "host1")

	if want, have := maxContextValueLengthDefault, len(doc.ErrorMessage); want != have {
		t.Errorf("want error message len %d, have %d", want, have)
	}
}

func TestActionLogTrackAggregation(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")

	if want, have := int64(1), al.Track("db", 1000, 1, 0); want != have {
		t.Errorf("want count %d, have %d", want, have)
	}
	if want, have := int64(2), al.Track("db", 1000, 1, 1); want != have {
		t.Errorf("want count %d, have %d", want, have)
	}

	al.end(nil)
	doc := al.document("svc", "host1")

	want := PerfStat{Count: 2, ElapsedNanos: 2000, ReadEntries: 2, WriteEntries: 1}
	if diff := cmp.Diff(want, doc.PerfStats["db"]); diff != "" {
		t.Errorf("perf stats mismatch (-want +have):\n%s", diff)
	}
}

func TestActionLogFlushTraceLog(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		setup func(*ActionLog)
		want  bool
	}{
		{"default", func(al *ActionLog) {}, false},
		{"info only", func(al *ActionLog) { al.Infof("hi") }, false},
		{"warn event", func(al *ActionLog) { al.Warnf("uh oh") }, true},
		{"error event", func(al *ActionLog) { al.Errorf("boom") }, true},
		{"trace current", func(al *ActionLog) { al.SetTraceMode(TraceCurrent) }, true},
		{"trace cascade", func(al *ActionLog) { al.SetTraceMode(TraceCascade) }, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			al := newActionLog("test", "")
			tc.setup(al)
			if want, have := tc.want, al.FlushTraceLog(); want != have {
				t.Errorf("want %v, have %v", want, have)
			}
		})
	}
}

func TestActionLogTraceModeOnlyEscalates(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.SetTraceMode(TraceCascade)
	al.SetTraceMode(TraceNone)

	if want, have := TraceCascade, al.TraceMode(); want != have {
		t.Errorf("want %s, have %s", want, have)
	}
}

func TestActionLogEndIsTerminal(t *testing.T) {
	t.Parallel()

	al := newActionLog("test", "")
	al.end(nil)

	al.Stat("late", 1)
	al.Context("late", "v")
	al.Warnf("late warn")

	doc := al.document("svc", "host1")

	if want, have := "OK", doc.Result; want != have {
		t.Errorf("want result %s, have %s", want, have)
	}
	if len(doc.Stats) != 0 || len(doc.Context) != 0 {
		t.Errorf("mutation after end leaked into document: %+v %+v", doc.Stats, doc.Context)
	}
}

func TestActionLogRootDocument(t *testing.T) {
	t.Parallel()

	root := newActionLog("test", "aaaaaaaaaaaaaaaaaaaaaaaa")
	root.end(nil)
	doc := root.document("svc", "host1")

	if !doc.IsRoot {
		t.Error("want IsRoot for action with no upstream")
	}
	if diff := cmp.Diff([]string{"aaaaaaaaaaaaaaaaaaaaaaaa"}, doc.CorrelationIDs); diff != "" {
		t.Errorf("correlation ids mismatch (-want +have):\n%s", diff)
	}

	child := newActionLog("test", "")
	child.SetUpstream([]string{root.ID()}, []string{root.ID()}, []string{"svc"})
	child.end(nil)
	cdoc := child.document("svc2", "host2")

	if cdoc.IsRoot {
		t.Error("want non-root for action with upstream")
	}
	if diff := cmp.Diff([]string{root.ID()}, cdoc.CorrelationIDs); diff != "" {
		t.Errorf("correlation ids mismatch (-want +have):\n%s", diff)
	}
}
