package actionlog

import (
	"sync"
	"time"
)

// ActionLog is the in-memory accumulator for one action: one bounded unit of
// work at a process boundary, such as one HTTP request, one consumed message
// batch, or one scheduled job execution.
//
// An ActionLog is owned by the goroutine that began it. Mutating operations
// assume a single writer; the internal mutex exists so that the manager can
// safely serialize the log at end while late events from helper goroutines
// drain, not to support general concurrent mutation.
type ActionLog struct {
	mtx sync.Mutex

	id     string
	action string
	start  time.Time

	result       Result
	errorCode    string
	errorMessage string

	contexts map[string][]string
	stats    map[string]float64
	perf     *PerformanceStats

	correlationIDs []string
	refIDs         []string
	clients        []string

	traceMode TraceMode
	buffer    *TraceBuffer
	warned    bool

	maxValueLen int
	softLimit   int
	hardLimit   int

	ended   bool
	elapsed time.Duration
}

// newActionLog starts a new action log. An empty id means generate one.
func newActionLog(action, id string) *ActionLog {
	if id == "" {
		id = newID()
	}
	al := &ActionLog{
		id:          id,
		action:      action,
		start:       time.Now().UTC(),
		contexts:    map[string][]string{},
		stats:       map[string]float64{},
		perf:        NewPerformanceStats(),
		buffer:      NewTraceBuffer(),
		maxValueLen: int(maxContextValueLength.Load()),
		softLimit:   int(traceSoftLimit.Load()),
		hardLimit:   int(traceHardLimit.Load()),
	}
	al.appendEvent(MakeEvent(LevelDebug, "actionlog", "begin"))
	return al
}

func (al *ActionLog) ID() string         { return al.id } // immutable
func (al *ActionLog) Action() string     { return al.action }
func (al *ActionLog) Started() time.Time { return al.start }

// Elapsed returns the finalized duration of an ended action, or the running
// duration of an active one.
func (al *ActionLog) Elapsed() time.Duration {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if al.ended {
		return al.elapsed
	}
	return time.Since(al.start)
}

// Context appends value under key. Values under one key preserve insertion
// order. A value longer than the configured limit is rejected: an empty value
// is stored in its place, and the action downgrades to WARN with an
// explanatory error message.
func (al *ActionLog) Context(key, value string) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if al.ended {
		return
	}

	if len(value) > al.maxValueLen {
		al.contexts[key] = append(al.contexts[key], "")
		al.escalate(ResultWarn, ErrorCodeUnassigned, "context value is too long, key="+key)
		al.appendEvent(MakeEvent(LevelWarn, "", "context value is too long, key=%s, len=%d", key, len(value)))
		return
	}

	al.contexts[key] = append(al.contexts[key], value)
}

// Stat adds delta to the named stat, creating it on first use.
func (al *ActionLog) Stat(name string, delta float64) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if al.ended {
		return
	}

	al.stats[name] += delta
}

// Track records one operation against the named resource, and returns the
// resource's updated count. Callers conventionally emit a detailed log line
// only when the returned count is 1.
func (al *ActionLog) Track(resource string, elapsedNanos, readEntries, writeEntries int64) int64 {
	return al.perf.Track(resource, elapsedNanos, readEntries, writeEntries)
}

// Process records one logging event. Every event lands in the trace buffer.
// Events at or above LevelWarn additionally escalate the action's result,
// and the first of them claims the error message and error code slots: a
// warning without a code claims the code as UNASSIGNED, and later events
// never reassign either slot.
func (al *ActionLog) Process(ev Event) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if al.ended {
		return
	}

	al.appendEvent(ev)

	if ev.Level < LevelWarn {
		return
	}

	code := ev.ErrorCode
	if code == "" {
		code = ErrorCodeUnassigned
	}
	al.escalate(resultFromLevel(ev.Level), code, ev.Message())
}

// appendEvent and escalate require al.mtx to be held.

func (al *ActionLog) appendEvent(ev Event) {
	al.buffer.Append(ev.When, ev.Level, ev.Logger, ev.Message(), ev.Stack)
	if ev.Level >= LevelWarn {
		al.warned = true
	}
}

func (al *ActionLog) escalate(r Result, code, message string) {
	al.result = join(al.result, r)
	if al.errorCode == "" {
		al.errorCode = code
	}
	if al.errorMessage == "" {
		al.errorMessage = truncate(message, al.maxValueLen)
	}
}

// Tracef, Debugf, Infof, Warnf and Errorf are conveniences over Process for
// code holding the handle directly.

func (al *ActionLog) Tracef(format string, args ...interface{}) {
	al.Process(MakeLazyEvent(LevelTrace, "", format, args...))
}

func (al *ActionLog) Debugf(format string, args ...interface{}) {
	al.Process(MakeLazyEvent(LevelDebug, "", format, args...))
}

func (al *ActionLog) Infof(format string, args ...interface{}) {
	al.Process(MakeEvent(LevelInfo, "", format, args...))
}

func (al *ActionLog) Warnf(format string, args ...interface{}) {
	al.Process(MakeEvent(LevelWarn, "", format, args...))
}

func (al *ActionLog) Errorf(format string, args ...interface{}) {
	al.Process(MakeEvent(LevelError, "", format, args...))
}

// Error records err as a LevelError event, with stack and derived code.
func (al *ActionLog) Error(err error) {
	al.Process(MakeErrorEvent("", err))
}

// Result returns the action's current outcome.
func (al *ActionLog) Result() Result {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.result
}

// ErrorCode returns the action's current error code, empty if unset.
func (al *ActionLog) ErrorCode() string {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.errorCode
}

// Trace renders the trace buffer under the given soft and hard limits.
func (al *ActionLog) Trace(soft, hard int) string {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.buffer.Render(soft, hard)
}

// FlushTraceLog reports whether the rendered trace belongs in the emitted
// record: true iff the sampling decision is CURRENT or CASCADE, or any event
// at or above LevelWarn has been processed.
func (al *ActionLog) FlushTraceLog() bool {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.traceMode != TraceNone || al.warned
}

// TraceMode returns the action's sampling decision.
func (al *ActionLog) TraceMode() TraceMode {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.traceMode
}

// SetTraceMode sets the action's sampling decision. The mode only escalates:
// an inbound CASCADE cannot be reset to NONE by a later local default.
func (al *ActionLog) SetTraceMode(m TraceMode) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if m > al.traceMode {
		al.traceMode = m
	}
}

// SetUpstream installs the correlation metadata parsed from an inbound hop:
// the root action ids, the immediate caller action ids, and the immediate
// caller app names. Empty correlation ids mark this action as a root.
func (al *ActionLog) SetUpstream(correlationIDs, refIDs, clients []string) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	al.correlationIDs = correlationIDs
	al.refIDs = refIDs
	al.clients = clients
}

// CorrelationIDs returns the ids of the root actions of this action's causal
// chain, or the action's own id if this action is itself a root.
func (al *ActionLog) CorrelationIDs() []string {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if len(al.correlationIDs) == 0 {
		return []string{al.id}
	}
	return append([]string(nil), al.correlationIDs...)
}

// IsRoot reports whether this action has no upstream caller.
func (al *ActionLog) IsRoot() bool {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return len(al.correlationIDs) == 0
}

// end finalizes the action: the elapsed time freezes, err (if any) escalates
// the result to ERROR, and further Context, Stat and Process calls become
// no-ops. Track, SetTraceMode and SetUpstream do not check for an ended
// action. It is called exactly once, by the manager.
func (al *ActionLog) end(err error) {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	if al.ended {
		return
	}

	if err != nil {
		ev := MakeErrorEvent("", err)
		al.appendEvent(ev)
		al.escalate(ResultError, ev.ErrorCode, ev.Message())
	}

	al.ended = true
	al.elapsed = time.Since(al.start)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
