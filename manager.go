package actionlog

import (
	"context"
	"fmt"
	"os"
)

// Sink accepts ownership of a completed action document. Implementations
// must not block the calling goroutine: a stuck transport must never stall
// the thread of work that produced the record.
type Sink interface {
	Forward(doc *ActionDocument)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(doc *ActionDocument)

func (f SinkFunc) Forward(doc *ActionDocument) { f(doc) }

// deferredErrorSource is implemented by sinks that surface transport
// failures after the fact. A publish failure is never reported on the action
// whose record failed (it no longer exists), nor recursively on the
// forwarding path; it is recorded on the next action begun by this manager.
type deferredErrorSource interface {
	TakeError() error
}

// ManagerConfig collects the construction parameters for a Manager. App is
// required; everything else has a usable zero value.
type ManagerConfig struct {
	// App is this process's logical application name. It becomes the "app"
	// field of every emitted document and the x-client value on outbound
	// hops.
	App string

	// Host identifies the machine. Defaults to os.Hostname.
	Host string

	// Sink receives every completed document. A nil sink discards documents
	// and counts them as dropped.
	Sink Sink

	// Filter masks sensitive fields before emission. Optional.
	Filter *Filter

	// Decorators run over each completed document, in order, after the
	// filter and before the sink. Optional.
	Decorators []DecoratorFunc
}

// Manager binds actions to their execution context, finalizes them, and
// emits their records. One Manager per process is the norm.
type Manager struct {
	app        string
	host       string
	sink       Sink
	filter     *Filter
	decorators []DecoratorFunc
}

// NewManager constructs a Manager from the given config.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Host == "" {
		cfg.Host, _ = os.Hostname()
	}
	return &Manager{
		app:        cfg.App,
		host:       cfg.Host,
		sink:       cfg.Sink,
		filter:     cfg.Filter,
		decorators: cfg.Decorators,
	}
}

// App returns the manager's application name.
func (m *Manager) App() string { return m.app }

type actionContextKey struct{}

var actionContextVal actionContextKey

// Begin starts a new action with the given logical name, binds it into the
// returned context, and returns the handle. An empty id means generate one.
//
// Beginning an action on a context that already carries a live action is a
// programming error and panics: an action must be ended before its context
// slot can host another. Rebinding a captured handle into a child task's
// context is done with Put, not Begin.
func (m *Manager) Begin(ctx context.Context, action, id string) (context.Context, *ActionLog) {
	if prev, ok := Current(ctx); ok && !prev.Ended() {
		panic(fmt.Sprintf("actionlog: Begin(%q) while action %q (%s) is still live", action, prev.Action(), prev.ID()))
	}

	al := newActionLog(action, id)
	statActive.Add(1)

	if src, ok := m.sink.(deferredErrorSource); ok {
		if err := src.TakeError(); err != nil {
			al.Process(MakeEvent(LevelWarn, "actionlog", "previous record publish failed: %v", err))
		}
	}

	return context.WithValue(ctx, actionContextVal, al), al
}

// Put binds the given handle into the context, for explicit propagation of
// an action to a child task in a worker pool. The child rebinds on entry and
// must not End the action; that remains the owner's job.
func Put(ctx context.Context, al *ActionLog) context.Context {
	return context.WithValue(ctx, actionContextVal, al)
}

// Current returns the action bound to the context, if one exists.
func Current(ctx context.Context) (*ActionLog, bool) {
	al, ok := ctx.Value(actionContextVal).(*ActionLog)
	return al, ok
}

// Ended reports whether the action has been finalized.
func (al *ActionLog) Ended() bool {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	return al.ended
}

// End finalizes the action and emits its record: the elapsed time freezes,
// err (if non-nil) escalates the result to ERROR with a derived error code,
// the filter masks sensitive fields, and the document goes to the sink.
// Emission happens exactly once; a second End on the same handle is a no-op.
//
// Failures inside the emission pipeline itself never propagate to the
// caller; they are swallowed and counted.
func (m *Manager) End(al *ActionLog, err error) {
	if al.Ended() {
		return
	}

	al.end(err)
	statActive.Add(-1)

	m.emit(al)
}

func (m *Manager) emit(al *ActionLog) {
	defer func() {
		if r := recover(); r != nil {
			statPipelineErrors.Add(1)
		}
	}()

	doc := al.document(m.app, m.host)

	if m.filter != nil {
		m.filter.Apply(doc)
	}

	for _, d := range m.decorators {
		doc = d(doc)
	}

	if m.sink == nil {
		statDropped.Add(1)
		return
	}

	m.sink.Forward(doc)
}
