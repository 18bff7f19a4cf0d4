// Package actionlogforward hands completed action documents to a transport
// without ever stalling the goroutine that produced them. Documents queue in
// a bounded in-memory ring with drop-oldest overflow, and a single
// background goroutine drains the ring into a Publisher.
package actionlogforward

import (
	"context"
	"fmt"
	"sync"

	"github.com/corewire/actionlog"
)

// DefaultCapacity is the forwarding queue's default size, in records.
const DefaultCapacity = 1024

// Publisher delivers one serialized action document to the transport, with
// at-least-once semantics. Implementations may block; they run on the
// forwarder's drain goroutine, never on a producer.
type Publisher interface {
	Publish(ctx context.Context, doc *actionlog.ActionDocument) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, doc *actionlog.ActionDocument) error

func (f PublisherFunc) Publish(ctx context.Context, doc *actionlog.ActionDocument) error {
	return f(ctx, doc)
}

// Forwarder implements actionlog.Sink over a bounded queue and a Publisher.
// Forward never blocks: when the queue is full the oldest record is dropped
// and counted. Publish failures are never reported on the forwarding path;
// they are stored and surface on the next action the manager begins.
type Forwarder struct {
	publisher Publisher
	queue     *ringQueue[*actionlog.ActionDocument]
	notify    chan struct{}

	mtx     sync.Mutex
	lastErr error
}

var _ actionlog.Sink = (*Forwarder)(nil)

// NewForwarder constructs a Forwarder draining into p. A capacity <= 0 means
// DefaultCapacity. The forwarder is inert until Run is called.
func NewForwarder(p Publisher, capacity int) *Forwarder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Forwarder{
		publisher: p,
		queue:     newRingQueue[*actionlog.ActionDocument](capacity),
		notify:    make(chan struct{}, 1),
	}
}

// Forward enqueues the document and returns immediately. Safe for use from
// any number of producer goroutines.
func (f *Forwarder) Forward(doc *actionlog.ActionDocument) {
	if f.queue.push(doc) {
		actionlog.CountDropped()
	}

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Run drains the queue into the publisher until ctx is cancelled. It is the
// single consumer; call it from exactly one goroutine, typically via an
// oklog/run group. Panics and errors inside the publisher are swallowed,
// counted, and deferred to the next action.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.drain(ctx)
			return ctx.Err()
		case <-f.notify:
			f.drain(ctx)
		}
	}
}

func (f *Forwarder) drain(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			actionlog.CountPipelineError()
			f.setError(fmt.Errorf("publisher panic: %v", r))
		}
	}()

	for {
		doc, ok := f.queue.pop()
		if !ok {
			return
		}

		if err := f.publisher.Publish(ctx, doc); err != nil {
			actionlog.CountPipelineError()
			f.setError(err)
			continue
		}

		actionlog.CountForwarded()
	}
}

// TakeError returns and clears the most recent publish failure, if any. The
// manager calls this at Begin, so a transport failure is recorded on the
// next action rather than lost.
func (f *Forwarder) TakeError() error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	err := f.lastErr
	f.lastErr = nil
	return err
}

func (f *Forwarder) setError(err error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.lastErr = err
}
