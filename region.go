package actionlog

import (
	"context"
	"runtime/trace"
	"time"
)

// Region provides more detailed annotation of regions of code, usually
// functions, within a single action. It does not create a new action or a
// new id: the region's entry and exit are ordinary trace buffer events on
// the bound action, with the region name in their logger field. The returned
// context is the one passed in, so events logged between entry and exit are
// not tagged with the region name. A standard library [runtime/trace.Region]
// with the same name is opened alongside.
//
// Typical usage is as follows.
//
//	func foo(ctx context.Context, id int) {
//	    ctx, finish := actionlog.StartRegion(ctx, "foo")
//	    defer finish()
//	    ...
//	}
//
// Region can impact performance. Use it sparingly.
func StartRegion(ctx context.Context, name string) (context.Context, func()) {
	al, ok := Current(ctx)
	if !ok {
		return ctx, func() {}
	}

	begin := time.Now()
	region := trace.StartRegion(ctx, name)

	al.Process(MakeLazyEvent(LevelTrace, name, "→ %s", name))
	finish := func() {
		took := time.Since(begin)
		al.Process(MakeLazyEvent(LevelTrace, name, "← %s [%s]", name, took.String()))
		region.End()
	}

	return ctx, finish
}

// Tracked runs fn against the named resource and records its cost on the
// action bound to ctx: elapsed time always, plus the read and write entry
// counts fn reports. When the resource is touched for the first time in this
// action, a trace buffer line with the call detail is emitted; subsequent
// calls only accumulate.
func Tracked(ctx context.Context, resource string, fn func(ctx context.Context) (reads, writes int64, err error)) error {
	al, ok := Current(ctx)
	if !ok {
		_, _, err := fn(ctx)
		return err
	}

	begin := time.Now()
	reads, writes, err := fn(ctx)
	elapsed := time.Since(begin)

	if count := al.Track(resource, elapsed.Nanoseconds(), reads, writes); count == 1 {
		al.Process(MakeLazyEvent(LevelDebug, resource, "%s: elapsed=%s reads=%d writes=%d", resource, elapsed, reads, writes))
	}

	if err != nil {
		al.Process(MakeErrorEvent(resource, err))
	}

	return err
}
