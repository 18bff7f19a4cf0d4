// Package actionlog wraps every inbound unit of work — an HTTP request, a
// consumed message batch, a scheduled job — in an action whose lifecycle
// produces one canonical record: a bounded, structured document capturing
// identity, timing, correlation, outcome, performance breakdown, contextual
// key/values, and a size-limited debug trace.
//
// The basic idea is to "log" to a value in the context — the [ActionLog] —
// rather than to a destination like stdout or a file on disk. A [Manager]
// begins an action at the process boundary and injects the handle into the
// context, making it available to user code anywhere below. Logging events
// issued during the action accumulate in the action's trace buffer and drive
// its result; at end, the manager masks sensitive fields, serializes the
// action into an immutable [ActionDocument], and hands it to a [Sink].
//
// Records are best-effort forwarded: the forwarding queue drops the oldest
// record on overflow rather than ever stalling a request goroutine, and
// drops surface through [Stats]. The collector side — indexing records into
// time-partitioned indices and reconstructing causal graphs from them —
// lives in the actionlogcollect and actionlogdiagram packages. Correlation
// header propagation across process hops lives in actionlogcorr.
package actionlog
