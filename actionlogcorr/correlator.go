// Package actionlogcorr parses and emits the correlation headers that knit
// actions into causal graphs across process hops. The header names and value
// shapes are fixed for interop: values are ASCII, action ids are 24 hex
// characters, and multiple ids are comma-separated.
package actionlogcorr

import (
	"net/http"
	"strings"

	"github.com/corewire/actionlog"
)

// Wire header names.
const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderRefID         = "x-ref-id"
	HeaderClient        = "x-client"
	HeaderTrace         = "x-trace"
)

// Upstream is the correlation metadata parsed from one inbound hop. Empty
// CorrelationIDs marks the receiving action as a root.
type Upstream struct {
	CorrelationIDs []string
	RefIDs         []string
	Clients        []string
	Trace          actionlog.TraceMode
}

// Extract parses the correlation headers from an inbound request's headers.
// Absent headers yield zero values; an absent x-correlation-id means the new
// action is a root.
func Extract(h http.Header) Upstream {
	up := Upstream{
		CorrelationIDs: splitIDs(h.Get(HeaderCorrelationID)),
		RefIDs:         splitIDs(h.Get(HeaderRefID)),
		Clients:        splitIDs(h.Get(HeaderClient)),
	}

	// Only CASCADE crosses hops; CURRENT is meaningful on the emitting
	// process alone and is ignored on receive.
	if actionlog.ParseTraceMode(h.Get(HeaderTrace)) == actionlog.TraceCascade {
		up.Trace = actionlog.TraceCascade
	}

	return up
}

// Apply installs the parsed upstream metadata on a freshly begun action.
func (up Upstream) Apply(al *actionlog.ActionLog) {
	al.SetUpstream(up.CorrelationIDs, up.RefIDs, up.Clients)
	if up.Trace == actionlog.TraceCascade {
		al.SetTraceMode(actionlog.TraceCascade)
	}
}

// Inject writes the correlation headers for an outbound hop made during the
// given action, on behalf of the named app. The correlation ids pass through
// unchanged, except that a root action emits its own id; the ref id is
// always the current action's own id.
func Inject(h http.Header, al *actionlog.ActionLog, app string) {
	h.Set(HeaderCorrelationID, strings.Join(al.CorrelationIDs(), ","))
	h.Set(HeaderRefID, al.ID())
	h.Set(HeaderClient, app)

	if al.TraceMode() == actionlog.TraceCascade {
		h.Set(HeaderTrace, actionlog.TraceCascade.String())
	}
}

// InjectContext is a convenience that injects from the action bound to the
// request's context, if any.
func InjectContext(req *http.Request, app string) {
	if al, ok := actionlog.Current(req.Context()); ok {
		Inject(req.Header, al, app)
	}
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
