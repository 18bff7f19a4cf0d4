package actionlog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	softTraceSuffix = "...(soft trace limit reached)\n"
	hardTraceSuffix = "...(hard trace limit reached)"
)

// traceLine is one rendered line of a trace buffer: a level/logger/message
// header line, optionally followed by stack trace lines.
type traceLine struct {
	level    Level
	rendered string // full text for this event, including trailing newline(s)
}

// TraceBuffer is an append-only log of events belonging to a single
// ActionLog. It never evicts: bounding happens only at render time, against
// the soft/hard character limits.
type TraceBuffer struct {
	lines   []traceLine
	offsets []int // offsets[i] = cumulative rendered length through lines[0:i]
	warnIdx []int // indices into lines, in order, where level >= LevelWarn
}

// NewTraceBuffer returns an empty TraceBuffer.
func NewTraceBuffer() *TraceBuffer {
	return &TraceBuffer{offsets: []int{0}}
}

// Append records one event. Stack is the pre-captured call stack of an
// associated throwable, or nil.
func (tb *TraceBuffer) Append(when time.Time, level Level, logger, message string, stack CallStack) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s - %s\n", when.Format("15:04:05.000"), level, logger, message)
	for _, c := range stack {
		fmt.Fprintf(&b, "\tat %s (%s)\n", c.Function, c.FileLine)
	}

	i := len(tb.lines)
	tb.lines = append(tb.lines, traceLine{level: level, rendered: b.String()})
	tb.offsets = append(tb.offsets, tb.offsets[i]+len(b.String()))
	if level >= LevelWarn {
		tb.warnIdx = append(tb.warnIdx, i)
	}
}

// Len returns the number of events appended so far.
func (tb *TraceBuffer) Len() int { return len(tb.lines) }

// Render concatenates events in order per the soft/hard limit rules:
//
// Characters accumulate until the soft limit is reached. If no event at or
// above LevelWarn has been seen by that point, rendering stops immediately
// and the soft suffix is appended. If a WARN/ERROR event has been seen,
// rendering continues through the end of the event that straddles the soft
// limit, unless that extension would cross the hard limit, in which case
// rendering stops exactly at the hard limit and the hard suffix is used
// instead of the soft one.
func (tb *TraceBuffer) Render(soft, hard int) string {
	total := tb.offsets[len(tb.offsets)-1]
	if total <= soft {
		return tb.concat(len(tb.lines))
	}

	// cut is the index of the first line whose cumulative end offset exceeds
	// soft: the line "in progress" when the soft limit is crossed.
	cut := sort.Search(len(tb.offsets), func(i int) bool { return tb.offsets[i] > soft })
	if cut == 0 {
		cut = 1
	}

	sawWarn := tb.hasWarnBefore(cut)
	if !sawWarn {
		return tb.renderSoftCut(soft)
	}

	// Extend to the end of the line that straddles soft (cut is already that
	// line's end index, i.e. render lines [0:cut)).
	if tb.offsets[cut] <= hard {
		return tb.concat(cut) + softTraceSuffix
	}

	return tb.renderHardCut(hard)
}

// hasWarnBefore reports whether any event with index < cut is at or above
// LevelWarn.
func (tb *TraceBuffer) hasWarnBefore(cut int) bool {
	i := sort.SearchInts(tb.warnIdx, cut)
	return i > 0
}

func (tb *TraceBuffer) concat(n int) string {
	var b strings.Builder
	for _, l := range tb.lines[:n] {
		b.WriteString(l.rendered)
	}
	return b.String()
}

// renderSoftCut renders exactly soft characters of concatenated event text,
// followed by the soft suffix.
func (tb *TraceBuffer) renderSoftCut(soft int) string {
	return tb.renderPrefix(soft) + softTraceSuffix
}

// renderHardCut renders exactly hard characters of concatenated event text,
// followed by the hard suffix.
func (tb *TraceBuffer) renderHardCut(hard int) string {
	return tb.renderPrefix(hard) + hardTraceSuffix
}

// renderPrefix returns exactly n characters (bytes) of the concatenated
// rendered event stream, cutting mid-line if necessary.
func (tb *TraceBuffer) renderPrefix(n int) string {
	full := tb.concat(len(tb.lines))
	if n >= len(full) {
		return full
	}
	return full[:n]
}
