package actionlog

import (
	"fmt"
	"io"
)

// DecoratorFunc transforms or observes a completed action document on its
// way to the sink. Decorators run on the emitting goroutine; they must not
// block.
type DecoratorFunc func(*ActionDocument) *ActionDocument

// LogDecorator writes a one-line summary of every emitted document to dst,
// for local debugging alongside the real transport.
func LogDecorator(dst io.Writer) DecoratorFunc {
	return func(doc *ActionDocument) *ActionDocument {
		code := doc.ErrorCode
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(dst, "%s %s %s %s %s\n", doc.ID, doc.Action, doc.Result, code, humanizeNanos(doc.ElapsedNanos))
		return doc
	}
}

// StatDecorator copies selected process-wide counters into each document's
// stats map, so pipeline health rides along with ordinary records instead of
// needing its own transport.
func StatDecorator() DecoratorFunc {
	return func(doc *ActionDocument) *ActionDocument {
		s := Stats()
		if s.Dropped == 0 && s.PipelineErrors == 0 {
			return doc
		}
		if doc.Stats == nil {
			doc.Stats = map[string]float64{}
		}
		doc.Stats["actionlog.dropped"] = float64(s.Dropped)
		doc.Stats["actionlog.pipelineErrors"] = float64(s.PipelineErrors)
		return doc
	}
}

func humanizeNanos(n int64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%dns", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fµs", float64(n)/1_000)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.1fms", float64(n)/1_000_000)
	default:
		return fmt.Sprintf("%.2fs", float64(n)/1_000_000_000)
	}
}
