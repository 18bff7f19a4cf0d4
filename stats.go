package actionlog

import (
	"fmt"
	"sync/atomic"
)

var (
	statActive         atomic.Int64
	statForwarded      atomic.Uint64
	statDropped        atomic.Uint64
	statPipelineErrors atomic.Uint64
)

// ProcessStats is a point-in-time snapshot of the process-wide pipeline
// counters: how many actions are live right now, how many records have been
// handed to the transport, how many were dropped (on queue overflow, or by a
// manager with no sink), and how many internal pipeline failures were
// swallowed.
type ProcessStats struct {
	Active         int64  `json:"active"`
	Forwarded      uint64 `json:"forwarded"`
	Dropped        uint64 `json:"dropped"`
	PipelineErrors uint64 `json:"pipeline_errors"`
}

func (s ProcessStats) String() string {
	return fmt.Sprintf("active=%d forwarded=%d dropped=%d pipeline_errors=%d", s.Active, s.Forwarded, s.Dropped, s.PipelineErrors)
}

// Stats returns the current process-wide pipeline counters.
func Stats() ProcessStats {
	return ProcessStats{
		Active:         statActive.Load(),
		Forwarded:      statForwarded.Load(),
		Dropped:        statDropped.Load(),
		PipelineErrors: statPipelineErrors.Load(),
	}
}

// CountForwarded records one record handed to the transport. Called by
// forwarder implementations.
func CountForwarded() { statForwarded.Add(1) }

// CountDropped records one record dropped on queue overflow. Called by
// forwarder implementations.
func CountDropped() { statDropped.Add(1) }

// CountPipelineError records one swallowed internal pipeline failure.
func CountPipelineError() { statPipelineErrors.Add(1) }
