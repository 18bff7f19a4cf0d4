package actionlog

import "time"

// ActionDocument is the serialized, immutable record emitted when an action
// ends. Field names are fixed for interop: they are what the collector's
// index template maps and what the diagram queries aggregate on.
type ActionDocument struct {
	ID           string              `json:"id"`
	Date         time.Time           `json:"@timestamp"`
	App          string              `json:"app"`
	Host         string              `json:"host"`
	Action       string              `json:"action"`
	Result       string              `json:"result"`
	ErrorCode    string              `json:"error_code,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	ElapsedNanos int64               `json:"elapsed"`
	CPUTimeNanos int64               `json:"cpu_time"`
	Context      map[string][]string `json:"context,omitempty"`
	Stats        map[string]float64  `json:"stats,omitempty"`
	PerfStats    map[string]PerfStat `json:"perf_stats,omitempty"`

	// CorrelationIDs holds the ids of the root actions of this action's
	// causal chain. For a root action it holds the action's own id, and
	// IsRoot distinguishes the two cases explicitly.
	CorrelationIDs []string `json:"correlation_id"`
	RefIDs         []string `json:"ref_id,omitempty"`
	Clients        []string `json:"client,omitempty"`
	IsRoot         bool     `json:"is_root"`

	TraceLog string `json:"trace_log,omitempty"`
}

// PerfStat is the aggregated cost of operations against one resource.
type PerfStat struct {
	Count        int64 `json:"count"`
	ElapsedNanos int64 `json:"total_elapsed"`
	ReadEntries  int64 `json:"read_entries"`
	WriteEntries int64 `json:"write_entries"`
}

// document snapshots the ended action log into its immutable record. The
// caller must have ended the log first; it holds no references back into the
// log, so the log can be released immediately.
func (al *ActionLog) document(app, host string) *ActionDocument {
	al.mtx.Lock()
	defer al.mtx.Unlock()

	doc := &ActionDocument{
		ID:           al.id,
		Date:         al.start,
		App:          app,
		Host:         host,
		Action:       al.action,
		Result:       al.result.String(),
		ErrorCode:    al.errorCode,
		ErrorMessage: al.errorMessage,
		ElapsedNanos: al.elapsed.Nanoseconds(),
		IsRoot:       len(al.correlationIDs) == 0,
	}

	if doc.IsRoot {
		doc.CorrelationIDs = []string{al.id}
	} else {
		doc.CorrelationIDs = append([]string(nil), al.correlationIDs...)
		doc.RefIDs = append([]string(nil), al.refIDs...)
		doc.Clients = append([]string(nil), al.clients...)
	}

	if len(al.contexts) > 0 {
		doc.Context = make(map[string][]string, len(al.contexts))
		for k, vs := range al.contexts {
			doc.Context[k] = append([]string(nil), vs...)
		}
	}

	if len(al.stats) > 0 {
		doc.Stats = make(map[string]float64, len(al.stats))
		for k, v := range al.stats {
			doc.Stats[k] = v
		}
	}

	if perf := al.perf.Snapshot(); len(perf) > 0 {
		doc.PerfStats = make(map[string]PerfStat, len(perf))
		for k, v := range perf {
			doc.PerfStats[k] = PerfStat{
				Count:        v.Count,
				ElapsedNanos: v.ElapsedNanos,
				ReadEntries:  v.ReadEntries,
				WriteEntries: v.WriteEntries,
			}
		}
	}

	if al.traceMode != TraceNone || al.warned {
		doc.TraceLog = al.buffer.Render(al.softLimit, al.hardLimit)
	}

	return doc
}
