package actionlog

import "sync/atomic"

const (
	maxContextValueLengthMin     = 16
	maxContextValueLengthDefault = 1000
	maxContextValueLengthMax     = 1 << 20

	traceSoftLimitDefault = 30 * 1024
	traceHardLimitDefault = 3 * 1024 * 1024
)

var maxContextValueLength = func() *atomic.Int32 {
	var v atomic.Int32
	v.Store(maxContextValueLengthDefault)
	return &v
}()

// SetMaxContextValueLength sets the max length, in bytes, of a single context
// value or error message. Longer context values are rejected and downgrade
// the action to WARN; longer error messages are truncated. The default is
// 1000, the minimum is 16.
//
// Changing this value does not affect actions that have already begun.
func SetMaxContextValueLength(n int) {
	if n < maxContextValueLengthMin {
		n = maxContextValueLengthMin
	}
	if n > maxContextValueLengthMax {
		n = maxContextValueLengthMax
	}
	maxContextValueLength.Store(int32(n))
}

var (
	traceSoftLimit = func() *atomic.Int64 {
		var v atomic.Int64
		v.Store(traceSoftLimitDefault)
		return &v
	}()
	traceHardLimit = func() *atomic.Int64 {
		var v atomic.Int64
		v.Store(traceHardLimitDefault)
		return &v
	}()
)

// SetTraceLimits sets the soft and hard character limits applied when an
// action's trace buffer is rendered. Defaults are 30KB soft, 3MB hard.
//
// Changing these values does not affect actions that have already begun.
func SetTraceLimits(soft, hard int) {
	if soft <= 0 {
		soft = traceSoftLimitDefault
	}
	if hard < soft {
		hard = soft
	}
	traceSoftLimit.Store(int64(soft))
	traceHardLimit.Store(int64(hard))
}
