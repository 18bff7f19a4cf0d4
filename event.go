package actionlog

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-stack/stack"
)

// Event represents one logging statement issued during an action. Events are
// appended to the action's trace buffer, and events at or above LevelWarn
// additionally drive the action's result, error code, and error message.
//
// ActionLog.Process reads the "what" field when the event is processed and
// the trace buffer keeps only the rendered text, not the event. An Event
// handed to other goroutines is read there too, so the fmt.Stringer used in
// the "what" field must be safe for concurrent use, including any values it
// may capture by reference.
type Event struct {
	Seq       uint64       // unique per process
	When      time.Time    // ideally UTC
	Level     Level        // severity of this single statement
	Logger    string       // origin, e.g. a package or region name
	What      fmt.Stringer // must be safe for concurrent use
	ErrorCode string       // optional short token, consulted for events >= WARN
	Stack     CallStack    // optional, captured for events carrying an error
}

// Message renders the event's what field.
func (ev Event) Message() string {
	if ev.What == nil {
		return ""
	}
	return ev.What.String()
}

type CallStack []Call

type Call struct {
	Function string
	FileLine string
}

var eventSeq uint64

// MakeEvent creates a new event at the given level. Arguments are evaluated
// immediately. No call stack is captured; use MakeErrorEvent for events that
// should carry one.
func MakeEvent(level Level, logger, format string, args ...interface{}) Event {
	return Event{
		Seq:    atomic.AddUint64(&eventSeq, 1),
		When:   time.Now().UTC(),
		Level:  level,
		Logger: logger,
		What:   stringer(fmt.Sprintf(format, args...)),
	}
}

// MakeLazyEvent creates a new event whose arguments are evaluated lazily upon
// read. ActionLog.Process reads the event as soon as it is processed; any
// other reader may do so from another goroutine, so arguments must be safe
// for concurrent access.
func MakeLazyEvent(level Level, logger, format string, args ...interface{}) Event {
	return Event{
		Seq:    atomic.AddUint64(&eventSeq, 1),
		When:   time.Now().UTC(),
		Level:  level,
		Logger: logger,
		What:   &lazyStringer{fmt: format, args: args},
	}
}

// MakeErrorEvent creates a LevelError event for the given error, capturing
// the current call stack and deriving an error code from the error value.
func MakeErrorEvent(logger string, err error) Event {
	return Event{
		Seq:       atomic.AddUint64(&eventSeq, 1),
		When:      time.Now().UTC(),
		Level:     LevelError,
		Logger:    logger,
		What:      stringer(err.Error()),
		ErrorCode: ErrorCodeFor(err),
		Stack:     getStack(),
	}
}

//
//
//

type stringer string

func (z stringer) String() string {
	return string(z)
}

type lazyStringer struct {
	fmt  string
	args []interface{}
}

func (z *lazyStringer) String() string {
	return fmt.Sprintf(z.fmt, z.args...)
}

//
//
//

func getStack() CallStack {
	var cs CallStack
	for _, c := range stack.Trace().TrimRuntime() {
		fr := c.Frame()
		if ignoreStackFrameFunction(fr.Function) {
			continue
		}
		cs = append(cs, Call{
			Function: funcNameOnly(fr.Function),
			FileLine: pkgFilePath(&fr) + ":" + strconv.Itoa(fr.Line),
		})
	}
	return cs
}

func ignoreStackFrameFunction(function string) bool {
	if !strings.HasPrefix(function, "github.com/corewire/actionlog") {
		return false // fast path
	}
	if strings.HasSuffix(function, "MakeErrorEvent") || strings.HasSuffix(function, "getStack") {
		return true
	}
	if strings.Contains(function, "actionlog.Region") {
		return true
	}
	return false
}

func pkgFilePath(frame *runtime.Frame) string {
	pre := pkgPrefix(frame.Function)
	post := pathSuffix(frame.File)
	if pre == "" {
		return post
	}
	return pre + "/" + post
}

func pkgPrefix(funcName string) string {
	const pathSep = "/"
	end := strings.LastIndex(funcName, pathSep)
	if end == -1 {
		return ""
	}
	return funcName[:end]
}

func pathSuffix(path string) string {
	const pathSep = "/"
	lastSep := strings.LastIndex(path, pathSep)
	if lastSep == -1 {
		return path
	}
	return path[strings.LastIndex(path[:lastSep], pathSep)+1:]
}

func funcNameOnly(name string) string {
	const pathSep = "/"
	if i := strings.LastIndex(name, pathSep); i != -1 {
		name = name[i+len(pathSep):]
	}
	const pkgSep = "."
	if i := strings.Index(name, pkgSep); i != -1 {
		name = name[i+len(pkgSep):]
	}
	return name
}
