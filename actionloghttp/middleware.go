// Package actionloghttp is the HTTP boundary of the action log pipeline: a
// middleware that wraps every request in an action, and the handlers serving
// the diagram and document query APIs over a collector's store.
package actionloghttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/corewire/actionlog"
	"github.com/corewire/actionlog/actionlogcorr"
)

// DefaultActionName names an inbound request's action as
// http:METHOD:path, e.g. http:GET:/hello.
func DefaultActionName(r *http.Request) string {
	return "http:" + r.Method + ":" + r.URL.Path
}

// Middleware decorates an HTTP handler so that every request runs inside an
// action: correlation headers are parsed on the way in, request metadata is
// recorded on the handle, and the action ends — emitting its record — when
// the handler returns, even by panic. The action name is determined by
// passing the request to getAction; nil means DefaultActionName.
func Middleware(m *actionlog.Manager, getAction func(*http.Request) string) func(http.Handler) http.Handler {
	if getAction == nil {
		getAction = DefaultActionName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, al := m.Begin(r.Context(), getAction(r), "")
			actionlogcorr.Extract(r.Header).Apply(al)

			al.Context("method", r.Method)
			al.Context("path", r.URL.Path)
			al.Context("remoteAddr", r.RemoteAddr)
			al.Tracef("%s %s %s", r.RemoteAddr, r.Method, r.URL.Path)

			iw := newInterceptor(w)

			defer func(b time.Time) {
				if rec := recover(); rec != nil {
					m.End(al, fmt.Errorf("panic: %v", rec))
					if !iw.Wrote() {
						http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
					return
				}

				code := iw.Code()
				al.Context("status", fmt.Sprintf("%d", code))
				al.Tracef("HTTP %d, %dB, %s", code, iw.Written(), time.Since(b))

				if code >= 400 {
					al.Process(actionlog.MakeEvent(levelForStatus(code), "http", "HTTP %d %s %s", code, r.Method, r.URL.Path))
				}

				m.End(al, nil)
			}(time.Now())

			w = iw
			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)
		})
	}
}

func levelForStatus(code int) actionlog.Level {
	if code >= 500 {
		return actionlog.LevelError
	}
	return actionlog.LevelWarn
}

// StatusFor translates an action's error code into the HTTP status the
// boundary should answer with.
func StatusFor(errorCode string) int {
	switch errorCode {
	case "":
		return http.StatusOK
	case actionlog.ErrorCodeValidationError:
		return http.StatusBadRequest
	case actionlog.ErrorCodeForbidden:
		return http.StatusForbidden
	case actionlog.ErrorCodeNotFound:
		return http.StatusNotFound
	case actionlog.ErrorCodeCancelled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

//
//
//

type interceptor struct {
	http.ResponseWriter

	code int
	n    int
}

func newInterceptor(w http.ResponseWriter) *interceptor {
	return &interceptor{ResponseWriter: w}
}

func (i *interceptor) WriteHeader(code int) {
	if i.code == 0 {
		i.code = code
	}
	i.ResponseWriter.WriteHeader(code)
}

func (i *interceptor) Write(p []byte) (int, error) {
	n, err := i.ResponseWriter.Write(p)
	i.n += n
	return n, err
}

func (i *interceptor) Code() int {
	if i.code == 0 {
		return http.StatusOK
	}
	return i.code
}

func (i *interceptor) Wrote() bool {
	return i.code != 0 || i.n > 0
}

func (i *interceptor) Written() int {
	return i.n
}
