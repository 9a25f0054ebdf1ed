package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"fileflow/internal/domain"
	"fileflow/internal/httputil"
)

// startedWriter remembers whether the handler already sent a status line.
type startedWriter struct {
	http.ResponseWriter
	started bool
}

func (w *startedWriter) WriteHeader(status int) {
	w.started = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *startedWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

func (w *startedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recovery turns a handler panic into a 500 problem response and logs it
// with the request that caused it. http.ErrAbortHandler is re-raised so the
// server can drop the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &startedWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				logger.Error("handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", httputil.GetUserID(r),
					"panic", fmt.Sprint(rec),
					"response_started", sw.started,
					"stack", string(debug.Stack()),
				)
				if sw.started {
					return
				}
				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error", map[string]any{
					"kind": domain.KindInternal,
				})
			}()
			next.ServeHTTP(sw, r)
		})
	}
}
