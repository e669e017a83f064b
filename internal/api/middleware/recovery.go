package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
)

// Recovery turns a handler panic into a 500 envelope. When the response has already
// started, or the connection was upgraded to the event stream, the panic is only
// logged. http.ErrAbortHandler is passed on to net/http.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			started := false
			if rec, ok := w.(*statusRecorder); ok {
				started = rec.started
			}
			slog.Error("panic recovered",
				"error", v,
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", GetRequestID(r),
				"response_started", started,
			)
			if !started {
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
