package v1

import (
    "log/slog"
    "net/http"
    "runtime/debug"
    "time"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
)

// requestLogger writes one line per request once it completes. 5xx responses
// log at ERROR and 4xx at WARN so rejected postings stand out.
func requestLogger(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            next.ServeHTTP(ww, r)

            route := r.URL.Path
            if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
                route = rc.RoutePattern()
            }
            level := slog.LevelInfo
            switch {
            case ww.Status() >= http.StatusInternalServerError:
                level = slog.LevelError
            case ww.Status() >= http.StatusBadRequest:
                level = slog.LevelWarn
            }
            l.LogAttrs(r.Context(), level, "http request",
                slog.String("req_id", chimw.GetReqID(r.Context())),
                slog.String("method", r.Method),
                slog.String("route", route),
                slog.String("org_id", r.Header.Get("X-Org-ID")),
                slog.Int("status", ww.Status()),
                slog.Int("bytes", ww.BytesWritten()),
                slog.Duration("duration", time.Since(start)),
            )
        })
    }
}

// recoverer turns a panic into a JSON 500 and logs the stack.
func recoverer(l *slog.Logger) func(next http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                rec := recover()
                if rec == nil { return }
                l.Error("handler panic",
                    "req_id", chimw.GetReqID(r.Context()),
                    "route", r.URL.Path,
                    "panic", rec,
                    "stack", string(debug.Stack()),
                )
                writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
            }()
            next.ServeHTTP(w, r)
        })
    }
}
