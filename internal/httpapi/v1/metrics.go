package v1

import (
    "net/http"
    "strconv"
    "time"

    chi "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    httpRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "http_requests_total",
            Help:      "Total number of HTTP requests",
        },
        []string{"method", "route", "status"},
    )
    httpRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "bizbooks",
            Name:      "http_request_duration_seconds",
            Help:      "Duration of HTTP requests in seconds",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"method", "route", "status"},
    )
    entriesPosted = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "journal_entries_posted_total",
            Help:      "Journal entries posted, by source",
        },
        []string{"source"},
    )
    entriesReversed = promauto.NewCounter(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "journal_entries_reversed_total",
            Help:      "Journal entries reversed",
        },
    )
    documentsPosted = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "documents_posted_total",
            Help:      "Documents posted, by kind",
        },
        []string{"kind"},
    )
    documentsReversed = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "documents_reversed_total",
            Help:      "Documents reversed, by kind",
        },
        []string{"kind"},
    )
    fbrSubmissions = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "bizbooks",
            Name:      "fbr_submissions_total",
            Help:      "Invoice submissions to FBR, by result",
        },
        []string{"result"},
    )
)

func metricsHandler() http.Handler {
    return promhttp.Handler()
}

// metricsMiddleware labels by route pattern so ids do not explode cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        route := "unmatched"
        if rc := chi.RouteContext(r.Context()); rc != nil {
            if p := rc.RoutePattern(); p != "" { route = p }
        }
        status := strconv.Itoa(ww.Status())
        httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
        httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
    })
}
