package v1

import (
    "context"
    "net/http"
    "strings"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"
)

type ctxKey string

const ctxKeyOrg ctxKey = "org"

// orgScope resolves the tenant from X-Org-ID. Authentication happens upstream.
func orgScope(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        raw := strings.TrimSpace(r.Header.Get("X-Org-ID"))
        if raw == "" {
            badRequest(w, "X-Org-ID header is required")
            return
        }
        orgID, err := uuid.Parse(raw)
        if err != nil || orgID == uuid.Nil {
            badRequest(w, "invalid X-Org-ID")
            return
        }
        ctx := context.WithValue(r.Context(), ctxKeyOrg, orgID)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}

// orgFrom returns the org set by orgScope.
func orgFrom(r *http.Request) uuid.UUID {
    id, _ := r.Context().Value(ctxKeyOrg).(uuid.UUID)
    return id
}

// pathID parses the {id} URL parameter, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid "+what+" id")
        return uuid.Nil, false
    }
    return id, true
}

// asOfParam parses ?as_of= as a date or RFC3339 timestamp. A bare date
// includes the whole day.
func asOfParam(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
    raw := r.URL.Query().Get("as_of")
    if raw == "" { return nil, true }
    if t, err := time.Parse(time.RFC3339, raw); err == nil {
        tt := t.UTC()
        return &tt, true
    }
    if t, err := time.Parse(dateLayout, raw); err == nil {
        return &t, true
    }
    badRequest(w, "invalid as_of")
    return nil, false
}
