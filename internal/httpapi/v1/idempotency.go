package v1

import (
    "net/http"
    "strings"

    "github.com/google/uuid"
)

const maxIdempotencyKey = 200

// idempotencyKey reads the Idempotency-Key header. ok is false when the key
// was rejected and a response has been written.
func idempotencyKey(w http.ResponseWriter, r *http.Request) (key string, ok bool) {
    key = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
    if len(key) > maxIdempotencyKey {
        badRequest(w, "Idempotency-Key too long")
        return "", false
    }
    return key, true
}

// replayEntry answers 200 with the entry already created under key, if any.
func (s *Server) replayEntry(w http.ResponseWriter, r *http.Request, key string) bool {
    if key == "" { return false }
    e, found, err := s.idem.ResolveEntryByIdempotencyKey(r.Context(), orgFrom(r), key)
    if err != nil {
        s.writeServiceErr(w, r, err)
        return true
    }
    if !found { return false }
    toJSON(w, http.StatusOK, toEntryResponse(e))
    return true
}

// rememberEntry maps key to the created entry. The first writer wins; a
// failure only costs the replay, so it is logged rather than returned.
func (s *Server) rememberEntry(r *http.Request, key string, entryID uuid.UUID) {
    if key == "" { return }
    if err := s.idem.SaveEntryIdempotencyKey(r.Context(), orgFrom(r), key, entryID); err != nil {
        s.log.Warn("save idempotency key", "key", key, "entry_id", entryID, "err", err)
    }
}
