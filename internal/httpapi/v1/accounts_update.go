package v1

import (
    "net/http"

    "github.com/tinoosan/bizbooks/internal/meta"
)

// updateAccount handles PATCH /v1/accounts/{id}
// Allows updating name, group and metadata. Type, currency and code are immutable.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    var payload struct {
        Name     *string           `json:"name"`
        Group    *string           `json:"group"`
        Metadata map[string]string `json:"metadata"`
    }
    if !decodeJSON(w, r, &payload) { return }
    // load current, apply patch in http layer
    acc, err := s.accounts.Get(r.Context(), orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    if payload.Name != nil { acc.Name = *payload.Name }
    if payload.Group != nil { acc.Group = *payload.Group }
    if payload.Metadata != nil {
        // validate and merge
        m := meta.New(payload.Metadata)
        if err := m.Validate(); err != nil { s.writeServiceErr(w, r, err); return }
        if acc.Metadata == nil { acc.Metadata = meta.New(nil) }
        acc.Metadata.Merge(m)
    }
    acc, err = s.accounts.Update(r.Context(), acc)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// deactivateAccount handles DELETE /v1/accounts/{id} by soft-deactivating (active=false)
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    if err := s.accounts.Deactivate(r.Context(), orgFrom(r), id); err != nil {
        s.writeServiceErr(w, r, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}
