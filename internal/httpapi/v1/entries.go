package v1

import (
    "net/http"
    "time"

    "github.com/tinoosan/bizbooks/internal/ledger"
)

// postEntry handles POST /v1/journal-entries. With ?post=true the entry is
// posted in the same call. Idempotency-Key replays answer 200 with the
// original entry.
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
    var req entryRequest
    if !decodeJSON(w, r, &req) { return }
    key, ok := idempotencyKey(w, r)
    if !ok { return }
    if s.replayEntry(w, r, key) { return }
    if err := entryAmountErrors(req); err != nil { s.writeServiceErr(w, r, err); return }

    in := s.toEntryDomain(orgFrom(r), req)
    var (
        saved ledger.JournalEntry
        err   error
    )
    if r.URL.Query().Get("post") == "true" {
        saved, err = s.journal.CreateAndPost(r.Context(), in)
    } else {
        saved, err = s.journal.CreateDraft(r.Context(), in)
    }
    if err != nil { s.writeServiceErr(w, r, err); return }
    if saved.Status == ledger.StatusPosted {
        entriesPosted.WithLabelValues(string(saved.Source)).Inc()
    }
    s.rememberEntry(r, key, saved.ID)
    toJSON(w, http.StatusCreated, toEntryResponse(saved))
}

// listEntries handles GET /v1/journal-entries?status=
func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
    var status *ledger.Status
    if raw := r.URL.Query().Get("status"); raw != "" {
        st := ledger.Status(raw)
        if !st.Valid() {
            badRequest(w, "invalid status")
            return
        }
        status = &st
    }
    entries, err := s.journal.List(r.Context(), orgFrom(r), status)
    if err != nil { s.writeServiceErr(w, r, err); return }
    out := make([]entryResponse, 0, len(entries))
    for _, e := range entries {
        out = append(out, toEntryResponse(e))
    }
    toJSON(w, http.StatusOK, out)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    e, err := s.journal.Get(r.Context(), orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toEntryResponse(e))
}

// putEntry handles PUT /v1/journal-entries/{id}, replacing a draft.
func (s *Server) putEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    var req entryRequest
    if !decodeJSON(w, r, &req) { return }
    if err := entryAmountErrors(req); err != nil { s.writeServiceErr(w, r, err); return }
    in := s.toEntryDomain(orgFrom(r), req)
    in.ID = id
    saved, err := s.journal.UpdateDraft(r.Context(), in)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toEntryResponse(saved))
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    if err := s.journal.DeleteDraft(r.Context(), orgFrom(r), id); err != nil {
        s.writeServiceErr(w, r, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// postDraftEntry handles POST /v1/journal-entries/{id}/post
func (s *Server) postDraftEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    e, err := s.journal.Post(r.Context(), orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    entriesPosted.WithLabelValues(string(e.Source)).Inc()
    toJSON(w, http.StatusOK, toEntryResponse(e))
}

// reverseEntry handles POST /v1/journal-entries/{id}/reverse. The body is
// optional; it returns the new compensating entry.
func (s *Server) reverseEntry(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "entry")
    if !ok { return }
    var req reverseRequest
    if r.ContentLength != 0 {
        if !decodeJSON(w, r, &req) { return }
    }
    var when time.Time
    if req.Date != nil { when = req.Date.Time }
    rev, err := s.journal.Reverse(r.Context(), orgFrom(r), id, when, req.Memo)
    if err != nil { s.writeServiceErr(w, r, err); return }
    entriesReversed.Inc()
    toJSON(w, http.StatusCreated, toEntryResponse(rev))
}

// trialBalance handles GET /v1/trial-balance?currency=&as_of=
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
    asOf, ok := asOfParam(w, r)
    if !ok { return }
    currency := r.URL.Query().Get("currency")
    if currency == "" { currency = s.currency }
    tb, err := s.journal.TrialBalance(r.Context(), orgFrom(r), currency, asOf)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toTrialBalanceResponse(tb))
}
