package v1

import (
    "context"
    "net/http"
    "time"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/chart"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

const readyTimeout = 800 * time.Millisecond

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

// readyz pings the store when it can report readiness.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
    rc, ok := s.store.(ReadyChecker)
    if !ok {
        w.WriteHeader(http.StatusOK)
        return
    }
    ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
    defer cancel()
    if err := rc.Ready(ctx); err != nil {
        s.log.Warn("store not ready", "err", err)
        w.WriteHeader(http.StatusServiceUnavailable)
        return
    }
    w.WriteHeader(http.StatusOK)
}

// calculate previews line amounts and totals. Absent or invalid numbers
// count as zero; nothing is validated or saved.
func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
    var req calculateRequest
    if !decodeJSON(w, r, &req) { return }
    lines := make([]ledger.DocumentLine, 0, len(req.Lines))
    for _, ln := range req.Lines {
        lines = append(lines, toDocumentLine(ln))
    }
    p := s.documents.Calculate(lines)
    out := calculateResponse{Lines: make([]documentLineResponse, 0, len(p.Lines)), Totals: p.Totals}
    for _, lp := range p.Lines {
        resp := toDocumentLineResponse(lp.Line)
        resp.LineResult = lp.Result
        out.Lines = append(out.Lines, resp)
    }
    toJSON(w, http.StatusOK, out)
}

// balanceCheck reports whether journal lines balance, with per-line problems.
func (s *Server) balanceCheck(w http.ResponseWriter, r *http.Request) {
    var req balanceCheckRequest
    if !decodeJSON(w, r, &req) { return }
    lines := make([]calc.JournalLine, 0, len(req.Lines))
    for _, ln := range req.Lines {
        cl := calc.JournalLine{Debit: ln.Debit.Value, Credit: ln.Credit.Value}
        if ln.AccountID != nil { cl.AccountID = *ln.AccountID }
        lines = append(lines, cl)
    }
    b := calc.CheckBalance(lines)
    b.TotalDebit, b.TotalCredit = calc.Round2(b.TotalDebit), calc.Round2(b.TotalCredit)
    out := balanceCheckResponse{Balance: b}
    for _, le := range calc.ValidateJournalLines(lines) {
        if le.Field == "account_id" && req.Lines[le.Index].AccountID == nil {
            // Accounts are optional when only checking arithmetic.
            continue
        }
        out.LineErrors = append(out.LineErrors, lineErrorResponse{Index: le.Index, Message: le.Message})
    }
    toJSON(w, http.StatusOK, out)
}

// getGroupsDictionary lists the curated account groups, optionally for one ?type=.
func (s *Server) getGroupsDictionary(w http.ResponseWriter, r *http.Request) {
    var typ *ledger.AccountType
    if raw := r.URL.Query().Get("type"); raw != "" {
        t := ledger.AccountType(raw)
        if !t.Valid() {
            badRequest(w, "invalid type")
            return
        }
        typ = &t
    }
    type entry struct {
        Type   ledger.AccountType `json:"type"`
        Groups []chart.GroupDef   `json:"groups"`
    }
    out := make([]entry, 0, len(chart.Types))
    for _, t := range chart.Types {
        if typ != nil && t != *typ { continue }
        t := t
        groups := chart.GroupsFor(&t)
        if groups == nil { groups = []chart.GroupDef{} }
        out = append(out, entry{Type: t, Groups: groups})
    }
    toJSON(w, http.StatusOK, out)
}
