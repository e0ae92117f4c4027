// Account handlers: create, list, read, system chart, balance and ledger.
package v1

import (
    "net/http"
    "sort"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
)

// postAccount handles POST /v1/accounts. System accounts are only created
// through POST /v1/accounts/system.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
    var req postAccountRequest
    if !decodeJSON(w, r, &req) { return }
    in := ledger.Account{
        OrgID:    orgFrom(r),
        Code:     req.Code,
        Name:     req.Name,
        Currency: req.Currency,
        Type:     req.Type,
        Group:    req.Group,
        Metadata: meta.New(req.Metadata),
    }
    if in.Currency == "" { in.Currency = s.currency }
    acc, err := s.accounts.Create(r.Context(), in)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// listAccounts handles GET /v1/accounts?type=&currency=&active=
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    accs, err := s.accounts.List(r.Context(), orgFrom(r))
    if err != nil { s.writeServiceErr(w, r, err); return }
    out := make([]accountResponse, 0, len(accs))
    for _, a := range accs {
        if t := q.Get("type"); t != "" && !strings.EqualFold(string(a.Type), t) { continue }
        if c := q.Get("currency"); c != "" && !strings.EqualFold(a.Currency, c) { continue }
        if v := q.Get("active"); v != "" && (v == "true") != a.Active { continue }
        out = append(out, toAccountResponse(a))
    }
    toJSON(w, http.StatusOK, out)
}

// getAccount handles GET /v1/accounts/{id}
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    acc, err := s.accounts.Get(r.Context(), orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// ensureSystemAccounts handles POST /v1/accounts/system?currency=
// It creates whatever part of the default chart is missing and returns all of it.
func (s *Server) ensureSystemAccounts(w http.ResponseWriter, r *http.Request) {
    currency := strings.ToUpper(r.URL.Query().Get("currency"))
    if currency == "" { currency = s.currency }
    if !ledger.SupportedCurrency(currency) {
        badRequest(w, "unsupported currency "+currency)
        return
    }
    roles, err := s.accounts.EnsureSystemAccounts(r.Context(), orgFrom(r), currency)
    if err != nil { s.writeServiceErr(w, r, err); return }
    out := make([]accountResponse, 0, len(roles))
    for _, a := range roles {
        out = append(out, toAccountResponse(a))
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
    toJSON(w, http.StatusOK, out)
}

// getAccountBalance handles GET /v1/accounts/{id}/balance?as_of=
func (s *Server) getAccountBalance(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    asOf, ok := asOfParam(w, r)
    if !ok { return }
    bal, err := s.journal.AccountBalance(r.Context(), orgFrom(r), id, asOf)
    if err != nil { s.writeServiceErr(w, r, err); return }
    units, _ := bal.MinorUnits()
    toJSON(w, http.StatusOK, balanceResponse{AccountID: id, Currency: bal.Curr().Code(), AsOf: datePtr(asOf), BalanceMinor: units, Balance: minor(units)})
}

// getAccountLedger handles GET /v1/accounts/{id}/ledger
func (s *Server) getAccountLedger(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "account")
    if !ok { return }
    lines, err := s.journal.AccountLedger(r.Context(), orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, struct {
        AccountID uuid.UUID            `json:"account_id"`
        Lines     []ledgerLineResponse `json:"lines"`
    }{AccountID: id, Lines: toLedgerLines(lines)})
}
