package v1

import (
    "encoding/json"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
    "github.com/tinoosan/bizbooks/internal/service/journal"
)

const dateLayout = "2006-01-02"

// date accepts "2006-01-02" or RFC3339 and renders as a bare date.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
    var s string
    if err := json.Unmarshal(b, &s); err != nil { return err }
    s = strings.TrimSpace(s)
    if s == "" {
        d.Time = time.Time{}
        return nil
    }
    if t, err := time.Parse(dateLayout, s); err == nil {
        d.Time = t
        return nil
    }
    t, err := time.Parse(time.RFC3339, s)
    if err != nil { return err }
    d.Time = t.UTC().Truncate(24 * time.Hour)
    return nil
}

func (d date) MarshalJSON() ([]byte, error) { return json.Marshal(d.Format(dateLayout)) }

func datePtr(t *time.Time) *date {
    if t == nil { return nil }
    return &date{*t}
}

func minor(units int64) string { return calc.Format(calc.FromCents(units)) }

// Accounts

type postAccountRequest struct {
    Code     string             `json:"code"`
    Name     string             `json:"name"`
    Currency string             `json:"currency"`
    Type     ledger.AccountType `json:"type"`
    Group    string             `json:"group"`
    Metadata map[string]string  `json:"metadata,omitempty"`
}

type accountResponse struct {
    ID       uuid.UUID          `json:"id"`
    OrgID    uuid.UUID          `json:"org_id"`
    Code     string             `json:"code"`
    Name     string             `json:"name"`
    Currency string             `json:"currency"`
    Type     ledger.AccountType `json:"type"`
    Group    string             `json:"group"`
    Role     ledger.AccountRole `json:"role,omitempty"`
    Path     string             `json:"path"`
    Metadata map[string]string  `json:"metadata,omitempty"`
    System   bool               `json:"system"`
    Active   bool               `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
    return accountResponse{ID: a.ID, OrgID: a.OrgID, Code: a.Code, Name: a.Name, Currency: a.Currency, Type: a.Type, Group: a.Group, Role: a.Role, Path: a.Path(), Metadata: a.Metadata, System: a.System, Active: a.Active}
}

type balanceResponse struct {
    AccountID    uuid.UUID `json:"account_id"`
    Currency     string    `json:"currency"`
    AsOf         *date     `json:"as_of,omitempty"`
    BalanceMinor int64     `json:"balance_minor"`
    Balance      string    `json:"balance"`
}

type ledgerLineResponse struct {
    EntryID     uuid.UUID `json:"entry_id"`
    EntryNumber string    `json:"entry_number"`
    Date        date      `json:"date"`
    Memo        string    `json:"memo,omitempty"`
    Debit       string    `json:"debit"`
    Credit      string    `json:"credit"`
    Balance     string    `json:"balance"`
}

func toLedgerLines(lines []journal.LedgerLine) []ledgerLineResponse {
    out := make([]ledgerLineResponse, 0, len(lines))
    for _, ln := range lines {
        d, _ := ln.Debit.MinorUnits()
        c, _ := ln.Credit.MinorUnits()
        b, _ := ln.Balance.MinorUnits()
        out = append(out, ledgerLineResponse{EntryID: ln.EntryID, EntryNumber: ln.EntryNumber, Date: date{ln.Date}, Memo: ln.Memo, Debit: minor(d), Credit: minor(c), Balance: minor(b)})
    }
    return out
}

// Journal entries

type entryRequest struct {
    Date     date               `json:"date"`
    Currency string             `json:"currency"`
    Memo     string             `json:"memo"`
    Metadata map[string]string  `json:"metadata,omitempty"`
    Lines    []entryLineRequest `json:"lines"`
}

// entryLineRequest takes amounts in major units (e.g. 1500.50).
type entryLineRequest struct {
    AccountID uuid.UUID   `json:"account_id"`
    Debit     calc.Number `json:"debit"`
    Credit    calc.Number `json:"credit"`
    Memo      string      `json:"memo,omitempty"`
}

type entryLineResponse struct {
    ID          uuid.UUID `json:"id"`
    AccountID   uuid.UUID `json:"account_id"`
    DebitMinor  int64     `json:"debit_minor"`
    CreditMinor int64     `json:"credit_minor"`
    Debit       string    `json:"debit"`
    Credit      string    `json:"credit"`
    Memo        string    `json:"memo,omitempty"`
}

type entryResponse struct {
    ID          uuid.UUID           `json:"id"`
    Number      string              `json:"number,omitempty"`
    Date        date                `json:"date"`
    Currency    string              `json:"currency"`
    Memo        string              `json:"memo"`
    Source      ledger.EntrySource  `json:"source"`
    DocumentID  *uuid.UUID          `json:"document_id,omitempty"`
    Status      ledger.Status       `json:"status"`
    ReversalOf  *uuid.UUID          `json:"reversal_of,omitempty"`
    ReversedBy  *uuid.UUID          `json:"reversed_by,omitempty"`
    PostedAt    *time.Time          `json:"posted_at,omitempty"`
    Metadata    map[string]string   `json:"metadata,omitempty"`
    Lines       []entryLineResponse `json:"lines"`
    TotalDebit  string              `json:"total_debit"`
    TotalCredit string              `json:"total_credit"`
}

type reverseRequest struct {
    Date *date  `json:"date,omitempty"`
    Memo string `json:"memo,omitempty"`
}

// entryAmountErrors rejects amounts finer than a cent. Lines are stored in
// cents, so 0.004 would otherwise round to zero before validation sees it.
func entryAmountErrors(req entryRequest) error {
    ve := &errs.ValidationError{}
    for i, ln := range req.Lines {
        if ln.Debit.Set && !calc.WholeCents(ln.Debit.Value) {
            ve.AddLine(i, "debit", "amount has more than 2 decimal places")
        }
        if ln.Credit.Set && !calc.WholeCents(ln.Credit.Value) {
            ve.AddLine(i, "credit", "amount has more than 2 decimal places")
        }
    }
    return ve.OrNil()
}

func (s *Server) toEntryDomain(orgID uuid.UUID, req entryRequest) ledger.JournalEntry {
    currency := strings.ToUpper(strings.TrimSpace(req.Currency))
    if currency == "" { currency = s.currency }
    lines := make([]ledger.JournalLine, 0, len(req.Lines))
    for _, ln := range req.Lines {
        l := ledger.NewLine(currency, ln.AccountID, calc.Cents(ln.Debit.Value), calc.Cents(ln.Credit.Value))
        l.Memo = ln.Memo
        lines = append(lines, l)
    }
    return ledger.JournalEntry{
        OrgID:    orgID,
        Date:     req.Date.Time,
        Currency: currency,
        Memo:     req.Memo,
        Source:   ledger.SourceManual,
        Metadata: meta.New(req.Metadata),
        Lines:    lines,
    }
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
    lines := make([]entryLineResponse, 0, len(e.Lines))
    for _, ln := range e.Lines {
        d, c := ln.DebitMinor(), ln.CreditMinor()
        lines = append(lines, entryLineResponse{ID: ln.ID, AccountID: ln.AccountID, DebitMinor: d, CreditMinor: c, Debit: minor(d), Credit: minor(c), Memo: ln.Memo})
    }
    debit, credit := e.TotalsMinor()
    return entryResponse{
        ID:          e.ID,
        Number:      e.Number,
        Date:        date{e.Date},
        Currency:    e.Currency,
        Memo:        e.Memo,
        Source:      e.Source,
        DocumentID:  e.DocumentID,
        Status:      e.Status,
        ReversalOf:  e.ReversalOf,
        ReversedBy:  e.ReversedBy,
        PostedAt:    e.PostedAt,
        Metadata:    e.Metadata,
        Lines:       lines,
        TotalDebit:  minor(debit),
        TotalCredit: minor(credit),
    }
}

// Trial balance

type trialBalanceRow struct {
    AccountID uuid.UUID          `json:"account_id"`
    Code      string             `json:"code"`
    Name      string             `json:"name"`
    Type      ledger.AccountType `json:"type"`
    Path      string             `json:"path"`
    Debit     string             `json:"debit"`
    Credit    string             `json:"credit"`
}

type trialBalanceResponse struct {
    Currency    string            `json:"currency"`
    AsOf        *time.Time        `json:"as_of,omitempty"`
    Rows        []trialBalanceRow `json:"rows"`
    TotalDebit  string            `json:"total_debit"`
    TotalCredit string            `json:"total_credit"`
    Balanced    bool              `json:"balanced"`
}

func toTrialBalanceResponse(tb journal.TrialBalance) trialBalanceResponse {
    rows := make([]trialBalanceRow, 0, len(tb.Rows))
    for _, row := range tb.Rows {
        d, _ := row.Debit.MinorUnits()
        c, _ := row.Credit.MinorUnits()
        rows = append(rows, trialBalanceRow{AccountID: row.Account.ID, Code: row.Account.Code, Name: row.Account.Name, Type: row.Account.Type, Path: row.Account.Path(), Debit: minor(d), Credit: minor(c)})
    }
    d, _ := tb.TotalDebit.MinorUnits()
    c, _ := tb.TotalCredit.MinorUnits()
    return trialBalanceResponse{Currency: tb.Currency, AsOf: tb.AsOf, Rows: rows, TotalDebit: minor(d), TotalCredit: minor(c), Balanced: tb.Balanced()}
}

// Documents

type documentLineRequest struct {
    ItemCode           string      `json:"item_code"`
    Description        string      `json:"description,omitempty"`
    HSCode             string      `json:"hs_code,omitempty"`
    UoM                string      `json:"uom,omitempty"`
    Quantity           calc.Number `json:"quantity"`
    UnitPrice          calc.Number `json:"unit_price"`
    DiscountPercentage calc.Number `json:"discount_percentage"`
    TaxPercentage      calc.Number `json:"tax_percentage"`
}

type documentRequest struct {
    Kind          ledger.DocumentKind   `json:"kind"`
    PartyID       *uuid.UUID            `json:"party_id,omitempty"`
    PartyName     string                `json:"party_name"`
    PartyNTN      string                `json:"party_ntn,omitempty"`
    PartyProvince string                `json:"party_province,omitempty"`
    Date          date                  `json:"date"`
    DueDate       *date                 `json:"due_date,omitempty"`
    Currency      string                `json:"currency,omitempty"`
    Notes         string                `json:"notes,omitempty"`
    Metadata      map[string]string     `json:"metadata,omitempty"`
    Lines         []documentLineRequest `json:"lines"`
}

type documentLineResponse struct {
    ItemCode           string  `json:"item_code"`
    Description        string  `json:"description,omitempty"`
    HSCode             string  `json:"hs_code,omitempty"`
    UoM                string  `json:"uom,omitempty"`
    Quantity           float64 `json:"quantity"`
    UnitPrice          float64 `json:"unit_price"`
    DiscountPercentage float64 `json:"discount_percentage"`
    TaxPercentage      float64 `json:"tax_percentage"`
    calc.LineResult
}

type documentResponse struct {
    ID               uuid.UUID              `json:"id"`
    Kind             ledger.DocumentKind    `json:"kind"`
    Number           string                 `json:"number,omitempty"`
    Status           ledger.Status          `json:"status"`
    PartyID          *uuid.UUID             `json:"party_id,omitempty"`
    PartyName        string                 `json:"party_name"`
    PartyNTN         string                 `json:"party_ntn,omitempty"`
    PartyProvince    string                 `json:"party_province,omitempty"`
    Date             date                   `json:"date"`
    DueDate          *date                  `json:"due_date,omitempty"`
    Currency         string                 `json:"currency"`
    Notes            string                 `json:"notes,omitempty"`
    Lines            []documentLineResponse `json:"lines"`
    Totals           calc.Totals            `json:"totals"`
    EntryID          *uuid.UUID             `json:"entry_id,omitempty"`
    FBRInvoiceNumber string                 `json:"fbr_invoice_number,omitempty"`
    PostedAt         *time.Time             `json:"posted_at,omitempty"`
    CreatedAt        time.Time              `json:"created_at"`
    Metadata         map[string]string      `json:"metadata,omitempty"`
}

type calculateRequest struct {
    Lines []documentLineRequest `json:"lines"`
}

type calculateResponse struct {
    Lines  []documentLineResponse `json:"lines"`
    Totals calc.Totals            `json:"totals"`
}

type balanceCheckRequest struct {
    Lines []struct {
        AccountID *uuid.UUID  `json:"account_id,omitempty"`
        Debit     calc.Number `json:"debit"`
        Credit    calc.Number `json:"credit"`
    } `json:"lines"`
}

type balanceCheckResponse struct {
    calc.Balance
    LineErrors []lineErrorResponse `json:"line_errors,omitempty"`
}

type lineErrorResponse struct {
    Index   int    `json:"index"`
    Message string `json:"message"`
}

func toDocumentLine(ln documentLineRequest) ledger.DocumentLine {
    return ledger.DocumentLine{
        ItemCode:    strings.TrimSpace(ln.ItemCode),
        Description: ln.Description,
        HSCode:      strings.TrimSpace(ln.HSCode),
        UoM:         ln.UoM,
        Item: calc.LineItem{
            Quantity:           ln.Quantity.Value,
            UnitPrice:          ln.UnitPrice.Value,
            DiscountPercentage: ln.DiscountPercentage.Value,
            TaxPercentage:      ln.TaxPercentage.Value,
        },
    }
}

func (s *Server) toDocumentDomain(orgID uuid.UUID, req documentRequest) ledger.Document {
    d := ledger.Document{
        OrgID:         orgID,
        Kind:          req.Kind,
        PartyName:     req.PartyName,
        PartyNTN:      req.PartyNTN,
        PartyProvince: req.PartyProvince,
        Date:          req.Date.Time,
        Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
        Notes:         req.Notes,
        Metadata:      meta.New(req.Metadata),
        Lines:         make([]ledger.DocumentLine, 0, len(req.Lines)),
    }
    if d.Currency == "" { d.Currency = s.currency }
    if req.PartyID != nil { d.PartyID = *req.PartyID }
    if req.DueDate != nil {
        t := req.DueDate.Time
        d.DueDate = &t
    }
    for _, ln := range req.Lines {
        d.Lines = append(d.Lines, toDocumentLine(ln))
    }
    return d
}

func toDocumentLineResponse(ln ledger.DocumentLine) documentLineResponse {
    return documentLineResponse{
        ItemCode:           ln.ItemCode,
        Description:        ln.Description,
        HSCode:             ln.HSCode,
        UoM:                ln.UoM,
        Quantity:           ln.Item.Quantity,
        UnitPrice:          ln.Item.UnitPrice,
        DiscountPercentage: ln.Item.DiscountPercentage,
        TaxPercentage:      ln.Item.TaxPercentage,
        LineResult:         ln.Item.Calculate().Rounded(),
    }
}

func toDocumentResponse(d ledger.Document) documentResponse {
    lines := make([]documentLineResponse, 0, len(d.Lines))
    for _, ln := range d.Lines {
        lines = append(lines, toDocumentLineResponse(ln))
    }
    var party *uuid.UUID
    if d.PartyID != uuid.Nil {
        id := d.PartyID
        party = &id
    }
    return documentResponse{
        ID:               d.ID,
        Kind:             d.Kind,
        Number:           d.Number,
        Status:           d.Status,
        PartyID:          party,
        PartyName:        d.PartyName,
        PartyNTN:         d.PartyNTN,
        PartyProvince:    d.PartyProvince,
        Date:             date{d.Date},
        DueDate:          datePtr(d.DueDate),
        Currency:         d.Currency,
        Notes:            d.Notes,
        Lines:            lines,
        Totals:           d.Totals.Rounded(),
        EntryID:          d.EntryID,
        FBRInvoiceNumber: d.FBRInvoiceNumber,
        PostedAt:         d.PostedAt,
        CreatedAt:        d.CreatedAt,
        Metadata:         d.Metadata,
    }
}
