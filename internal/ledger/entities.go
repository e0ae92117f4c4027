package ledger

import (
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/meta"
)

// AccountType enumerates the broad classification of an account in the ledger.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the business.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owner's residual interest in the entity.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
    switch t {
    case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
        return true
    }
    return false
}

// DebitNormal reports whether balances of this type are naturally on the debit side.
func (t AccountType) DebitNormal() bool { return t == AccountTypeAsset || t == AccountTypeExpense }

// AccountRole tags the system accounts that documents post into.
type AccountRole string

const (
    RoleNone            AccountRole = ""
    RoleReceivable      AccountRole = "receivable"
    RolePayable         AccountRole = "payable"
    RoleSalesRevenue    AccountRole = "sales_revenue"
    RoleSalesTaxPayable AccountRole = "sales_tax_payable"
    RoleInputTax        AccountRole = "input_tax"
    RoleInventory       AccountRole = "inventory"
    RoleOpeningBalances AccountRole = "opening_balances"
)

// DefaultCurrency is used when an org does not configure one.
const DefaultCurrency = "PKR"

var supportedCurrencies = map[string]struct{}{
    "PKR": {}, "USD": {}, "GBP": {}, "EUR": {}, "AED": {}, "SAR": {},
}

// SupportedCurrency reports whether code is accepted. All supported
// currencies have two-digit minor units, which money conversions rely on.
func SupportedCurrency(code string) bool {
    _, ok := supportedCurrencies[strings.ToUpper(code)]
    return ok
}

// Org owns every account, entry and document.
type Org struct {
	ID   uuid.UUID
	Name string
	// NTN is the national tax number reported to FBR as the seller.
	NTN      string
	Province string
	Address  string
}

// Account represents a chart-of-accounts entry belonging to an org.
type Account struct {
    ID       uuid.UUID
    OrgID    uuid.UUID
    // Code is the human account number, unique per org (e.g. 1100).
    Code     string
    Name     string
    Currency string
    Type     AccountType
    // Group is a slug sub-classifying the account (e.g. bank, receivable, sales).
    Group    string
    Role     AccountRole
    Metadata meta.Metadata `json:"metadata,omitempty"`
    // System marks reserved accounts that documents post into.
    System   bool
    // Active indicates whether the account is active (soft-delete when false).
    Active   bool
}

// Path returns a colon-separated identifier for the account: type:group:code.
func (a Account) Path() string {
    return string(a.Type) + ":" + strings.ToLower(a.Group) + ":" + strings.ToLower(a.Code)
}

// EntrySource records what produced a journal entry.
type EntrySource string

const (
    SourceManual   EntrySource = "manual"
    SourceDocument EntrySource = "document"
    SourceReversal EntrySource = "reversal"
)

// JournalEntry is a double-entry record whose lines must balance.
type JournalEntry struct {
    ID       uuid.UUID
    OrgID    uuid.UUID
    // Number is assigned on posting (JE-000001).
    Number   string
    Date     time.Time
    Currency string
    Memo     string
    Source   EntrySource
    // DocumentID links entries generated by posting a document.
    DocumentID *uuid.UUID
    Status   Status
    // ReversalOf is set on compensating entries; ReversedBy on the originals they offset.
    ReversalOf *uuid.UUID
    ReversedBy *uuid.UUID
    PostedAt   *time.Time
    CreatedAt  time.Time
    Metadata   meta.Metadata `json:"metadata,omitempty"`
    Lines      []JournalLine
}

// JournalLine posts an amount to one side of an account. Exactly one of
// Debit and Credit is nonzero.
type JournalLine struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	AccountID uuid.UUID
	Debit     money.Amount
	Credit    money.Amount
	Memo      string
}

// DebitMinor returns the debit in minor units (cents).
func (l JournalLine) DebitMinor() int64 { u, _ := l.Debit.MinorUnits(); return u }

// CreditMinor returns the credit in minor units (cents).
func (l JournalLine) CreditMinor() int64 { u, _ := l.Credit.MinorUnits(); return u }

// NewLine builds a journal line from cent amounts in the given currency.
func NewLine(currency string, accountID uuid.UUID, debitMinor, creditMinor int64) JournalLine {
    d, _ := money.NewAmountFromMinorUnits(currency, debitMinor)
    c, _ := money.NewAmountFromMinorUnits(currency, creditMinor)
    return JournalLine{AccountID: accountID, Debit: d, Credit: c}
}

// CalcLines returns the numeric view of the entry used by calc.ValidateJournal.
func (e JournalEntry) CalcLines() []calc.JournalLine {
    out := make([]calc.JournalLine, 0, len(e.Lines))
    for _, ln := range e.Lines {
        out = append(out, calc.JournalLine{
            AccountID: ln.AccountID,
            Debit:     calc.FromCents(ln.DebitMinor()),
            Credit:    calc.FromCents(ln.CreditMinor()),
        })
    }
    return out
}

// TotalsMinor sums debits and credits in cents.
func (e JournalEntry) TotalsMinor() (debit, credit int64) {
    for _, ln := range e.Lines {
        debit += ln.DebitMinor()
        credit += ln.CreditMinor()
    }
    return debit, credit
}

// AccountIDs returns the distinct accounts referenced by the lines.
func (e JournalEntry) AccountIDs() []uuid.UUID {
    seen := make(map[uuid.UUID]struct{}, len(e.Lines))
    out := make([]uuid.UUID, 0, len(e.Lines))
    for _, ln := range e.Lines {
        if _, ok := seen[ln.AccountID]; ok {
            continue
        }
        seen[ln.AccountID] = struct{}{}
        out = append(out, ln.AccountID)
    }
    return out
}

// DocumentKind distinguishes sales and purchase documents.
type DocumentKind string

const (
    KindSalesInvoice    DocumentKind = "sales_invoice"
    KindSalesOrder      DocumentKind = "sales_order"
    KindPurchaseOrder   DocumentKind = "purchase_order"
    KindPurchaseInvoice DocumentKind = "purchase_invoice"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
    switch k {
    case KindSalesInvoice, KindSalesOrder, KindPurchaseOrder, KindPurchaseInvoice:
        return true
    }
    return false
}

// NumberPrefix is prepended to the sequence assigned on posting.
func (k DocumentKind) NumberPrefix() string {
    switch k {
    case KindSalesInvoice:
        return "SI"
    case KindSalesOrder:
        return "SO"
    case KindPurchaseOrder:
        return "PO"
    case KindPurchaseInvoice:
        return "PI"
    }
    return "DOC"
}

// AffectsLedger reports whether posting the document creates a journal entry.
// Orders are commitments only.
func (k DocumentKind) AffectsLedger() bool {
    return k == KindSalesInvoice || k == KindPurchaseInvoice
}

// Document is a sales or purchase document made of line items.
type Document struct {
    ID        uuid.UUID
    OrgID     uuid.UUID
    Kind      DocumentKind
    Number    string
    Status    Status
    // PartyID is the customer (sales) or supplier (purchases).
    PartyID   uuid.UUID
    PartyName string
    PartyNTN  string
    PartyProvince string
    Date      time.Time
    DueDate   *time.Time
    Currency  string
    Notes     string
    Lines     []DocumentLine
    // Totals is recomputed from Lines whenever the document is saved.
    Totals    calc.Totals
    // EntryID is the journal entry created when an invoice was posted.
    EntryID   *uuid.UUID
    FBRInvoiceNumber string
    PostedAt  *time.Time
    CreatedAt time.Time
    Metadata  meta.Metadata `json:"metadata,omitempty"`
}

// DocumentLine is one line item on a document.
type DocumentLine struct {
    ItemCode    string
    Description string
    // HSCode and UoM are required by FBR for sales tax reporting.
    HSCode      string
    UoM         string
    Item        calc.LineItem
}

// LineItems returns the calculator view of the lines.
func (d Document) LineItems() []calc.LineItem {
    out := make([]calc.LineItem, 0, len(d.Lines))
    for _, ln := range d.Lines {
        out = append(out, ln.Item)
    }
    return out
}

// Recalculate refreshes Totals from the current lines.
func (d *Document) Recalculate() { d.Totals = calc.Aggregate(d.LineItems()) }

// ErrStalePosting rejects posting an entry built from an older version of the document.
var ErrStalePosting = fmt.Errorf("%w: document changed while posting, retry", errs.ErrConflict)

// PostingBasis is everything an invoice's journal entry is derived from.
// The entry is only valid for the document while the basis is unchanged.
type PostingBasis struct {
    Currency  string
    Date      time.Time
    PartyName string
    Net       int64
    Tax       int64
    Gross     int64
}

// Equal compares dates by instant so values read through different paths match.
func (b PostingBasis) Equal(o PostingBasis) bool {
    return b.Currency == o.Currency && b.Date.Equal(o.Date) && b.PartyName == o.PartyName &&
        b.Net == o.Net && b.Tax == o.Tax && b.Gross == o.Gross
}

// PostingBasis derives the basis from the current lines, not the stored Totals.
func (d Document) PostingBasis() PostingBasis {
    net, tax, gross := calc.Aggregate(d.LineItems()).PostingCents()
    return PostingBasis{Currency: d.Currency, Date: d.Date, PartyName: d.PartyName, Net: net, Tax: tax, Gross: gross}
}

// Reversal builds the compensating entry for e: same accounts and amounts with
// the sides swapped. It starts as a draft; numbering and posting are left to the store.
func (e JournalEntry) Reversal(date time.Time, memo string) JournalEntry {
    id := uuid.New()
    lines := make([]JournalLine, 0, len(e.Lines))
    for _, ln := range e.Lines {
        lines = append(lines, JournalLine{ID: uuid.New(), EntryID: id, AccountID: ln.AccountID, Debit: ln.Credit, Credit: ln.Debit, Memo: ln.Memo})
    }
    if memo == "" {
        memo = "reversal of " + e.Number
    }
    orig := e.ID
    return JournalEntry{
        ID:         id,
        OrgID:      e.OrgID,
        Date:       date,
        Currency:   e.Currency,
        Memo:       memo,
        Source:     SourceReversal,
        DocumentID: e.DocumentID,
        Status:     StatusDraft,
        ReversalOf: &orig,
        Metadata:   meta.New(nil),
        Lines:      lines,
    }
}

// NetMinor returns debit minus credit for accountID across the lines, in cents.
func (e JournalEntry) NetMinor(accountID uuid.UUID) int64 {
    var n int64
    for _, ln := range e.Lines {
        if ln.AccountID == accountID {
            n += ln.DebitMinor() - ln.CreditMinor()
        }
    }
    return n
}

// CountsInReports reports whether the entry affects balances. Reversed
// entries still count; their compensating entry offsets them.
func (e JournalEntry) CountsInReports() bool {
    return e.Status == StatusPosted || e.Status == StatusReversed
}
