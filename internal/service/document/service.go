// Package document implements sales and purchase documents: drafting with
// per-field validation, numbering on posting, the journal entries invoices
// post into the ledger, reversal and FBR submission.
package document

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/fbr"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
)

type Repo interface {
    ListDocuments(ctx context.Context, orgID uuid.UUID) ([]ledger.Document, error)
    GetDocument(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error)
}

// Writer persists documents. PostDocument and ReverseDocument are atomic:
// the document, its journal entry, numbering and balances change together.
// A nil entry means the document has no ledger effect. PostDocument fails
// with ledger.ErrStalePosting when the locked document no longer has the given basis.
type Writer interface {
    CreateDocument(ctx context.Context, d ledger.Document) (ledger.Document, error)
    UpdateDocument(ctx context.Context, d ledger.Document) (ledger.Document, error)
    DeleteDocument(ctx context.Context, orgID, docID uuid.UUID) error
    PostDocument(ctx context.Context, orgID, docID uuid.UUID, basis ledger.PostingBasis, entry *ledger.JournalEntry, at time.Time) (ledger.Document, error)
    ReverseDocument(ctx context.Context, orgID, docID uuid.UUID, reversal *ledger.JournalEntry, at time.Time) (ledger.Document, error)
    SetFBRInvoiceNumber(ctx context.Context, orgID, docID uuid.UUID, number string) (ledger.Document, error)
}

// Accounts resolves the system accounts invoices post into.
type Accounts interface {
    EnsureSystemAccounts(ctx context.Context, orgID uuid.UUID, currency string) (map[ledger.AccountRole]ledger.Account, error)
}

// Entries validates and reads journal entries.
type Entries interface {
    ValidateEntry(ctx context.Context, e ledger.JournalEntry) error
    Get(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error)
}

// Submitter sends a posted sales invoice to FBR.
type Submitter interface {
    Submit(ctx context.Context, d ledger.Document) (fbr.Result, error)
}

type Service interface {
    Calculate(lines []ledger.DocumentLine) Preview
    Validate(d ledger.Document) error
    CreateDraft(ctx context.Context, d ledger.Document) (ledger.Document, error)
    UpdateDraft(ctx context.Context, d ledger.Document) (ledger.Document, error)
    DeleteDraft(ctx context.Context, orgID, docID uuid.UUID) error
    Get(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error)
    List(ctx context.Context, orgID uuid.UUID, kind *ledger.DocumentKind) ([]ledger.Document, error)
    Post(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error)
    Reverse(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error)
    SubmitToFBR(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error)
}

type service struct {
    repo     Repo
    writer   Writer
    accounts Accounts
    entries  Entries
    fbr      Submitter
    now      func() time.Time
}

// New wires the service. submitter may be nil when FBR is not configured.
func New(repo Repo, writer Writer, accounts Accounts, entries Entries, submitter Submitter) Service {
    return &service{repo: repo, writer: writer, accounts: accounts, entries: entries, fbr: submitter, now: func() time.Time { return time.Now().UTC() }}
}

var (
    ErrDraftOnly       = fmt.Errorf("%w: only draft documents can be changed", errs.ErrPolicy)
    ErrNotSubmittable  = fmt.Errorf("%w: only posted sales invoices can be submitted to FBR", errs.ErrPolicy)
    ErrAlreadyReported = fmt.Errorf("%w: document already submitted to FBR", errs.ErrConflict)
    ErrFBRDisabled     = fmt.Errorf("%w: FBR integration is not configured", errs.ErrUpstream)
)

// Validate reports every missing or out-of-range field at once.
func (s *service) Validate(d ledger.Document) error {
    if d.OrgID == uuid.Nil {
        return errs.ErrInvalid
    }
    ve := &errs.ValidationError{}
    if !d.Kind.Valid() {
        ve.AddField("kind", "kind must be sales_invoice, sales_order, purchase_order or purchase_invoice")
    }
    if strings.TrimSpace(d.PartyName) == "" {
        ve.AddField("party_name", partyLabel(d.Kind)+" is required")
    }
    if !ledger.SupportedCurrency(d.Currency) {
        ve.AddField("currency", "unsupported currency "+d.Currency)
    }
    if d.Date.IsZero() {
        ve.AddField("date", "date is required")
    }
    if d.DueDate != nil && d.DueDate.Before(d.Date) {
        ve.AddField("due_date", "due date cannot be before the document date")
    }
    if len(d.Lines) == 0 {
        ve.AddField("lines", "at least one line is required")
    }
    if err := d.Metadata.Validate(); err != nil {
        var fe errs.FieldError
        if !errors.As(err, &fe) { return err }
        ve.Fields = append(ve.Fields, fe)
    }
    for i, ln := range d.Lines {
        if strings.TrimSpace(ln.ItemCode) == "" {
            ve.AddLine(i, "item_code", "item is required")
        }
        for _, fe := range calcValidate(ln) {
            ve.AddLine(i, fe.Field, fe.Message)
        }
    }
    return ve.OrNil()
}

func (s *service) CreateDraft(ctx context.Context, d ledger.Document) (ledger.Document, error) {
    d = normalize(d)
    if err := s.Validate(d); err != nil {
        return ledger.Document{}, err
    }
    d.ID = uuid.New()
    d.Number = ""
    d.Status = ledger.StatusDraft
    d.EntryID, d.PostedAt = nil, nil
    d.FBRInvoiceNumber = ""
    d.CreatedAt = s.now()
    if d.Metadata == nil { d.Metadata = meta.New(nil) }
    d.Recalculate()
    return s.writer.CreateDocument(ctx, d)
}

func (s *service) UpdateDraft(ctx context.Context, d ledger.Document) (ledger.Document, error) {
    if d.OrgID == uuid.Nil || d.ID == uuid.Nil {
        return ledger.Document{}, errs.ErrInvalid
    }
    current, err := s.repo.GetDocument(ctx, d.OrgID, d.ID)
    if err != nil { return ledger.Document{}, err }
    if !current.Status.Editable() {
        return ledger.Document{}, ErrDraftOnly
    }
    if d.Kind != current.Kind {
        return ledger.Document{}, errs.ErrImmutable
    }
    d = normalize(d)
    if err := s.Validate(d); err != nil {
        return ledger.Document{}, err
    }
    d.Status = current.Status
    d.Number = current.Number
    d.CreatedAt = current.CreatedAt
    d.EntryID, d.PostedAt, d.FBRInvoiceNumber = nil, nil, ""
    if d.Metadata == nil { d.Metadata = current.Metadata }
    d.Recalculate()
    return s.writer.UpdateDocument(ctx, d)
}

func (s *service) DeleteDraft(ctx context.Context, orgID, docID uuid.UUID) error {
    if orgID == uuid.Nil || docID == uuid.Nil {
        return errs.ErrInvalid
    }
    current, err := s.repo.GetDocument(ctx, orgID, docID)
    if err != nil { return err }
    if err := ledger.Transition(current.Status, ledger.StatusDeleted); err != nil {
        return err
    }
    return s.writer.DeleteDocument(ctx, orgID, docID)
}

func (s *service) Get(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    if orgID == uuid.Nil || docID == uuid.Nil {
        return ledger.Document{}, errs.ErrInvalid
    }
    return s.repo.GetDocument(ctx, orgID, docID)
}

// List returns documents newest first, optionally of one kind. Deleted drafts are omitted.
func (s *service) List(ctx context.Context, orgID uuid.UUID, kind *ledger.DocumentKind) ([]ledger.Document, error) {
    if orgID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    all, err := s.repo.ListDocuments(ctx, orgID)
    if err != nil { return nil, err }
    out := make([]ledger.Document, 0, len(all))
    for _, d := range all {
        if d.Status == ledger.StatusDeleted { continue }
        if kind != nil && d.Kind != *kind { continue }
        out = append(out, d)
    }
    return out, nil
}

// Post moves a draft to posted. Invoices also post their journal entry.
func (s *service) Post(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    if orgID == uuid.Nil || docID == uuid.Nil {
        return ledger.Document{}, errs.ErrInvalid
    }
    d, err := s.repo.GetDocument(ctx, orgID, docID)
    if err != nil { return ledger.Document{}, err }
    if err := ledger.Transition(d.Status, ledger.StatusPosted); err != nil {
        return ledger.Document{}, err
    }
    if err := s.Validate(d); err != nil {
        return ledger.Document{}, err
    }
    d.Recalculate()
    entry, err := s.postingEntry(ctx, d)
    if err != nil { return ledger.Document{}, err }
    return s.writer.PostDocument(ctx, orgID, docID, d.PostingBasis(), entry, s.now())
}

// Reverse moves a posted document to reversed and reverses its journal entry.
func (s *service) Reverse(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    if orgID == uuid.Nil || docID == uuid.Nil {
        return ledger.Document{}, errs.ErrInvalid
    }
    d, err := s.repo.GetDocument(ctx, orgID, docID)
    if err != nil { return ledger.Document{}, err }
    if err := ledger.Transition(d.Status, ledger.StatusReversed); err != nil {
        return ledger.Document{}, err
    }
    var rev *ledger.JournalEntry
    if d.EntryID != nil {
        orig, err := s.entries.Get(ctx, orgID, *d.EntryID)
        if err != nil { return ledger.Document{}, err }
        r := orig.Reversal(s.now().Truncate(24*time.Hour), "reversal of "+d.Number)
        r.CreatedAt = s.now()
        rev = &r
    }
    return s.writer.ReverseDocument(ctx, orgID, docID, rev, s.now())
}

// SubmitToFBR reports a posted sales invoice and records FBR's invoice number.
func (s *service) SubmitToFBR(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    if orgID == uuid.Nil || docID == uuid.Nil {
        return ledger.Document{}, errs.ErrInvalid
    }
    d, err := s.repo.GetDocument(ctx, orgID, docID)
    if err != nil { return ledger.Document{}, err }
    if d.Kind != ledger.KindSalesInvoice || d.Status != ledger.StatusPosted {
        return ledger.Document{}, ErrNotSubmittable
    }
    if d.FBRInvoiceNumber != "" {
        return ledger.Document{}, ErrAlreadyReported
    }
    if s.fbr == nil {
        return ledger.Document{}, ErrFBRDisabled
    }
    res, err := s.fbr.Submit(ctx, d)
    if err != nil { return ledger.Document{}, err }
    return s.writer.SetFBRInvoiceNumber(ctx, orgID, docID, res.InvoiceNumber)
}

func normalize(d ledger.Document) ledger.Document {
    d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
    if d.Currency == "" { d.Currency = ledger.DefaultCurrency }
    d.PartyName = strings.TrimSpace(d.PartyName)
    d.PartyNTN = strings.TrimSpace(d.PartyNTN)
    d.Lines = append([]ledger.DocumentLine(nil), d.Lines...)
    for i := range d.Lines {
        d.Lines[i].ItemCode = strings.TrimSpace(d.Lines[i].ItemCode)
        d.Lines[i].HSCode = strings.TrimSpace(d.Lines[i].HSCode)
    }
    return d
}

func partyLabel(k ledger.DocumentKind) string {
    if k == ledger.KindPurchaseOrder || k == ledger.KindPurchaseInvoice {
        return "supplier"
    }
    return "customer"
}
