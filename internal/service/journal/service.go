package journal

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
)

// Repo defines read operations needed by the service.
type Repo interface {
    AccountsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
    ListAccounts(ctx context.Context, orgID uuid.UUID) ([]ledger.Account, error)
    // ListEntries returns the org's entries ordered by (Date, ID).
    ListEntries(ctx context.Context, orgID uuid.UUID) ([]ledger.JournalEntry, error)
    GetEntry(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error)
    // PostedBalance is the running debit-minus-credit balance kept by posting, in cents.
    PostedBalance(ctx context.Context, orgID, accountID uuid.UUID) (int64, error)
}

// Writer defines write operations needed by the service. Post and reverse are
// atomic: the status change, numbering and balance updates land together.
type Writer interface {
    CreateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
    UpdateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
    DeleteEntry(ctx context.Context, orgID, entryID uuid.UUID) error
    PostEntry(ctx context.Context, orgID, entryID uuid.UUID, at time.Time) (ledger.JournalEntry, error)
    ReverseEntry(ctx context.Context, orgID, entryID uuid.UUID, reversal ledger.JournalEntry, at time.Time) (ledger.JournalEntry, error)
}

// Service exposes the journal entry lifecycle and reporting helpers.
type Service interface {
    ValidateEntry(ctx context.Context, e ledger.JournalEntry) error
    CreateDraft(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, error)
    UpdateDraft(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, error)
    DeleteDraft(ctx context.Context, orgID, entryID uuid.UUID) error
    Get(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error)
    List(ctx context.Context, orgID uuid.UUID, status *ledger.Status) ([]ledger.JournalEntry, error)
    Post(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error)
    Reverse(ctx context.Context, orgID, entryID uuid.UUID, date time.Time, memo string) (ledger.JournalEntry, error)
    CreateAndPost(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, error)
    TrialBalance(ctx context.Context, orgID uuid.UUID, currency string, asOf *time.Time) (TrialBalance, error)
    AccountBalance(ctx context.Context, orgID, accountID uuid.UUID, asOf *time.Time) (money.Amount, error)
    AccountLedger(ctx context.Context, orgID, accountID uuid.UUID) ([]LedgerLine, error)
}

type service struct {
    repo   Repo
    writer Writer
    now    func() time.Time
}

func New(repo Repo, writer Writer) Service {
    return &service{repo: repo, writer: writer, now: func() time.Time { return time.Now().UTC() }}
}

// ErrDraftOnly rejects edits and deletes of entries that left the draft state.
var ErrDraftOnly = fmt.Errorf("%w: only draft entries can be changed", errs.ErrPolicy)

// ErrDocumentEntry rejects reversing a document's entry directly; the document must be reversed.
var ErrDocumentEntry = fmt.Errorf("%w: entry belongs to a document; reverse the document instead", errs.ErrPolicy)

// ValidateEntry checks the header, the journal lines and every referenced account.
func (s *service) ValidateEntry(ctx context.Context, entry ledger.JournalEntry) error {
    if entry.OrgID == uuid.Nil {
        return errs.ErrInvalid
    }
    ve := &errs.ValidationError{}
    if entry.Currency == "" {
        ve.AddField("currency", "currency is required")
    } else if !ledger.SupportedCurrency(entry.Currency) {
        ve.AddField("currency", "unsupported currency "+entry.Currency)
    }
    if entry.Date.IsZero() {
        ve.AddField("date", "date is required")
    }
    if err := entry.Metadata.Validate(); err != nil {
        var fe errs.FieldError
        if !errors.As(err, &fe) { return err }
        ve.Fields = append(ve.Fields, fe)
    }
    if !ve.Empty() {
        return ve
    }
    for i, ln := range entry.Lines {
        if c := ln.Debit.Curr().Code(); c != entry.Currency {
            ve.AddLine(i, "debit", "amount currency "+c+" does not match entry currency")
        }
        if c := ln.Credit.Curr().Code(); c != entry.Currency {
            ve.AddLine(i, "credit", "amount currency "+c+" does not match entry currency")
        }
    }
    if !ve.Empty() {
        return ve
    }
    if err := calc.ValidateJournal(entry.CalcLines()); err != nil {
        return err
    }

    ids := entry.AccountIDs()
    accMap, err := s.repo.AccountsByIDs(ctx, entry.OrgID, ids)
    if err != nil {
        return err
    }
    for i, line := range entry.Lines {
        acc, ok := accMap[line.AccountID]
        switch {
        case !ok:
            ve.AddLine(i, "account_id", "account not found")
        case !acc.Active:
            ve.AddLine(i, "account_id", "account "+acc.Code+" is inactive")
        case acc.Currency != entry.Currency:
            ve.AddLine(i, "account_id", "account currency "+acc.Currency+" does not match entry currency")
        }
    }
    return ve.OrNil()
}

func (s *service) CreateDraft(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    entry.Currency = strings.ToUpper(entry.Currency)
    if err := s.ValidateEntry(ctx, entry); err != nil {
        return ledger.JournalEntry{}, err
    }
    entry.ID = uuid.New()
    entry.Number = ""
    entry.Status = ledger.StatusDraft
    entry.PostedAt, entry.ReversalOf, entry.ReversedBy = nil, nil, nil
    if entry.Source == "" { entry.Source = ledger.SourceManual }
    if entry.Metadata == nil { entry.Metadata = meta.New(nil) }
    entry.CreatedAt = s.now()
    entry.Lines = relink(entry.ID, entry.Lines)
    return s.writer.CreateEntry(ctx, entry)
}

// UpdateDraft replaces the editable fields and lines of a draft.
func (s *service) UpdateDraft(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    if entry.OrgID == uuid.Nil || entry.ID == uuid.Nil {
        return ledger.JournalEntry{}, errs.ErrInvalid
    }
    current, err := s.repo.GetEntry(ctx, entry.OrgID, entry.ID)
    if err != nil { return ledger.JournalEntry{}, err }
    if !current.Status.Editable() {
        return ledger.JournalEntry{}, ErrDraftOnly
    }
    entry.Currency = strings.ToUpper(entry.Currency)
    if err := s.ValidateEntry(ctx, entry); err != nil {
        return ledger.JournalEntry{}, err
    }
    current.Date = entry.Date
    current.Currency = entry.Currency
    current.Memo = entry.Memo
    if entry.Metadata != nil { current.Metadata = entry.Metadata }
    current.Lines = relink(current.ID, entry.Lines)
    return s.writer.UpdateEntry(ctx, current)
}

func (s *service) DeleteDraft(ctx context.Context, orgID, entryID uuid.UUID) error {
    if orgID == uuid.Nil || entryID == uuid.Nil {
        return errs.ErrInvalid
    }
    current, err := s.repo.GetEntry(ctx, orgID, entryID)
    if err != nil { return err }
    if err := ledger.Transition(current.Status, ledger.StatusDeleted); err != nil {
        return err
    }
    return s.writer.DeleteEntry(ctx, orgID, entryID)
}

func (s *service) Get(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error) {
    if orgID == uuid.Nil || entryID == uuid.Nil {
        return ledger.JournalEntry{}, errs.ErrInvalid
    }
    return s.repo.GetEntry(ctx, orgID, entryID)
}

// List returns entries in date order. Without a status filter deleted drafts are omitted.
func (s *service) List(ctx context.Context, orgID uuid.UUID, status *ledger.Status) ([]ledger.JournalEntry, error) {
    if orgID == uuid.Nil {
        return nil, errs.ErrInvalid
    }
    all, err := s.repo.ListEntries(ctx, orgID)
    if err != nil { return nil, err }
    out := make([]ledger.JournalEntry, 0, len(all))
    for _, e := range all {
        if status != nil && e.Status != *status { continue }
        if status == nil && e.Status == ledger.StatusDeleted { continue }
        out = append(out, e)
    }
    return out, nil
}

// Post commits a draft to the ledger. Accounts are re-checked since they may
// have been deactivated after the draft was saved.
func (s *service) Post(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error) {
    if orgID == uuid.Nil || entryID == uuid.Nil {
        return ledger.JournalEntry{}, errs.ErrInvalid
    }
    current, err := s.repo.GetEntry(ctx, orgID, entryID)
    if err != nil { return ledger.JournalEntry{}, err }
    if err := ledger.Transition(current.Status, ledger.StatusPosted); err != nil {
        return ledger.JournalEntry{}, err
    }
    if err := s.ValidateEntry(ctx, current); err != nil {
        return ledger.JournalEntry{}, err
    }
    return s.writer.PostEntry(ctx, orgID, entryID, s.now())
}

// Reverse posts a compensating entry for a posted entry and marks the original
// reversed. The original's lines are left untouched. Returns the new entry.
func (s *service) Reverse(ctx context.Context, orgID, entryID uuid.UUID, date time.Time, memo string) (ledger.JournalEntry, error) {
    if orgID == uuid.Nil || entryID == uuid.Nil {
        return ledger.JournalEntry{}, errs.ErrInvalid
    }
    orig, err := s.repo.GetEntry(ctx, orgID, entryID)
    if err != nil { return ledger.JournalEntry{}, err }
    if err := ledger.Transition(orig.Status, ledger.StatusReversed); err != nil {
        return ledger.JournalEntry{}, err
    }
    if orig.Source == ledger.SourceDocument {
        return ledger.JournalEntry{}, ErrDocumentEntry
    }
    if date.IsZero() { date = s.now().Truncate(24 * time.Hour) }
    rev := orig.Reversal(date, memo)
    rev.CreatedAt = s.now()
    return s.writer.ReverseEntry(ctx, orgID, entryID, rev, s.now())
}

// CreateAndPost saves a draft and posts it straight away.
func (s *service) CreateAndPost(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    draft, err := s.CreateDraft(ctx, entry)
    if err != nil { return ledger.JournalEntry{}, err }
    return s.writer.PostEntry(ctx, draft.OrgID, draft.ID, s.now())
}

func relink(entryID uuid.UUID, lines []ledger.JournalLine) []ledger.JournalLine {
    out := make([]ledger.JournalLine, len(lines))
    for i, ln := range lines {
        ln.ID = uuid.New()
        ln.EntryID = entryID
        out[i] = ln
    }
    return out
}
