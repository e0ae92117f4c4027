package document

import (
    "context"
    "fmt"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
)

// LinePreview is a document line with its derived amounts, rounded for display.
type LinePreview struct {
    Line   ledger.DocumentLine
    Result calc.LineResult
}

// Preview is what the document would total without saving anything.
type Preview struct {
    Lines  []LinePreview
    Totals calc.Totals
}

// Calculate derives line amounts and document totals. Rounding is applied
// only to the presented values; totals are aggregated from unrounded lines.
func (s *service) Calculate(lines []ledger.DocumentLine) Preview {
    items := make([]calc.LineItem, 0, len(lines))
    out := Preview{Lines: make([]LinePreview, 0, len(lines))}
    for _, ln := range lines {
        items = append(items, ln.Item)
        out.Lines = append(out.Lines, LinePreview{Line: ln, Result: ln.Item.Calculate().Rounded()})
    }
    out.Totals = calc.Aggregate(items).Rounded()
    return out
}

func calcValidate(ln ledger.DocumentLine) []errs.FieldError { return calc.ValidateLineItem(ln.Item) }

// postingEntry builds the journal entry for an invoice. Orders and
// zero-value invoices return nil.
//
//   sales invoice:    Dr receivable (gross)  Cr sales revenue (net)  Cr sales tax payable (tax)
//   purchase invoice: Dr inventory (net)     Dr input tax (tax)      Cr payable (gross)
func (s *service) postingEntry(ctx context.Context, d ledger.Document) (*ledger.JournalEntry, error) {
    if !d.Kind.AffectsLedger() {
        return nil, nil
    }
    net, tax, gross := d.Totals.PostingCents()
    if gross == 0 {
        return nil, nil
    }
    roles, err := s.accounts.EnsureSystemAccounts(ctx, d.OrgID, d.Currency)
    if err != nil { return nil, err }
    need := func(r ledger.AccountRole) (ledger.Account, error) {
        a, ok := roles[r]
        if !ok {
            return ledger.Account{}, fmt.Errorf("%w: no %s account for %s", errs.ErrNotFound, r, d.Currency)
        }
        return a, nil
    }

    docID := d.ID
    e := ledger.JournalEntry{
        OrgID:      d.OrgID,
        Date:       d.Date,
        Currency:   d.Currency,
        Memo:       memo(d),
        Source:     ledger.SourceDocument,
        DocumentID: &docID,
        Status:     ledger.StatusDraft,
        CreatedAt:  s.now(),
        Metadata:   meta.New(nil),
    }
    add := func(r ledger.AccountRole, debit, credit int64) error {
        if debit == 0 && credit == 0 {
            return nil
        }
        a, err := need(r)
        if err != nil { return err }
        e.Lines = append(e.Lines, ledger.NewLine(d.Currency, a.ID, debit, credit))
        return nil
    }
    switch d.Kind {
    case ledger.KindSalesInvoice:
        err = firstErr(
            add(ledger.RoleReceivable, gross, 0),
            add(ledger.RoleSalesRevenue, 0, net),
            add(ledger.RoleSalesTaxPayable, 0, tax),
        )
    case ledger.KindPurchaseInvoice:
        err = firstErr(
            add(ledger.RoleInventory, net, 0),
            add(ledger.RoleInputTax, tax, 0),
            add(ledger.RolePayable, 0, gross),
        )
    }
    if err != nil { return nil, err }
    if err := s.entries.ValidateEntry(ctx, e); err != nil {
        return nil, err
    }
    return &e, nil
}

func memo(d ledger.Document) string {
    switch d.Kind {
    case ledger.KindSalesInvoice:
        return "Sales invoice to " + d.PartyName
    case ledger.KindPurchaseInvoice:
        return "Purchase invoice from " + d.PartyName
    }
    return string(d.Kind)
}

func firstErr(errList ...error) error {
    for _, err := range errList {
        if err != nil {
            return err
        }
    }
    return nil
}
