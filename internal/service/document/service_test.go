package document_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bizbooks/internal/calc"
	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/fbr"
	"github.com/tinoosan/bizbooks/internal/ledger"
	"github.com/tinoosan/bizbooks/internal/service/account"
	"github.com/tinoosan/bizbooks/internal/service/document"
	"github.com/tinoosan/bizbooks/internal/service/journal"
	"github.com/tinoosan/bizbooks/internal/storage/memory"
)

type fakeFBR struct {
	calls int
	err   error
}

func (f *fakeFBR) Submit(_ context.Context, d ledger.Document) (fbr.Result, error) {
	f.calls++
	if f.err != nil {
		return fbr.Result{}, f.err
	}
	return fbr.Result{InvoiceNumber: "FBR-" + d.Number}, nil
}

type fixture struct {
	svc      document.Service
	journal  journal.Service
	accounts account.Service
	fbr      *fakeFBR
	org      uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	f := fixture{
		journal:  journal.New(store, store),
		accounts: account.New(store, store),
		fbr:      &fakeFBR{},
		org:      uuid.New(),
	}
	f.svc = document.New(store, store, f.accounts, f.journal, f.fbr)
	return f
}

func (f fixture) doc(kind ledger.DocumentKind, lines ...calc.LineItem) ledger.Document {
	d := ledger.Document{
		OrgID:     f.org,
		Kind:      kind,
		PartyName: "Lahore Textiles",
		PartyNTN:  "7654321",
		Date:      time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
	}
	for i, li := range lines {
		d.Lines = append(d.Lines, ledger.DocumentLine{ItemCode: "ITEM-" + string(rune('A'+i)), HSCode: "5208.1100", Item: li})
	}
	return d
}

var standard = calc.LineItem{Quantity: 10, UnitPrice: 100, DiscountPercentage: 10, TaxPercentage: 18}

func TestCalculatePreview(t *testing.T) {
	f := setup(t)
	p := f.svc.Calculate([]ledger.DocumentLine{{Item: standard}, {Item: calc.LineItem{Quantity: 1, UnitPrice: 0}}})
	require.Len(t, p.Lines, 2)
	assert.Equal(t, 1062.0, p.Lines[0].Result.LineTotal)
	assert.Equal(t, calc.Totals{Subtotal: 1000, TotalDiscount: 100, TotalTax: 162, GrandTotal: 1062}, p.Totals)
}

func TestCreateDraftValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateDraft(ctx, ledger.Document{OrgID: f.org, Kind: ledger.KindSalesInvoice})
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	fields := map[string]bool{}
	for _, fe := range ve.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["party_name"])
	assert.True(t, fields["date"])
	assert.True(t, fields["lines"])

	bad := f.doc(ledger.KindPurchaseOrder, calc.LineItem{Quantity: 0, UnitPrice: -5, TaxPercentage: 101})
	bad.Lines[0].ItemCode = ""
	_, err = f.svc.CreateDraft(ctx, bad)
	require.True(t, errors.As(err, &ve))
	assert.Empty(t, ve.Fields)
	require.Len(t, ve.Lines, 4)
	assert.Equal(t, "item_code", ve.Lines[0].Field)
}

func TestCreateDraftComputesTotals(t *testing.T) {
	f := setup(t)
	d, err := f.svc.CreateDraft(context.Background(), f.doc(ledger.KindSalesOrder, standard))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, d.Status)
	assert.Equal(t, "PKR", d.Currency)
	assert.Equal(t, 1062.0, d.Totals.Rounded().GrandTotal)
	assert.Empty(t, d.Number)
}

func TestPostSalesInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)

	posted, err := f.svc.Post(ctx, f.org, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, posted.Status)
	assert.Equal(t, "SI-000001", posted.Number)
	require.NotNil(t, posted.EntryID)

	e, err := f.journal.Get(ctx, f.org, *posted.EntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, e.Status)
	assert.Equal(t, ledger.SourceDocument, e.Source)
	dr, cr := e.TotalsMinor()
	assert.Equal(t, int64(106200), dr)
	assert.Equal(t, dr, cr)

	sys, err := f.accounts.EnsureSystemAccounts(ctx, f.org, "PKR")
	require.NoError(t, err)
	check := func(role ledger.AccountRole, want string) {
		bal, err := f.journal.AccountBalance(ctx, f.org, sys[role].ID, nil)
		require.NoError(t, err)
		assert.Equal(t, want, bal.String(), string(role))
	}
	check(ledger.RoleReceivable, "PKR 1062.00")
	check(ledger.RoleSalesRevenue, "PKR -900.00")
	check(ledger.RoleSalesTaxPayable, "PKR -162.00")

	_, err = f.svc.Post(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrPolicy)
	_, err = f.svc.UpdateDraft(ctx, posted)
	assert.ErrorIs(t, err, errs.ErrPolicy)
	assert.ErrorIs(t, f.svc.DeleteDraft(ctx, f.org, d.ID), errs.ErrPolicy)
}

func TestPostPurchaseInvoiceAndOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pi, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindPurchaseInvoice, standard))
	require.NoError(t, err)
	pi, err = f.svc.Post(ctx, f.org, pi.ID)
	require.NoError(t, err)
	assert.Equal(t, "PI-000001", pi.Number)

	sys, err := f.accounts.EnsureSystemAccounts(ctx, f.org, "PKR")
	require.NoError(t, err)
	inv, err := f.journal.AccountBalance(ctx, f.org, sys[ledger.RoleInventory].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "PKR 900.00", inv.String())
	tax, err := f.journal.AccountBalance(ctx, f.org, sys[ledger.RoleInputTax].ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "PKR 162.00", tax.String())

	po, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindPurchaseOrder, standard))
	require.NoError(t, err)
	po, err = f.svc.Post(ctx, f.org, po.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-000001", po.Number)
	assert.Nil(t, po.EntryID)
}

func TestPostZeroValueInvoiceHasNoEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, calc.LineItem{Quantity: 1, UnitPrice: 0, TaxPercentage: 18}))
	require.NoError(t, err)
	d, err = f.svc.Post(ctx, f.org, d.ID)
	require.NoError(t, err)
	assert.Nil(t, d.EntryID)
	assert.Equal(t, ledger.StatusPosted, d.Status)
}

func TestReverseDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)
	d, err = f.svc.Post(ctx, f.org, d.ID)
	require.NoError(t, err)

	r, err := f.svc.Reverse(ctx, f.org, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, r.Status)

	orig, err := f.journal.Get(ctx, f.org, *d.EntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, orig.Status)
	require.NotNil(t, orig.ReversedBy)

	// the document's entry cannot be reversed on its own
	_, err = f.journal.Reverse(ctx, f.org, *d.EntryID, time.Time{}, "")
	assert.ErrorIs(t, err, errs.ErrPolicy)

	tb, err := f.journal.TrialBalance(ctx, f.org, "PKR", nil)
	require.NoError(t, err)
	assert.True(t, tb.Balanced())
	assert.True(t, tb.TotalDebit.IsZero())

	_, err = f.svc.Reverse(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrPolicy)
}

func TestDraftCannotBeReversed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)
	_, err = f.svc.Reverse(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrPolicy)
	require.NoError(t, f.svc.DeleteDraft(ctx, f.org, d.ID))
	list, err := f.svc.List(ctx, f.org, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitToFBR(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)

	_, err = f.svc.SubmitToFBR(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, document.ErrNotSubmittable)

	_, err = f.svc.Post(ctx, f.org, d.ID)
	require.NoError(t, err)

	f.fbr.err = &fbr.SubmitError{StatusCode: "01", Message: "invalid"}
	_, err = f.svc.SubmitToFBR(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrUpstream)

	f.fbr.err = nil
	got, err := f.svc.SubmitToFBR(ctx, f.org, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "FBR-SI-000001", got.FBRInvoiceNumber)

	_, err = f.svc.SubmitToFBR(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, 2, f.fbr.calls)
}

func TestListFiltersByKind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)
	_, err = f.svc.CreateDraft(ctx, f.doc(ledger.KindPurchaseOrder, standard))
	require.NoError(t, err)
	kind := ledger.KindPurchaseOrder
	list, err := f.svc.List(ctx, f.org, &kind)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ledger.KindPurchaseOrder, list[0].Kind)
}

// racingWriter edits the draft just before the post reaches the store, the way
// a concurrent PUT would.
type racingWriter struct {
	*memory.Store
	edit func(d ledger.Document) ledger.Document
}

func (w racingWriter) PostDocument(ctx context.Context, orgID, docID uuid.UUID, basis ledger.PostingBasis, entry *ledger.JournalEntry, at time.Time) (ledger.Document, error) {
	cur, err := w.Store.GetDocument(ctx, orgID, docID)
	if err != nil {
		return ledger.Document{}, err
	}
	if _, err := w.Store.UpdateDocument(ctx, w.edit(cur)); err != nil {
		return ledger.Document{}, err
	}
	return w.Store.PostDocument(ctx, orgID, docID, basis, entry, at)
}

func TestPostRejectsDocumentChangedMidway(t *testing.T) {
	store := memory.New()
	entries := journal.New(store, store)
	accounts := account.New(store, store)
	org := uuid.New()
	w := racingWriter{Store: store, edit: func(d ledger.Document) ledger.Document {
		d.Lines = []ledger.DocumentLine{{ItemCode: "ITEM-A", Item: calc.LineItem{Quantity: 1, UnitPrice: 5}}}
		d.Recalculate()
		return d
	}}
	svc := document.New(store, w, accounts, entries, nil)
	ctx := context.Background()

	f := fixture{org: org}
	d, err := svc.CreateDraft(ctx, f.doc(ledger.KindSalesInvoice, standard))
	require.NoError(t, err)

	_, err = svc.Post(ctx, org, d.ID)
	require.ErrorIs(t, err, ledger.ErrStalePosting)
	require.ErrorIs(t, err, errs.ErrConflict)

	got, err := svc.Get(ctx, org, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, got.Status)
	assert.Nil(t, got.EntryID)
	assert.Empty(t, got.Number)

	posted := ledger.StatusPosted
	list, err := entries.List(ctx, org, &posted)
	require.NoError(t, err)
	assert.Empty(t, list, "no entry may be booked for a document that changed")

	// The next attempt sees the edited lines and books matching amounts.
	svc = document.New(store, store, accounts, entries, nil)
	got, err = svc.Post(ctx, org, d.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EntryID)
	e, err := entries.Get(ctx, org, *got.EntryID)
	require.NoError(t, err)
	debit, _ := e.TotalsMinor()
	assert.Equal(t, int64(500), debit)
	assert.Equal(t, 5.0, got.Totals.Rounded().GrandTotal)
}
