package journal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/ledger"
	"github.com/tinoosan/bizbooks/internal/service/account"
	"github.com/tinoosan/bizbooks/internal/service/journal"
	"github.com/tinoosan/bizbooks/internal/storage/memory"
)

type fixture struct {
	svc   journal.Service
	accts account.Service
	org   uuid.UUID
	cash  ledger.Account
	sales ledger.Account
	rent  ledger.Account
}

var day = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	f := fixture{svc: journal.New(store, store), accts: account.New(store, store), org: uuid.New()}
	mk := func(code, name string, typ ledger.AccountType, group string) ledger.Account {
		a, err := f.accts.Create(context.Background(), ledger.Account{OrgID: f.org, Code: code, Name: name, Currency: "PKR", Type: typ, Group: group})
		require.NoError(t, err)
		return a
	}
	f.cash = mk("1000", "Cash in Hand", ledger.AccountTypeAsset, "cash")
	f.sales = mk("4200", "Service Income", ledger.AccountTypeRevenue, "services")
	f.rent = mk("5300", "Office Rent", ledger.AccountTypeExpense, "rent")
	return f
}

func (f fixture) entry(lines ...ledger.JournalLine) ledger.JournalEntry {
	return ledger.JournalEntry{OrgID: f.org, Date: day, Currency: "PKR", Memo: "test", Lines: lines}
}

func line(acc ledger.Account, debit, credit int64) ledger.JournalLine {
	return ledger.NewLine("PKR", acc.ID, debit, credit)
}

func TestDraftPostNumbering(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.entry(line(f.cash, 10000, 0), line(f.sales, 0, 10000)))
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDraft, d.Status)
	assert.Empty(t, d.Number)
	for _, ln := range d.Lines {
		assert.Equal(t, d.ID, ln.EntryID)
	}

	p, err := f.svc.Post(ctx, f.org, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, p.Status)
	assert.Equal(t, "JE-000001", p.Number)
	require.NotNil(t, p.PostedAt)

	p2, err := f.svc.CreateAndPost(ctx, f.entry(line(f.rent, 2500, 0), line(f.cash, 0, 2500)))
	require.NoError(t, err)
	assert.Equal(t, "JE-000002", p2.Number)

	bal, err := f.svc.AccountBalance(ctx, f.org, f.cash.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "PKR 75.00", bal.String())
}

func TestValidateEntryErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	err := f.svc.ValidateEntry(ctx, f.entry(line(f.cash, 10000, 0)))
	assert.ErrorIs(t, err, errs.ErrTooFewLines)

	err = f.svc.ValidateEntry(ctx, f.entry(line(f.cash, 10000, 0), line(f.sales, 0, 9999)))
	var ue *errs.UnbalancedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 0.01, ue.Difference)

	err = f.svc.ValidateEntry(ctx, f.entry(line(f.cash, 5000, 5000), line(f.sales, 0, 0)))
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Lines, 2)

	unknown := ledger.Account{ID: uuid.New()}
	err = f.svc.ValidateEntry(ctx, f.entry(line(f.cash, 100, 0), line(unknown, 0, 100)))
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Lines, 1)
	assert.Equal(t, 1, ve.Lines[0].Index)

	require.NoError(t, f.accts.Deactivate(ctx, f.org, f.rent.ID))
	err = f.svc.ValidateEntry(ctx, f.entry(line(f.rent, 100, 0), line(f.cash, 0, 100)))
	assert.ErrorIs(t, err, errs.ErrUnprocessable)

	e := f.entry(line(f.cash, 100, 0), line(f.sales, 0, 100))
	e.Date = time.Time{}
	err = f.svc.ValidateEntry(ctx, e)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "date", ve.Fields[0].Field)
}

func TestPostedEntriesArePolicyLocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.CreateAndPost(ctx, f.entry(line(f.cash, 100, 0), line(f.sales, 0, 100)))
	require.NoError(t, err)

	upd := p
	upd.Memo = "changed"
	_, err = f.svc.UpdateDraft(ctx, upd)
	assert.ErrorIs(t, err, errs.ErrPolicy)
	assert.ErrorIs(t, f.svc.DeleteDraft(ctx, f.org, p.ID), errs.ErrPolicy)
	_, err = f.svc.Post(ctx, f.org, p.ID)
	assert.ErrorIs(t, err, errs.ErrPolicy)
}

func TestDeleteDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.entry(line(f.cash, 100, 0), line(f.sales, 0, 100)))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteDraft(ctx, f.org, d.ID))

	list, err := f.svc.List(ctx, f.org, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	deleted := ledger.StatusDeleted
	list, err = f.svc.List(ctx, f.org, &deleted)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Post(ctx, f.org, d.ID)
	assert.ErrorIs(t, err, errs.ErrPolicy)
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d, err := f.svc.CreateDraft(ctx, f.entry(line(f.cash, 100, 0), line(f.sales, 0, 100)))
	require.NoError(t, err)
	d.Lines = []ledger.JournalLine{line(f.rent, 300, 0), line(f.cash, 0, 300)}
	d.Date = day.AddDate(0, 0, 3)
	u, err := f.svc.UpdateDraft(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, f.rent.ID, u.Lines[0].AccountID)
	assert.Equal(t, int64(300), u.Lines[0].DebitMinor())
	assert.Equal(t, ledger.StatusDraft, u.Status)
}

func TestReverseCreatesCompensatingEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.svc.CreateAndPost(ctx, f.entry(line(f.rent, 50000, 0), line(f.cash, 0, 50000)))
	require.NoError(t, err)

	rev, err := f.svc.Reverse(ctx, f.org, p.ID, day.AddDate(0, 0, 1), "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPosted, rev.Status)
	assert.Equal(t, ledger.SourceReversal, rev.Source)
	require.NotNil(t, rev.ReversalOf)
	assert.Equal(t, p.ID, *rev.ReversalOf)
	assert.Equal(t, "JE-000002", rev.Number)

	orig, err := f.svc.Get(ctx, f.org, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, orig.Status)
	require.NotNil(t, orig.ReversedBy)
	assert.Equal(t, rev.ID, *orig.ReversedBy)
	assert.Equal(t, p.Lines, orig.Lines, "original lines must not change")

	bal, err := f.svc.AccountBalance(ctx, f.org, f.cash.ID, nil)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	// the balance as of the original date still shows the payment
	asOf := day
	bal, err = f.svc.AccountBalance(ctx, f.org, f.cash.ID, &asOf)
	require.NoError(t, err)
	assert.Equal(t, "PKR -500.00", bal.String())

	_, err = f.svc.Reverse(ctx, f.org, p.ID, day, "")
	assert.ErrorIs(t, err, errs.ErrPolicy)
}

func TestTrialBalanceAndLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.CreateAndPost(ctx, f.entry(line(f.cash, 100000, 0), line(f.sales, 0, 100000)))
	require.NoError(t, err)
	_, err = f.svc.CreateAndPost(ctx, f.entry(line(f.rent, 30000, 0), line(f.cash, 0, 30000)))
	require.NoError(t, err)
	_, err = f.svc.CreateDraft(ctx, f.entry(line(f.rent, 99900, 0), line(f.cash, 0, 99900)))
	require.NoError(t, err)

	tb, err := f.svc.TrialBalance(ctx, f.org, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "PKR", tb.Currency)
	assert.True(t, tb.Balanced())
	require.Len(t, tb.Rows, 3)
	assert.Equal(t, "1000", tb.Rows[0].Account.Code)
	assert.Equal(t, "PKR 700.00", tb.Rows[0].Debit.String())
	assert.Equal(t, "PKR 1000.00", tb.Rows[1].Credit.String())
	assert.Equal(t, "PKR 1000.00", tb.TotalDebit.String())

	lines, err := f.svc.AccountLedger(ctx, f.org, f.cash.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "JE-000001", lines[0].EntryNumber)
	assert.Equal(t, "PKR 700.00", lines[1].Balance.String())
}

func TestConcurrentPostingKeepsNumbersUnique(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		d, err := f.svc.CreateDraft(ctx, f.entry(line(f.cash, 100, 0), line(f.sales, 0, 100)))
		require.NoError(t, err)
		ids[i] = d.ID
	}
	var wg sync.WaitGroup
	numbers := make(chan string, len(ids)*2)
	for _, id := range ids {
		for k := 0; k < 2; k++ {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				if e, err := f.svc.Post(ctx, f.org, id); err == nil {
					numbers <- e.Number
				}
			}(id)
		}
	}
	wg.Wait()
	close(numbers)
	seen := map[string]bool{}
	for n := range numbers {
		assert.False(t, seen[n], "duplicate number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, len(ids))

	bal, err := f.svc.AccountBalance(ctx, f.org, f.cash.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "PKR 20.00", bal.String())
}
