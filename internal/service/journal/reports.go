package journal

import (
    "context"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

// TrialBalanceRow is one account's side of the trial balance. Exactly one of
// Debit and Credit is nonzero unless the account nets to zero.
type TrialBalanceRow struct {
    Account ledger.Account
    Debit   money.Amount
    Credit  money.Amount
}

// TrialBalance lists every account of one currency with posted activity.
type TrialBalance struct {
    Currency    string
    AsOf        *time.Time
    Rows        []TrialBalanceRow
    TotalDebit  money.Amount
    TotalCredit money.Amount
}

// Balanced reports whether total debits equal total credits.
func (tb TrialBalance) Balanced() bool {
    d, _ := tb.TotalDebit.MinorUnits()
    c, _ := tb.TotalCredit.MinorUnits()
    return d == c
}

// LedgerLine is one posted line on an account with the running balance after it.
type LedgerLine struct {
    EntryID     uuid.UUID
    EntryNumber string
    Date        time.Time
    Memo        string
    Debit       money.Amount
    Credit      money.Amount
    Balance     money.Amount
}

// TrialBalance nets posted lines per account up to asOf (inclusive) for one currency.
func (s *service) TrialBalance(ctx context.Context, orgID uuid.UUID, currency string, asOf *time.Time) (TrialBalance, error) {
    if orgID == uuid.Nil {
        return TrialBalance{}, errs.ErrInvalid
    }
    currency = strings.ToUpper(currency)
    if currency == "" { currency = ledger.DefaultCurrency }
    if !ledger.SupportedCurrency(currency) {
        return TrialBalance{}, errs.FieldError{Field: "currency", Message: "unsupported currency " + currency}
    }
    entries, err := s.repo.ListEntries(ctx, orgID)
    if err != nil { return TrialBalance{}, err }
    net := make(map[uuid.UUID]int64)
    for _, e := range entries {
        if !e.CountsInReports() || e.Currency != currency { continue }
        if asOf != nil && e.Date.After(*asOf) { continue }
        for _, ln := range e.Lines {
            net[ln.AccountID] += ln.DebitMinor() - ln.CreditMinor()
        }
    }
    accounts, err := s.repo.ListAccounts(ctx, orgID)
    if err != nil { return TrialBalance{}, err }
    sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })

    tb := TrialBalance{Currency: currency, AsOf: asOf}
    var totalDebit, totalCredit int64
    for _, acc := range accounts {
        n, ok := net[acc.ID]
        if !ok || acc.Currency != currency { continue }
        var d, c int64
        if n >= 0 { d = n } else { c = -n }
        totalDebit += d
        totalCredit += c
        tb.Rows = append(tb.Rows, TrialBalanceRow{Account: acc, Debit: amount(currency, d), Credit: amount(currency, c)})
    }
    tb.TotalDebit = amount(currency, totalDebit)
    tb.TotalCredit = amount(currency, totalCredit)
    return tb, nil
}

// AccountBalance returns debits minus credits for one account. Without asOf it
// reads the balance maintained at posting time.
func (s *service) AccountBalance(ctx context.Context, orgID, accountID uuid.UUID, asOf *time.Time) (money.Amount, error) {
    acc, err := s.account(ctx, orgID, accountID)
    if err != nil { return money.Amount{}, err }
    if asOf == nil {
        n, err := s.repo.PostedBalance(ctx, orgID, accountID)
        if err != nil { return money.Amount{}, err }
        return amount(acc.Currency, n), nil
    }
    entries, err := s.repo.ListEntries(ctx, orgID)
    if err != nil { return money.Amount{}, err }
    var n int64
    for _, e := range entries {
        if !e.CountsInReports() || e.Date.After(*asOf) { continue }
        n += e.NetMinor(accountID)
    }
    return amount(acc.Currency, n), nil
}

// AccountLedger lists every posted line on the account in date order.
func (s *service) AccountLedger(ctx context.Context, orgID, accountID uuid.UUID) ([]LedgerLine, error) {
    acc, err := s.account(ctx, orgID, accountID)
    if err != nil { return nil, err }
    entries, err := s.repo.ListEntries(ctx, orgID)
    if err != nil { return nil, err }
    out := make([]LedgerLine, 0)
    var running int64
    for _, e := range entries {
        if !e.CountsInReports() { continue }
        for _, ln := range e.Lines {
            if ln.AccountID != accountID { continue }
            running += ln.DebitMinor() - ln.CreditMinor()
            memo := ln.Memo
            if memo == "" { memo = e.Memo }
            out = append(out, LedgerLine{
                EntryID:     e.ID,
                EntryNumber: e.Number,
                Date:        e.Date,
                Memo:        memo,
                Debit:       ln.Debit,
                Credit:      ln.Credit,
                Balance:     amount(acc.Currency, running),
            })
        }
    }
    return out, nil
}

func (s *service) account(ctx context.Context, orgID, accountID uuid.UUID) (ledger.Account, error) {
    if orgID == uuid.Nil || accountID == uuid.Nil {
        return ledger.Account{}, errs.ErrInvalid
    }
    m, err := s.repo.AccountsByIDs(ctx, orgID, []uuid.UUID{accountID})
    if err != nil { return ledger.Account{}, err }
    acc, ok := m[accountID]
    if !ok { return ledger.Account{}, errs.ErrNotFound }
    return acc, nil
}

func amount(currency string, minor int64) money.Amount {
    a, _ := money.NewAmountFromMinorUnits(currency, minor)
    return a
}
