package calc

import (
	"math"

	"github.com/google/uuid"

	"github.com/tinoosan/bizbooks/internal/errs"
)

// BalanceTolerance is the largest debit/credit difference still considered balanced.
const BalanceTolerance = 0.01

// MinJournalLines is the smallest number of lines a journal entry may have.
const MinJournalLines = 2

// JournalLine is the numeric view of one journal line.
type JournalLine struct {
	AccountID uuid.UUID `json:"account_id"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
}

// Balance is the outcome of CheckBalance.
type Balance struct {
	IsBalanced  bool    `json:"is_balanced"`
	TotalDebit  float64 `json:"total_debit"`
	TotalCredit float64 `json:"total_credit"`
	Difference  float64 `json:"difference"`
}

// CheckBalance sums debits and credits. Difference is computed on the rounded
// totals and the entry is balanced when it is below BalanceTolerance.
func CheckBalance(lines []JournalLine) Balance {
	var d, c float64
	for _, ln := range lines {
		d += finite(ln.Debit)
		c += finite(ln.Credit)
	}
	diff := Round2(Round2(d) - Round2(c))
	return Balance{
		IsBalanced:  math.Abs(diff) < BalanceTolerance,
		TotalDebit:  d,
		TotalCredit: c,
		Difference:  diff,
	}
}

// ValidateJournalLines checks each line on its own: an account is set, no
// amount is negative, and exactly one of debit/credit is nonzero.
func ValidateJournalLines(lines []JournalLine) []errs.LineError {
	var out []errs.LineError
	for i, ln := range lines {
		if ln.AccountID == uuid.Nil {
			out = append(out, errs.LineError{Index: i, Field: "account_id", Message: "account is required"})
		}
		d, c := finite(ln.Debit), finite(ln.Credit)
		switch {
		case d < 0 || c < 0:
			out = append(out, errs.LineError{Index: i, Message: "debit and credit must not be negative"})
		case d == 0 && c == 0:
			out = append(out, errs.LineError{Index: i, Message: "either debit or credit is required"})
		case d != 0 && c != 0:
			out = append(out, errs.LineError{Index: i, Message: "a line cannot carry both debit and credit"})
		}
	}
	return out
}

// ValidateJournal runs every structural check on a journal entry: line count,
// per-line rules and finally the aggregate balance. Line problems are reported
// as *errs.ValidationError, imbalance as *errs.UnbalancedError.
func ValidateJournal(lines []JournalLine) error {
	if len(lines) < MinJournalLines {
		return errs.ErrTooFewLines
	}
	if lineErrs := ValidateJournalLines(lines); len(lineErrs) > 0 {
		return &errs.ValidationError{Lines: lineErrs}
	}
	if b := CheckBalance(lines); !b.IsBalanced {
		return &errs.UnbalancedError{TotalDebit: Round2(b.TotalDebit), TotalCredit: Round2(b.TotalCredit), Difference: b.Difference}
	}
	return nil
}
