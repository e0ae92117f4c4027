package ledger

import (
	"errors"
	"testing"

	"github.com/tinoosan/bizbooks/internal/errs"
)

func TestTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusPosted},
		{StatusDraft, StatusDeleted},
		{StatusPosted, StatusReversed},
	}
	for _, tc := range allowed {
		if err := Transition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusPosted, StatusDraft},
		{StatusPosted, StatusDeleted},
		{StatusReversed, StatusPosted},
		{StatusDeleted, StatusDraft},
		{StatusDraft, StatusReversed},
		{StatusPosted, StatusPosted},
	}
	for _, tc := range denied {
		err := Transition(tc.from, tc.to)
		if err == nil {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
		if !errors.Is(err, errs.ErrPolicy) {
			t.Fatalf("expected policy error, got %v", err)
		}
	}
}

func TestJournalEntryHelpers(t *testing.T) {
	e := JournalEntry{Currency: "PKR"}
	e.Lines = append(e.Lines, NewLine("PKR", [16]byte{1}, 10050, 0), NewLine("PKR", [16]byte{2}, 0, 10050))
	d, c := e.TotalsMinor()
	if d != 10050 || c != 10050 {
		t.Fatalf("unexpected totals %d/%d", d, c)
	}
	lines := e.CalcLines()
	if lines[0].Debit != 100.5 || lines[1].Credit != 100.5 {
		t.Fatalf("unexpected calc lines %+v", lines)
	}
	if len(e.AccountIDs()) != 2 {
		t.Fatalf("expected 2 accounts")
	}
}

func TestReversalSwapsSides(t *testing.T) {
	e := JournalEntry{ID: [16]byte{9}, Number: "JE-000004", Currency: "PKR", Status: StatusPosted}
	e.Lines = append(e.Lines, NewLine("PKR", [16]byte{1}, 118000, 0), NewLine("PKR", [16]byte{2}, 0, 100000), NewLine("PKR", [16]byte{3}, 0, 18000))
	r := e.Reversal(e.Date, "")
	if r.ReversalOf == nil || *r.ReversalOf != e.ID {
		t.Fatalf("reversal must point at original")
	}
	if r.Status != StatusDraft || r.Source != SourceReversal || r.Memo != "reversal of JE-000004" {
		t.Fatalf("unexpected reversal header %+v", r)
	}
	for _, acc := range e.AccountIDs() {
		if e.NetMinor(acc)+r.NetMinor(acc) != 0 {
			t.Fatalf("account %s not offset", acc)
		}
	}
	if e.Lines[0].DebitMinor() != 118000 {
		t.Fatalf("original lines mutated")
	}
}
