package calc

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bizbooks/internal/errs"
)

func TestCalculate_DiscountThenTax(t *testing.T) {
	r := Calculate(10, 100, 10, 18).Rounded()
	assert.Equal(t, 100.00, r.DiscountAmount)
	assert.Equal(t, 900.00, r.TaxableAmount)
	assert.Equal(t, 162.00, r.TaxAmount)
	assert.Equal(t, 1062.00, r.LineTotal)
}

func TestCalculate_ZeroPriceLine(t *testing.T) {
	li := LineItem{Quantity: 1, UnitPrice: 0}
	assert.Equal(t, 0.0, li.Calculate().LineTotal)
	assert.Empty(t, ValidateLineItem(li), "zero price is a valid line")
}

func TestCalculate_NonFiniteInputsAreZero(t *testing.T) {
	r := Calculate(math.NaN(), 100, math.Inf(1), 18)
	assert.Equal(t, LineResult{}, r)
	r = Calculate(2, 50, math.NaN(), math.Inf(-1))
	assert.Equal(t, 100.0, r.LineTotal)
}

func TestCalculate_ClosedForm(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		q := float64(rng.Intn(1000)) / 4
		p := rng.Float64() * 10000
		d := rng.Float64() * 100
		tx := rng.Float64() * 100
		got := Calculate(q, p, d, tx).LineTotal
		want := q * p * (1 - d/100) * (1 + tx/100)
		require.InDelta(t, want, got, 1e-9*math.Max(1, math.Abs(want)), "q=%v p=%v d=%v t=%v", q, p, d, tx)
	}
}

func TestValidateLineItem(t *testing.T) {
	got := ValidateLineItem(LineItem{Quantity: 0, UnitPrice: -1, DiscountPercentage: 101, TaxPercentage: -0.5})
	fields := make([]string, 0, len(got))
	for _, f := range got {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"quantity", "unit_price", "discount_percentage", "tax_percentage"}, fields)
	assert.Empty(t, ValidateLineItem(LineItem{Quantity: 1, UnitPrice: 5, DiscountPercentage: 100, TaxPercentage: 0}))
}

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, Totals{}, Aggregate(nil))
	assert.Equal(t, Totals{}, Aggregate([]LineItem{}))
}

func TestAggregate_GrandTotalMatchesLineTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for n := 1; n < 60; n++ {
		lines := make([]LineItem, n)
		var sum float64
		for i := range lines {
			lines[i] = LineItem{
				Quantity:           float64(1 + rng.Intn(50)),
				UnitPrice:          float64(rng.Intn(500000)) / 100,
				DiscountPercentage: float64(rng.Intn(31)),
				TaxPercentage:      []float64{0, 5, 17, 18}[rng.Intn(4)],
			}
			sum += lines[i].Calculate().LineTotal
		}
		tot := Aggregate(lines)
		require.InDelta(t, sum, tot.GrandTotal, 0.005)
		require.InDelta(t, Round2(sum), tot.Rounded().GrandTotal, 0.01)
	}
}

func TestTotals_PostingCentsBalance(t *testing.T) {
	tot := Aggregate([]LineItem{
		{Quantity: 3, UnitPrice: 33.333, DiscountPercentage: 2.5, TaxPercentage: 17},
		{Quantity: 1, UnitPrice: 0.015, TaxPercentage: 18},
	})
	net, tax, gross := tot.PostingCents()
	assert.Equal(t, gross, net+tax)
	assert.InDelta(t, tot.GrandTotal, FromCents(gross), 0.01)
}

func TestRound2_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, int64(101), Cents(1.005))
	assert.Equal(t, "1062.00", Format(1062))
}

func TestCheckBalance(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	ok := CheckBalance([]JournalLine{{AccountID: a, Debit: 100}, {AccountID: b, Credit: 100}})
	assert.True(t, ok.IsBalanced)

	off := CheckBalance([]JournalLine{{AccountID: a, Debit: 100}, {AccountID: b, Credit: 99.99}})
	assert.False(t, off.IsBalanced)
	assert.Equal(t, 0.01, off.Difference)

	three := CheckBalance([]JournalLine{{AccountID: a, Debit: 500}, {AccountID: b, Credit: 300}, {AccountID: b, Credit: 200}})
	assert.True(t, three.IsBalanced)
	assert.Equal(t, 500.0, three.TotalDebit)
	assert.Equal(t, 500.0, three.TotalCredit)
}

func TestValidateJournalLines_DebitXorCredit(t *testing.T) {
	a := uuid.New()
	lineErrs := ValidateJournalLines([]JournalLine{
		{AccountID: a, Debit: 50, Credit: 50},
		{AccountID: a},
		{AccountID: a, Debit: -1},
		{Debit: 10},
		{AccountID: a, Credit: 10},
	})
	require.Len(t, lineErrs, 4)
	assert.Equal(t, 0, lineErrs[0].Index)
	assert.Equal(t, 1, lineErrs[1].Index)
	assert.Equal(t, 2, lineErrs[2].Index)
	assert.Equal(t, 3, lineErrs[3].Index)
	assert.Equal(t, "account_id", lineErrs[3].Field)
}

func TestValidateJournal(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.ErrorIs(t, ValidateJournal([]JournalLine{{AccountID: a, Debit: 1}}), errs.ErrTooFewLines)

	// A line carrying both sides is invalid even though the totals balance.
	err := ValidateJournal([]JournalLine{{AccountID: a, Debit: 50, Credit: 50}, {AccountID: b, Debit: 10}, {AccountID: b, Credit: 10}})
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Lines, 1)
	assert.False(t, errors.Is(err, errs.ErrUnbalanced))

	err = ValidateJournal([]JournalLine{{AccountID: a, Debit: 100}, {AccountID: b, Credit: 99.99}})
	var ue *errs.UnbalancedError
	require.True(t, errors.As(err, &ue))
	assert.ErrorIs(t, err, errs.ErrUnbalanced)
	assert.Equal(t, 0.01, ue.Difference)

	assert.NoError(t, ValidateJournal([]JournalLine{{AccountID: a, Debit: 500}, {AccountID: b, Credit: 300}, {AccountID: b, Credit: 200}}))
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var in struct {
		Qty     Number `json:"qty"`
		Price   Number `json:"price"`
		Garbage Number `json:"garbage"`
		Missing Number `json:"missing"`
		Null    Number `json:"null"`
		Bool    Number `json:"bool"`
		Object  Number `json:"object"`
		List    Number `json:"list"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"qty":"2.5","price":10,"garbage":"abc","null":null,"bool":true,"object":{"v":1},"list":[3]}`), &in))
	assert.Equal(t, N(2.5), in.Qty)
	assert.Equal(t, N(10), in.Price)
	assert.Equal(t, Number{Value: 0, Set: true}, in.Garbage)
	assert.False(t, in.Missing.Set)
	assert.False(t, in.Null.Set)
	assert.Equal(t, Number{}, in.Bool)
	assert.Equal(t, Number{}, in.Object)
	assert.Equal(t, Number{}, in.List)
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, 12.5, Coerce(" 12.5 "))
	assert.Equal(t, 0.0, Coerce("12abc"))
	assert.Equal(t, 0.0, Coerce("NaN"))
	assert.Equal(t, 0.0, Coerce(""))
}

func TestWholeCents(t *testing.T) {
	assert.True(t, WholeCents(10.25))
	assert.True(t, WholeCents(0.1))
	assert.False(t, WholeCents(0.004))
	assert.False(t, WholeCents(1.005))
}
