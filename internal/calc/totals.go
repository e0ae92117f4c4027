package calc

// Totals aggregates the lines of one document.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"total_discount"`
	TotalTax      float64 `json:"total_tax"`
	GrandTotal    float64 `json:"grand_total"`
}

// Aggregate sums lines in order. An empty slice yields all-zero totals;
// rejecting empty documents is the caller's job.
func Aggregate(lines []LineItem) Totals {
	var t Totals
	for _, li := range lines {
		r := li.Calculate()
		t.Subtotal += li.Gross()
		t.TotalDiscount += r.DiscountAmount
		t.TotalTax += r.TaxAmount
	}
	t.GrandTotal = t.Subtotal - t.TotalDiscount + t.TotalTax
	return t
}

// Net is the taxable amount of the whole document (subtotal less discount).
func (t Totals) Net() float64 { return t.Subtotal - t.TotalDiscount }

// Rounded returns a copy with every amount rounded to 2 decimal places.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:      Round2(t.Subtotal),
		TotalDiscount: Round2(t.TotalDiscount),
		TotalTax:      Round2(t.TotalTax),
		GrandTotal:    Round2(t.GrandTotal),
	}
}

// PostingCents splits the document into whole cents for ledger posting.
// gross is always net+tax, so an entry built from these amounts balances exactly.
func (t Totals) PostingCents() (net, tax, gross int64) {
	net = Cents(t.Net())
	tax = Cents(t.TotalTax)
	return net, tax, net + tax
}
