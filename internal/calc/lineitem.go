// Package calc holds the arithmetic shared by every sales and purchase
// document: per-line discount and tax, document totals, and the debit/credit
// balance check for journal entries.
//
// All functions are pure and hold no state, so they may be called
// concurrently without locking. Values are IEEE-754 doubles and are never
// rounded mid-calculation; use Round2 (or the Rounded helpers) for
// presentation.
package calc

import (
	"github.com/tinoosan/bizbooks/internal/errs"
)

// LineItem is one row of a sales or purchase document.
type LineItem struct {
	Quantity           float64 `json:"quantity"`
	UnitPrice          float64 `json:"unit_price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	TaxPercentage      float64 `json:"tax_percentage"`
}

// LineResult holds the amounts derived from a LineItem.
type LineResult struct {
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	LineTotal      float64 `json:"line_total"`
}

// Calculate derives discount, taxable base, tax and total for one line.
// Non-finite inputs are treated as 0.
func Calculate(quantity, unitPrice, discountPct, taxPct float64) LineResult {
	quantity = finite(quantity)
	unitPrice = finite(unitPrice)
	discountPct = finite(discountPct)
	taxPct = finite(taxPct)

	gross := quantity * unitPrice
	discount := gross * discountPct / 100
	taxable := gross - discount
	tax := taxable * taxPct / 100
	return LineResult{
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		LineTotal:      taxable + tax,
	}
}

// Calculate is a convenience wrapper around the package-level Calculate.
func (li LineItem) Calculate() LineResult {
	return Calculate(li.Quantity, li.UnitPrice, li.DiscountPercentage, li.TaxPercentage)
}

// Gross returns quantity*unit_price.
func (li LineItem) Gross() float64 { return finite(li.Quantity) * finite(li.UnitPrice) }

// Rounded returns a copy with every amount rounded to 2 decimal places.
func (r LineResult) Rounded() LineResult {
	return LineResult{
		DiscountAmount: Round2(r.DiscountAmount),
		TaxableAmount:  Round2(r.TaxableAmount),
		TaxAmount:      Round2(r.TaxAmount),
		LineTotal:      Round2(r.LineTotal),
	}
}

// ValidateLineItem applies the input rules callers enforce before calculating:
// quantity > 0, unit price >= 0 and both percentages within [0,100].
func ValidateLineItem(li LineItem) []errs.FieldError {
	var out []errs.FieldError
	if !(li.Quantity > 0) {
		out = append(out, errs.FieldError{Field: "quantity", Message: "must be greater than 0"})
	}
	if !(li.UnitPrice >= 0) {
		out = append(out, errs.FieldError{Field: "unit_price", Message: "must not be negative"})
	}
	if !inPercentRange(li.DiscountPercentage) {
		out = append(out, errs.FieldError{Field: "discount_percentage", Message: "must be between 0 and 100"})
	}
	if !inPercentRange(li.TaxPercentage) {
		out = append(out, errs.FieldError{Field: "tax_percentage", Message: "must be between 0 and 100"})
	}
	return out
}

func inPercentRange(p float64) bool { return p >= 0 && p <= 100 }
