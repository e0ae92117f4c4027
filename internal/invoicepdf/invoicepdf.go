// Package invoicepdf renders documents as printable A4 PDFs.
package invoicepdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/tinoosan/bizbooks/internal/calc"
	"github.com/tinoosan/bizbooks/internal/ledger"
)

var titles = map[ledger.DocumentKind]string{
	ledger.KindSalesInvoice:    "Sales Invoice",
	ledger.KindSalesOrder:      "Sales Order",
	ledger.KindPurchaseOrder:   "Purchase Order",
	ledger.KindPurchaseInvoice: "Purchase Invoice",
}

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"Item", 30, "L"},
	{"Description", 52, "L"},
	{"Qty", 16, "R"},
	{"Price", 22, "R"},
	{"Disc %", 16, "R"},
	{"Tax %", 16, "R"},
	{"Tax", 18, "R"},
	{"Total", 20, "R"},
}

// Render writes d as a PDF to w. seller is printed in the header.
func Render(w io.Writer, d ledger.Document, seller ledger.Org) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title(d), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, title(d), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if seller.Name != "" {
		pdf.CellFormat(0, 5, seller.Name, "", 1, "L", false, 0, "")
	}
	if seller.NTN != "" {
		pdf.CellFormat(0, 5, "NTN: "+seller.NTN, "", 1, "L", false, 0, "")
	}
	if seller.Address != "" {
		pdf.CellFormat(0, 5, seller.Address, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	number := d.Number
	if number == "" {
		number = "DRAFT"
	}
	kv := [][2]string{
		{"Number", number},
		{"Date", d.Date.Format("2006-01-02")},
		{party(d.Kind), d.PartyName},
	}
	if d.DueDate != nil {
		kv = append(kv, [2]string{"Due", d.DueDate.Format("2006-01-02")})
	}
	if d.PartyNTN != "" {
		kv = append(kv, [2]string{party(d.Kind) + " NTN", d.PartyNTN})
	}
	if d.FBRInvoiceNumber != "" {
		kv = append(kv, [2]string{"FBR Invoice", d.FBRInvoiceNumber})
	}
	for _, p := range kv {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, p[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, p[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, ln := range d.Lines {
		r := ln.Item.Calculate().Rounded()
		cells := []string{
			ln.ItemCode,
			truncate(ln.Description, 32),
			trim(ln.Item.Quantity),
			calc.Format(ln.Item.UnitPrice),
			trim(ln.Item.DiscountPercentage),
			trim(ln.Item.TaxPercentage),
			calc.Format(r.TaxAmount),
			calc.Format(r.LineTotal),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	t := d.Totals.Rounded()
	for _, row := range [][2]string{
		{"Subtotal", calc.Format(t.Subtotal)},
		{"Discount", calc.Format(t.TotalDiscount)},
		{"Sales tax", calc.Format(t.TotalTax)},
		{"Total " + d.Currency, calc.Format(t.GrandTotal)},
	} {
		pdf.CellFormat(150, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "", 1, "R", false, 0, "")
	}
	if d.Notes != "" {
		pdf.Ln(6)
		pdf.MultiCell(0, 5, d.Notes, "", "L", false)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func title(d ledger.Document) string {
	if t, ok := titles[d.Kind]; ok {
		return t
	}
	return "Document"
}

func party(k ledger.DocumentKind) string {
	if k == ledger.KindPurchaseOrder || k == ledger.KindPurchaseInvoice {
		return "Supplier"
	}
	return "Customer"
}

// trim formats quantities and percentages without trailing zeros.
func trim(x float64) string {
	s := calc.Format(x)
	s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "."
}
