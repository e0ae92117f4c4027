// Package fbr submits posted sales invoices to the FBR digital invoicing API.
package fbr

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tinoosan/bizbooks/internal/calc"
	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/ledger"
)

const (
	invoiceTypeSale = "Sale Invoice"
	defaultSaleType = "Goods at standard rate (default)"
	defaultUoM      = "Numbers, pieces, units"
	registered      = "Registered"
	unregistered    = "Unregistered"
	dateLayout      = "2006-01-02"
)

// Number is a decimal that encodes as a bare JSON number with fixed places.
type Number struct {
	d      decimal.Decimal
	places int32
}

func amount(x float64) Number   { return Number{d: decimal.NewFromFloat(calc.Round2(x)), places: 2} }
func quantity(x float64) Number { return Number{d: decimal.NewFromFloat(x).Round(4), places: 4} }

func (n Number) MarshalJSON() ([]byte, error) { return []byte(n.d.StringFixed(n.places)), nil }

func (n *Number) UnmarshalJSON(b []byte) error {
	d, err := decimal.NewFromString(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	n.d, n.places = d, 2
	return nil
}

// Float returns the value as a float64.
func (n Number) Float() float64 { return n.d.InexactFloat64() }

// Invoice is the request body of the post-invoice-data endpoint.
type Invoice struct {
	InvoiceType           string `json:"invoiceType"`
	InvoiceDate           string `json:"invoiceDate"`
	SellerNTNCNIC         string `json:"sellerNTNCNIC"`
	SellerBusinessName    string `json:"sellerBusinessName"`
	SellerProvince        string `json:"sellerProvince"`
	SellerAddress         string `json:"sellerAddress"`
	BuyerNTNCNIC          string `json:"buyerNTNCNIC"`
	BuyerBusinessName     string `json:"buyerBusinessName"`
	BuyerProvince         string `json:"buyerProvince"`
	BuyerAddress          string `json:"buyerAddress"`
	BuyerRegistrationType string `json:"buyerRegistrationType"`
	InvoiceRefNo          string `json:"invoiceRefNo"`
	ScenarioID            string `json:"scenarioId,omitempty"`
	Items                 []Item `json:"items"`
}

// Item is one invoice line in FBR's shape.
type Item struct {
	HSCode                          string `json:"hsCode"`
	ProductDescription              string `json:"productDescription"`
	Rate                            string `json:"rate"`
	UoM                             string `json:"uoM"`
	Quantity                        Number `json:"quantity"`
	TotalValues                     Number `json:"totalValues"`
	ValueSalesExcludingST           Number `json:"valueSalesExcludingST"`
	FixedNotifiedValueOrRetailPrice Number `json:"fixedNotifiedValueOrRetailPrice"`
	SalesTaxApplicable              Number `json:"salesTaxApplicable"`
	SalesTaxWithheldAtSource        Number `json:"salesTaxWithheldAtSource"`
	ExtraTax                        Number `json:"extraTax"`
	FurtherTax                      Number `json:"furtherTax"`
	SroScheduleNo                   string `json:"sroScheduleNo"`
	FedPayable                      Number `json:"fedPayable"`
	Discount                        Number `json:"discount"`
	SaleType                        string `json:"saleType"`
	SroItemSerialNo                 string `json:"sroItemSerialNo"`
}

// Rate renders a tax percentage the way FBR expects it, e.g. 18 -> "18%".
func Rate(pct float64) string {
	return decimal.NewFromFloat(pct).Round(2).String() + "%"
}

// BuildInvoice maps a sales invoice to the FBR payload. Missing seller or
// line data is reported as a validation error before anything is sent.
func BuildInvoice(seller ledger.Org, d ledger.Document, scenarioID string) (Invoice, error) {
	ve := &errs.ValidationError{}
	if d.Kind != ledger.KindSalesInvoice {
		ve.AddField("kind", "only sales invoices are reported to FBR")
	}
	if strings.TrimSpace(seller.NTN) == "" {
		ve.AddField("seller_ntn", "seller NTN is not configured")
	}
	if strings.TrimSpace(d.PartyName) == "" {
		ve.AddField("party_name", "buyer name is required")
	}
	if len(d.Lines) == 0 {
		ve.AddField("lines", "at least one line is required")
	}
	inv := Invoice{
		InvoiceType:           invoiceTypeSale,
		InvoiceDate:           d.Date.Format(dateLayout),
		SellerNTNCNIC:         seller.NTN,
		SellerBusinessName:    seller.Name,
		SellerProvince:        seller.Province,
		SellerAddress:         seller.Address,
		BuyerNTNCNIC:          d.PartyNTN,
		BuyerBusinessName:     d.PartyName,
		BuyerProvince:         d.PartyProvince,
		BuyerRegistrationType: unregistered,
		InvoiceRefNo:          "",
		ScenarioID:            scenarioID,
		Items:                 make([]Item, 0, len(d.Lines)),
	}
	if d.PartyNTN != "" {
		inv.BuyerRegistrationType = registered
	}
	for i, ln := range d.Lines {
		if strings.TrimSpace(ln.HSCode) == "" {
			ve.AddLine(i, "hs_code", "HS code is required for FBR")
		}
		r := ln.Item.Calculate()
		uom := ln.UoM
		if uom == "" {
			uom = defaultUoM
		}
		desc := ln.Description
		if desc == "" {
			desc = ln.ItemCode
		}
		inv.Items = append(inv.Items, Item{
			HSCode:                          ln.HSCode,
			ProductDescription:              desc,
			Rate:                            Rate(ln.Item.TaxPercentage),
			UoM:                             uom,
			Quantity:                        quantity(ln.Item.Quantity),
			TotalValues:                     amount(r.LineTotal),
			ValueSalesExcludingST:           amount(r.TaxableAmount),
			FixedNotifiedValueOrRetailPrice: amount(0),
			SalesTaxApplicable:              amount(r.TaxAmount),
			SalesTaxWithheldAtSource:        amount(0),
			ExtraTax:                        amount(0),
			FurtherTax:                      amount(0),
			FedPayable:                      amount(0),
			Discount:                        amount(r.DiscountAmount),
			SaleType:                        defaultSaleType,
		})
	}
	if err := ve.OrNil(); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
