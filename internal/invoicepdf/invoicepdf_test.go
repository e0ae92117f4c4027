package invoicepdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bizbooks/internal/calc"
	"github.com/tinoosan/bizbooks/internal/ledger"
)

func TestRenderWritesPDF(t *testing.T) {
	d := ledger.Document{
		Kind:      ledger.KindSalesInvoice,
		Number:    "SI-000007",
		PartyName: "Karachi Traders",
		PartyNTN:  "7654321",
		Date:      time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Currency:  "PKR",
		Notes:     "Payment within 30 days.",
		Lines: []ledger.DocumentLine{
			{ItemCode: "CLOTH", Description: "Cotton lawn", Item: calc.LineItem{Quantity: 10, UnitPrice: 100, DiscountPercentage: 10, TaxPercentage: 18}},
		},
	}
	d.Recalculate()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d, ledger.Org{Name: "Indus Traders", NTN: "1234567"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "missing PDF header")
	assert.Greater(t, buf.Len(), 500)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "2.5", trim(2.5))
	assert.Equal(t, "10", trim(10))
	assert.Equal(t, "0", trim(0))
	assert.Equal(t, "Supplier", party(ledger.KindPurchaseInvoice))
	assert.Equal(t, "Document", title(ledger.Document{}))
	assert.Equal(t, "abc.", truncate("abcdef", 4))
}
