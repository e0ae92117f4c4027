package fbr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/bizbooks/internal/calc"
	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/ledger"
)

var seller = ledger.Org{Name: "Indus Traders", NTN: "1234567", Province: "Sindh", Address: "Karachi"}

func invoice() ledger.Document {
	return ledger.Document{
		ID:        uuid.New(),
		Kind:      ledger.KindSalesInvoice,
		Status:    ledger.StatusPosted,
		Number:    "SI-000001",
		PartyName: "Punjab Mills",
		PartyNTN:  "7654321",
		Date:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Currency:  "PKR",
		Lines: []ledger.DocumentLine{{
			ItemCode: "CTN-40",
			HSCode:   "5205.1100",
			Item:     calc.LineItem{Quantity: 10, UnitPrice: 100, DiscountPercentage: 10, TaxPercentage: 18},
		}},
	}
}

func TestBuildInvoice(t *testing.T) {
	inv, err := BuildInvoice(seller, invoice(), "SN001")
	require.NoError(t, err)
	assert.Equal(t, "Registered", inv.BuyerRegistrationType)
	assert.Equal(t, "2026-03-14", inv.InvoiceDate)
	require.Len(t, inv.Items, 1)

	b, err := json.Marshal(inv.Items[0])
	require.NoError(t, err)
	var item map[string]any
	require.NoError(t, json.Unmarshal(b, &item))
	assert.Equal(t, "18%", item["rate"])
	assert.Equal(t, 900.0, item["valueSalesExcludingST"])
	assert.Equal(t, 162.0, item["salesTaxApplicable"])
	assert.Equal(t, 100.0, item["discount"])
	assert.Equal(t, 1062.0, item["totalValues"])
	assert.Equal(t, "CTN-40", item["productDescription"])
}

func TestBuildInvoice_MissingHSCode(t *testing.T) {
	d := invoice()
	d.Lines[0].HSCode = ""
	_, err := BuildInvoice(ledger.Org{}, d, "")
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 1)
	require.Len(t, ve.Lines, 1)
	assert.Equal(t, "hs_code", ve.Lines[0].Field)
}

func TestRate(t *testing.T) {
	assert.Equal(t, "18%", Rate(18))
	assert.Equal(t, "17.5%", Rate(17.5))
	assert.Equal(t, "0%", Rate(0))
}

func TestSubmit_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		var in Invoice
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.SellerNTNCNIC != "1234567" {
			t.Errorf("unexpected seller %q", in.SellerNTNCNIC)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"invoiceNumber":"1234567DI1700000000001","dated":"2026-03-14 10:00:00","validationResponse":{"statusCode":"00","status":"Valid","error":""}}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Token: "secret", Timeout: time.Second, Seller: seller}, srv.Client(), nil)
	res, err := c.Submit(context.Background(), invoice())
	require.NoError(t, err)
	assert.Equal(t, "1234567DI1700000000001", res.InvoiceNumber)
}

func TestSubmit_RejectedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"validationResponse":{"statusCode":"01","status":"Invalid","error":"","invoiceStatuses":[{"itemSNo":"1","statusCode":"01","errorCode":"0052","error":"Provide proper HS Code"}]}}`))
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Seller: seller}, srv.Client(), nil)
	_, err := c.Submit(context.Background(), invoice())
	var se *SubmitError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "01", se.StatusCode)
	assert.Contains(t, se.Message, "Provide proper HS Code")
	assert.ErrorIs(t, err, errs.ErrUpstream)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubmit_HTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, Seller: seller}, srv.Client(), nil)
	_, err := c.Submit(context.Background(), invoice())
	var se *SubmitError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.HTTPStatus)
}
