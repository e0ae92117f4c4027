package fbr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinoosan/bizbooks/internal/errs"
	"github.com/tinoosan/bizbooks/internal/ledger"
)

// StatusValid is the validation status FBR returns for an accepted invoice.
const StatusValid = "00"

// Config describes how to reach FBR and who the seller is.
type Config struct {
	URL        string
	Token      string
	Timeout    time.Duration
	ScenarioID string
	Seller     ledger.Org
}

// Result is what FBR assigns to an accepted invoice.
type Result struct {
	InvoiceNumber string
	Dated         string
}

type response struct {
	InvoiceNumber      string `json:"invoiceNumber"`
	Dated              string `json:"dated"`
	ValidationResponse struct {
		StatusCode      string `json:"statusCode"`
		Status          string `json:"status"`
		Error           string `json:"error"`
		InvoiceStatuses []struct {
			ItemSNo    string `json:"itemSNo"`
			StatusCode string `json:"statusCode"`
			ErrorCode  string `json:"errorCode"`
			Error      string `json:"error"`
		} `json:"invoiceStatuses"`
	} `json:"validationResponse"`
}

// SubmitError reports an invoice FBR did not accept. It matches errs.ErrUpstream.
type SubmitError struct {
	HTTPStatus int
	StatusCode string
	Message    string
}

func (e *SubmitError) Error() string {
	if e.StatusCode != "" {
		return fmt.Sprintf("fbr rejected invoice (status %s): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fbr request failed (http %d): %s", e.HTTPStatus, e.Message)
}

func (e *SubmitError) Is(target error) bool { return target == errs.ErrUpstream }

// Client posts invoices to FBR. There is no automatic retry; a failed
// submission is reported and can be submitted again by the caller.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// New returns a client. A nil hc gets a client with cfg.Timeout.
func New(cfg Config, hc *http.Client, log *slog.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, log: log}
}

// Seller returns the configured seller identity.
func (c *Client) Seller() ledger.Org { return c.cfg.Seller }

// Submit sends a posted sales invoice and returns FBR's invoice number.
func (c *Client) Submit(ctx context.Context, d ledger.Document) (Result, error) {
	inv, err := BuildInvoice(c.cfg.Seller, d, c.cfg.ScenarioID)
	if err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(inv)
	if err != nil {
		return Result{}, err
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("fbr submit failed", "document_id", d.ID.String(), "err", err)
		return Result{}, fmt.Errorf("%w: %v", errs.ErrUpstream, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	c.log.Info("fbr submit", "document_id", d.ID.String(), "http_status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &SubmitError{HTTPStatus: resp.StatusCode, Message: string(bytes.TrimSpace(raw))}
	}
	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, &SubmitError{HTTPStatus: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	vr := out.ValidationResponse
	if vr.StatusCode != StatusValid {
		msg := vr.Error
		for _, st := range vr.InvoiceStatuses {
			if st.Error != "" {
				msg += fmt.Sprintf("; item %s: %s %s", st.ItemSNo, st.ErrorCode, st.Error)
			}
		}
		return Result{}, &SubmitError{HTTPStatus: resp.StatusCode, StatusCode: vr.StatusCode, Message: msg}
	}
	return Result{InvoiceNumber: out.InvoiceNumber, Dated: out.Dated}, nil
}
