package errs

import (
    "errors"
    "fmt"
    "strings"
)

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound  = errors.New("not_found")
    ErrForbidden = errors.New("forbidden")
    ErrConflict  = errors.New("conflict")
    ErrInvalid   = errors.New("invalid")
    // ErrUnprocessable is used for semantic validation failures (HTTP 422)
    ErrUnprocessable = errors.New("unprocessable")
    // ErrSystemAccount indicates a system account cannot be modified/deactivated
    ErrSystemAccount = errors.New("system_account")
    // ErrImmutable indicates an attempt to change immutable fields
    ErrImmutable = errors.New("immutable")
    // ErrPolicy rejects a lifecycle transition (editing a posted entry, re-posting, ...)
    ErrPolicy = errors.New("policy_violation")
    ErrTooFewLines   = errors.New("too_few_lines")
    ErrUnbalanced    = errors.New("unbalanced_entry")
    ErrInactiveAccount = errors.New("inactive_account")
    ErrCurrency      = errors.New("currency_mismatch")
    // ErrUpstream wraps failures reported by external systems (FBR).
    ErrUpstream = errors.New("upstream_failure")
)

// FieldError reports a problem with a single named input field.
type FieldError struct {
    Field   string `json:"field"`
    Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// LineError reports a problem with one line of a multi-line document.
type LineError struct {
    Index   int    `json:"index"`
    Field   string `json:"field,omitempty"`
    Message string `json:"message"`
}

func (e LineError) Error() string {
    if e.Field == "" {
        return fmt.Sprintf("line[%d]: %s", e.Index, e.Message)
    }
    return fmt.Sprintf("line[%d].%s: %s", e.Index, e.Field, e.Message)
}

// ValidationError collects per-field and per-line failures so callers can
// report all of them at once. It matches ErrUnprocessable via errors.Is.
type ValidationError struct {
    Fields []FieldError
    Lines  []LineError
}

func (e *ValidationError) Error() string {
    parts := make([]string, 0, len(e.Fields)+len(e.Lines))
    for _, f := range e.Fields {
        parts = append(parts, f.Error())
    }
    for _, l := range e.Lines {
        parts = append(parts, l.Error())
    }
    if len(parts) == 0 {
        return "validation failed"
    }
    return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrUnprocessable }

// Empty reports whether nothing was collected.
func (e *ValidationError) Empty() bool { return e == nil || (len(e.Fields) == 0 && len(e.Lines) == 0) }

// AddField appends a field error.
func (e *ValidationError) AddField(field, msg string) {
    e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// AddLine appends a line error.
func (e *ValidationError) AddLine(i int, field, msg string) {
    e.Lines = append(e.Lines, LineError{Index: i, Field: field, Message: msg})
}

// OrNil returns e when it holds at least one error, nil otherwise.
func (e *ValidationError) OrNil() error {
    if e.Empty() {
        return nil
    }
    return e
}

// UnbalancedError carries the totals of a journal whose debits and credits differ.
type UnbalancedError struct {
    TotalDebit  float64
    TotalCredit float64
    Difference  float64
}

func (e *UnbalancedError) Error() string {
    return fmt.Sprintf("sum(debits) must equal sum(credits): debit %.2f, credit %.2f, difference %.2f", e.TotalDebit, e.TotalCredit, e.Difference)
}

func (e *UnbalancedError) Unwrap() error { return ErrUnbalanced }
