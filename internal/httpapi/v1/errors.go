package v1

import (
    "errors"
    "net/http"

    "github.com/tinoosan/bizbooks/internal/calc"
    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/fbr"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
    Error   string `json:"error"`
    Code    string `json:"code,omitempty"`
    Details any    `json:"details,omitempty"`
}

type validationDetails struct {
    Fields []errs.FieldError `json:"fields,omitempty"`
    Lines  []errs.LineError  `json:"lines,omitempty"`
}

type unbalancedDetails struct {
    TotalDebit  float64 `json:"total_debit"`
    TotalCredit float64 `json:"total_credit"`
    Difference  float64 `json:"difference"`
}

type upstreamDetails struct {
    HTTPStatus int    `json:"http_status,omitempty"`
    StatusCode string `json:"status_code,omitempty"`
    Message    string `json:"message,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
    toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not found", "not_found") }

// writeServiceErr maps domain errors onto HTTP statuses. Unknown errors are
// logged by the request logger as 500s and never echoed to the client.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
    var (
        unbalanced *errs.UnbalancedError
        invalid    *errs.ValidationError
        field      errs.FieldError
        upstream   *fbr.SubmitError
    )
    switch {
    case errors.As(err, &unbalanced):
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{
            Error: "debits and credits do not balance",
            Code:  "unbalanced_entry",
            Details: unbalancedDetails{
                TotalDebit:  calc.Round2(unbalanced.TotalDebit),
                TotalCredit: calc.Round2(unbalanced.TotalCredit),
                Difference:  calc.Round2(unbalanced.Difference),
            },
        })
    case errors.As(err, &invalid):
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{
            Error:   "validation failed",
            Code:    "validation_error",
            Details: validationDetails{Fields: invalid.Fields, Lines: invalid.Lines},
        })
    case errors.As(err, &field):
        toJSON(w, http.StatusUnprocessableEntity, errorResponse{
            Error:   "validation failed",
            Code:    "validation_error",
            Details: validationDetails{Fields: []errs.FieldError{field}},
        })
    case errors.Is(err, errs.ErrTooFewLines):
        writeErr(w, http.StatusUnprocessableEntity, "an entry needs at least 2 lines", "too_few_lines")
    case errors.Is(err, errs.ErrImmutable):
        writeErr(w, http.StatusUnprocessableEntity, "type, currency and code cannot change", "immutable")
    case errors.Is(err, errs.ErrUnprocessable):
        writeErr(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
    case errors.Is(err, errs.ErrNotFound):
        notFound(w)
    case errors.Is(err, errs.ErrInvalid):
        badRequest(w, "invalid request")
    case errors.Is(err, errs.ErrSystemAccount):
        writeErr(w, http.StatusForbidden, "system accounts cannot be changed", "system_account")
    case errors.Is(err, errs.ErrForbidden):
        writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
    case errors.Is(err, errs.ErrPolicy):
        writeErr(w, http.StatusConflict, err.Error(), "policy_violation")
    case errors.Is(err, errs.ErrConflict):
        writeErr(w, http.StatusConflict, err.Error(), "conflict")
    case errors.As(err, &upstream):
        toJSON(w, http.StatusBadGateway, errorResponse{
            Error:   "FBR rejected the invoice",
            Code:    "upstream_failure",
            Details: upstreamDetails{HTTPStatus: upstream.HTTPStatus, StatusCode: upstream.StatusCode, Message: upstream.Message},
        })
    case errors.Is(err, errs.ErrUpstream):
        writeErr(w, http.StatusBadGateway, err.Error(), "upstream_failure")
    default:
        s.log.Error("unhandled error", "path", r.URL.Path, "err", err)
        writeErr(w, http.StatusInternalServerError, "internal error", "internal_error")
    }
}
