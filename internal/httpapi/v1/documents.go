package v1

import (
    "bytes"
    "errors"
    "net/http"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/invoicepdf"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

// documentFromRequest builds the domain document and reports every problem
// at once: absent quantities and prices alongside the service's own checks.
func (s *Server) documentFromRequest(w http.ResponseWriter, r *http.Request, req documentRequest) (ledger.Document, bool) {
    d := s.toDocumentDomain(orgFrom(r), req)
    ve := &errs.ValidationError{}
    for i, ln := range req.Lines {
        if !ln.Quantity.Set { ve.AddLine(i, "quantity", "quantity is required") }
        if !ln.UnitPrice.Set { ve.AddLine(i, "unit_price", "unit price is required") }
    }
    if err := s.documents.Validate(d); err != nil {
        var more *errs.ValidationError
        if !errors.As(err, &more) {
            s.writeServiceErr(w, r, err)
            return ledger.Document{}, false
        }
        ve.Fields = append(ve.Fields, more.Fields...)
        ve.Lines = append(ve.Lines, more.Lines...)
    }
    if err := ve.OrNil(); err != nil {
        s.writeServiceErr(w, r, err)
        return ledger.Document{}, false
    }
    return d, true
}

// postDocument handles POST /v1/documents, creating a draft.
func (s *Server) postDocument(w http.ResponseWriter, r *http.Request) {
    var req documentRequest
    if !decodeJSON(w, r, &req) { return }
    d, ok := s.documentFromRequest(w, r, req)
    if !ok { return }
    saved, err := s.documents.CreateDraft(r.Context(), d)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusCreated, toDocumentResponse(saved))
}

// listDocuments handles GET /v1/documents?kind=
func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
    var kind *ledger.DocumentKind
    if raw := r.URL.Query().Get("kind"); raw != "" {
        k := ledger.DocumentKind(raw)
        if !k.Valid() {
            badRequest(w, "invalid kind")
            return
        }
        kind = &k
    }
    docs, err := s.documents.List(r.Context(), orgFrom(r), kind)
    if err != nil { s.writeServiceErr(w, r, err); return }
    out := make([]documentResponse, 0, len(docs))
    for _, d := range docs {
        out = append(out, toDocumentResponse(d))
    }
    toJSON(w, http.StatusOK, out)
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) (ledger.Document, bool) {
    id, ok := pathID(w, r, "document")
    if !ok { return ledger.Document{}, false }
    d, err := s.documents.Get(r.Context(), orgFrom(r), id)
    if err != nil {
        s.writeServiceErr(w, r, err)
        return ledger.Document{}, false
    }
    return d, true
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
    d, ok := s.document(w, r)
    if !ok { return }
    toJSON(w, http.StatusOK, toDocumentResponse(d))
}

// putDocument handles PUT /v1/documents/{id}, replacing a draft.
func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "document")
    if !ok { return }
    var req documentRequest
    if !decodeJSON(w, r, &req) { return }
    d, ok := s.documentFromRequest(w, r, req)
    if !ok { return }
    d.ID = id
    saved, err := s.documents.UpdateDraft(r.Context(), d)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toDocumentResponse(saved))
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
    id, ok := pathID(w, r, "document")
    if !ok { return }
    if err := s.documents.DeleteDraft(r.Context(), orgFrom(r), id); err != nil {
        s.writeServiceErr(w, r, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// postDraftDocument handles POST /v1/documents/{id}/post. Invoices post
// their journal entry in the same step.
func (s *Server) postDraftDocument(w http.ResponseWriter, r *http.Request) {
    s.transitionDocument(w, r, func(orgID, id uuid.UUID) (ledger.Document, error) {
        d, err := s.documents.Post(r.Context(), orgID, id)
        if err == nil { documentsPosted.WithLabelValues(string(d.Kind)).Inc() }
        return d, err
    })
}

// reverseDocument handles POST /v1/documents/{id}/reverse
func (s *Server) reverseDocument(w http.ResponseWriter, r *http.Request) {
    s.transitionDocument(w, r, func(orgID, id uuid.UUID) (ledger.Document, error) {
        d, err := s.documents.Reverse(r.Context(), orgID, id)
        if err == nil { documentsReversed.WithLabelValues(string(d.Kind)).Inc() }
        return d, err
    })
}

// submitDocument handles POST /v1/documents/{id}/fbr
func (s *Server) submitDocument(w http.ResponseWriter, r *http.Request) {
    s.transitionDocument(w, r, func(orgID, id uuid.UUID) (ledger.Document, error) {
        d, err := s.documents.SubmitToFBR(r.Context(), orgID, id)
        result := "ok"
        if err != nil {
            result = "error"
            s.log.Warn("fbr submission failed", "document_id", id, "err", err)
        }
        fbrSubmissions.WithLabelValues(result).Inc()
        return d, err
    })
}

func (s *Server) transitionDocument(w http.ResponseWriter, r *http.Request, fn func(orgID, id uuid.UUID) (ledger.Document, error)) {
    id, ok := pathID(w, r, "document")
    if !ok { return }
    d, err := fn(orgFrom(r), id)
    if err != nil { s.writeServiceErr(w, r, err); return }
    toJSON(w, http.StatusOK, toDocumentResponse(d))
}

// documentPDF handles GET /v1/documents/{id}/pdf
func (s *Server) documentPDF(w http.ResponseWriter, r *http.Request) {
    d, ok := s.document(w, r)
    if !ok { return }
    var buf bytes.Buffer
    if err := invoicepdf.Render(&buf, d, s.seller); err != nil {
        s.writeServiceErr(w, r, err)
        return
    }
    name := d.Number
    if name == "" { name = "draft-" + d.ID.String() }
    w.Header().Set("Content-Type", "application/pdf")
    w.Header().Set("Content-Disposition", `inline; filename="`+name+`.pdf"`)
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(buf.Bytes())
}
