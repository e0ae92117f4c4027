package memory

import (
    "context"
    "sort"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

// ListDocuments returns the org's documents newest first.
func (s *Store) ListDocuments(_ context.Context, orgID uuid.UUID) ([]ledger.Document, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]ledger.Document, 0)
    for _, d := range s.documents {
        if d.OrgID == orgID {
            out = append(out, cloneDocument(*d))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].Date.Equal(out[j].Date) { return out[i].Date.After(out[j].Date) }
        return out[i].CreatedAt.After(out[j].CreatedAt)
    })
    return out, nil
}

func (s *Store) GetDocument(_ context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    d, ok := s.documents[docID]
    if !ok || d.OrgID != orgID { return ledger.Document{}, errs.ErrNotFound }
    return cloneDocument(*d), nil
}

func (s *Store) CreateDocument(_ context.Context, d ledger.Document) (ledger.Document, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    c := cloneDocument(d)
    s.documents[d.ID] = &c
    return cloneDocument(c), nil
}

func (s *Store) UpdateDocument(_ context.Context, d ledger.Document) (ledger.Document, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.documents[d.ID]
    if !ok || cur.OrgID != d.OrgID { return ledger.Document{}, errs.ErrNotFound }
    if !cur.Status.Editable() {
        return ledger.Document{}, &ledger.TransitionError{From: cur.Status, To: ledger.StatusDraft}
    }
    c := cloneDocument(d)
    c.Status = cur.Status
    s.documents[d.ID] = &c
    return cloneDocument(c), nil
}

func (s *Store) DeleteDocument(_ context.Context, orgID, docID uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    d, ok := s.documents[docID]
    if !ok || d.OrgID != orgID { return errs.ErrNotFound }
    if err := ledger.Transition(d.Status, ledger.StatusDeleted); err != nil { return err }
    d.Status = ledger.StatusDeleted
    return nil
}

// PostDocument numbers and posts the document and, when given, stores and posts its entry.
func (s *Store) PostDocument(_ context.Context, orgID, docID uuid.UUID, basis ledger.PostingBasis, entry *ledger.JournalEntry, at time.Time) (ledger.Document, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    d, ok := s.documents[docID]
    if !ok || d.OrgID != orgID { return ledger.Document{}, errs.ErrNotFound }
    if err := ledger.Transition(d.Status, ledger.StatusPosted); err != nil { return ledger.Document{}, err }
    if !d.PostingBasis().Equal(basis) { return ledger.Document{}, ledger.ErrStalePosting }
    if entry != nil {
        e := cloneEntry(*entry)
        if e.ID == uuid.Nil { e.ID = uuid.New() }
        for i := range e.Lines {
            if e.Lines[i].ID == uuid.Nil { e.Lines[i].ID = uuid.New() }
            e.Lines[i].EntryID = e.ID
        }
        if err := s.postLocked(&e, at); err != nil { return ledger.Document{}, err }
        s.entries[e.ID] = &e
        s.insertEntryIndexLocked(orgID, entryKey{Date: e.Date, ID: e.ID})
        d.EntryID = &e.ID
    }
    d.Recalculate()
    d.Number = s.nextNumberLocked(orgID, d.Kind.NumberPrefix())
    d.Status = ledger.StatusPosted
    t := at
    d.PostedAt = &t
    return cloneDocument(*d), nil
}

// ReverseDocument marks the document reversed and reverses its entry, if any.
func (s *Store) ReverseDocument(_ context.Context, orgID, docID uuid.UUID, reversal *ledger.JournalEntry, at time.Time) (ledger.Document, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    d, ok := s.documents[docID]
    if !ok || d.OrgID != orgID { return ledger.Document{}, errs.ErrNotFound }
    if err := ledger.Transition(d.Status, ledger.StatusReversed); err != nil { return ledger.Document{}, err }
    if d.EntryID != nil {
        if reversal == nil || reversal.ReversalOf == nil || *reversal.ReversalOf != *d.EntryID {
            return ledger.Document{}, errs.ErrInvalid
        }
        if _, err := s.reverseLocked(orgID, *d.EntryID, *reversal, at); err != nil { return ledger.Document{}, err }
    }
    d.Status = ledger.StatusReversed
    return cloneDocument(*d), nil
}

// SetFBRInvoiceNumber records FBR's number once.
func (s *Store) SetFBRInvoiceNumber(_ context.Context, orgID, docID uuid.UUID, number string) (ledger.Document, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    d, ok := s.documents[docID]
    if !ok || d.OrgID != orgID { return ledger.Document{}, errs.ErrNotFound }
    if d.FBRInvoiceNumber != "" { return ledger.Document{}, errs.ErrConflict }
    d.FBRInvoiceNumber = number
    return cloneDocument(*d), nil
}

func cloneDocument(d ledger.Document) ledger.Document {
    d.Lines = append([]ledger.DocumentLine(nil), d.Lines...)
    d.Metadata = d.Metadata.Clone()
    return d
}
