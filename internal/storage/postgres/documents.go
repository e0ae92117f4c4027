package postgres

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

const documentCols = `id, org_id, kind, number, status, party_id, party_name, party_ntn, party_province, date, due_date, currency, notes, entry_id, fbr_invoice_number, posted_at, created_at, metadata`

func scanDocument(row pgx.Row) (ledger.Document, error) {
    var d ledger.Document
    var partyID *uuid.UUID
    var md []byte
    if err := row.Scan(&d.ID, &d.OrgID, &d.Kind, &d.Number, &d.Status, &partyID, &d.PartyName, &d.PartyNTN, &d.PartyProvince, &d.Date, &d.DueDate, &d.Currency, &d.Notes, &d.EntryID, &d.FBRInvoiceNumber, &d.PostedAt, &d.CreatedAt, &md); err != nil {
        return ledger.Document{}, err
    }
    if partyID != nil { d.PartyID = *partyID }
    d.Currency = strings.TrimSpace(d.Currency)
    d.Metadata = decodeMeta(md)
    return d, nil
}

func loadDocumentLines(ctx context.Context, q querier, docs []ledger.Document) error {
    if len(docs) == 0 { return nil }
    idx := make(map[uuid.UUID]*ledger.Document, len(docs))
    ids := make([]uuid.UUID, 0, len(docs))
    for i := range docs {
        idx[docs[i].ID] = &docs[i]
        ids = append(ids, docs[i].ID)
    }
    rows, err := q.Query(ctx, `
        select document_id, item_code, description, hs_code, uom, quantity, unit_price, discount_percentage, tax_percentage
        from document_lines
        where document_id = any($1)
        order by document_id, position
    `, ids)
    if err != nil { return err }
    defer rows.Close()
    for rows.Next() {
        var docID uuid.UUID
        var ln ledger.DocumentLine
        if err := rows.Scan(&docID, &ln.ItemCode, &ln.Description, &ln.HSCode, &ln.UoM, &ln.Item.Quantity, &ln.Item.UnitPrice, &ln.Item.DiscountPercentage, &ln.Item.TaxPercentage); err != nil {
            return err
        }
        if d := idx[docID]; d != nil { d.Lines = append(d.Lines, ln) }
    }
    if err := rows.Err(); err != nil { return err }
    for i := range docs { docs[i].Recalculate() }
    return nil
}

// ListDocuments returns the org's documents newest first.
func (s *Store) ListDocuments(ctx context.Context, orgID uuid.UUID) ([]ledger.Document, error) {
    rows, err := s.pool.Query(ctx, `select `+documentCols+` from documents where org_id = $1 order by date desc, created_at desc`, orgID)
    if err != nil { return nil, err }
    docs := make([]ledger.Document, 0)
    for rows.Next() {
        d, err := scanDocument(rows)
        if err != nil { rows.Close(); return nil, err }
        docs = append(docs, d)
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    return docs, loadDocumentLines(ctx, s.pool, docs)
}

func (s *Store) GetDocument(ctx context.Context, orgID, docID uuid.UUID) (ledger.Document, error) {
    return getDocument(ctx, s.pool, orgID, docID, false)
}

func getDocument(ctx context.Context, q querier, orgID, docID uuid.UUID, forUpdate bool) (ledger.Document, error) {
    sql := `select ` + documentCols + ` from documents where id = $1 and org_id = $2`
    if forUpdate { sql += ` for update` }
    d, err := scanDocument(q.QueryRow(ctx, sql, docID, orgID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Document{}, errs.ErrNotFound }
    if err != nil { return ledger.Document{}, err }
    list := []ledger.Document{d}
    if err := loadDocumentLines(ctx, q, list); err != nil { return ledger.Document{}, err }
    return list[0], nil
}

func (s *Store) CreateDocument(ctx context.Context, d ledger.Document) (ledger.Document, error) {
    md, _ := d.Metadata.MarshalStableJSON()
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        if _, err := tx.Exec(ctx, `
            insert into documents (`+documentCols+`)
            values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        `, d.ID, d.OrgID, d.Kind, d.Number, d.Status, nullableID(d.PartyID), d.PartyName, d.PartyNTN, d.PartyProvince, d.Date, d.DueDate, d.Currency, d.Notes, d.EntryID, d.FBRInvoiceNumber, d.PostedAt, d.CreatedAt, md); err != nil {
            return mapErr(err)
        }
        return insertDocumentLines(ctx, tx, d)
    })
    if err != nil { return ledger.Document{}, err }
    return d, nil
}

func (s *Store) UpdateDocument(ctx context.Context, d ledger.Document) (ledger.Document, error) {
    md, _ := d.Metadata.MarshalStableJSON()
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        cur, err := getDocument(ctx, tx, d.OrgID, d.ID, true)
        if err != nil { return err }
        if !cur.Status.Editable() {
            return &ledger.TransitionError{From: cur.Status, To: ledger.StatusDraft}
        }
        if _, err := tx.Exec(ctx, `
            update documents
            set party_id=$1, party_name=$2, party_ntn=$3, party_province=$4, date=$5, due_date=$6, currency=$7, notes=$8, metadata=$9
            where id=$10
        `, nullableID(d.PartyID), d.PartyName, d.PartyNTN, d.PartyProvince, d.Date, d.DueDate, d.Currency, d.Notes, md, d.ID); err != nil {
            return err
        }
        if _, err := tx.Exec(ctx, `delete from document_lines where document_id = $1`, d.ID); err != nil { return err }
        return insertDocumentLines(ctx, tx, d)
    })
    if err != nil { return ledger.Document{}, err }
    d.Status = ledger.StatusDraft
    return d, nil
}

func (s *Store) DeleteDocument(ctx context.Context, orgID, docID uuid.UUID) error {
    return s.withTx(ctx, func(tx pgx.Tx) error {
        cur, err := getDocument(ctx, tx, orgID, docID, true)
        if err != nil { return err }
        if err := ledger.Transition(cur.Status, ledger.StatusDeleted); err != nil { return err }
        _, err = tx.Exec(ctx, `update documents set status = $1 where id = $2`, ledger.StatusDeleted, docID)
        return err
    })
}

// PostDocument numbers and posts the document and, when given, inserts and posts its entry.
func (s *Store) PostDocument(ctx context.Context, orgID, docID uuid.UUID, basis ledger.PostingBasis, entry *ledger.JournalEntry, at time.Time) (ledger.Document, error) {
    var out ledger.Document
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        d, err := getDocument(ctx, tx, orgID, docID, true)
        if err != nil { return err }
        if err := ledger.Transition(d.Status, ledger.StatusPosted); err != nil { return err }
        if !d.PostingBasis().Equal(basis) { return ledger.ErrStalePosting }
        if entry != nil {
            e := *entry
            if e.ID == uuid.Nil { e.ID = uuid.New() }
            e.Lines = append([]ledger.JournalLine(nil), e.Lines...)
            for i := range e.Lines {
                if e.Lines[i].ID == uuid.Nil { e.Lines[i].ID = uuid.New() }
                e.Lines[i].EntryID = e.ID
            }
            if err := insertEntry(ctx, tx, e); err != nil { return err }
            if err := postEntry(ctx, tx, &e, at); err != nil { return err }
            d.EntryID = &e.ID
        }
        number, err := nextNumber(ctx, tx, orgID, d.Kind.NumberPrefix())
        if err != nil { return err }
        if _, err := tx.Exec(ctx, `
            update documents set status=$1, number=$2, entry_id=$3, posted_at=$4 where id=$5
        `, ledger.StatusPosted, number, d.EntryID, at, docID); err != nil {
            return err
        }
        d.Status = ledger.StatusPosted
        d.Number = number
        t := at
        d.PostedAt = &t
        out = d
        return nil
    })
    return out, err
}

// ReverseDocument marks the document reversed and reverses its entry, if any.
func (s *Store) ReverseDocument(ctx context.Context, orgID, docID uuid.UUID, reversal *ledger.JournalEntry, at time.Time) (ledger.Document, error) {
    var out ledger.Document
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        d, err := getDocument(ctx, tx, orgID, docID, true)
        if err != nil { return err }
        if err := ledger.Transition(d.Status, ledger.StatusReversed); err != nil { return err }
        if d.EntryID != nil {
            if reversal == nil || reversal.ReversalOf == nil || *reversal.ReversalOf != *d.EntryID {
                return errs.ErrInvalid
            }
            if _, err := reverseEntry(ctx, tx, orgID, *d.EntryID, *reversal, at); err != nil { return err }
        }
        if _, err := tx.Exec(ctx, `update documents set status = $1 where id = $2`, ledger.StatusReversed, docID); err != nil {
            return err
        }
        d.Status = ledger.StatusReversed
        out = d
        return nil
    })
    return out, err
}

// SetFBRInvoiceNumber records FBR's number once.
func (s *Store) SetFBRInvoiceNumber(ctx context.Context, orgID, docID uuid.UUID, number string) (ledger.Document, error) {
    ct, err := s.pool.Exec(ctx, `
        update documents set fbr_invoice_number = $1
        where id = $2 and org_id = $3 and fbr_invoice_number = ''
    `, number, docID, orgID)
    if err != nil { return ledger.Document{}, err }
    if ct.RowsAffected() == 0 {
        if _, err := s.GetDocument(ctx, orgID, docID); err != nil { return ledger.Document{}, err }
        return ledger.Document{}, errs.ErrConflict
    }
    return s.GetDocument(ctx, orgID, docID)
}

func insertDocumentLines(ctx context.Context, tx pgx.Tx, d ledger.Document) error {
    for i, ln := range d.Lines {
        if _, err := tx.Exec(ctx, `
            insert into document_lines (document_id, position, item_code, description, hs_code, uom, quantity, unit_price, discount_percentage, tax_percentage)
            values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        `, d.ID, i, ln.ItemCode, ln.Description, ln.HSCode, ln.UoM, ln.Item.Quantity, ln.Item.UnitPrice, ln.Item.DiscountPercentage, ln.Item.TaxPercentage); err != nil {
            return err
        }
    }
    return nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
    if id == uuid.Nil { return nil }
    return &id
}
