package postgres

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"
    "github.com/jackc/pgx/v5"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

const entryCols = `id, org_id, number, date, currency, memo, source, document_id, status, reversal_of, reversed_by, posted_at, created_at, metadata`

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
    var e ledger.JournalEntry
    var md []byte
    if err := row.Scan(&e.ID, &e.OrgID, &e.Number, &e.Date, &e.Currency, &e.Memo, &e.Source, &e.DocumentID, &e.Status, &e.ReversalOf, &e.ReversedBy, &e.PostedAt, &e.CreatedAt, &md); err != nil {
        return ledger.JournalEntry{}, err
    }
    e.Currency = strings.TrimSpace(e.Currency)
    e.Metadata = decodeMeta(md)
    return e, nil
}

// loadLines fills Lines for every entry in entries.
func loadLines(ctx context.Context, q querier, entries []ledger.JournalEntry) error {
    if len(entries) == 0 { return nil }
    idx := make(map[uuid.UUID]*ledger.JournalEntry, len(entries))
    ids := make([]uuid.UUID, 0, len(entries))
    for i := range entries {
        idx[entries[i].ID] = &entries[i]
        ids = append(ids, entries[i].ID)
    }
    rows, err := q.Query(ctx, `
        select id, entry_id, account_id, debit_minor, credit_minor, memo
        from entry_lines
        where entry_id = any($1)
        order by entry_id, position
    `, ids)
    if err != nil { return err }
    defer rows.Close()
    for rows.Next() {
        var ln ledger.JournalLine
        var debit, credit int64
        if err := rows.Scan(&ln.ID, &ln.EntryID, &ln.AccountID, &debit, &credit, &ln.Memo); err != nil { return err }
        e := idx[ln.EntryID]
        if e == nil { continue }
        ln.Debit, _ = money.NewAmountFromMinorUnits(e.Currency, debit)
        ln.Credit, _ = money.NewAmountFromMinorUnits(e.Currency, credit)
        e.Lines = append(e.Lines, ln)
    }
    return rows.Err()
}

// ListEntries returns the org's entries ordered by (date, id) with lines populated.
func (s *Store) ListEntries(ctx context.Context, orgID uuid.UUID) ([]ledger.JournalEntry, error) {
    rows, err := s.pool.Query(ctx, `select `+entryCols+` from entries where org_id = $1 order by date asc, id asc`, orgID)
    if err != nil { return nil, err }
    entries := make([]ledger.JournalEntry, 0)
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil { rows.Close(); return nil, err }
        entries = append(entries, e)
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    return entries, loadLines(ctx, s.pool, entries)
}

func (s *Store) GetEntry(ctx context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error) {
    return getEntry(ctx, s.pool, orgID, entryID, false)
}

func getEntry(ctx context.Context, q querier, orgID, entryID uuid.UUID, forUpdate bool) (ledger.JournalEntry, error) {
    sql := `select ` + entryCols + ` from entries where id = $1 and org_id = $2`
    if forUpdate { sql += ` for update` }
    e, err := scanEntry(q.QueryRow(ctx, sql, entryID, orgID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.JournalEntry{}, errs.ErrNotFound }
    if err != nil { return ledger.JournalEntry{}, err }
    list := []ledger.JournalEntry{e}
    if err := loadLines(ctx, q, list); err != nil { return ledger.JournalEntry{}, err }
    return list[0], nil
}

// CreateEntry inserts an entry and its lines in a transaction.
func (s *Store) CreateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    err := s.withTx(ctx, func(tx pgx.Tx) error { return insertEntry(ctx, tx, entry) })
    if err != nil { return ledger.JournalEntry{}, err }
    return entry, nil
}

// UpdateEntry replaces a draft's header and lines.
func (s *Store) UpdateEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        cur, err := getEntry(ctx, tx, entry.OrgID, entry.ID, true)
        if err != nil { return err }
        if !cur.Status.Editable() {
            return &ledger.TransitionError{From: cur.Status, To: ledger.StatusDraft}
        }
        md, _ := entry.Metadata.MarshalStableJSON()
        if _, err := tx.Exec(ctx, `
            update entries set date=$1, currency=$2, memo=$3, metadata=$4 where id=$5
        `, entry.Date, entry.Currency, entry.Memo, md, entry.ID); err != nil {
            return err
        }
        if _, err := tx.Exec(ctx, `delete from entry_lines where entry_id = $1`, entry.ID); err != nil { return err }
        return insertLines(ctx, tx, entry)
    })
    if err != nil { return ledger.JournalEntry{}, err }
    entry.Status = ledger.StatusDraft
    return entry, nil
}

// DeleteEntry marks a draft deleted. The row is kept for audit.
func (s *Store) DeleteEntry(ctx context.Context, orgID, entryID uuid.UUID) error {
    return s.withTx(ctx, func(tx pgx.Tx) error {
        cur, err := getEntry(ctx, tx, orgID, entryID, true)
        if err != nil { return err }
        if err := ledger.Transition(cur.Status, ledger.StatusDeleted); err != nil { return err }
        _, err = tx.Exec(ctx, `update entries set status = $1 where id = $2`, ledger.StatusDeleted, entryID)
        return err
    })
}

// PostEntry moves a draft to posted, numbers it and applies it to balances.
func (s *Store) PostEntry(ctx context.Context, orgID, entryID uuid.UUID, at time.Time) (ledger.JournalEntry, error) {
    var out ledger.JournalEntry
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        e, err := getEntry(ctx, tx, orgID, entryID, true)
        if err != nil { return err }
        if err := postEntry(ctx, tx, &e, at); err != nil { return err }
        out = e
        return nil
    })
    return out, err
}

// ReverseEntry marks the original reversed and inserts and posts its compensating entry.
func (s *Store) ReverseEntry(ctx context.Context, orgID, entryID uuid.UUID, reversal ledger.JournalEntry, at time.Time) (ledger.JournalEntry, error) {
    var out ledger.JournalEntry
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        rev, err := reverseEntry(ctx, tx, orgID, entryID, reversal, at)
        out = rev
        return err
    })
    return out, err
}

func reverseEntry(ctx context.Context, tx pgx.Tx, orgID, entryID uuid.UUID, reversal ledger.JournalEntry, at time.Time) (ledger.JournalEntry, error) {
    orig, err := getEntry(ctx, tx, orgID, entryID, true)
    if err != nil { return ledger.JournalEntry{}, err }
    if err := ledger.Transition(orig.Status, ledger.StatusReversed); err != nil { return ledger.JournalEntry{}, err }
    reversal.Status = ledger.StatusDraft
    if err := insertEntry(ctx, tx, reversal); err != nil { return ledger.JournalEntry{}, err }
    if err := postEntry(ctx, tx, &reversal, at); err != nil { return ledger.JournalEntry{}, err }
    if _, err := tx.Exec(ctx, `update entries set status = $1, reversed_by = $2 where id = $3`, ledger.StatusReversed, reversal.ID, entryID); err != nil {
        return ledger.JournalEntry{}, err
    }
    return reversal, nil
}

// postEntry numbers e, marks it posted and propagates it to account_balances.
func postEntry(ctx context.Context, tx pgx.Tx, e *ledger.JournalEntry, at time.Time) error {
    if err := ledger.Transition(e.Status, ledger.StatusPosted); err != nil { return err }
    number, err := nextNumber(ctx, tx, e.OrgID, "JE")
    if err != nil { return err }
    if _, err := tx.Exec(ctx, `update entries set status=$1, number=$2, posted_at=$3 where id=$4`, ledger.StatusPosted, number, at, e.ID); err != nil {
        return err
    }
    for _, ln := range e.Lines {
        if _, err := tx.Exec(ctx, `
            insert into account_balances (account_id, balance_minor) values ($1, $2)
            on conflict (account_id) do update set balance_minor = account_balances.balance_minor + excluded.balance_minor
        `, ln.AccountID, ln.DebitMinor()-ln.CreditMinor()); err != nil {
            return fmt.Errorf("apply balance: %w", err)
        }
    }
    e.Status = ledger.StatusPosted
    e.Number = number
    t := at
    e.PostedAt = &t
    return nil
}

// insertEntry inserts the entry header and its lines within tx.
func insertEntry(ctx context.Context, tx pgx.Tx, e ledger.JournalEntry) error {
    md, _ := e.Metadata.MarshalStableJSON()
    if _, err := tx.Exec(ctx, `
        insert into entries (`+entryCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, e.ID, e.OrgID, e.Number, e.Date, strings.ToUpper(e.Currency), e.Memo, e.Source, e.DocumentID, e.Status, e.ReversalOf, e.ReversedBy, e.PostedAt, e.CreatedAt, md); err != nil {
        return mapErr(err)
    }
    return insertLines(ctx, tx, e)
}

func insertLines(ctx context.Context, tx pgx.Tx, e ledger.JournalEntry) error {
    for i, ln := range e.Lines {
        if _, err := tx.Exec(ctx, `
            insert into entry_lines (id, entry_id, position, account_id, debit_minor, credit_minor, memo)
            values ($1,$2,$3,$4,$5,$6,$7)
        `, ln.ID, e.ID, i, ln.AccountID, ln.DebitMinor(), ln.CreditMinor(), ln.Memo); err != nil {
            return fmt.Errorf("insert line: %w", err)
        }
    }
    return nil
}

// --- Idempotency ---

// ResolveEntryByIdempotencyKey resolves an entry by idempotency key for the org.
func (s *Store) ResolveEntryByIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string) (ledger.JournalEntry, bool, error) {
    var id uuid.UUID
    err := s.pool.QueryRow(ctx, `select entry_id from entry_idempotency where org_id=$1 and key=$2`, orgID, key).Scan(&id)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.JournalEntry{}, false, nil }
    if err != nil { return ledger.JournalEntry{}, false, err }
    e, err := s.GetEntry(ctx, orgID, id)
    if err != nil { return ledger.JournalEntry{}, false, err }
    return e, true, nil
}

// SaveEntryIdempotencyKey stores a mapping from (org,key) to entry id; the first writer wins.
func (s *Store) SaveEntryIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string, entryID uuid.UUID) error {
    _, err := s.pool.Exec(ctx, `
        insert into entry_idempotency (org_id, key, entry_id)
        values ($1,$2,$3)
        on conflict (org_id, key) do nothing
    `, orgID, key, entryID)
    return err
}
