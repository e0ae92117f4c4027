package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// Migrations that create the expected schema live under db/migrations. Posting
// and reversal run in one transaction each: the row being posted is locked with
// SELECT ... FOR UPDATE, numbers come from a gapless per-org sequence, and
// account_balances is updated before commit.

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/meta"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies the schema in sql. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context, sql string) error {
    _, err := s.pool.Exec(ctx, sql)
    return err
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
    Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := fn(tx); err != nil { return err }
    return tx.Commit(ctx)
}

// mapErr turns constraint violations into domain errors.
func mapErr(err error) error {
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == "23505" {
        return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.ConstraintName)
    }
    return err
}

func decodeMeta(b []byte) meta.Metadata {
    var m meta.Metadata
    if len(b) == 0 || m.UnmarshalJSON(b) != nil { return meta.New(nil) }
    return m
}

// --- Accounts ---

const accountCols = `id, org_id, code, name, currency, type, "group", role, metadata, system, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
    var a ledger.Account
    var md []byte
    if err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Currency, &a.Type, &a.Group, &a.Role, &md, &a.System, &a.Active); err != nil {
        return ledger.Account{}, err
    }
    a.Currency = strings.TrimSpace(a.Currency)
    a.Metadata = decodeMeta(md)
    return a, nil
}

// ListAccounts returns the org's accounts ordered by (currency, code).
func (s *Store) ListAccounts(ctx context.Context, orgID uuid.UUID) ([]ledger.Account, error) {
    rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where org_id = $1 order by currency, code`, orgID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Account, 0)
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil { return nil, err }
        out = append(out, a)
    }
    return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, orgID, accountID uuid.UUID) (ledger.Account, error) {
    a, err := scanAccount(s.pool.QueryRow(ctx, `select `+accountCols+` from accounts where id = $1 and org_id = $2`, accountID, orgID))
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Account{}, errs.ErrNotFound }
    return a, err
}

// AccountsByIDs returns the requested accounts that exist in the org.
func (s *Store) AccountsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
    out := make(map[uuid.UUID]ledger.Account, len(ids))
    if len(ids) == 0 { return out, nil }
    rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts where org_id = $1 and id = any($2)`, orgID, ids)
    if err != nil { return nil, err }
    defer rows.Close()
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil { return nil, err }
        out[a.ID] = a
    }
    return out, rows.Err()
}

// CreateAccount inserts an account row and its zero balance.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if err := a.Metadata.Validate(); err != nil { return ledger.Account{}, err }
    md, _ := a.Metadata.MarshalStableJSON()
    err := s.withTx(ctx, func(tx pgx.Tx) error {
        if _, err := tx.Exec(ctx, `
            insert into accounts (`+accountCols+`)
            values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        `, a.ID, a.OrgID, a.Code, a.Name, strings.ToUpper(a.Currency), a.Type, strings.ToLower(a.Group), a.Role, md, a.System, a.Active); err != nil {
            return mapErr(err)
        }
        _, err := tx.Exec(ctx, `insert into account_balances (account_id, balance_minor) values ($1, 0)`, a.ID)
        return err
    })
    if err != nil { return ledger.Account{}, err }
    return a, nil
}

// UpdateAccount updates mutable fields (name, group, metadata, active).
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    if err := a.Metadata.Validate(); err != nil { return ledger.Account{}, err }
    md, _ := a.Metadata.MarshalStableJSON()
    ct, err := s.pool.Exec(ctx, `
        update accounts
        set name=$1, "group"=$2, metadata=$3, active=$4
        where id=$5 and org_id=$6
    `, a.Name, strings.ToLower(a.Group), md, a.Active, a.ID, a.OrgID)
    if err != nil { return ledger.Account{}, mapErr(err) }
    if ct.RowsAffected() == 0 { return ledger.Account{}, errs.ErrNotFound }
    return a, nil
}

// PostedBalance returns the running balance of an account in cents.
func (s *Store) PostedBalance(ctx context.Context, orgID, accountID uuid.UUID) (int64, error) {
    var n int64
    err := s.pool.QueryRow(ctx, `
        select coalesce(b.balance_minor, 0)
        from accounts a left join account_balances b on b.account_id = a.id
        where a.id = $1 and a.org_id = $2
    `, accountID, orgID).Scan(&n)
    if errors.Is(err, pgx.ErrNoRows) { return 0, errs.ErrNotFound }
    return n, err
}

// nextNumber issues the next gapless number for prefix inside tx.
func nextNumber(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, prefix string) (string, error) {
    var n int64
    err := tx.QueryRow(ctx, `
        insert into number_sequences (org_id, prefix, last_number)
        values ($1, $2, 1)
        on conflict (org_id, prefix) do update set last_number = number_sequences.last_number + 1
        returning last_number
    `, orgID, prefix).Scan(&n)
    if err != nil { return "", fmt.Errorf("next %s number: %w", prefix, err) }
    return fmt.Sprintf("%s-%06d", prefix, n), nil
}
