package memory

// Package memory provides an in-memory implementation used for development and tests.
// Posting and reversal run under one write lock so numbering, status and balances
// change together, mirroring the transactions of the Postgres store.
import (
    "context"
    "fmt"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/errs"
    "github.com/tinoosan/bizbooks/internal/ledger"
)

// entryKey tracks ordering for entries per org: sorted asc by (Date, ID)
type entryKey struct {
    Date time.Time
    ID   uuid.UUID
}

// Store is an in-memory implementation of the repositories and writers used by the services.
// It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
    mu        sync.RWMutex
    accounts  map[uuid.UUID]ledger.Account
    entries   map[uuid.UUID]*ledger.JournalEntry
    documents map[uuid.UUID]*ledger.Document
    // Per-org sorted index of entries for ordered scans
    entryKeysByOrg map[uuid.UUID][]entryKey
    // Idempotency: orgID -> key -> entryID
    entryIdem map[uuid.UUID]map[string]uuid.UUID
    // Running debit-minus-credit per account in cents, maintained on post/reverse
    balances map[uuid.UUID]int64
    // Number sequences: orgID -> prefix -> last issued
    seq map[uuid.UUID]map[string]int
}

// New constructs an empty in-memory store.
func New() *Store {
    s := &Store{}
    s.Reset()
    return s
}

// Reset drops all data.
func (s *Store) Reset() {
    s.mu.Lock()
    s.accounts = map[uuid.UUID]ledger.Account{}
    s.entries = map[uuid.UUID]*ledger.JournalEntry{}
    s.documents = map[uuid.UUID]*ledger.Document{}
    s.entryKeysByOrg = map[uuid.UUID][]entryKey{}
    s.entryIdem = map[uuid.UUID]map[string]uuid.UUID{}
    s.balances = map[uuid.UUID]int64{}
    s.seq = map[uuid.UUID]map[string]int{}
    s.mu.Unlock()
}

// Ready always succeeds; it exists so the API can check any store the same way.
func (s *Store) Ready(context.Context) error { return nil }

// SeedAccount stores a for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }

// ---- accounts ----

// ListAccounts returns the org's accounts ordered by (Currency, Code).
func (s *Store) ListAccounts(_ context.Context, orgID uuid.UUID) ([]ledger.Account, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]ledger.Account, 0)
    for _, a := range s.accounts {
        if a.OrgID == orgID {
            out = append(out, a)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Currency != out[j].Currency { return out[i].Currency < out[j].Currency }
        return out[i].Code < out[j].Code
    })
    return out, nil
}

func (s *Store) GetAccount(_ context.Context, orgID, accountID uuid.UUID) (ledger.Account, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    a, ok := s.accounts[accountID]
    if !ok || a.OrgID != orgID { return ledger.Account{}, errs.ErrNotFound }
    return a, nil
}

// AccountsByIDs returns the requested accounts that exist in the org.
func (s *Store) AccountsByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make(map[uuid.UUID]ledger.Account, len(ids))
    for _, id := range ids {
        if acc, ok := s.accounts[id]; ok && acc.OrgID == orgID {
            out[id] = acc
        }
    }
    return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, other := range s.accounts {
        if other.OrgID == a.OrgID && other.Currency == a.Currency && other.Code == a.Code {
            return ledger.Account{}, errs.ErrConflict
        }
    }
    s.accounts[a.ID] = a
    return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.accounts[a.ID]
    if !ok || cur.OrgID != a.OrgID { return ledger.Account{}, errs.ErrNotFound }
    s.accounts[a.ID] = a
    return a, nil
}

// PostedBalance returns the running balance of an account in cents.
func (s *Store) PostedBalance(_ context.Context, orgID, accountID uuid.UUID) (int64, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    a, ok := s.accounts[accountID]
    if !ok || a.OrgID != orgID { return 0, errs.ErrNotFound }
    return s.balances[accountID], nil
}

// ---- journal entries ----

func (s *Store) CreateEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e := cloneEntry(entry)
    s.entries[e.ID] = &e
    s.insertEntryIndexLocked(e.OrgID, entryKey{Date: e.Date, ID: e.ID})
    return cloneEntry(e), nil
}

// UpdateEntry replaces a draft. The date index is rebuilt when the date moves.
func (s *Store) UpdateEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    cur, ok := s.entries[entry.ID]
    if !ok || cur.OrgID != entry.OrgID { return ledger.JournalEntry{}, errs.ErrNotFound }
    if !cur.Status.Editable() {
        return ledger.JournalEntry{}, &ledger.TransitionError{From: cur.Status, To: ledger.StatusDraft}
    }
    if !cur.Date.Equal(entry.Date) {
        s.removeEntryIndexLocked(cur.OrgID, cur.ID)
        s.insertEntryIndexLocked(cur.OrgID, entryKey{Date: entry.Date, ID: entry.ID})
    }
    e := cloneEntry(entry)
    e.Status = cur.Status
    s.entries[entry.ID] = &e
    return cloneEntry(e), nil
}

// DeleteEntry marks a draft deleted. The row is kept for audit.
func (s *Store) DeleteEntry(_ context.Context, orgID, entryID uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    e, ok := s.entries[entryID]
    if !ok || e.OrgID != orgID { return errs.ErrNotFound }
    if err := ledger.Transition(e.Status, ledger.StatusDeleted); err != nil { return err }
    e.Status = ledger.StatusDeleted
    return nil
}

func (s *Store) ListEntries(_ context.Context, orgID uuid.UUID) ([]ledger.JournalEntry, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    keys := s.entryKeysByOrg[orgID]
    out := make([]ledger.JournalEntry, 0, len(keys))
    for _, k := range keys {
        if e, ok := s.entries[k.ID]; ok && e.OrgID == orgID {
            out = append(out, cloneEntry(*e))
        }
    }
    return out, nil
}

func (s *Store) GetEntry(_ context.Context, orgID, entryID uuid.UUID) (ledger.JournalEntry, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    e, ok := s.entries[entryID]
    if !ok || e.OrgID != orgID { return ledger.JournalEntry{}, errs.ErrNotFound }
    return cloneEntry(*e), nil
}

// PostEntry moves a draft to posted, numbers it and applies it to balances.
func (s *Store) PostEntry(_ context.Context, orgID, entryID uuid.UUID, at time.Time) (ledger.JournalEntry, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    e, ok := s.entries[entryID]
    if !ok || e.OrgID != orgID { return ledger.JournalEntry{}, errs.ErrNotFound }
    if err := s.postLocked(e, at); err != nil { return ledger.JournalEntry{}, err }
    return cloneEntry(*e), nil
}

// ReverseEntry marks the original reversed and stores and posts its compensating entry.
func (s *Store) ReverseEntry(_ context.Context, orgID, entryID uuid.UUID, reversal ledger.JournalEntry, at time.Time) (ledger.JournalEntry, error) {
    s.mu.Lock(); defer s.mu.Unlock()
    rev, err := s.reverseLocked(orgID, entryID, reversal, at)
    if err != nil { return ledger.JournalEntry{}, err }
    return cloneEntry(*rev), nil
}

func (s *Store) reverseLocked(orgID, entryID uuid.UUID, reversal ledger.JournalEntry, at time.Time) (*ledger.JournalEntry, error) {
    orig, ok := s.entries[entryID]
    if !ok || orig.OrgID != orgID { return nil, errs.ErrNotFound }
    if err := ledger.Transition(orig.Status, ledger.StatusReversed); err != nil { return nil, err }
    rev := cloneEntry(reversal)
    rev.Status = ledger.StatusDraft
    if err := s.postLocked(&rev, at); err != nil { return nil, err }
    s.entries[rev.ID] = &rev
    s.insertEntryIndexLocked(orgID, entryKey{Date: rev.Date, ID: rev.ID})
    orig.Status = ledger.StatusReversed
    orig.ReversedBy = &rev.ID
    return &rev, nil
}

// postLocked numbers e, marks it posted and propagates it to balances.
// Caller must hold s.mu (write lock).
func (s *Store) postLocked(e *ledger.JournalEntry, at time.Time) error {
    if err := ledger.Transition(e.Status, ledger.StatusPosted); err != nil { return err }
    e.Number = s.nextNumberLocked(e.OrgID, "JE")
    e.Status = ledger.StatusPosted
    t := at
    e.PostedAt = &t
    for _, ln := range e.Lines {
        s.balances[ln.AccountID] += ln.DebitMinor() - ln.CreditMinor()
    }
    return nil
}

func (s *Store) nextNumberLocked(orgID uuid.UUID, prefix string) string {
    m, ok := s.seq[orgID]
    if !ok { m = make(map[string]int); s.seq[orgID] = m }
    m[prefix]++
    return fmt.Sprintf("%s-%06d", prefix, m[prefix])
}

// ResolveEntryByIdempotencyKey returns the entry previously created under key.
func (s *Store) ResolveEntryByIdempotencyKey(_ context.Context, orgID uuid.UUID, key string) (ledger.JournalEntry, bool, error) {
    s.mu.RLock(); defer s.mu.RUnlock()
    if m, ok := s.entryIdem[orgID]; ok {
        if eid, ok2 := m[key]; ok2 {
            if e, ok3 := s.entries[eid]; ok3 {
                return cloneEntry(*e), true, nil
            }
        }
    }
    return ledger.JournalEntry{}, false, nil
}

// SaveEntryIdempotencyKey records key -> entryID; the first writer wins.
func (s *Store) SaveEntryIdempotencyKey(_ context.Context, orgID uuid.UUID, key string, entryID uuid.UUID) error {
    s.mu.Lock(); defer s.mu.Unlock()
    m, ok := s.entryIdem[orgID]
    if !ok { m = make(map[string]uuid.UUID); s.entryIdem[orgID] = m }
    if _, exists := m[key]; !exists {
        m[key] = entryID
    }
    return nil
}

// insertEntryIndexLocked inserts k into the per-org sorted index, keeping order asc by (Date, ID).
// Caller must hold s.mu (write lock).
func (s *Store) insertEntryIndexLocked(orgID uuid.UUID, k entryKey) {
    keys := s.entryKeysByOrg[orgID]
    // binary search for first position > k (stable insert after equal)
    i := sort.Search(len(keys), func(i int) bool {
        if keys[i].Date.After(k.Date) { return true }
        if keys[i].Date.Equal(k.Date) { return keys[i].ID.String() > k.ID.String() }
        return false
    })
    keys = append(keys, entryKey{})
    copy(keys[i+1:], keys[i:])
    keys[i] = k
    s.entryKeysByOrg[orgID] = keys
}

func (s *Store) removeEntryIndexLocked(orgID, entryID uuid.UUID) {
    keys := s.entryKeysByOrg[orgID]
    for i, k := range keys {
        if k.ID == entryID {
            s.entryKeysByOrg[orgID] = append(keys[:i], keys[i+1:]...)
            return
        }
    }
}

func cloneEntry(e ledger.JournalEntry) ledger.JournalEntry {
    e.Lines = append([]ledger.JournalLine(nil), e.Lines...)
    e.Metadata = e.Metadata.Clone()
    return e
}
