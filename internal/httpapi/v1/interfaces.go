package v1

import (
    "context"

    "github.com/google/uuid"

    "github.com/tinoosan/bizbooks/internal/ledger"
    "github.com/tinoosan/bizbooks/internal/service/account"
    "github.com/tinoosan/bizbooks/internal/service/document"
    "github.com/tinoosan/bizbooks/internal/service/journal"
)

// IdempotencyStore abstracts idempotency key operations for entries.
type IdempotencyStore interface {
    // ResolveEntryByIdempotencyKey resolves an entry by idempotency key for the org.
    ResolveEntryByIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string) (ledger.JournalEntry, bool, error)
    // SaveEntryIdempotencyKey stores an idempotency key mapping for an entry.
    SaveEntryIdempotencyKey(ctx context.Context, orgID uuid.UUID, key string, entryID uuid.UUID) error
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
    Ready(ctx context.Context) error
}

// Store is the union of repositories and writers the API builds its services on.
// Both the in-memory and the Postgres stores satisfy it.
type Store interface {
    account.Repo
    account.Writer
    journal.Repo
    journal.Writer
    document.Repo
    document.Writer
    IdempotencyStore
}
