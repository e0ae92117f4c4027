package v1

import (
    "github.com/tinoosan/bizbooks/internal/storage/memory"
    "github.com/tinoosan/bizbooks/internal/storage/postgres"
)

// Compile-time interface assertions for the stores against HTTP API interfaces.
var (
    _ Store        = (*memory.Store)(nil)
    _ ReadyChecker = (*memory.Store)(nil)
    _ Store        = (*postgres.Store)(nil)
    _ ReadyChecker = (*postgres.Store)(nil)
)
