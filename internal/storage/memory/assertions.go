package memory

import (
	"github.com/tinoosan/bizbooks/internal/service/account"
	"github.com/tinoosan/bizbooks/internal/service/document"
	"github.com/tinoosan/bizbooks/internal/service/journal"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ account.Repo    = (*Store)(nil)
	_ account.Writer  = (*Store)(nil)
	_ journal.Repo    = (*Store)(nil)
	_ journal.Writer  = (*Store)(nil)
	_ document.Repo   = (*Store)(nil)
	_ document.Writer = (*Store)(nil)
)
