package httpapi

import (
	"github.com/safarbooks/ledger/internal/storage/memory"
	"github.com/safarbooks/ledger/internal/storage/postgres"
)

// Compile-time checks that both storage backends satisfy the read surface.
var (
	_ Repository   = (*memory.Store)(nil)
	_ Repository   = (*postgres.Store)(nil)
	_ ReadyChecker = (*memory.Store)(nil)
	_ ReadyChecker = (*postgres.Store)(nil)
)
