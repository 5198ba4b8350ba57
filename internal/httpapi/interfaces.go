package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/books"
)

// AccountReader abstracts account read operations.
type AccountReader interface {
	// ListAccounts returns every account.
	ListAccounts(ctx context.Context) ([]books.Account, error)
	// GetAccount returns an account by ID.
	GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error)
	// AccountByCode resolves an account by its GL code.
	AccountByCode(ctx context.Context, code string) (books.Account, error)
}

// VoucherReader abstracts voucher and entry read operations.
type VoucherReader interface {
	// ListVouchers returns every voucher.
	ListVouchers(ctx context.Context) ([]books.Voucher, error)
	// GetVoucher returns a voucher by ID.
	GetVoucher(ctx context.Context, id uuid.UUID) (books.Voucher, error)
	// EntriesByVoucher returns the ledger entries a voucher produced.
	EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]books.LedgerEntry, error)
	// EntriesByAccount returns the ledger entries touching an account.
	EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]books.LedgerEntry, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Repository composes the read-side operations the API consumes. Both the
// in-memory and the Postgres store satisfy it.
type Repository interface {
	AccountReader
	VoucherReader
}
