// Package posting implements the posting engine: it translates a voucher
// intent into a balanced set of ledger entries and submits header, entries and
// balance updates to the store as one unit of work.
package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/voucherno"
)

// Repo defines read operations needed by the engine.
type Repo interface {
	GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error)
	AccountByCode(ctx context.Context, code string) (books.Account, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (books.Voucher, error)
}

// UnitOfWork begins a transaction scoped to one posting operation.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx stages the mutations of one posting. Commit applies them atomically;
// a reader never observes a partially applied voucher. CreateEntry and
// DeleteEntriesByVoucher also adjust the touched accounts' balances.
type Tx interface {
	CreateAccount(ctx context.Context, a books.Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	CreateVoucher(ctx context.Context, v books.Voucher) error
	DeleteVoucher(ctx context.Context, id uuid.UUID) error
	CreateEntry(ctx context.Context, e books.LedgerEntry) error
	DeleteEntriesByVoucher(ctx context.Context, voucherID uuid.UUID) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Intent is a caller-built voucher request. Callers never supply ledger
// entries; only the engine derives those.
type Intent struct {
	Type       books.VoucherType
	VoucherNum string // optional; generated when empty
	Date       time.Time
	Currency   string
	ROE        decimal.Decimal // ignored for local currency; seeded from config when unset
	// AmountMinor is the gross amount in the voucher currency's minor units.
	// Payment vouchers derive their total from the line items instead.
	AmountMinor int64
	Description string
	Reference   string
	CustomerID  uuid.UUID
	VendorID    uuid.UUID
	Details     books.Details
}

// AccountInput describes an account registration.
type AccountInput struct {
	Name     string
	Type     books.AccountType
	Cell     string
	Location string
	Code     string // optional GL code
	Currency string // defaults to the local currency
	// OpeningBalanceMinor, when positive, seeds the account with one entry and
	// a contra entry on the opening balance reserve account.
	OpeningBalanceMinor int64
	DebitNatured        bool
}

// Service exposes the posting operations. Update is a full delete-and-repost,
// never an in-place entry patch.
type Service interface {
	ValidateIntent(ctx context.Context, intent Intent) error
	Post(ctx context.Context, intent Intent) (books.Voucher, error)
	Update(ctx context.Context, voucherID uuid.UUID, intent Intent) (books.Voucher, error)
	Delete(ctx context.Context, voucherID uuid.UUID) error
	RegisterAccount(ctx context.Context, in AccountInput) (books.Account, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
}

var (
	vouchersPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "safarledger",
			Name:      "vouchers_posted_total",
			Help:      "Total number of vouchers posted, by type",
		},
		[]string{"type"},
	)
	vouchersDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "safarledger",
			Name:      "vouchers_deleted_total",
			Help:      "Total number of vouchers deleted",
		},
	)
	accountsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "safarledger",
			Name:      "accounts_registered_total",
			Help:      "Total number of accounts registered",
		},
	)
)

type service struct {
	repo       Repo
	uow        UnitOfWork
	local      string
	defaultROE decimal.Decimal
	now        func() time.Time
}

// New constructs the posting engine. localCurrency is the reporting currency
// (PKR); defaultROE seeds foreign-currency vouchers that carry no explicit rate.
func New(repo Repo, uow UnitOfWork, localCurrency string, defaultROE decimal.Decimal) Service {
	return &service{
		repo:       repo,
		uow:        uow,
		local:      strings.ToUpper(localCurrency),
		defaultROE: defaultROE,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ValidateIntent runs all per-type precondition checks without persisting.
func (s *service) ValidateIntent(ctx context.Context, intent Intent) error {
	_, _, err := s.plan(ctx, intent)
	return err
}

func (s *service) Post(ctx context.Context, intent Intent) (books.Voucher, error) {
	v, entries, err := s.plan(ctx, intent)
	if err != nil {
		return books.Voucher{}, err
	}
	v.ID = uuid.New()
	if v.VoucherNum == "" {
		v.VoucherNum = voucherno.Generate(v.Type.Code(), v.Date.Year())
	}
	for i := range entries {
		entries[i].VoucherID = &v.ID
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return books.Voucher{}, errs.Persistence(errs.PhaseHeaderInsert, err)
	}
	if err := postTx(ctx, tx, v, entries); err != nil {
		_ = tx.Rollback(ctx)
		return books.Voucher{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return books.Voucher{}, errs.Persistence(errs.PhaseCommit, err)
	}
	vouchersPosted.WithLabelValues(string(v.Type)).Inc()
	return v, nil
}

// Update reposts the voucher from scratch: entries and header are deleted and
// the new intent posted, all inside one transaction so no reader observes an
// unbalanced intermediate state. Two concurrent updates to the same voucher
// race; last write wins at the store layer.
func (s *service) Update(ctx context.Context, voucherID uuid.UUID, intent Intent) (books.Voucher, error) {
	existing, err := s.repo.GetVoucher(ctx, voucherID)
	if err != nil {
		return books.Voucher{}, err
	}
	if intent.VoucherNum == "" {
		intent.VoucherNum = existing.VoucherNum
	}
	v, entries, err := s.plan(ctx, intent)
	if err != nil {
		return books.Voucher{}, err
	}
	v.ID = voucherID
	for i := range entries {
		entries[i].VoucherID = &v.ID
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return books.Voucher{}, errs.Persistence(errs.PhaseDeleteEntries, err)
	}
	if err := tx.DeleteEntriesByVoucher(ctx, voucherID); err != nil {
		_ = tx.Rollback(ctx)
		return books.Voucher{}, errs.Persistence(errs.PhaseDeleteEntries, err)
	}
	if err := tx.DeleteVoucher(ctx, voucherID); err != nil {
		_ = tx.Rollback(ctx)
		return books.Voucher{}, errs.Persistence(errs.PhaseDeleteHeader, err)
	}
	if err := postTx(ctx, tx, v, entries); err != nil {
		_ = tx.Rollback(ctx)
		return books.Voucher{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return books.Voucher{}, errs.Persistence(errs.PhaseCommit, err)
	}
	return v, nil
}

func (s *service) Delete(ctx context.Context, voucherID uuid.UUID) error {
	if _, err := s.repo.GetVoucher(ctx, voucherID); err != nil {
		return err
	}
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return errs.Persistence(errs.PhaseDeleteEntries, err)
	}
	if err := tx.DeleteEntriesByVoucher(ctx, voucherID); err != nil {
		_ = tx.Rollback(ctx)
		return errs.Persistence(errs.PhaseDeleteEntries, err)
	}
	if err := tx.DeleteVoucher(ctx, voucherID); err != nil {
		_ = tx.Rollback(ctx)
		return errs.Persistence(errs.PhaseDeleteHeader, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Persistence(errs.PhaseCommit, err)
	}
	vouchersDeleted.Inc()
	return nil
}

func (s *service) RegisterAccount(ctx context.Context, in AccountInput) (books.Account, error) {
	if strings.TrimSpace(in.Name) == "" {
		return books.Account{}, errs.Validation("name", "name is required")
	}
	if !in.Type.Valid() {
		return books.Account{}, errs.Validation("type", "invalid account type")
	}
	if in.OpeningBalanceMinor < 0 {
		return books.Account{}, errs.Validation("opening_balance_minor", "opening balance must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.local
	}
	if in.Code != "" {
		if want := books.CodeType(in.Code); want != "" && want != in.Type {
			return books.Account{}, errs.Validation("code", fmt.Sprintf("code prefix implies a %s account", want))
		}
		if _, err := s.repo.AccountByCode(ctx, in.Code); err == nil {
			return books.Account{}, fmt.Errorf("account code %q: %w", in.Code, errs.ErrConflict)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return books.Account{}, err
		}
	}

	var reserve books.Account
	if in.OpeningBalanceMinor > 0 {
		var err error
		reserve, err = s.repo.AccountByCode(ctx, books.OpeningBalanceReserveCode)
		if errors.Is(err, errs.ErrNotFound) {
			return books.Account{}, &errs.ConfigurationError{
				Reason: fmt.Sprintf("opening balance reserve account %q does not exist; cannot post contra entry", books.OpeningBalanceReserveCode),
			}
		}
		if err != nil {
			return books.Account{}, err
		}
	}

	acc := books.Account{
		ID:       uuid.New(),
		Code:     in.Code,
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		Currency: currency,
		Cell:     in.Cell,
		Location: in.Location,
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return books.Account{}, errs.Persistence(errs.PhaseAccountInsert, err)
	}
	if err := tx.CreateAccount(ctx, acc); err != nil {
		_ = tx.Rollback(ctx)
		return books.Account{}, errs.Persistence(errs.PhaseAccountInsert, err)
	}
	if in.OpeningBalanceMinor > 0 {
		date := s.now()
		opening := books.LedgerEntry{
			ID:          uuid.New(),
			AccountID:   acc.ID,
			Date:        date,
			Description: "Opening balance",
		}
		contra := books.LedgerEntry{
			ID:          uuid.New(),
			AccountID:   reserve.ID,
			Date:        date,
			Description: "Opening balance - " + acc.Name,
		}
		if in.DebitNatured {
			opening.DebitMinor = in.OpeningBalanceMinor
			contra.CreditMinor = in.OpeningBalanceMinor
		} else {
			opening.CreditMinor = in.OpeningBalanceMinor
			contra.DebitMinor = in.OpeningBalanceMinor
		}
		for _, e := range []books.LedgerEntry{opening, contra} {
			if err := tx.CreateEntry(ctx, e); err != nil {
				_ = tx.Rollback(ctx)
				return books.Account{}, errs.Persistence(errs.PhaseEntriesInsert, err)
			}
		}
		if in.DebitNatured {
			acc.BalanceMinor = in.OpeningBalanceMinor
		} else {
			acc.BalanceMinor = -in.OpeningBalanceMinor
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return books.Account{}, errs.Persistence(errs.PhaseCommit, err)
	}
	accountsRegistered.Inc()
	return acc, nil
}

func (s *service) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if books.IsReservedCode(acc.Code) {
		return errs.Validation("id", "reserved system account cannot be deleted")
	}
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return errs.Persistence(errs.PhaseAccountDelete, err)
	}
	if err := tx.DeleteAccount(ctx, accountID); err != nil {
		_ = tx.Rollback(ctx)
		return errs.Persistence(errs.PhaseAccountDelete, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Persistence(errs.PhaseCommit, err)
	}
	return nil
}

// postTx inserts header then entries inside an open transaction.
func postTx(ctx context.Context, tx Tx, v books.Voucher, entries []books.LedgerEntry) error {
	if err := tx.CreateVoucher(ctx, v); err != nil {
		return errs.Persistence(errs.PhaseHeaderInsert, err)
	}
	for _, e := range entries {
		if err := tx.CreateEntry(ctx, e); err != nil {
			return errs.Persistence(errs.PhaseEntriesInsert, err)
		}
	}
	return nil
}
