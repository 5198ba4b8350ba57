package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and unit-of-work interfaces used by the HTTP API and services.
//
// It is intentionally small and explicit: this package focuses on mapping
// between the domain entities and SQL rows and running the necessary
// statements and transactions. Account balances are maintained denormalised
// in accounts.balance_minor and adjusted atomically inside the same
// transaction that inserts or deletes entries.

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/service/posting"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`create table if not exists accounts (
			id            uuid primary key,
			code          text not null default '',
			name          text not null,
			type          text not null,
			currency      text not null,
			cell          text not null default '',
			location      text not null default '',
			balance_minor bigint not null default 0
		)`,
		`create unique index if not exists accounts_code_key on accounts (code) where code <> ''`,
		`create table if not exists vouchers (
			id          uuid primary key,
			type        text not null,
			voucher_num text not null unique,
			date        timestamptz not null,
			currency    text not null,
			roe         text not null,
			total_minor bigint not null,
			description text not null default '',
			status      text not null,
			reference   text not null default '',
			customer_id uuid,
			vendor_id   uuid,
			details     jsonb
		)`,
		`create table if not exists entries (
			id           uuid primary key,
			account_id   uuid not null references accounts (id) on delete cascade,
			voucher_id   uuid,
			date         timestamptz not null,
			description  text not null default '',
			debit_minor  bigint not null default 0,
			credit_minor bigint not null default 0
		)`,
		`create index if not exists entries_account_idx on entries (account_id)`,
		`create index if not exists entries_voucher_idx on entries (voucher_id)`,
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Account reads ---

const accountCols = `id, code, name, type, currency, cell, location, balance_minor`

func scanAccount(row pgx.Row) (books.Account, error) {
	var a books.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Currency, &a.Cell, &a.Location, &a.BalanceMinor)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return books.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `select `+accountCols+` from accounts where id = $1`, id))
}

func (s *Store) AccountByCode(ctx context.Context, code string) (books.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `select `+accountCols+` from accounts where code = $1 and code <> ''`, code))
}

func (s *Store) ListAccounts(ctx context.Context) ([]books.Account, error) {
	rows, err := s.pool.Query(ctx, `select `+accountCols+` from accounts order by code, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.Account, 0)
	for rows.Next() {
		var a books.Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Currency, &a.Cell, &a.Location, &a.BalanceMinor); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Voucher reads ---

const voucherCols = `id, type, voucher_num, date, currency, roe, total_minor, description, status, reference, customer_id, vendor_id, details`

func scanVoucher(row pgx.Row) (books.Voucher, error) {
	var v books.Voucher
	var roe string
	var details []byte
	err := row.Scan(&v.ID, &v.Type, &v.VoucherNum, &v.Date, &v.Currency, &roe, &v.TotalMinor,
		&v.Description, &v.Status, &v.Reference, &v.CustomerID, &v.VendorID, &details)
	if errors.Is(err, pgx.ErrNoRows) {
		return books.Voucher{}, errs.ErrNotFound
	}
	if err != nil {
		return books.Voucher{}, err
	}
	if v.ROE, err = decimal.Parse(roe); err != nil {
		return books.Voucher{}, fmt.Errorf("parse roe %q: %w", roe, err)
	}
	if len(details) > 0 {
		d, err := books.UnmarshalDetails(v.Type, details)
		if err != nil {
			return books.Voucher{}, err
		}
		v.Details = d
	}
	return v, nil
}

func (s *Store) GetVoucher(ctx context.Context, id uuid.UUID) (books.Voucher, error) {
	return scanVoucher(s.pool.QueryRow(ctx, `select `+voucherCols+` from vouchers where id = $1`, id))
}

func (s *Store) ListVouchers(ctx context.Context) ([]books.Voucher, error) {
	rows, err := s.pool.Query(ctx, `select `+voucherCols+` from vouchers order by date, voucher_num`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]books.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) VouchersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]books.Voucher, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]books.Voucher{}, nil
	}
	rows, err := s.pool.Query(ctx, `select `+voucherCols+` from vouchers where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]books.Voucher, len(ids))
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}

// --- Entry reads ---

const entryCols = `id, account_id, voucher_id, date, description, debit_minor, credit_minor`

func scanEntries(rows pgx.Rows) ([]books.LedgerEntry, error) {
	defer rows.Close()
	out := make([]books.LedgerEntry, 0)
	for rows.Next() {
		var e books.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.VoucherID, &e.Date, &e.Description, &e.DebitMinor, &e.CreditMinor); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]books.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `select `+entryCols+` from entries where account_id = $1 order by date, id`, accountID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (s *Store) EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]books.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `select `+entryCols+` from entries where voucher_id = $1 order by date, id`, voucherID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// --- Unit of work ---

// Begin opens a database transaction.
func (s *Store) Begin(ctx context.Context) (posting.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx.Tx. Balance adjustments ride along with every entry insert
// or delete so the denormalised balances never drift from the entry rows.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) CreateAccount(ctx context.Context, a books.Account) error {
	_, err := t.tx.Exec(ctx, `
		insert into accounts (id, code, name, type, currency, cell, location, balance_minor)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.Code, a.Name, a.Type, a.Currency, a.Cell, a.Location, a.BalanceMinor)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

func (t *Tx) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	ct, err := t.tx.Exec(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) CreateVoucher(ctx context.Context, v books.Voucher) error {
	var details []byte
	if v.Details != nil {
		var err error
		if details, err = books.MarshalDetails(v.Details); err != nil {
			return err
		}
	}
	_, err := t.tx.Exec(ctx, `
		insert into vouchers (id, type, voucher_num, date, currency, roe, total_minor, description, status, reference, customer_id, vendor_id, details)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, v.ID, v.Type, v.VoucherNum, v.Date, v.Currency, v.ROE.String(), v.TotalMinor,
		v.Description, v.Status, v.Reference, v.CustomerID, v.VendorID, details)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

func (t *Tx) DeleteVoucher(ctx context.Context, id uuid.UUID) error {
	ct, err := t.tx.Exec(ctx, `delete from vouchers where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) CreateEntry(ctx context.Context, e books.LedgerEntry) error {
	if _, err := t.tx.Exec(ctx, `
		insert into entries (id, account_id, voucher_id, date, description, debit_minor, credit_minor)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.AccountID, e.VoucherID, e.Date, e.Description, e.DebitMinor, e.CreditMinor); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		update accounts set balance_minor = balance_minor + $1 where id = $2
	`, e.NetMinor(), e.AccountID)
	return err
}

func (t *Tx) DeleteEntriesByVoucher(ctx context.Context, voucherID uuid.UUID) error {
	// Reverse the balance effect per account before dropping the rows.
	if _, err := t.tx.Exec(ctx, `
		update accounts a
		set balance_minor = balance_minor - x.net
		from (
			select account_id, sum(debit_minor - credit_minor) as net
			from entries
			where voucher_id = $1
			group by account_id
		) x
		where a.id = x.account_id
	`, voucherID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `delete from entries where voucher_id = $1`, voucherID)
	return err
}

func (t *Tx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
