// Package memory provides an in-memory implementation of the repository and
// unit-of-work interfaces, used for development and tests. A staged
// transaction model keeps commits all-or-nothing: ops are validated and
// applied under a single write lock, so a reader never observes a voucher
// with only some of its entries.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/service/posting"
)

// Store keeps accounts, vouchers and entries in maps guarded by an RWMutex.
type Store struct {
	mu               sync.RWMutex
	accounts         map[uuid.UUID]books.Account
	accountsByCode   map[string]uuid.UUID
	vouchers         map[uuid.UUID]books.Voucher
	voucherNums      map[string]uuid.UUID
	entries          map[uuid.UUID]books.LedgerEntry
	entriesByAccount map[uuid.UUID][]uuid.UUID
	entriesByVoucher map[uuid.UUID][]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:         make(map[uuid.UUID]books.Account),
		accountsByCode:   make(map[string]uuid.UUID),
		vouchers:         make(map[uuid.UUID]books.Voucher),
		voucherNums:      make(map[string]uuid.UUID),
		entries:          make(map[uuid.UUID]books.LedgerEntry),
		entriesByAccount: make(map[uuid.UUID][]uuid.UUID),
		entriesByVoucher: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Ready always succeeds for the in-memory backend.
func (s *Store) Ready(_ context.Context) error { return nil }

// --- Reads ---

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return books.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) AccountByCode(_ context.Context, code string) (books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.accountsByCode[code]
	if !ok {
		return books.Account{}, errs.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *Store) ListAccounts(_ context.Context) ([]books.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) GetVoucher(_ context.Context, id uuid.UUID) (books.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vouchers[id]
	if !ok {
		return books.Voucher{}, errs.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVouchers(_ context.Context) ([]books.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]books.Voucher, 0, len(s.vouchers))
	for _, v := range s.vouchers {
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) VouchersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]books.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]books.Voucher, len(ids))
	for _, id := range ids {
		if v, ok := s.vouchers[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *Store) EntriesByAccount(_ context.Context, accountID uuid.UUID) ([]books.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.entriesByAccount[accountID]
	out := make([]books.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	return out, nil
}

func (s *Store) EntriesByVoucher(_ context.Context, voucherID uuid.UUID) ([]books.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.entriesByVoucher[voucherID]
	out := make([]books.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entries[id])
	}
	return out, nil
}

// --- Unit of work ---

// txView tracks state staged within an uncommitted transaction so sequential
// checks see earlier staged ops (e.g. delete-then-reinsert of the same
// voucher number during an update).
type txView struct {
	addedNums   map[string]bool
	removedNums map[string]bool
	addedCodes  map[string]bool
	addedAccts  map[uuid.UUID]bool
	removed     map[uuid.UUID]bool // accounts staged for deletion
}

type op struct {
	check func(*Store, *txView) error
	apply func(*Store)
}

// Tx stages mutations; Commit validates and applies them under one lock.
type Tx struct {
	st   *Store
	ops  []op
	done bool
}

// Begin starts a staged transaction.
func (s *Store) Begin(_ context.Context) (posting.Tx, error) {
	return &Tx{st: s}, nil
}

func (t *Tx) CreateAccount(_ context.Context, a books.Account) error {
	t.ops = append(t.ops, op{
		check: func(st *Store, v *txView) error {
			if a.Code != "" {
				if _, ok := st.accountsByCode[a.Code]; ok || v.addedCodes[a.Code] {
					return errs.ErrConflict
				}
				v.addedCodes[a.Code] = true
			}
			v.addedAccts[a.ID] = true
			return nil
		},
		apply: func(st *Store) {
			st.accounts[a.ID] = a
			if a.Code != "" {
				st.accountsByCode[a.Code] = a.ID
			}
		},
	})
	return nil
}

func (t *Tx) DeleteAccount(_ context.Context, id uuid.UUID) error {
	t.ops = append(t.ops, op{
		check: func(st *Store, v *txView) error {
			if _, ok := st.accounts[id]; !ok {
				return errs.ErrNotFound
			}
			v.removed[id] = true
			return nil
		},
		apply: func(st *Store) {
			a := st.accounts[id]
			// Cascade the account's entries, unhooking voucher indexes too.
			for _, eid := range st.entriesByAccount[id] {
				e := st.entries[eid]
				if e.VoucherID != nil {
					st.entriesByVoucher[*e.VoucherID] = removeID(st.entriesByVoucher[*e.VoucherID], eid)
				}
				delete(st.entries, eid)
			}
			delete(st.entriesByAccount, id)
			if a.Code != "" {
				delete(st.accountsByCode, a.Code)
			}
			delete(st.accounts, id)
		},
	})
	return nil
}

func (t *Tx) CreateVoucher(_ context.Context, v books.Voucher) error {
	t.ops = append(t.ops, op{
		check: func(st *Store, view *txView) error {
			if _, ok := st.voucherNums[v.VoucherNum]; (ok && !view.removedNums[v.VoucherNum]) || view.addedNums[v.VoucherNum] {
				return errs.ErrConflict
			}
			view.addedNums[v.VoucherNum] = true
			return nil
		},
		apply: func(st *Store) {
			st.vouchers[v.ID] = v
			st.voucherNums[v.VoucherNum] = v.ID
		},
	})
	return nil
}

func (t *Tx) DeleteVoucher(_ context.Context, id uuid.UUID) error {
	t.ops = append(t.ops, op{
		check: func(st *Store, view *txView) error {
			v, ok := st.vouchers[id]
			if !ok {
				return errs.ErrNotFound
			}
			view.removedNums[v.VoucherNum] = true
			return nil
		},
		apply: func(st *Store) {
			v := st.vouchers[id]
			delete(st.voucherNums, v.VoucherNum)
			delete(st.vouchers, id)
		},
	})
	return nil
}

func (t *Tx) CreateEntry(_ context.Context, e books.LedgerEntry) error {
	t.ops = append(t.ops, op{
		check: func(st *Store, v *txView) error {
			if _, ok := st.accounts[e.AccountID]; !ok && !v.addedAccts[e.AccountID] {
				return errs.ErrNotFound
			}
			return nil
		},
		apply: func(st *Store) {
			st.entries[e.ID] = e
			st.entriesByAccount[e.AccountID] = append(st.entriesByAccount[e.AccountID], e.ID)
			if e.VoucherID != nil {
				st.entriesByVoucher[*e.VoucherID] = append(st.entriesByVoucher[*e.VoucherID], e.ID)
			}
			// Balance increment happens under the store lock, so concurrent
			// contra postings to the same account (the opening balance
			// reserve in particular) never race.
			acc := st.accounts[e.AccountID]
			acc.BalanceMinor += e.NetMinor()
			st.accounts[e.AccountID] = acc
		},
	})
	return nil
}

func (t *Tx) DeleteEntriesByVoucher(_ context.Context, voucherID uuid.UUID) error {
	t.ops = append(t.ops, op{
		check: func(*Store, *txView) error { return nil },
		apply: func(st *Store) {
			for _, eid := range st.entriesByVoucher[voucherID] {
				e := st.entries[eid]
				if acc, ok := st.accounts[e.AccountID]; ok {
					acc.BalanceMinor -= e.NetMinor()
					st.accounts[e.AccountID] = acc
				}
				st.entriesByAccount[e.AccountID] = removeID(st.entriesByAccount[e.AccountID], eid)
				delete(st.entries, eid)
			}
			delete(st.entriesByVoucher, voucherID)
		},
	})
	return nil
}

// Commit validates every staged op in order, then applies them all. If any
// check fails nothing is applied.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return errs.ErrInvalid
	}
	t.done = true
	t.st.mu.Lock()
	defer t.st.mu.Unlock()
	view := &txView{
		addedNums:   make(map[string]bool),
		removedNums: make(map[string]bool),
		addedCodes:  make(map[string]bool),
		addedAccts:  make(map[uuid.UUID]bool),
		removed:     make(map[uuid.UUID]bool),
	}
	for _, o := range t.ops {
		if err := o.check(t.st, view); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		o.apply(t.st)
	}
	return nil
}

// Rollback discards staged ops. Safe to call after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	t.done = true
	t.ops = nil
	return nil
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
