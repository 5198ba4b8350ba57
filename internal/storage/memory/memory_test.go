package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
)

func seedAccount(t *testing.T, st *Store, code string, typ books.AccountType) books.Account {
	t.Helper()
	a := books.Account{ID: uuid.New(), Code: code, Name: code, Type: typ, Currency: "PKR"}
	tx, err := st.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return a
}

func TestCommitAtomicOnConflict(t *testing.T) {
	ctx := context.Background()
	st := New()
	acc := seedAccount(t, st, "1101", books.AccountTypeCustomer)

	v1 := books.Voucher{ID: uuid.New(), VoucherNum: "HV-2025-AAAAA", Type: books.VoucherTypeHotel, Status: books.VoucherStatusPosted}
	tx, _ := st.Begin(ctx)
	tx.CreateVoucher(ctx, v1)
	tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: acc.ID, VoucherID: &v1.ID, DebitMinor: 5000})
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	// Second voucher reuses the number; nothing from this tx may land.
	v2 := books.Voucher{ID: uuid.New(), VoucherNum: "HV-2025-AAAAA", Type: books.VoucherTypeHotel, Status: books.VoucherStatusPosted}
	tx, _ = st.Begin(ctx)
	tx.CreateVoucher(ctx, v2)
	tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: acc.ID, VoucherID: &v2.ID, DebitMinor: 9000})
	if err := tx.Commit(ctx); err != errs.ErrConflict {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	got, err := st.GetAccount(ctx, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.BalanceMinor != 5000 {
		t.Fatalf("balance = %d, want 5000 (conflicting tx must not apply)", got.BalanceMinor)
	}
	if _, err := st.GetVoucher(ctx, v2.ID); err != errs.ErrNotFound {
		t.Fatalf("conflicting voucher should not exist, got err=%v", err)
	}
}

func TestDeleteThenReinsertSameNumber(t *testing.T) {
	ctx := context.Background()
	st := New()
	acc := seedAccount(t, st, "1101", books.AccountTypeCustomer)

	v := books.Voucher{ID: uuid.New(), VoucherNum: "TV-2025-ZZZZZ", Type: books.VoucherTypeTransport, Status: books.VoucherStatusPosted}
	tx, _ := st.Begin(ctx)
	tx.CreateVoucher(ctx, v)
	tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: acc.ID, VoucherID: &v.ID, DebitMinor: 1000})
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("post: %v", err)
	}

	// Update path: delete and re-create under the same number in one tx.
	v2 := v
	v2.TotalMinor = 2000
	tx, _ = st.Begin(ctx)
	tx.DeleteEntriesByVoucher(ctx, v.ID)
	tx.DeleteVoucher(ctx, v.ID)
	tx.CreateVoucher(ctx, v2)
	tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: acc.ID, VoucherID: &v2.ID, DebitMinor: 2000})
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("update commit: %v", err)
	}

	got, _ := st.GetAccount(ctx, acc.ID)
	if got.BalanceMinor != 2000 {
		t.Fatalf("balance = %d, want 2000 after repost", got.BalanceMinor)
	}
	entries, _ := st.EntriesByVoucher(ctx, v.ID)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 after repost", len(entries))
	}
}

func TestDeleteAccountCascadesEntries(t *testing.T) {
	ctx := context.Background()
	st := New()
	acc := seedAccount(t, st, "1102", books.AccountTypeCustomer)

	v := books.Voucher{ID: uuid.New(), VoucherNum: "VV-2025-ABCDE", Type: books.VoucherTypeVisa, Status: books.VoucherStatusPosted}
	tx, _ := st.Begin(ctx)
	tx.CreateVoucher(ctx, v)
	tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: acc.ID, VoucherID: &v.ID, DebitMinor: 700, Date: time.Now()})
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("post: %v", err)
	}

	tx, _ = st.Begin(ctx)
	tx.DeleteAccount(ctx, acc.ID)
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := st.AccountByCode(ctx, "1102"); err != errs.ErrNotFound {
		t.Fatalf("account code should be free, got err=%v", err)
	}
	entries, _ := st.EntriesByVoucher(ctx, v.ID)
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0 after account delete", len(entries))
	}
}

func TestConcurrentContraPostings(t *testing.T) {
	ctx := context.Background()
	st := New()
	reserve := seedAccount(t, st, "3001", books.AccountTypeEquity)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cust := books.Account{ID: uuid.New(), Type: books.AccountTypeCustomer, Currency: "PKR"}
			tx, _ := st.Begin(ctx)
			tx.CreateAccount(ctx, cust)
			tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: cust.ID, DebitMinor: 100})
			tx.CreateEntry(ctx, books.LedgerEntry{ID: uuid.New(), AccountID: reserve.ID, CreditMinor: 100})
			if err := tx.Commit(ctx); err != nil {
				t.Errorf("commit: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := st.GetAccount(ctx, reserve.ID)
	if got.BalanceMinor != -n*100 {
		t.Fatalf("reserve balance = %d, want %d", got.BalanceMinor, -n*100)
	}
}
