// Package report computes the read-side statements: trial balance, profit &
// loss, balance sheet and per-account ledgers. It holds no state and never
// mutates the stores, so it is safe to run concurrently and repeatedly.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/books"
)

// EpsilonMinor is the tolerance for debit/credit agreement: 0.01 in minor units.
const EpsilonMinor = 1

// Repo defines the snapshot reads the aggregator consumes.
type Repo interface {
	ListAccounts(ctx context.Context) ([]books.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (books.Account, error)
	ListVouchers(ctx context.Context) ([]books.Voucher, error)
	VouchersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]books.Voucher, error)
	EntriesByAccount(ctx context.Context, accountID uuid.UUID) ([]books.LedgerEntry, error)
}

// Service exposes the report computations.
type Service interface {
	TrialBalance(ctx context.Context) (TrialBalance, error)
	ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error)
	BalanceSheet(ctx context.Context) (BalanceSheet, error)
	AccountLedger(ctx context.Context, accountID uuid.UUID) (AccountLedger, error)
}

// TrialBalanceRow buckets one account's balance into a debit or credit column.
type TrialBalanceRow struct {
	AccountID   uuid.UUID         `json:"account_id"`
	Code        string            `json:"code,omitempty"`
	Name        string            `json:"name"`
	Type        books.AccountType `json:"type"`
	DebitMinor  int64             `json:"debit_minor"`
	CreditMinor int64             `json:"credit_minor"`
}

// TrialBalance lists every account with a non-zero balance. Alarm is set when
// the columns disagree beyond EpsilonMinor: that is a data integrity alarm the
// user must investigate, not a report artifact and not an error.
type TrialBalance struct {
	Rows             []TrialBalanceRow `json:"rows"`
	TotalDebitMinor  int64             `json:"total_debit_minor"`
	TotalCreditMinor int64             `json:"total_credit_minor"`
	DiscrepancyMinor int64             `json:"discrepancy_minor"`
	Alarm            bool              `json:"integrity_alarm"`
}

// ProfitAndLoss sums voucher totals within a date range: revenue-generating
// types on the income side, payments on the expense side.
type ProfitAndLoss struct {
	From         time.Time                   `json:"from"`
	To           time.Time                   `json:"to"`
	IncomeMinor  int64                       `json:"income_minor"`
	ExpenseMinor int64                       `json:"expense_minor"`
	NetMinor     int64                       `json:"net_minor"`
	IncomeByType map[books.VoucherType]int64 `json:"income_by_type"`
}

// BalanceSheetLine is one account presented in a balance sheet section.
// Reclassified marks an account shown opposite its nominal side because of a
// contra balance (an overpaid customer becomes a payable, a credit-balance
// vendor a receivable).
type BalanceSheetLine struct {
	AccountID    uuid.UUID `json:"account_id"`
	Code         string    `json:"code,omitempty"`
	Name         string    `json:"name"`
	AmountMinor  int64     `json:"amount_minor"`
	Reclassified bool      `json:"reclassified,omitempty"`
}

// BalanceSheet classifies accounts by type and by the sign of their balance.
// Equity includes accumulated revenue minus expense balances as current
// period earnings; Alarm is set when assets differ from liabilities plus
// equity beyond EpsilonMinor.
type BalanceSheet struct {
	Assets                []BalanceSheetLine `json:"assets"`
	Liabilities           []BalanceSheetLine `json:"liabilities"`
	Equity                []BalanceSheetLine `json:"equity"`
	CurrentEarningsMinor  int64              `json:"current_earnings_minor"`
	TotalAssetsMinor      int64              `json:"total_assets_minor"`
	TotalLiabilitiesMinor int64              `json:"total_liabilities_minor"`
	TotalEquityMinor      int64              `json:"total_equity_minor"`
	DiscrepancyMinor      int64              `json:"discrepancy_minor"`
	Alarm                 bool               `json:"integrity_alarm"`
}

// LedgerRow is one chronological entry with its running balance. VoucherNum is
// resolved by joining entry to voucher at read time; it is never denormalized
// onto the entry.
type LedgerRow struct {
	EntryID      uuid.UUID  `json:"entry_id"`
	Date         time.Time  `json:"date"`
	VoucherID    *uuid.UUID `json:"voucher_id,omitempty"`
	VoucherNum   string     `json:"voucher_num,omitempty"`
	Description  string     `json:"description"`
	DebitMinor   int64      `json:"debit_minor"`
	CreditMinor  int64      `json:"credit_minor"`
	BalanceMinor int64      `json:"balance_minor"`
}

// AccountLedger is one account's chronological statement.
type AccountLedger struct {
	Account books.Account `json:"-"`
	Rows    []LedgerRow   `json:"rows"`
}

type service struct {
	repo Repo
}

// New constructs the report aggregator over the given snapshot reader.
func New(repo Repo) Service { return &service{repo: repo} }

func (s *service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	sortAccounts(accounts)
	var tb TrialBalance
	tb.Rows = make([]TrialBalanceRow, 0, len(accounts))
	for _, a := range accounts {
		if a.BalanceMinor == 0 {
			continue
		}
		row := TrialBalanceRow{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type}
		if a.BalanceMinor > 0 {
			row.DebitMinor = a.BalanceMinor
		} else {
			row.CreditMinor = -a.BalanceMinor
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebitMinor += row.DebitMinor
		tb.TotalCreditMinor += row.CreditMinor
	}
	tb.DiscrepancyMinor = tb.TotalDebitMinor - tb.TotalCreditMinor
	tb.Alarm = abs(tb.DiscrepancyMinor) > EpsilonMinor
	return tb, nil
}

func (s *service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	vouchers, err := s.repo.ListVouchers(ctx)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	pl := ProfitAndLoss{From: from, To: to, IncomeByType: make(map[books.VoucherType]int64)}
	for _, v := range vouchers {
		if v.Status != books.VoucherStatusPosted {
			continue
		}
		if !from.IsZero() && v.Date.Before(from) {
			continue
		}
		if !to.IsZero() && v.Date.After(to) {
			continue
		}
		switch {
		case v.Type.RevenueGenerating():
			pl.IncomeMinor += v.TotalMinor
			pl.IncomeByType[v.Type] += v.TotalMinor
		case v.Type == books.VoucherTypePayment:
			pl.ExpenseMinor += v.TotalMinor
		}
	}
	pl.NetMinor = pl.IncomeMinor - pl.ExpenseMinor
	return pl, nil
}

func (s *service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return BalanceSheet{}, err
	}
	sortAccounts(accounts)
	var bs BalanceSheet
	for _, a := range accounts {
		bal := a.BalanceMinor
		if bal == 0 {
			continue
		}
		line := BalanceSheetLine{AccountID: a.ID, Code: a.Code, Name: a.Name}
		switch a.Type {
		case books.AccountTypeRevenue, books.AccountTypeExpense:
			// Folded into current period earnings below.
			bs.CurrentEarningsMinor += -bal
		case books.AccountTypeEquity:
			line.AmountMinor = -bal
			bs.Equity = append(bs.Equity, line)
		default:
			// Sign decides the section: debit balances are assets, credit
			// balances liabilities, whatever the account's nominal side.
			if bal > 0 {
				line.AmountMinor = bal
				line.Reclassified = !a.Type.DebitNatured()
				bs.Assets = append(bs.Assets, line)
			} else {
				line.AmountMinor = -bal
				line.Reclassified = a.Type.DebitNatured()
				bs.Liabilities = append(bs.Liabilities, line)
			}
		}
	}
	for _, l := range bs.Assets {
		bs.TotalAssetsMinor += l.AmountMinor
	}
	for _, l := range bs.Liabilities {
		bs.TotalLiabilitiesMinor += l.AmountMinor
	}
	for _, l := range bs.Equity {
		bs.TotalEquityMinor += l.AmountMinor
	}
	bs.TotalEquityMinor += bs.CurrentEarningsMinor
	bs.DiscrepancyMinor = bs.TotalAssetsMinor - (bs.TotalLiabilitiesMinor + bs.TotalEquityMinor)
	bs.Alarm = abs(bs.DiscrepancyMinor) > EpsilonMinor
	return bs, nil
}

func (s *service) AccountLedger(ctx context.Context, accountID uuid.UUID) (AccountLedger, error) {
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return AccountLedger{}, err
	}
	entries, err := s.repo.EntriesByAccount(ctx, accountID)
	if err != nil {
		return AccountLedger{}, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID.String() < entries[j].ID.String()
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		if e.VoucherID != nil {
			ids = append(ids, *e.VoucherID)
		}
	}
	vouchers, err := s.repo.VouchersByIDs(ctx, ids)
	if err != nil {
		return AccountLedger{}, err
	}
	out := AccountLedger{Account: acc, Rows: make([]LedgerRow, 0, len(entries))}
	var running int64
	for _, e := range entries {
		running += e.NetMinor()
		row := LedgerRow{
			EntryID:      e.ID,
			Date:         e.Date,
			VoucherID:    e.VoucherID,
			Description:  e.Description,
			DebitMinor:   e.DebitMinor,
			CreditMinor:  e.CreditMinor,
			BalanceMinor: running,
		}
		if e.VoucherID != nil {
			if v, ok := vouchers[*e.VoucherID]; ok {
				row.VoucherNum = v.VoucherNum
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// sortAccounts orders by code then name for stable report output.
func sortAccounts(accounts []books.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Code != accounts[j].Code {
			if accounts[i].Code == "" {
				return false
			}
			if accounts[j].Code == "" {
				return true
			}
			return accounts[i].Code < accounts[j].Code
		}
		return accounts[i].Name < accounts[j].Name
	})
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
