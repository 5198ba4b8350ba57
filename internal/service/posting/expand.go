package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/voucherno"
)

var roeOne = decimal.MustNew(1, 0)

// plan validates the intent and expands it into a voucher header plus entry
// drafts. The drafts carry no IDs or voucher references yet; the caller
// assigns those. Total debits always equal total credits equal TotalMinor.
func (s *service) plan(ctx context.Context, intent Intent) (books.Voucher, []books.LedgerEntry, error) {
	if !intent.Type.Valid() {
		return books.Voucher{}, nil, errs.Validation("type", "invalid voucher type")
	}
	if intent.Date.IsZero() {
		return books.Voucher{}, nil, errs.Validation("date", "date is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(intent.Currency))
	if currency == "" {
		currency = s.local
	}
	roe := intent.ROE
	if currency == s.local {
		roe = roeOne
	} else if roe.Sign() == 0 {
		roe = s.defaultROE
	}
	if roe.Sign() <= 0 {
		return books.Voucher{}, nil, errs.Validation("roe", "exchange rate must be positive")
	}
	if intent.VoucherNum != "" {
		if !voucherno.IsValid(intent.VoucherNum) {
			return books.Voucher{}, nil, errs.Validation("voucher_num", "must match <CODE>-<YEAR>-<5 chars>")
		}
		if !strings.HasPrefix(intent.VoucherNum, intent.Type.Code()+"-") {
			return books.Voucher{}, nil, errs.Validation("voucher_num", "prefix does not match voucher type")
		}
	}
	if intent.Details == nil {
		return books.Voucher{}, nil, errs.Validation("details", "details payload is required")
	}
	if intent.Details.VoucherType() != intent.Type {
		return books.Voucher{}, nil, errs.Validation("details", "details payload does not match voucher type")
	}

	var (
		totalMinor int64
		entries    []books.LedgerEntry
		err        error
	)
	switch d := intent.Details.(type) {
	case books.ReceiptDetails:
		totalMinor, entries, err = s.planReceipt(ctx, intent, currency, roe, d)
	case books.HotelDetails:
		totalMinor, entries, err = s.planCost(ctx, intent, currency, roe,
			fallback(intent.Description, fmt.Sprintf("Hotel %s / %s", d.HotelName, d.PaxName)),
			d.RevenueAccountID, d.VendorAmountMinor, d.IncomeAmountMinor)
	case books.TransportDetails:
		totalMinor, entries, err = s.planCost(ctx, intent, currency, roe,
			fallback(intent.Description, "Transport / "+d.PaxName),
			d.RevenueAccountID, d.VendorAmountMinor, d.IncomeAmountMinor)
	case books.VisaDetails:
		totalMinor, entries, err = s.planPassThrough(ctx, intent, currency, roe,
			fallback(intent.Description, fmt.Sprintf("Visa %s / %s", d.Country, d.PaxName)))
	case books.TicketDetails:
		totalMinor, entries, err = s.planPassThrough(ctx, intent, currency, roe,
			fallback(intent.Description, fmt.Sprintf("Ticket %s / %s", d.Airline, d.PaxName)))
	case books.PaymentDetails:
		totalMinor, entries, err = s.planPayment(ctx, intent, currency, roe, d)
	default:
		err = errs.Validation("details", "unknown details payload")
	}
	if err != nil {
		return books.Voucher{}, nil, err
	}

	// The expansion must balance by construction; anything else is a bug.
	var drs, crs int64
	for _, e := range entries {
		if e.DebitMinor == 0 && e.CreditMinor == 0 {
			return books.Voucher{}, nil, fmt.Errorf("internal: zero-amount entry drafted for %s voucher", intent.Type)
		}
		drs += e.DebitMinor
		crs += e.CreditMinor
	}
	if drs != crs || drs != totalMinor {
		return books.Voucher{}, nil, fmt.Errorf("internal: %s expansion unbalanced: dr=%d cr=%d total=%d", intent.Type, drs, crs, totalMinor)
	}

	v := books.Voucher{
		Type:        intent.Type,
		VoucherNum:  intent.VoucherNum,
		Date:        intent.Date,
		Currency:    currency,
		ROE:         roe,
		TotalMinor:  totalMinor,
		Description: intent.Description,
		Status:      books.VoucherStatusPosted,
		Reference:   intent.Reference,
		Details:     intent.Details,
	}
	if intent.CustomerID != uuid.Nil {
		id := intent.CustomerID
		v.CustomerID = &id
	}
	if intent.VendorID != uuid.Nil {
		id := intent.VendorID
		v.VendorID = &id
	}
	return v, entries, nil
}

// planReceipt: debit cash/bank, credit customer, full amount.
func (s *service) planReceipt(ctx context.Context, intent Intent, currency string, roe decimal.Decimal, d books.ReceiptDetails) (int64, []books.LedgerEntry, error) {
	customer, err := s.requireAccount(ctx, intent.CustomerID, "customer_id", books.AccountTypeCustomer)
	if err != nil {
		return 0, nil, err
	}
	cash, err := s.requireAccount(ctx, d.CashAccountID, "details.cash_account_id", books.AccountTypeCashBank)
	if err != nil {
		return 0, nil, err
	}
	total, err := s.toLocalMinor(intent.AmountMinor, currency, roe, "amount_minor")
	if err != nil {
		return 0, nil, err
	}
	desc := fallback(intent.Description, "Receipt from "+customer.Name)
	entries := []books.LedgerEntry{
		{AccountID: cash.ID, Date: intent.Date, Description: desc, DebitMinor: total},
		{AccountID: customer.ID, Date: intent.Date, Description: desc, CreditMinor: total},
	}
	return total, withIDs(entries), nil
}

// planCost covers hotel and transport vouchers: debit customer for the full
// amount, credit vendor for the cost portion and revenue for the service fee.
// The engine re-validates the caller's split rather than trusting it: vendor
// plus income must equal the voucher total in PKR.
func (s *service) planCost(ctx context.Context, intent Intent, currency string, roe decimal.Decimal, desc string, revenueAccountID uuid.UUID, vendorMinor, incomeMinor int64) (int64, []books.LedgerEntry, error) {
	customer, err := s.requireAccount(ctx, intent.CustomerID, "customer_id", books.AccountTypeCustomer)
	if err != nil {
		return 0, nil, err
	}
	vendor, err := s.requireAccount(ctx, intent.VendorID, "vendor_id", books.AccountTypeVendor)
	if err != nil {
		return 0, nil, err
	}
	total, err := s.toLocalMinor(intent.AmountMinor, currency, roe, "amount_minor")
	if err != nil {
		return 0, nil, err
	}
	if vendorMinor < 0 {
		return 0, nil, errs.Validation("details.vendor_amount_minor", "must not be negative")
	}
	if incomeMinor < 0 {
		return 0, nil, errs.Validation("details.income_amount_minor", "must not be negative")
	}
	// Defaults: an absent split means the whole total is vendor cost; an
	// income-only split implies vendor = total - income.
	if vendorMinor == 0 && incomeMinor == 0 {
		vendorMinor = total
	} else if vendorMinor == 0 {
		vendorMinor = total - incomeMinor
		if vendorMinor < 0 {
			return 0, nil, errs.Validation("details.income_amount_minor", "exceeds voucher total")
		}
	}
	if vendorMinor+incomeMinor != total {
		return 0, nil, errs.Validation("details", "vendor_amount_minor + income_amount_minor must equal the voucher total")
	}

	entries := []books.LedgerEntry{
		{AccountID: customer.ID, Date: intent.Date, Description: desc, DebitMinor: total},
	}
	if vendorMinor > 0 {
		entries = append(entries, books.LedgerEntry{AccountID: vendor.ID, Date: intent.Date, Description: desc, CreditMinor: vendorMinor})
	}
	// A zero service fee never generates a zero-amount entry.
	if incomeMinor > 0 {
		revenue, err := s.requireAccount(ctx, revenueAccountID, "details.revenue_account_id", books.AccountTypeRevenue)
		if err != nil {
			return 0, nil, err
		}
		entries = append(entries, books.LedgerEntry{AccountID: revenue.ID, Date: intent.Date, Description: desc, CreditMinor: incomeMinor})
	}
	return total, withIDs(entries), nil
}

// planPassThrough covers visa and ticket vouchers: debit customer, credit
// vendor, full amount.
func (s *service) planPassThrough(ctx context.Context, intent Intent, currency string, roe decimal.Decimal, desc string) (int64, []books.LedgerEntry, error) {
	customer, err := s.requireAccount(ctx, intent.CustomerID, "customer_id", books.AccountTypeCustomer)
	if err != nil {
		return 0, nil, err
	}
	vendor, err := s.requireAccount(ctx, intent.VendorID, "vendor_id", books.AccountTypeVendor)
	if err != nil {
		return 0, nil, err
	}
	total, err := s.toLocalMinor(intent.AmountMinor, currency, roe, "amount_minor")
	if err != nil {
		return 0, nil, err
	}
	entries := []books.LedgerEntry{
		{AccountID: customer.ID, Date: intent.Date, Description: desc, DebitMinor: total},
		{AccountID: vendor.ID, Date: intent.Date, Description: desc, CreditMinor: total},
	}
	return total, withIDs(entries), nil
}

// planPayment: one debit per line item, a single credit on the funding
// account for the sum (many-to-one fan-in, never one credit per line).
func (s *service) planPayment(ctx context.Context, intent Intent, currency string, roe decimal.Decimal, d books.PaymentDetails) (int64, []books.LedgerEntry, error) {
	funding, err := s.requireAccount(ctx, d.FundingAccountID, "details.funding_account_id", books.AccountTypeCashBank)
	if err != nil {
		return 0, nil, err
	}
	if len(d.Lines) == 0 {
		return 0, nil, errs.Validation("details.lines", "at least one line item is required")
	}
	var total int64
	entries := make([]books.LedgerEntry, 0, len(d.Lines)+1)
	for i, line := range d.Lines {
		field := fmt.Sprintf("details.lines[%d]", i)
		acc, err := s.requireAccount(ctx, line.AccountID, field+".account_id", "")
		if err != nil {
			return 0, nil, err
		}
		if acc.Type != books.AccountTypeExpense && acc.Type != books.AccountTypeVendor {
			return 0, nil, errs.Validation(field+".account_id", "must be an expense or vendor account")
		}
		lineMinor, err := s.toLocalMinor(line.AmountMinor, currency, roe, field+".amount_minor")
		if err != nil {
			return 0, nil, err
		}
		entries = append(entries, books.LedgerEntry{
			AccountID:   acc.ID,
			Date:        intent.Date,
			Description: fallback(line.Description, "Payment - "+acc.Name),
			DebitMinor:  lineMinor,
		})
		total += lineMinor
	}
	entries = append(entries, books.LedgerEntry{
		AccountID:   funding.ID,
		Date:        intent.Date,
		Description: fallback(intent.Description, "Payment from "+funding.Name),
		CreditMinor: total,
	})
	return total, withIDs(entries), nil
}

// requireAccount resolves an account and optionally enforces its type.
func (s *service) requireAccount(ctx context.Context, id uuid.UUID, field string, want books.AccountType) (books.Account, error) {
	if id == uuid.Nil {
		return books.Account{}, errs.Validation(field, "account is required")
	}
	acc, err := s.repo.GetAccount(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return books.Account{}, errs.Validation(field, "account not found")
	}
	if err != nil {
		return books.Account{}, err
	}
	if want != "" && acc.Type != want {
		return books.Account{}, errs.Validation(field, fmt.Sprintf("must be a %s account", want))
	}
	return acc, nil
}

// toLocalMinor converts an amount in the voucher currency to local-currency
// minor units. The product is rebuilt as a local-currency amount before taking
// minor units, so currencies with a different scale than the local one (JPY,
// KWD) convert correctly instead of reusing the foreign scale.
func (s *service) toLocalMinor(amountMinor int64, currency string, roe decimal.Decimal, field string) (int64, error) {
	if amountMinor <= 0 {
		return 0, errs.Validation(field, "amount must be positive")
	}
	if currency == s.local {
		return amountMinor, nil
	}
	amt, err := money.NewAmountFromMinorUnits(currency, amountMinor)
	if err != nil {
		return 0, errs.Validation("currency", "unknown currency code")
	}
	prod, err := amt.Decimal().Mul(roe)
	if err != nil {
		return 0, errs.Validation(field, "amount x rate overflows")
	}
	local, err := money.ParseCurr(s.local)
	if err != nil {
		return 0, &errs.ConfigurationError{Reason: "local currency " + s.local + " is not a known currency code"}
	}
	conv, err := money.NewAmountFromDecimal(local, prod)
	if err != nil {
		return 0, errs.Validation(field, "converted amount out of range")
	}
	units, ok := conv.RoundToCurr().MinorUnits()
	if !ok {
		return 0, errs.Validation(field, "converted amount out of range")
	}
	return units, nil
}

func withIDs(entries []books.LedgerEntry) []books.LedgerEntry {
	for i := range entries {
		entries[i].ID = uuid.New()
	}
	return entries
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) != "" {
		return s
	}
	return def
}
