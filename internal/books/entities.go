package books

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// AccountType enumerates the classification of an account in the books.
type AccountType string

const (
	// AccountTypeCustomer tracks receivables from travellers; increases on the debit side.
	AccountTypeCustomer AccountType = "customer"
	// AccountTypeVendor tracks payables to suppliers (hotels, airlines, transporters).
	AccountTypeVendor AccountType = "vendor"
	// AccountTypeCashBank covers cash-in-hand and bank accounts.
	AccountTypeCashBank AccountType = "cash_bank"
	// AccountTypeExpense represents operating expense heads.
	AccountTypeExpense AccountType = "expense"
	// AccountTypeEquity captures the owner's residual interest, including the
	// opening balance reserve.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents service-fee income heads.
	AccountTypeRevenue AccountType = "revenue"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCustomer, AccountTypeVendor, AccountTypeCashBank,
		AccountTypeExpense, AccountTypeEquity, AccountTypeRevenue:
		return true
	}
	return false
}

// DebitNatured reports whether a positive balance is the normal position for
// the type. Customers, cash/bank and expenses increase on the debit side;
// vendors, equity and revenue increase on the credit side.
func (t AccountType) DebitNatured() bool {
	switch t {
	case AccountTypeCustomer, AccountTypeCashBank, AccountTypeExpense:
		return true
	}
	return false
}

// Account is a flat ledger account. Balances are always kept in the local
// currency (PKR) in minor units, regardless of the account's quoted currency.
// BalanceMinor is maintained incrementally by entry insertion and removal and
// must always equal the sum of (debit - credit) over the account's entries.
type Account struct {
	ID       uuid.UUID
	Code     string // GL code; leading digit classifies (1 asset .. 5 expense), may be empty
	Name     string
	Type     AccountType
	Currency string // denomination the account is quoted in
	Cell     string
	Location string
	// BalanceMinor is the signed net position in PKR minor units, debit positive.
	BalanceMinor int64
}

// LedgerEntry is a single debit or credit on an account. Exactly one of
// DebitMinor/CreditMinor is non-zero; zero-amount entries are never created.
// VoucherID is nil for opening-balance entries. Entries do not carry the
// voucher number; display numbers are resolved by joining on VoucherID.
type LedgerEntry struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Date        time.Time
	VoucherID   *uuid.UUID
	Description string
	DebitMinor  int64
	CreditMinor int64
}

// NetMinor returns the entry's signed contribution to its account balance.
func (e LedgerEntry) NetMinor() int64 { return e.DebitMinor - e.CreditMinor }

// VoucherType identifies the posting logic applied to a voucher.
type VoucherType string

const (
	VoucherTypeReceipt   VoucherType = "receipt"
	VoucherTypeHotel     VoucherType = "hotel"
	VoucherTypeTransport VoucherType = "transport"
	VoucherTypeVisa      VoucherType = "visa"
	VoucherTypeTicket    VoucherType = "ticket"
	VoucherTypePayment   VoucherType = "payment"
)

// Code returns the two-letter prefix used in voucher numbers.
func (t VoucherType) Code() string {
	switch t {
	case VoucherTypeReceipt:
		return "RV"
	case VoucherTypeHotel:
		return "HV"
	case VoucherTypeTransport:
		return "TV"
	case VoucherTypeVisa:
		return "VV"
	case VoucherTypeTicket:
		return "TK"
	case VoucherTypePayment:
		return "PV"
	}
	return ""
}

// Valid reports whether t is one of the six voucher types.
func (t VoucherType) Valid() bool { return t.Code() != "" }

// RevenueGenerating reports whether the type counts as income on the P&L.
func (t VoucherType) RevenueGenerating() bool {
	switch t {
	case VoucherTypeHotel, VoucherTypeTransport, VoucherTypeVisa, VoucherTypeTicket:
		return true
	}
	return false
}

// VoucherStatus is the lifecycle state of a voucher header.
type VoucherStatus string

const (
	VoucherStatusPosted VoucherStatus = "posted"
	VoucherStatusVoid   VoucherStatus = "void"
)

// Voucher is the header of one business transaction. TotalMinor is the
// authoritative PKR amount: the sum of debit entries posted for the voucher
// equals it, as does the sum of credits.
type Voucher struct {
	ID          uuid.UUID
	Type        VoucherType
	VoucherNum  string // unique, format <CODE>-<YEAR>-<5 base36>
	Date        time.Time
	Currency    string
	ROE         decimal.Decimal // exchange rate applied; 1 for local currency
	TotalMinor  int64           // PKR minor units
	Description string
	Status      VoucherStatus
	Reference   string // external booking/PNR/confirmation number
	CustomerID  *uuid.UUID
	VendorID    *uuid.UUID
	Details     Details
}
