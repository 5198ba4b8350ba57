package httpapi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/books"
)

// postVoucherRequest carries a voucher intent. Callers never supply ledger
// entries; the posting engine derives them. Details is decoded against the
// declared voucher type after the envelope validates.
type postVoucherRequest struct {
	Type        books.VoucherType `json:"type" validate:"required"`
	VoucherNum  string            `json:"voucher_num,omitempty"`
	Date        time.Time         `json:"date" validate:"required"`
	Currency    string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	ROE         string            `json:"roe,omitempty"`
	AmountMinor int64             `json:"amount_minor" validate:"gte=0"`
	Description string            `json:"description,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	CustomerID  uuid.UUID         `json:"customer_id,omitempty"`
	VendorID    uuid.UUID         `json:"vendor_id,omitempty"`
	Details     json.RawMessage   `json:"details" validate:"required"`
}

type entryResponse struct {
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	VoucherID   *uuid.UUID `json:"voucher_id,omitempty"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description,omitempty"`
	DebitMinor  int64      `json:"debit_minor"`
	CreditMinor int64      `json:"credit_minor"`
}

type voucherResponse struct {
	ID          uuid.UUID           `json:"id"`
	Type        books.VoucherType   `json:"type"`
	VoucherNum  string              `json:"voucher_num"`
	Date        time.Time           `json:"date"`
	Currency    string              `json:"currency"`
	ROE         string              `json:"roe"`
	TotalMinor  int64               `json:"total_minor"`
	Description string              `json:"description,omitempty"`
	Status      books.VoucherStatus `json:"status"`
	Reference   string              `json:"reference,omitempty"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
	VendorID    *uuid.UUID          `json:"vendor_id,omitempty"`
	Details     books.Details       `json:"details,omitempty"`
	Entries     []entryResponse     `json:"entries,omitempty"`
}

func toVoucherResponse(v books.Voucher, entries []books.LedgerEntry) voucherResponse {
	resp := voucherResponse{
		ID:          v.ID,
		Type:        v.Type,
		VoucherNum:  v.VoucherNum,
		Date:        v.Date,
		Currency:    v.Currency,
		ROE:         v.ROE.String(),
		TotalMinor:  v.TotalMinor,
		Description: v.Description,
		Status:      v.Status,
		Reference:   v.Reference,
		CustomerID:  v.CustomerID,
		VendorID:    v.VendorID,
		Details:     v.Details,
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryResponse{
			ID:          e.ID,
			AccountID:   e.AccountID,
			VoucherID:   e.VoucherID,
			Date:        e.Date,
			Description: e.Description,
			DebitMinor:  e.DebitMinor,
			CreditMinor: e.CreditMinor,
		})
	}
	return resp
}

type postAccountRequest struct {
	Name                string            `json:"name" validate:"required"`
	Type                books.AccountType `json:"type" validate:"required"`
	Cell                string            `json:"cell,omitempty"`
	Location            string            `json:"location,omitempty"`
	Code                string            `json:"code,omitempty" validate:"omitempty,numeric"`
	Currency            string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	OpeningBalanceMinor int64             `json:"opening_balance_minor,omitempty" validate:"gte=0"`
	DebitNatured        bool              `json:"debit_natured,omitempty"`
}

type accountResponse struct {
	ID           uuid.UUID         `json:"id"`
	Code         string            `json:"code,omitempty"`
	Name         string            `json:"name"`
	Type         books.AccountType `json:"type"`
	Currency     string            `json:"currency"`
	Cell         string            `json:"cell,omitempty"`
	Location     string            `json:"location,omitempty"`
	BalanceMinor int64             `json:"balance_minor"`
}

func toAccountResponse(a books.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		Type:         a.Type,
		Currency:     a.Currency,
		Cell:         a.Cell,
		Location:     a.Location,
		BalanceMinor: a.BalanceMinor,
	}
}

type ledgerResponse struct {
	Account accountResponse `json:"account"`
	Rows    any             `json:"rows"`
}

type configResponse struct {
	CompanyName   string   `json:"company_name"`
	LocalCurrency string   `json:"local_currency"`
	DefaultROE    string   `json:"default_roe"`
	Banks         []string `json:"banks,omitempty"`
}

// exportAccount pairs an account with its full entry history.
type exportAccount struct {
	Account accountResponse `json:"account"`
	Entries []entryResponse `json:"entries"`
}

// exportSnapshot is the full-book export payload.
type exportSnapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Config     configResponse    `json:"config"`
	Accounts   []exportAccount   `json:"accounts"`
	Vouchers   []voucherResponse `json:"vouchers"`
}
