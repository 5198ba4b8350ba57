package posting_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/require"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/service/posting"
	"github.com/safarbooks/ledger/internal/storage/memory"
)

type fixture struct {
	store *memory.Store
	svc   posting.Service

	customer books.Account
	vendor   books.Account
	cash     books.Account
	revenue  books.Account
	fuel     books.Account
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	roe, err := decimal.New(280, 0) // default PKR per unit of foreign currency
	require.NoError(t, err)
	svc := posting.New(store, store, "PKR", roe)

	f := &fixture{store: store, svc: svc}
	_, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Opening Balance Reserve", Type: books.AccountTypeEquity, Code: "3001"})
	require.NoError(t, err)
	f.customer, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Ali Khan", Type: books.AccountTypeCustomer, Code: "1101", Cell: "+92-300-1234567", Location: "Lahore"})
	require.NoError(t, err)
	f.vendor, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Hotel Al Noor", Type: books.AccountTypeVendor, Code: "2101", Location: "Makkah"})
	require.NoError(t, err)
	f.cash, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Cash in Hand", Type: books.AccountTypeCashBank, Code: "1001"})
	require.NoError(t, err)
	f.revenue, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Service Revenue", Type: books.AccountTypeRevenue, Code: "4001"})
	require.NoError(t, err)
	f.fuel, err = svc.RegisterAccount(ctx, posting.AccountInput{Name: "Fuel", Type: books.AccountTypeExpense, Code: "5001"})
	require.NoError(t, err)
	return f
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return acc.BalanceMinor
}

func TestPostHotelWithIncomeSplit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountMinor: 5_000_000, // PKR 50,000.00
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.HotelDetails{
			PaxName:           "Ali Khan",
			HotelName:         "Al Noor",
			Nights:            5,
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 4_500_000,
			IncomeAmountMinor: 500_000,
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(5_000_000), v.TotalMinor)
	require.Equal(t, books.VoucherStatusPosted, v.Status)
	require.Regexp(t, `^HV-\d{4}-[0-9A-Z]{5}$`, v.VoucherNum)

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, int64(5_000_000), f.balance(t, f.customer.ID))
	require.Equal(t, int64(-4_500_000), f.balance(t, f.vendor.ID))
	require.Equal(t, int64(-500_000), f.balance(t, f.revenue.ID))
}

func TestPostHotelZeroFeeOmitsRevenueEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        time.Now(),
		AmountMinor: 1_000_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.HotelDetails{PaxName: "Ali Khan", HotelName: "Al Noor"},
	})
	require.NoError(t, err)

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2, "a zero service fee must not produce a zero-amount entry")
	require.Equal(t, int64(-1_000_000), f.balance(t, f.vendor.ID))
	require.Zero(t, f.balance(t, f.revenue.ID))
}

func TestPostHotelSplitMismatchRejected(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Post(context.Background(), posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        time.Now(),
		AmountMinor: 5_000_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.HotelDetails{
			PaxName:           "Ali Khan",
			HotelName:         "Al Noor",
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 4_000_000,
			IncomeAmountMinor: 500_000, // 4.5M != 5M total
		},
	})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "details", ve.Field)
}

func TestPostTransportSplitMirrorsHotel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeTransport,
		Date:        time.Now(),
		AmountMinor: 1_200_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.TransportDetails{
			PaxName: "Ali Khan",
			Segments: []books.TransportSegment{
				{From: "Jeddah", To: "Makkah", Carrier: "Saptco"},
				{From: "Makkah", To: "Madinah"},
			},
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 1_100_000,
			IncomeAmountMinor: 100_000,
		},
	})
	require.NoError(t, err)
	require.Regexp(t, `^TV-`, v.VoucherNum)

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, int64(1_200_000), f.balance(t, f.customer.ID))
	require.Equal(t, int64(-1_100_000), f.balance(t, f.vendor.ID))
	require.Equal(t, int64(-100_000), f.balance(t, f.revenue.ID))
}

func TestPostPaymentFansInToFundingAccount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type: books.VoucherTypePayment,
		Date: time.Now(),
		Details: books.PaymentDetails{
			FundingAccountID: f.cash.ID,
			Lines: []books.PaymentLine{
				{AccountID: f.fuel.ID, AmountMinor: 200_000, Description: "Generator fuel"},
				{AccountID: f.vendor.ID, AmountMinor: 80_000},
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(280_000), v.TotalMinor)

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3, "one debit per line plus a single funding credit")

	var credits int
	for _, e := range entries {
		if e.CreditMinor > 0 {
			credits++
			require.Equal(t, f.cash.ID, e.AccountID)
			require.Equal(t, int64(280_000), e.CreditMinor)
		}
	}
	require.Equal(t, 1, credits)
	require.Equal(t, int64(-280_000), f.balance(t, f.cash.ID))
	require.Equal(t, int64(200_000), f.balance(t, f.fuel.ID))
}

func TestPostPaymentRejectsNonExpenseNonVendorLine(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Post(context.Background(), posting.Intent{
		Type: books.VoucherTypePayment,
		Date: time.Now(),
		Details: books.PaymentDetails{
			FundingAccountID: f.cash.ID,
			Lines:            []books.PaymentLine{{AccountID: f.customer.ID, AmountMinor: 1000}},
		},
	})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestPostVisaForeignCurrencyConversion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	roe, err := decimal.New(75, 0)
	require.NoError(t, err)
	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeVisa,
		Date:        time.Now(),
		Currency:    "SAR",
		ROE:         roe,
		AmountMinor: 50_000, // SAR 500.00
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.VisaDetails{PaxName: "Ali Khan", Country: "Saudi Arabia"},
	})
	require.NoError(t, err)
	// SAR 500.00 * 75 = PKR 37,500.00
	require.Equal(t, int64(3_750_000), v.TotalMinor)
	require.Equal(t, "SAR", v.Currency)
	require.Equal(t, int64(3_750_000), f.balance(t, f.customer.ID))
}

func TestPostVisaRescalesForeignMinorUnits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	roe, err := decimal.New(75, 0)
	require.NoError(t, err)

	// JPY has no minor unit: 500 minor units are 500 yen, so the local total
	// must be PKR 37,500.00, not a value carried over at the foreign scale.
	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeVisa,
		Date:        time.Now(),
		Currency:    "JPY",
		ROE:         roe,
		AmountMinor: 500,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.VisaDetails{PaxName: "Ali Khan", Country: "Japan"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3_750_000), v.TotalMinor)

	// KWD runs three decimals: 500000 minor units are KWD 500.000.
	v, err = f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeVisa,
		Date:        time.Now(),
		Currency:    "KWD",
		ROE:         roe,
		AmountMinor: 500_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.VisaDetails{PaxName: "Ali Khan", Country: "Kuwait"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3_750_000), v.TotalMinor)
}

func TestPostReceiptMovesCustomerToCash(t *testing.T) {
	f := setup(t)

	v, err := f.svc.Post(context.Background(), posting.Intent{
		Type:        books.VoucherTypeReceipt,
		Date:        time.Now(),
		AmountMinor: 2_000_000,
		CustomerID:  f.customer.ID,
		Details:     books.ReceiptDetails{CashAccountID: f.cash.ID, Method: "cash"},
	})
	require.NoError(t, err)
	require.Regexp(t, `^RV-`, v.VoucherNum)
	require.Equal(t, int64(2_000_000), f.balance(t, f.cash.ID))
	require.Equal(t, int64(-2_000_000), f.balance(t, f.customer.ID))
}

func TestPostDuplicateVoucherNumConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	intent := posting.Intent{
		Type:        books.VoucherTypeVisa,
		VoucherNum:  "VV-2025-AB12C",
		Date:        time.Now(),
		AmountMinor: 100_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.VisaDetails{PaxName: "Ali Khan", Country: "UAE"},
	}
	_, err := f.svc.Post(ctx, intent)
	require.NoError(t, err)

	_, err = f.svc.Post(ctx, intent)
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestPostRejectsVoucherNumPrefixMismatch(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Post(context.Background(), posting.Intent{
		Type:        books.VoucherTypeVisa,
		VoucherNum:  "HV-2025-AB12C",
		Date:        time.Now(),
		AmountMinor: 100_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.VisaDetails{PaxName: "Ali Khan", Country: "UAE"},
	})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "voucher_num", ve.Field)
}

func TestUpdateRepostsAtomically(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        time.Now(),
		AmountMinor: 5_000_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.HotelDetails{
			PaxName: "Ali Khan", HotelName: "Al Noor",
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 4_500_000, IncomeAmountMinor: 500_000,
		},
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, v.ID, posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        v.Date,
		AmountMinor: 6_000_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.HotelDetails{
			PaxName: "Ali Khan", HotelName: "Al Noor",
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 5_400_000, IncomeAmountMinor: 600_000,
		},
	})
	require.NoError(t, err)
	require.Equal(t, v.ID, updated.ID)
	require.Equal(t, v.VoucherNum, updated.VoucherNum, "update keeps the voucher number")

	// Balances reflect only the new expansion; the old entries are gone.
	require.Equal(t, int64(6_000_000), f.balance(t, f.customer.ID))
	require.Equal(t, int64(-5_400_000), f.balance(t, f.vendor.ID))
	require.Equal(t, int64(-600_000), f.balance(t, f.revenue.ID))

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestUpdateSameIntentTwiceDoesNotDrift(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	intent := posting.Intent{
		Type:        books.VoucherTypeHotel,
		Date:        time.Now(),
		AmountMinor: 5_000_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details: books.HotelDetails{
			PaxName: "Ali Khan", HotelName: "Al Noor",
			RevenueAccountID:  f.revenue.ID,
			VendorAmountMinor: 4_500_000, IncomeAmountMinor: 500_000,
		},
	}
	v, err := f.svc.Post(ctx, intent)
	require.NoError(t, err)

	// A repost with the same intent must converge, not accumulate.
	for i := 0; i < 2; i++ {
		_, err = f.svc.Update(ctx, v.ID, intent)
		require.NoError(t, err)
	}

	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, int64(5_000_000), f.balance(t, f.customer.ID))
	require.Equal(t, int64(-4_500_000), f.balance(t, f.vendor.ID))
	require.Equal(t, int64(-500_000), f.balance(t, f.revenue.ID))
}

func TestDeleteRemovesVoucherAndEntries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	v, err := f.svc.Post(ctx, posting.Intent{
		Type:        books.VoucherTypeTicket,
		Date:        time.Now(),
		AmountMinor: 900_000,
		CustomerID:  f.customer.ID,
		VendorID:    f.vendor.ID,
		Details:     books.TicketDetails{PaxName: "Ali Khan", Airline: "PIA", Sector: "LHE-JED"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, v.ID))

	_, err = f.store.GetVoucher(ctx, v.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
	entries, err := f.store.EntriesByVoucher(ctx, v.ID)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Zero(t, f.balance(t, f.customer.ID))
	require.Zero(t, f.balance(t, f.vendor.ID))
}

func TestRegisterAccountOpeningBalanceContra(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	acc, err := f.svc.RegisterAccount(ctx, posting.AccountInput{
		Name: "Walk-in Customer", Type: books.AccountTypeCustomer,
		OpeningBalanceMinor: 1_000_000, DebitNatured: true,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), acc.BalanceMinor)

	reserve, err := f.store.AccountByCode(ctx, books.OpeningBalanceReserveCode)
	require.NoError(t, err)
	require.Equal(t, int64(-1_000_000), reserve.BalanceMinor)

	entries, err := f.store.EntriesByAccount(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].VoucherID, "opening entries carry no voucher")
}

func TestRegisterAccountMissingReserve(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	roe, err := decimal.New(1, 0)
	require.NoError(t, err)
	svc := posting.New(store, store, "PKR", roe)

	_, err = svc.RegisterAccount(ctx, posting.AccountInput{
		Name: "Orphan", Type: books.AccountTypeCustomer,
		OpeningBalanceMinor: 500, DebitNatured: true,
	})
	var ce *errs.ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestRegisterAccountDuplicateCode(t *testing.T) {
	f := setup(t)

	_, err := f.svc.RegisterAccount(context.Background(), posting.AccountInput{
		Name: "Another Cash", Type: books.AccountTypeCashBank, Code: "1001",
	})
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestRegisterAccountCodePrefixMismatch(t *testing.T) {
	f := setup(t)

	// 11xx codes belong to customers.
	_, err := f.svc.RegisterAccount(context.Background(), posting.AccountInput{
		Name: "Miscoded Vendor", Type: books.AccountTypeVendor, Code: "1102",
	})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "code", ve.Field)
}

func TestDeleteAccountReservedCodeBlocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reserve, err := f.store.AccountByCode(ctx, books.OpeningBalanceReserveCode)
	require.NoError(t, err)
	err = f.svc.DeleteAccount(ctx, reserve.ID)
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBooksStayBalancedAcrossMixedPostings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	intents := []posting.Intent{
		{Type: books.VoucherTypeHotel, Date: time.Now(), AmountMinor: 3_000_000, CustomerID: f.customer.ID, VendorID: f.vendor.ID,
			Details: books.HotelDetails{PaxName: "A", HotelName: "H", RevenueAccountID: f.revenue.ID, VendorAmountMinor: 2_700_000, IncomeAmountMinor: 300_000}},
		{Type: books.VoucherTypeReceipt, Date: time.Now(), AmountMinor: 1_500_000, CustomerID: f.customer.ID,
			Details: books.ReceiptDetails{CashAccountID: f.cash.ID}},
		{Type: books.VoucherTypeVisa, Date: time.Now(), AmountMinor: 800_000, CustomerID: f.customer.ID, VendorID: f.vendor.ID,
			Details: books.VisaDetails{PaxName: "A", Country: "UAE"}},
		{Type: books.VoucherTypePayment, Date: time.Now(),
			Details: books.PaymentDetails{FundingAccountID: f.cash.ID, Lines: []books.PaymentLine{{AccountID: f.vendor.ID, AmountMinor: 1_000_000}}}},
	}
	for _, in := range intents {
		_, err := f.svc.Post(ctx, in)
		require.NoError(t, err)
	}

	accounts, err := f.store.ListAccounts(ctx)
	require.NoError(t, err)
	var sum int64
	for _, a := range accounts {
		sum += a.BalanceMinor

		// The stored aggregate must equal a fresh recomputation from the
		// account's entries.
		entries, err := f.store.EntriesByAccount(ctx, a.ID)
		require.NoError(t, err)
		var recomputed int64
		for _, e := range entries {
			recomputed += e.NetMinor()
		}
		require.Equal(t, recomputed, a.BalanceMinor, "stored balance for %s drifted from its entries", a.Name)
	}
	require.Zero(t, sum, "sum of all signed balances must be zero")
}
