package books

// OpeningBalanceReserveCode is the GL code of the distinguished equity account
// that absorbs the contra side of every opening balance.
const OpeningBalanceReserveCode = "3001"

// ChartEntry is a predefined account in the default chart.
type ChartEntry struct {
	Code     string      `json:"code"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Reserved bool        `json:"reserved"`
}

// DefaultChart is the minimal chart seeded for a fresh book. Codes follow the
// prefix convention: 1 asset, 2 liability, 3 equity, 4 income, 5 expense, with
// 11 for customers and 21 for vendors.
var DefaultChart = []ChartEntry{
	{Code: "1001", Name: "Cash in Hand", Type: AccountTypeCashBank},
	{Code: "1002", Name: "Bank", Type: AccountTypeCashBank},
	{Code: OpeningBalanceReserveCode, Name: "Opening Balance Reserve", Type: AccountTypeEquity, Reserved: true},
	{Code: "4001", Name: "Service Revenue", Type: AccountTypeRevenue},
	{Code: "5001", Name: "Fuel", Type: AccountTypeExpense},
	{Code: "5002", Name: "Office Supplies", Type: AccountTypeExpense},
	{Code: "5003", Name: "Rent", Type: AccountTypeExpense},
	{Code: "5004", Name: "Utilities", Type: AccountTypeExpense},
}

// IsReservedCode reports whether code belongs to a reserved system account.
func IsReservedCode(code string) bool {
	for _, e := range DefaultChart {
		if e.Code == code && e.Reserved {
			return true
		}
	}
	return false
}

// CodeType returns the account type conventionally implied by a GL code
// prefix, or "" when the code follows no known convention.
func CodeType(code string) AccountType {
	if len(code) < 2 {
		return ""
	}
	switch code[:2] {
	case "11":
		return AccountTypeCustomer
	case "21":
		return AccountTypeVendor
	}
	switch code[0] {
	case '1':
		return AccountTypeCashBank
	case '2':
		return AccountTypeVendor
	case '3':
		return AccountTypeEquity
	case '4':
		return AccountTypeRevenue
	case '5':
		return AccountTypeExpense
	}
	return ""
}
