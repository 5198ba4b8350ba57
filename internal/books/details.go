package books

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Details is the type-specific payload of a voucher, a tagged union keyed by
// voucher type. Each variant is a fixed record shape; there is no untyped map.
type Details interface {
	VoucherType() VoucherType
}

// ReceiptDetails routes a customer receipt into a cash or bank account.
type ReceiptDetails struct {
	CashAccountID uuid.UUID `json:"cash_account_id"`
	Method        string    `json:"method,omitempty"` // cash, cheque, transfer
}

func (ReceiptDetails) VoucherType() VoucherType { return VoucherTypeReceipt }

// HotelDetails describes a hotel booking. VendorAmountMinor and
// IncomeAmountMinor are the PKR split of the customer total; when both are
// zero the whole total is treated as vendor cost.
type HotelDetails struct {
	PaxName           string    `json:"pax_name"`
	HotelName         string    `json:"hotel_name"`
	RoomType          string    `json:"room_type,omitempty"`
	CheckIn           time.Time `json:"check_in,omitempty"`
	CheckOut          time.Time `json:"check_out,omitempty"`
	Nights            int       `json:"nights,omitempty"`
	RevenueAccountID  uuid.UUID `json:"revenue_account_id,omitempty"`
	VendorAmountMinor int64     `json:"vendor_amount_minor,omitempty"`
	IncomeAmountMinor int64     `json:"income_amount_minor,omitempty"`
}

func (HotelDetails) VoucherType() VoucherType { return VoucherTypeHotel }

// TransportSegment is one leg of a transport itinerary.
type TransportSegment struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Carrier    string    `json:"carrier,omitempty"`
	TravelDate time.Time `json:"travel_date,omitempty"`
}

// TransportDetails describes ground transport with an optional service-fee
// split, mirroring HotelDetails.
type TransportDetails struct {
	PaxName           string             `json:"pax_name"`
	Segments          []TransportSegment `json:"segments,omitempty"`
	RevenueAccountID  uuid.UUID          `json:"revenue_account_id,omitempty"`
	VendorAmountMinor int64              `json:"vendor_amount_minor,omitempty"`
	IncomeAmountMinor int64              `json:"income_amount_minor,omitempty"`
}

func (TransportDetails) VoucherType() VoucherType { return VoucherTypeTransport }

// VisaDetails describes a visa processing service billed at vendor cost.
type VisaDetails struct {
	PaxName    string `json:"pax_name"`
	PassportNo string `json:"passport_no,omitempty"`
	Country    string `json:"country"`
	VisaType   string `json:"visa_type,omitempty"`
}

func (VisaDetails) VoucherType() VoucherType { return VoucherTypeVisa }

// TicketDetails describes an air ticket billed at vendor cost.
type TicketDetails struct {
	PaxName  string `json:"pax_name"`
	Airline  string `json:"airline,omitempty"`
	TicketNo string `json:"ticket_no,omitempty"`
	Sector   string `json:"sector,omitempty"`
}

func (TicketDetails) VoucherType() VoucherType { return VoucherTypeTicket }

// PaymentLine is one expense or vendor leg of a payment voucher. The amount is
// in the voucher currency's minor units.
type PaymentLine struct {
	AccountID   uuid.UUID `json:"account_id"`
	Description string    `json:"description,omitempty"`
	AmountMinor int64     `json:"amount_minor"`
}

// PaymentDetails fans N debit lines out of a single funding account.
type PaymentDetails struct {
	FundingAccountID uuid.UUID     `json:"funding_account_id"`
	Lines            []PaymentLine `json:"lines"`
}

func (PaymentDetails) VoucherType() VoucherType { return VoucherTypePayment }

// MarshalDetails encodes a details payload for storage or export.
func MarshalDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d)
}

// decodeStrict rejects unknown keys so a misspelled field fails loudly
// instead of defaulting to zero.
func decodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// UnmarshalDetails decodes a details payload into the variant for t.
func UnmarshalDetails(t VoucherType, b []byte) (Details, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, fmt.Errorf("details payload is empty for %s voucher", t)
	}
	switch t {
	case VoucherTypeReceipt:
		var d ReceiptDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	case VoucherTypeHotel:
		var d HotelDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	case VoucherTypeTransport:
		var d TransportDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	case VoucherTypeVisa:
		var d VisaDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	case VoucherTypeTicket:
		var d TicketDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	case VoucherTypePayment:
		var d PaymentDetails
		if err := decodeStrict(b, &d); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown voucher type %q", t)
}
