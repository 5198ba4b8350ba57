package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/govalues/decimal"

	"github.com/safarbooks/ledger/internal/books"
	"github.com/safarbooks/ledger/internal/errs"
	"github.com/safarbooks/ledger/internal/service/posting"
)

type ctxKey string

const ctxKeyPostVoucher ctxKey = "validatedPostVoucher"
const ctxKeyPostAccount ctxKey = "validatedPostAccount"

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldError turns the first validator failure into the API's 422 payload.
func fieldError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		toJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "failed on '" + fe.Tag() + "'",
			Code:  "validation_error",
			Field: strings.ToLower(fe.Field()),
		})
		return
	}
	writeErr(w, http.StatusUnprocessableEntity, err.Error(), "validation_error")
}

// validatePostVoucher decodes and validates the voucher intent, then stores it
// in the request context for the handler. The details payload is decoded
// against the declared voucher type, and the intent runs through the posting
// engine's dry-run validation so rejected requests never reach a transaction.
func (s *Server) validatePostVoucher() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postVoucherRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if err := validate.Struct(req); err != nil {
				fieldError(w, err)
				return
			}
			intent, err := toIntent(req)
			if err != nil {
				writeDomainErr(w, err)
				return
			}
			if err := s.posting.ValidateIntent(r.Context(), intent); err != nil {
				writeDomainErr(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostVoucher, intent)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostAccount decodes and validates POST /v1/accounts.
func (s *Server) validatePostAccount() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postAccountRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if err := validate.Struct(req); err != nil {
				fieldError(w, err)
				return
			}
			in := posting.AccountInput{
				Name:                req.Name,
				Type:                req.Type,
				Cell:                req.Cell,
				Location:            req.Location,
				Code:                req.Code,
				Currency:            req.Currency,
				OpeningBalanceMinor: req.OpeningBalanceMinor,
				DebitNatured:        req.DebitNatured,
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostAccount, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toIntent(req postVoucherRequest) (posting.Intent, error) {
	intent := posting.Intent{
		Type:        req.Type,
		VoucherNum:  req.VoucherNum,
		Date:        req.Date,
		Currency:    req.Currency,
		AmountMinor: req.AmountMinor,
		Description: req.Description,
		Reference:   req.Reference,
		CustomerID:  req.CustomerID,
		VendorID:    req.VendorID,
	}
	if req.ROE != "" {
		roe, err := decimal.Parse(req.ROE)
		if err != nil {
			return posting.Intent{}, errs.Validation("roe", "must be a decimal number")
		}
		intent.ROE = roe
	}
	d, err := books.UnmarshalDetails(req.Type, req.Details)
	if err != nil {
		return posting.Intent{}, err
	}
	intent.Details = d
	return intent, nil
}
