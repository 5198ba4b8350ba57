package httpapi

import (
	"errors"
	"net/http"

	"github.com/safarbooks/ledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter) {
	writeErr(w, http.StatusNotFound, "not_found", "not_found")
}

// writeDomainErr maps service-layer errors onto HTTP statuses. Validation
// problems are 422 with the offending field; conflicts (duplicate voucher
// numbers, duplicate codes) are 409; configuration gaps such as a missing
// opening balance reserve account are 500.
func writeDomainErr(w http.ResponseWriter, err error) {
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		toJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: ve.Reason, Code: "validation_error", Field: ve.Field})
		return
	}
	var ce *errs.ConfigurationError
	if errors.As(err, &ce) {
		writeErr(w, http.StatusInternalServerError, ce.Reason, "configuration_error")
		return
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, errs.ErrUnsupported):
		writeErr(w, http.StatusNotImplemented, err.Error(), "unsupported")
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
