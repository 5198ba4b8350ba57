package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/service/posting"
)

// postAccount registers an account; an opening balance posts a contra pair
// against the opening balance reserve in the same transaction.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyPostAccount).(posting.AccountInput)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	acc, err := s.posting.RegisterAccount(r.Context(), in)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccounts(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	// Optional filters: ?type=vendor, ?code=1001
	typeFilter := r.URL.Query().Get("type")
	codeFilter := r.URL.Query().Get("code")
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		if typeFilter != "" && string(a.Type) != typeFilter {
			continue
		}
		if codeFilter != "" && a.Code != codeFilter {
			continue
		}
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	acc, err := s.repo.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// getAccountLedger returns the account statement: chronological entries with
// a running balance and joined voucher numbers.
func (s *Server) getAccountLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	ledger, err := s.reports.AccountLedger(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, ledgerResponse{
		Account: toAccountResponse(ledger.Account),
		Rows:    ledger.Rows,
	})
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.posting.DeleteAccount(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
