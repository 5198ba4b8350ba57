package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safarbooks/ledger/internal/service/posting"
)

// postVoucher posts a validated voucher intent through the engine.
func (s *Server) postVoucher(w http.ResponseWriter, r *http.Request) {
	intent, ok := r.Context().Value(ctxKeyPostVoucher).(posting.Intent)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	v, err := s.posting.Post(r.Context(), intent)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	entries, err := s.repo.EntriesByVoucher(r.Context(), v.ID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toVoucherResponse(v, entries))
}

func (s *Server) listVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := s.repo.ListVouchers(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toVoucherResponse(v, nil))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	v, err := s.repo.GetVoucher(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	entries, err := s.repo.EntriesByVoucher(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toVoucherResponse(v, entries))
}

// updateVoucher reposts a voucher from a fresh intent. The engine deletes the
// old entries and derives new ones in a single transaction; the voucher keeps
// its identifier and, unless the intent supplies one, its number.
func (s *Server) updateVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	intent, ok := r.Context().Value(ctxKeyPostVoucher).(posting.Intent)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	v, err := s.posting.Update(r.Context(), id, intent)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	entries, err := s.repo.EntriesByVoucher(r.Context(), v.ID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toVoucherResponse(v, entries))
}

func (s *Server) deleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.posting.Delete(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
