package httpapi

import (
	"net/http"
	"time"

	"github.com/safarbooks/ledger/internal/errs"
)

// exportBooks emits the entire book as one JSON snapshot: configuration,
// every account with its entries, and every voucher.
func (s *Server) exportBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	vouchers, err := s.repo.ListVouchers(ctx)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	snap := exportSnapshot{
		ExportedAt: time.Now().UTC(),
		Config:     s.configResponse(),
		Accounts:   make([]exportAccount, 0, len(accounts)),
		Vouchers:   make([]voucherResponse, 0, len(vouchers)),
	}
	for _, a := range accounts {
		entries, err := s.repo.EntriesByAccount(ctx, a.ID)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		ea := exportAccount{Account: toAccountResponse(a), Entries: make([]entryResponse, 0, len(entries))}
		for _, e := range entries {
			ea.Entries = append(ea.Entries, entryResponse{
				ID:          e.ID,
				AccountID:   e.AccountID,
				VoucherID:   e.VoucherID,
				Date:        e.Date,
				Description: e.Description,
				DebitMinor:  e.DebitMinor,
				CreditMinor: e.CreditMinor,
			})
		}
		snap.Accounts = append(snap.Accounts, ea)
	}
	for _, v := range vouchers {
		snap.Vouchers = append(snap.Vouchers, toVoucherResponse(v, nil))
	}
	toJSON(w, http.StatusOK, snap)
}

// importBooks is intentionally refused: a snapshot restore would bypass the
// posting engine and its invariants.
func (s *Server) importBooks(w http.ResponseWriter, r *http.Request) {
	writeDomainErr(w, errs.ErrUnsupported)
}

func (s *Server) configResponse() configResponse {
	return configResponse{
		CompanyName:   s.cfg.CompanyName,
		LocalCurrency: s.cfg.LocalCurrency,
		DefaultROE:    s.cfg.ROE().String(),
		Banks:         s.cfg.Banks,
	}
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, s.configResponse())
}
