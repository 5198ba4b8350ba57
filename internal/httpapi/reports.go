package httpapi

import (
	"net/http"
	"time"
)

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := s.reports.TrialBalance(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, tb)
}

// profitAndLoss accepts optional ?from and ?to bounds in RFC 3339; an absent
// bound leaves that side of the range open.
func (s *Server) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "invalid from")
			return
		}
		from = t.UTC()
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "invalid to")
			return
		}
		to = t.UTC()
	}
	pl, err := s.reports.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, pl)
}

func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	bs, err := s.reports.BalanceSheet(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, bs)
}
