package memory

import (
	"github.com/safarbooks/ledger/internal/service/posting"
	"github.com/safarbooks/ledger/internal/service/report"
)

var (
	_ posting.Repo       = (*Store)(nil)
	_ posting.UnitOfWork = (*Store)(nil)
	_ posting.Tx         = (*Tx)(nil)
	_ report.Repo        = (*Store)(nil)
)
