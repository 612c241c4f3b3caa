package wallet

import "github.com/victornnamdii/wallet-service/internal/ledger"

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// HistoryQuery pages through a wallet's transactions, newest first.
type HistoryQuery struct {
	Limit  int
	Offset int
}

func (q HistoryQuery) page() ledger.Page {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return ledger.Page{Limit: limit, Offset: offset}
}

// Statement pairs a wallet with its reconciliation against the transaction log.
type Statement struct {
	Wallet         ledger.Wallet         `json:"wallet"`
	Reconciliation ledger.Reconciliation `json:"reconciliation"`
	Balanced       bool                  `json:"balanced"`
}
