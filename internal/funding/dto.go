package funding

import "github.com/victornnamdii/wallet-service/internal/ledger"

// AmountRequest is the body of the fund and withdraw endpoints. Amount is
// left untyped so a missing value can be told apart from a malformed one.
type AmountRequest struct {
	Amount any `json:"amount"`
}

// FundingResponse is the data returned after a fund or withdrawal.
type FundingResponse struct {
	Wallet      ledger.Wallet      `json:"wallet"`
	Transaction ledger.Transaction `json:"transaction"`
}
