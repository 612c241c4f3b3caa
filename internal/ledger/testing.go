package ledger

import (
	"context"

	"github.com/victornnamdii/wallet-service/internal/money"
)

// SeedWallet is a test helper that opens a wallet for owner and, when balance
// is positive, funds it with a recorded credit so reconciliation still holds.
func SeedWallet(ctx context.Context, store Store, ownerID string, balance money.Cents) (Wallet, error) {
	engine := NewEngine(nil)
	var w Wallet
	err := store.Atomic(ctx, func(ctx context.Context, tx Tx) error {
		opened, err := engine.OpenWallet(ctx, tx, ownerID, "NGN")
		if err != nil {
			return err
		}
		w = opened
		if balance <= 0 {
			return nil
		}
		if w, err = engine.Fund(ctx, tx, opened.ID, balance); err != nil {
			return err
		}
		_, err = engine.Record(ctx, tx, w.ID, balance, Credit, NarrationSelfFund)
		return err
	})
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}
