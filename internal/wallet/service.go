package wallet

import (
	"context"
	"log/slog"
	"strings"

	"github.com/victornnamdii/wallet-service/internal/ledger"
)

// OwnerLinker is told about wallets opened for an owner. Directories that
// derive the link from the wallets table do not need one.
type OwnerLinker interface {
	LinkWallet(ownerID, walletID string) error
}

// Service exposes wallet reads and wallet creation backed by the ledger store.
type Service struct {
	runner    *ledger.Runner
	engine    *ledger.Engine
	directory ledger.Directory
	linker    OwnerLinker
	currency  string
	logger    *slog.Logger
}

// NewService builds a wallet service instance. Wallets opened without a
// currency get defaultCurrency.
func NewService(runner *ledger.Runner, engine *ledger.Engine, directory ledger.Directory, defaultCurrency string, logger *slog.Logger) *Service {
	return &Service{runner: runner, engine: engine, directory: directory, currency: defaultCurrency, logger: logger}
}

// WithLinker registers l to be told about newly opened wallets.
func (s *Service) WithLinker(l OwnerLinker) *Service {
	s.linker = l
	return s
}

// Open provisions an empty wallet for owner.
func (s *Service) Open(ctx context.Context, ownerID, currency string) (ledger.Wallet, error) {
	if currency == "" {
		currency = s.currency
	}
	var w ledger.Wallet
	err := s.runner.Run(ctx, "open_wallet", func(ctx context.Context, tx ledger.Tx) error {
		opened, err := s.engine.OpenWallet(ctx, tx, ownerID, strings.ToUpper(currency))
		if err != nil {
			return err
		}
		w = opened
		return nil
	})
	if err != nil {
		return ledger.Wallet{}, err
	}
	if s.linker != nil {
		if err := s.linker.LinkWallet(ownerID, w.ID); err != nil {
			s.logger.Warn("link wallet to owner", slog.String("wallet_id", w.ID), slog.Any("error", err))
		}
	}
	s.logger.Info("wallet opened", slog.String("wallet_id", w.ID), slog.String("owner_id", ownerID))
	return s.withName(ctx, w), nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (ledger.Wallet, error) {
	if err := ledger.ValidateID(id); err != nil {
		return ledger.Wallet{}, err
	}
	w, err := s.runner.Store().Wallet(ctx, ledger.ByID(strings.ToLower(id)))
	if err != nil {
		return ledger.Wallet{}, err
	}
	return s.withName(ctx, w), nil
}

// GetByOwner retrieves the wallet belonging to ownerID.
func (s *Service) GetByOwner(ctx context.Context, ownerID string) (ledger.Wallet, error) {
	w, err := s.runner.Store().Wallet(ctx, ledger.ByOwner(ownerID))
	if err != nil {
		return ledger.Wallet{}, err
	}
	return s.withName(ctx, w), nil
}

// History lists the transactions of a wallet.
func (s *Service) History(ctx context.Context, walletID string, q HistoryQuery) ([]ledger.Transaction, error) {
	txs, err := s.runner.Store().Transactions(ctx, walletID, q.page())
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}

// Reconcile checks a wallet's balance against its transaction log.
func (s *Service) Reconcile(ctx context.Context, walletID string) (Statement, error) {
	w, err := s.Get(ctx, walletID)
	if err != nil {
		return Statement{}, err
	}
	rec, err := s.runner.Store().Reconcile(ctx, w.ID)
	if err != nil {
		return Statement{}, err
	}
	if !rec.Balanced() {
		s.logger.Error("wallet does not reconcile",
			slog.String("wallet_id", w.ID),
			slog.String("balance", rec.Balance.String()),
			slog.String("credits", rec.Credits.String()),
			slog.String("debits", rec.Debits.String()),
		)
	}
	return Statement{Wallet: w, Reconciliation: rec, Balanced: rec.Balanced()}, nil
}

func (s *Service) withName(ctx context.Context, w ledger.Wallet) ledger.Wallet {
	if w.OwnerName != "" || s.directory == nil {
		return w
	}
	if name, err := s.directory.DisplayName(ctx, w.OwnerID); err == nil {
		w.OwnerName = name
	}
	return w
}
