package funding

import (
	"context"
	"log/slog"
	"time"

	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/metrics"
	"github.com/victornnamdii/wallet-service/internal/money"
)

// Service credits and debits a single wallet, each movement paired with its
// transaction record in one atomic scope.
type Service struct {
	runner *ledger.Runner
	engine *ledger.Engine
	logger *slog.Logger
}

// NewService builds a funding service.
func NewService(runner *ledger.Runner, engine *ledger.Engine, logger *slog.Logger) *Service {
	return &Service{runner: runner, engine: engine, logger: logger}
}

// FundInput identifies the wallet to credit.
type FundInput struct {
	WalletID string
	Amount   money.Cents
}

// WithdrawInput identifies the wallet to debit by its owner. WalletID, when
// set, is only used for logging.
type WithdrawInput struct {
	OwnerID  string
	WalletID string
	Amount   money.Cents
}

// Result is the wallet after the movement and the record describing it.
type Result struct {
	Wallet      ledger.Wallet
	Transaction ledger.Transaction
}

// Fund credits the wallet and records a credit narrated FUND BY SELF.
func (s *Service) Fund(ctx context.Context, input FundInput) (Result, error) {
	start := time.Now()
	var res Result
	err := s.runner.Run(ctx, "fund", func(ctx context.Context, tx ledger.Tx) error {
		w, err := s.engine.Fund(ctx, tx, input.WalletID, input.Amount)
		if err != nil {
			return err
		}
		rec, err := s.engine.Record(ctx, tx, w.ID, input.Amount, ledger.Credit, ledger.NarrationSelfFund)
		if err != nil {
			return err
		}
		res = Result{Wallet: w, Transaction: rec}
		return nil
	})
	s.observe("fund", input.WalletID, input.Amount, start, err)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Withdraw debits the owner's wallet and records a debit narrated
// WITHDRAWAL BY SELF. A balance equal to the amount may be withdrawn in full.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Result, error) {
	start := time.Now()
	var res Result
	err := s.runner.Run(ctx, "withdraw", func(ctx context.Context, tx ledger.Tx) error {
		w, err := s.engine.Withdraw(ctx, tx, input.OwnerID, input.Amount)
		if err != nil {
			return err
		}
		rec, err := s.engine.Record(ctx, tx, w.ID, input.Amount, ledger.Debit, ledger.NarrationSelfWithdrawal)
		if err != nil {
			return err
		}
		res = Result{Wallet: w, Transaction: rec}
		return nil
	})
	s.observe("withdraw", input.WalletID, input.Amount, start, err)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (s *Service) observe(op, walletID string, amount money.Cents, start time.Time, err error) {
	outcome := ledger.Outcome(err)
	metrics.RecordLedgerOperation(op, outcome, int64(amount), time.Since(start))
	if err != nil {
		s.logger.Warn("ledger operation rejected",
			slog.String("operation", op),
			slog.String("wallet_id", walletID),
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("ledger operation applied",
		slog.String("operation", op),
		slog.String("wallet_id", walletID),
		slog.String("amount", amount.String()),
	)
}
