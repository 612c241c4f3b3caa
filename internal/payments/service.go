package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/metrics"
	"github.com/victornnamdii/wallet-service/internal/notification"
)

// Service moves funds between wallets.
type Service struct {
	runner   *ledger.Runner
	engine   *ledger.Engine
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service. notifier may be nil.
func NewService(runner *ledger.Runner, engine *ledger.Engine, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{runner: runner, engine: engine, notifier: notifier, logger: logger}
}

// Transfer debits the sender and credits the receiver in one atomic scope.
// The receiving owner is notified once the transfer has committed; a failed
// notification does not undo the transfer.
func (s *Service) Transfer(ctx context.Context, input ledger.TransferInput) (ledger.TransferResult, error) {
	start := time.Now()
	var res ledger.TransferResult
	err := s.runner.Run(ctx, "transfer", func(ctx context.Context, tx ledger.Tx) error {
		out, err := s.engine.Transfer(ctx, tx, input)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	metrics.RecordLedgerOperation("transfer", ledger.Outcome(err), int64(input.Amount), time.Since(start))
	if err != nil {
		s.logger.Warn("transfer rejected",
			slog.String("sender_owner_id", input.SenderOwnerID),
			slog.String("receiver_wallet_id", input.ReceiverWalletID),
			slog.String("outcome", ledger.Outcome(err)),
			slog.Any("error", err),
		)
		return ledger.TransferResult{}, err
	}

	s.logger.Info("transfer applied",
		slog.String("debit_id", res.Debit.ID),
		slog.String("credit_id", res.Credit.ID),
		slog.String("from_wallet_id", res.Debited.ID),
		slog.String("to_wallet_id", res.Credited.ID),
		slog.String("amount", input.Amount.String()),
	)
	s.notify(ctx, res)
	return res, nil
}

func (s *Service) notify(ctx context.Context, res ledger.TransferResult) {
	if s.notifier == nil {
		return
	}
	msgs := []notification.Message{
		{
			Kind:        notification.KindTransferReceived,
			Destination: res.Credited.OwnerID,
			Body:        fmt.Sprintf("You received %s from %s", res.Credit.Amount, res.Debited.OwnerName),
		},
		{
			Kind:        notification.KindTransferSent,
			Destination: res.Debited.OwnerID,
			Body:        fmt.Sprintf("You sent %s to %s", res.Debit.Amount, res.Credited.OwnerName),
		},
	}
	for _, m := range msgs {
		if err := s.notifier.Send(ctx, m); err != nil {
			s.logger.Warn("transfer notification failed", slog.String("kind", m.Kind), slog.Any("error", err))
		}
	}
}
