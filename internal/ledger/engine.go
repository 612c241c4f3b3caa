package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/victornnamdii/wallet-service/internal/money"
)

var (
	errBalanceOutOfRange = errors.New("balance out of range")
	errBalanceDrift      = errors.New("stored balance does not match locked snapshot")
	errUnknownDirection  = errors.New("unknown transaction direction")
)

// Engine applies balance mutations to wallets locked inside an atomic scope.
// It never opens scopes itself; callers pass the Tx they are running in.
type Engine struct {
	directory Directory
	now       func() time.Time
	newID     func() string
}

// NewEngine constructs an engine. The directory is consulted for transfer
// narrations when a wallet row carries no owner name; it may be nil.
func NewEngine(directory Directory) *Engine {
	return &Engine{
		directory: directory,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// OpenWallet creates an empty wallet for owner inside the caller's scope.
func (e *Engine) OpenWallet(ctx context.Context, tx Tx, ownerID, currency string) (Wallet, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Wallet{}, fmt.Errorf("owner id is required")
	}
	now := e.now()
	w := Wallet{
		ID:        e.newID(),
		OwnerID:   ownerID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.InsertWallet(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Fund credits amount to the wallet with the given id. The caller records the
// matching credit transaction in the same scope.
func (e *Engine) Fund(ctx context.Context, tx Tx, walletID string, amount money.Cents) (Wallet, error) {
	if err := amount.Validate(); err != nil {
		return Wallet{}, err
	}
	if err := ValidateID(walletID); err != nil {
		return Wallet{}, err
	}

	w, err := tx.LockWallet(ctx, ByID(strings.ToLower(walletID)))
	if err != nil {
		return Wallet{}, err
	}
	return e.apply(ctx, tx, w, amount)
}

// Withdraw debits amount from the wallet owned by ownerID. A wallet may be
// drained to exactly zero.
func (e *Engine) Withdraw(ctx context.Context, tx Tx, ownerID string, amount money.Cents) (Wallet, error) {
	if err := amount.Validate(); err != nil {
		return Wallet{}, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return Wallet{}, ErrNotFound
	}
	return e.withdraw(ctx, tx, ByOwner(ownerID), amount)
}

func (e *Engine) withdraw(ctx context.Context, tx Tx, l Lookup, amount money.Cents) (Wallet, error) {
	w, err := tx.LockWallet(ctx, l)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance < amount {
		return Wallet{}, ErrInsufficientFunds
	}
	return e.apply(ctx, tx, w, -amount)
}

// apply writes delta against a locked snapshot and checks the store agrees
// with the expected result.
func (e *Engine) apply(ctx context.Context, tx Tx, w Wallet, delta money.Cents) (Wallet, error) {
	want, ok := w.Balance.Add(delta)
	if !ok || want < 0 {
		return Wallet{}, storageErr("adjust balance", fmt.Errorf("%w: wallet %s", errBalanceOutOfRange, w.ID))
	}

	got, err := tx.AdjustBalance(ctx, w.ID, delta)
	if err != nil {
		return Wallet{}, storageErr("adjust balance", err)
	}
	if got != want {
		return Wallet{}, storageErr("adjust balance", fmt.Errorf("%w: wallet %s want %s got %s", errBalanceDrift, w.ID, want, got))
	}

	w.Balance = got
	w.UpdatedAt = e.now()
	return w, nil
}

// TransferInput describes a movement of funds between two wallets.
// SenderWalletID may be empty, in which case it is resolved from SenderOwnerID.
type TransferInput struct {
	SenderOwnerID    string
	SenderWalletID   string
	ReceiverWalletID string
	Amount           money.Cents
	Narration        string
}

// TransferResult holds both sides of a completed transfer.
type TransferResult struct {
	Debited  Wallet
	Credited Wallet
	Debit    Transaction
	Credit   Transaction
}

// Transfer moves funds from the sender to the receiver and records a debit and
// a credit. Both wallet rows are locked in ascending id order before either is
// changed. The sender is debited first, so a sender without enough funds gets
// ErrInsufficientFunds even when the receiver does not exist.
func (e *Engine) Transfer(ctx context.Context, tx Tx, in TransferInput) (TransferResult, error) {
	if err := in.Amount.Validate(); err != nil {
		return TransferResult{}, err
	}
	narration := strings.TrimSpace(in.Narration)
	if narration == "" {
		return TransferResult{}, ErrMissingNarration
	}
	if err := ValidateID(in.ReceiverWalletID); err != nil {
		return TransferResult{}, err
	}
	receiverID := strings.ToLower(in.ReceiverWalletID)

	senderID := strings.ToLower(in.SenderWalletID)
	if senderID == "" {
		// wallet ids never change, so an unlocked read is enough here
		sender, err := tx.FindWallet(ctx, ByOwner(in.SenderOwnerID))
		if err != nil {
			return TransferResult{}, err
		}
		senderID = sender.ID
	}
	if senderID == receiverID {
		return TransferResult{}, ErrCircularTransfer
	}

	for _, id := range lockOrder(senderID, receiverID) {
		if _, err := tx.LockWallet(ctx, ByID(id)); err != nil {
			if errors.Is(err, ErrNotFound) && id == receiverID {
				continue
			}
			return TransferResult{}, err
		}
	}

	debited, err := e.withdraw(ctx, tx, ByID(senderID), in.Amount)
	if err != nil {
		return TransferResult{}, err
	}
	credited, err := e.Fund(ctx, tx, receiverID, in.Amount)
	if err != nil {
		return TransferResult{}, err
	}

	senderName := e.displayName(ctx, debited)
	receiverName := e.displayName(ctx, credited)
	debited.OwnerName = senderName
	credited.OwnerName = receiverName

	debit, err := e.Record(ctx, tx, debited.ID, in.Amount, Debit, fmt.Sprintf("TRF TO %s/%s", receiverName, narration))
	if err != nil {
		return TransferResult{}, err
	}
	credit, err := e.Record(ctx, tx, credited.ID, in.Amount, Credit, fmt.Sprintf("TRF FROM %s/%s", senderName, narration))
	if err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Debited: debited, Credited: credited, Debit: debit, Credit: credit}, nil
}

// Record appends a transaction for walletID in the caller's scope.
func (e *Engine) Record(ctx context.Context, tx Tx, walletID string, amount money.Cents, direction Direction, narration string) (Transaction, error) {
	if direction != Credit && direction != Debit {
		return Transaction{}, storageErr("record transaction", fmt.Errorf("%w: %q", errUnknownDirection, direction))
	}
	t := Transaction{
		ID:        e.newID(),
		WalletID:  walletID,
		Amount:    amount,
		Direction: direction,
		Narration: truncate(narration, maxNarrationLength),
		CreatedAt: e.now(),
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return Transaction{}, storageErr("record transaction", err)
	}
	return t, nil
}

func (e *Engine) displayName(ctx context.Context, w Wallet) string {
	if w.OwnerName != "" {
		return w.OwnerName
	}
	if e.directory != nil {
		if name, err := e.directory.DisplayName(ctx, w.OwnerID); err == nil && name != "" {
			return name
		}
	}
	return w.OwnerID
}

func lockOrder(a, b string) []string {
	if b < a {
		return []string{b, a}
	}
	return []string{a, b}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
