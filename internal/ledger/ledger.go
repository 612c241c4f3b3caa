package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/victornnamdii/wallet-service/internal/money"
)

var (
	// ErrInvalidAmount is returned when an amount is missing, not positive, or
	// carries more than two decimal places.
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrInvalidID indicates a wallet identifier that is not a canonical UUID v4.
	ErrInvalidID = errors.New("invalid wallet id")

	// ErrNotFound indicates the referenced wallet does not exist.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when the wallet balance cannot cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrCircularTransfer rejects transfers whose sender and receiver are the same wallet.
	ErrCircularTransfer = errors.New("cannot transfer to the same wallet")

	// ErrMissingNarration rejects transfers without a narration.
	ErrMissingNarration = errors.New("transfer narration is required")

	// ErrStorage is matched by every persistence failure, see StorageError.
	ErrStorage = errors.New("ledger storage failure")

	// ErrLockTimeout is reported when a wallet row lock could not be acquired in time.
	ErrLockTimeout = errors.New("timed out waiting for wallet lock")

	// ErrWalletExists indicates the owner already has a wallet.
	ErrWalletExists = errors.New("owner already has a wallet")
)

// StorageError wraps a failure from the underlying store. It matches ErrStorage
// and unwraps to the driver error so callers can inspect codes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Direction tags a transaction as adding to or taking from a balance.
type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

const (
	// NarrationSelfFund labels a credit made by the wallet owner.
	NarrationSelfFund = "FUND BY SELF"
	// NarrationSelfWithdrawal labels a debit made by the wallet owner.
	NarrationSelfWithdrawal = "WITHDRAWAL BY SELF"

	maxNarrationLength = 255
)

// Wallet is the stored balance of one owner.
type Wallet struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"userId"`
	OwnerName string      `json:"userName,omitempty"`
	Balance   money.Cents `json:"balance"`
	Currency  string      `json:"currency"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Transaction is an immutable record of one balance change.
type Transaction struct {
	ID        string      `json:"id"`
	WalletID  string      `json:"walletId"`
	Amount    money.Cents `json:"amount"`
	Direction Direction   `json:"type"`
	Narration string      `json:"narration"`
	CreatedAt time.Time   `json:"created_at"`
}

// Reconciliation compares a stored balance with the sum of its transactions.
type Reconciliation struct {
	WalletID string      `json:"walletId"`
	Balance  money.Cents `json:"balance"`
	Credits  money.Cents `json:"credits"`
	Debits   money.Cents `json:"debits"`
	Entries  int         `json:"entries"`
}

// Balanced reports whether balance equals credits minus debits.
func (r Reconciliation) Balanced() bool {
	return r.Balance == r.Credits-r.Debits
}

// Lookup selects a wallet either by its id or by its owner.
type Lookup struct {
	WalletID string
	OwnerID  string
}

func ByID(id string) Lookup { return Lookup{WalletID: id} }

func ByOwner(ownerID string) Lookup { return Lookup{OwnerID: ownerID} }

func (l Lookup) String() string {
	if l.WalletID != "" {
		return "wallet " + l.WalletID
	}
	return "owner " + l.OwnerID
}

// Page bounds a history query.
type Page struct {
	Limit  int
	Offset int
}

// Store is the durable home of wallets and transactions. All balance changes
// go through Atomic; the remaining methods are plain reads.
type Store interface {
	// Atomic runs fn in a single all-or-nothing scope. Row locks taken through
	// the Tx are held until the scope ends.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Wallet(ctx context.Context, l Lookup) (Wallet, error)
	Transactions(ctx context.Context, walletID string, page Page) ([]Transaction, error)
	Reconcile(ctx context.Context, walletID string) (Reconciliation, error)
}

// Tx is the view of the store inside an atomic scope.
type Tx interface {
	// LockWallet reads a wallet and holds an exclusive row lock on it for the
	// rest of the scope. Locking an already held row returns its current state.
	LockWallet(ctx context.Context, l Lookup) (Wallet, error)
	// FindWallet reads a wallet without locking it.
	FindWallet(ctx context.Context, l Lookup) (Wallet, error)
	// AdjustBalance adds delta to a locked wallet and returns the stored result.
	AdjustBalance(ctx context.Context, walletID string, delta money.Cents) (money.Cents, error)
	InsertWallet(ctx context.Context, w Wallet) error
	InsertTransaction(ctx context.Context, t Transaction) error
}

// Directory resolves owner display names for transfer narrations.
type Directory interface {
	DisplayName(ctx context.Context, ownerID string) (string, error)
}

// ValidateID checks that id is a canonical UUID v4.
func ValidateID(id string) error {
	if len(id) != 36 {
		return ErrInvalidID
	}
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.Version() != 4 {
		return ErrInvalidID
	}
	return nil
}
