package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornnamdii/wallet-service/internal/money"
)

type names map[string]string

func (n names) DisplayName(_ context.Context, ownerID string) (string, error) {
	if name, ok := n[ownerID]; ok {
		return name, nil
	}
	return "", errors.New("unknown owner")
}

type fixture struct {
	store  *MemoryStore
	engine *Engine
	names  names
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	n := names{}
	return &fixture{store: NewInMemory(time.Second), engine: NewEngine(n), names: n}
}

func (f *fixture) wallet(t *testing.T, name string, balance money.Cents) Wallet {
	t.Helper()
	owner := uuid.NewString()
	f.names[owner] = name
	w, err := SeedWallet(context.Background(), f.store, owner, balance)
	require.NoError(t, err)
	return w
}

func (f *fixture) fund(walletID string, amount money.Cents) (Wallet, error) {
	var out Wallet
	err := f.store.Atomic(context.Background(), func(ctx context.Context, tx Tx) error {
		w, err := f.engine.Fund(ctx, tx, walletID, amount)
		if err != nil {
			return err
		}
		out = w
		_, err = f.engine.Record(ctx, tx, w.ID, amount, Credit, NarrationSelfFund)
		return err
	})
	return out, err
}

func (f *fixture) withdraw(ownerID string, amount money.Cents) (Wallet, error) {
	var out Wallet
	err := f.store.Atomic(context.Background(), func(ctx context.Context, tx Tx) error {
		w, err := f.engine.Withdraw(ctx, tx, ownerID, amount)
		if err != nil {
			return err
		}
		out = w
		_, err = f.engine.Record(ctx, tx, w.ID, amount, Debit, NarrationSelfWithdrawal)
		return err
	})
	return out, err
}

func (f *fixture) transfer(in TransferInput) (TransferResult, error) {
	var out TransferResult
	err := f.store.Atomic(context.Background(), func(ctx context.Context, tx Tx) error {
		res, err := f.engine.Transfer(ctx, tx, in)
		out = res
		return err
	})
	return out, err
}

func (f *fixture) balance(t *testing.T, walletID string) money.Cents {
	t.Helper()
	w, err := f.store.Wallet(context.Background(), ByID(walletID))
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) entries(t *testing.T, walletID string) []Transaction {
	t.Helper()
	txs, err := f.store.Transactions(context.Background(), walletID, Page{Limit: 100})
	require.NoError(t, err)
	return txs
}

func (f *fixture) assertReconciles(t *testing.T, walletID string) {
	t.Helper()
	rec, err := f.store.Reconcile(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, rec.Balanced(), "balance %s credits %s debits %s", rec.Balance, rec.Credits, rec.Debits)
}

func TestFundThenWithdrawRestoresBalance(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 0)

	funded, err := f.fund(w.ID, money.MustParse("5000.78"))
	require.NoError(t, err)
	assert.Equal(t, money.Cents(500078), funded.Balance)

	drained, err := f.withdraw(w.OwnerID, money.MustParse("5000.78"))
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), drained.Balance)

	txs := f.entries(t, w.ID)
	require.Len(t, txs, 2)
	assert.Equal(t, Debit, txs[0].Direction)
	assert.Equal(t, NarrationSelfWithdrawal, txs[0].Narration)
	assert.Equal(t, Credit, txs[1].Direction)
	assert.Equal(t, NarrationSelfFund, txs[1].Narration)
	f.assertReconciles(t, w.ID)
}

func TestFundValidation(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 100)

	_, err := f.fund(w.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.fund(w.ID, -100)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.fund("not-a-uuid", 100)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = f.fund(uuid.NewString(), 100)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, money.Cents(100), f.balance(t, w.ID))
	assert.Len(t, f.entries(t, w.ID), 1)
}

func TestFundAcceptsUppercaseID(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 0)

	funded, err := f.fund(strings.ToUpper(w.ID), 250)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(250), funded.Balance)
}

func TestWithdrawInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 1000)

	_, err := f.withdraw(w.OwnerID, 1001)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, money.Cents(1000), f.balance(t, w.ID))
	assert.Len(t, f.entries(t, w.ID), 1)
	f.assertReconciles(t, w.ID)
}

func TestWithdrawUnknownOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.withdraw(uuid.NewString(), 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentFullWithdrawalsOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 5000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.withdraw(w.OwnerID, 5000)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrInsufficientFunds)
	assert.Equal(t, money.Cents(0), f.balance(t, w.ID))
	f.assertReconciles(t, w.ID)
}

func TestConcurrentFundsAreNotLost(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.fund(w.ID, 100)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, money.Cents(5000), f.balance(t, w.ID))
	assert.Len(t, f.entries(t, w.ID), 50)
	f.assertReconciles(t, w.ID)
}

func TestTransferMovesFundsAndRecordsBothSides(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "Ada Obi", 300000)
	b := f.wallet(t, "Bola Ade", 0)

	res, err := f.transfer(TransferInput{
		SenderOwnerID:    a.OwnerID,
		ReceiverWalletID: b.ID,
		Amount:           200000,
		Narration:        "rent",
	})
	require.NoError(t, err)

	assert.Equal(t, money.Cents(100000), res.Debited.Balance)
	assert.Equal(t, money.Cents(200000), res.Credited.Balance)
	assert.Equal(t, "TRF TO Bola Ade/rent", res.Debit.Narration)
	assert.Equal(t, "TRF FROM Ada Obi/rent", res.Credit.Narration)
	assert.Equal(t, Debit, res.Debit.Direction)
	assert.Equal(t, Credit, res.Credit.Direction)
	assert.Equal(t, money.Cents(200000), res.Debit.Amount)

	assert.Equal(t, money.Cents(100000), f.balance(t, a.ID))
	assert.Equal(t, money.Cents(200000), f.balance(t, b.ID))
	f.assertReconciles(t, a.ID)
	f.assertReconciles(t, b.ID)
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "Ada Obi", 1000)
	b := f.wallet(t, "Bola Ade", 0)

	tests := []struct {
		name string
		in   TransferInput
		want error
	}{
		{
			name: "self transfer",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: a.ID, Amount: 100, Narration: "loop"},
			want: ErrCircularTransfer,
		},
		{
			name: "self transfer beyond balance",
			in:   TransferInput{SenderOwnerID: a.OwnerID, SenderWalletID: a.ID, ReceiverWalletID: a.ID, Amount: 99999, Narration: "loop"},
			want: ErrCircularTransfer,
		},
		{
			name: "blank narration",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: b.ID, Amount: 100, Narration: "   "},
			want: ErrMissingNarration,
		},
		{
			name: "zero amount",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: b.ID, Amount: 0, Narration: "x"},
			want: ErrInvalidAmount,
		},
		{
			name: "bad receiver id",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: "1234", Amount: 100, Narration: "x"},
			want: ErrInvalidID,
		},
		{
			name: "insufficient funds beats missing receiver",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: uuid.NewString(), Amount: 5000, Narration: "x"},
			want: ErrInsufficientFunds,
		},
		{
			name: "missing receiver",
			in:   TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: uuid.NewString(), Amount: 500, Narration: "x"},
			want: ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.transfer(tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, money.Cents(1000), f.balance(t, a.ID))
	assert.Equal(t, money.Cents(0), f.balance(t, b.ID))
	assert.Len(t, f.entries(t, a.ID), 1)
	assert.Empty(t, f.entries(t, b.ID))
}

func TestOppositeTransfersDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "Ada Obi", 100000)
	b := f.wallet(t, "Bola Ade", 100000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.transfer(TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: b.ID, Amount: 100, Narration: "ab"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.transfer(TransferInput{SenderOwnerID: b.OwnerID, ReceiverWalletID: a.ID, Amount: 100, Narration: "ba"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, money.Cents(100000), f.balance(t, a.ID))
	assert.Equal(t, money.Cents(100000), f.balance(t, b.ID))
	f.assertReconciles(t, a.ID)
	f.assertReconciles(t, b.ID)
}

func TestTransferFallsBackToOwnerIDWithoutName(t *testing.T) {
	f := newFixture(t)
	a := f.wallet(t, "Ada Obi", 1000)
	receiverOwner := uuid.NewString()
	b, err := SeedWallet(context.Background(), f.store, receiverOwner, 0)
	require.NoError(t, err)

	res, err := f.transfer(TransferInput{SenderOwnerID: a.OwnerID, ReceiverWalletID: b.ID, Amount: 10, Narration: "gift"})
	require.NoError(t, err)
	assert.Equal(t, "TRF TO "+receiverOwner+"/gift", res.Debit.Narration)
}

func TestRecordTruncatesLongNarration(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 0)

	var rec Transaction
	err := f.store.Atomic(context.Background(), func(ctx context.Context, tx Tx) error {
		var err error
		rec, err = f.engine.Record(ctx, tx, w.ID, 1, Credit, strings.Repeat("n", 300))
		return err
	})
	require.NoError(t, err)
	assert.Len(t, rec.Narration, 255)
}

func TestRecordRejectsUnknownDirection(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "Ada Obi", 0)

	err := f.store.Atomic(context.Background(), func(ctx context.Context, tx Tx) error {
		_, err := f.engine.Record(ctx, tx, w.ID, 1, Direction("refund"), "x")
		return err
	})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(uuid.NewString()))
	assert.ErrorIs(t, ValidateID(""), ErrInvalidID)
	assert.ErrorIs(t, ValidateID("not-a-uuid"), ErrInvalidID)
	assert.ErrorIs(t, ValidateID("urn:uuid:"+uuid.NewString()), ErrInvalidID)
	// version 1 layout
	assert.ErrorIs(t, ValidateID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), ErrInvalidID)
}
