package payments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornnamdii/wallet-service/internal/identity"
	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/logging"
	"github.com/victornnamdii/wallet-service/internal/money"
	"github.com/victornnamdii/wallet-service/internal/notification"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
	return n.err
}

type fixture struct {
	svc      *Service
	store    *ledger.MemoryStore
	notifier *recordingNotifier
	users    *identity.MemoryRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := ledger.NewInMemory(time.Second)
	users := identity.NewMemoryRepository()
	notifier := &recordingNotifier{}
	runner := ledger.NewRunner(store, logging.Discard(), ledger.WithBackoff(time.Millisecond))
	engine := ledger.NewEngine(identity.NewService(users))
	return fixture{
		svc:      NewService(runner, engine, notifier, logging.Discard()),
		store:    store,
		notifier: notifier,
		users:    users,
	}
}

func (f fixture) seed(t *testing.T, first, last string, balance money.Cents) ledger.Wallet {
	t.Helper()
	owner := uuid.NewString()
	require.NoError(t, f.users.Add(identity.User{ID: owner, FirstName: first, LastName: last}))
	w, err := ledger.SeedWallet(context.Background(), f.store, owner, balance)
	require.NoError(t, err)
	return w
}

func TestServiceTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, "Ada", "Obi", 300000)
	b := f.seed(t, "Bola", "Ade", 0)

	res, err := f.svc.Transfer(ctx, ledger.TransferInput{
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

	require.Len(t, f.notifier.msgs, 2)
	assert.Equal(t, notification.KindTransferReceived, f.notifier.msgs[0].Kind)
	assert.Equal(t, b.OwnerID, f.notifier.msgs[0].Destination)
	assert.Equal(t, "You received 2000 from Ada Obi", f.notifier.msgs[0].Body)
}

func TestServiceTransferFailuresDoNotNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, "Ada", "Obi", 1000)
	b := f.seed(t, "Bola", "Ade", 0)

	_, err := f.svc.Transfer(ctx, ledger.TransferInput{
		SenderOwnerID:    a.OwnerID,
		ReceiverWalletID: b.ID,
		Amount:           1001,
		Narration:        "rent",
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = f.svc.Transfer(ctx, ledger.TransferInput{
		SenderOwnerID:    a.OwnerID,
		ReceiverWalletID: a.ID,
		Amount:           1,
		Narration:        "self",
	})
	assert.ErrorIs(t, err, ledger.ErrCircularTransfer)

	_, err = f.svc.Transfer(ctx, ledger.TransferInput{
		SenderOwnerID:    a.OwnerID,
		ReceiverWalletID: uuid.NewString(),
		Amount:           10,
		Narration:        "gone",
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.Empty(t, f.notifier.msgs)

	rec, err := f.store.Reconcile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(1000), rec.Balance)
	assert.Equal(t, 1, rec.Entries)
}

func TestServiceTransferSurvivesNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")
	a := f.seed(t, "Ada", "Obi", 500)
	b := f.seed(t, "Bola", "Ade", 0)

	res, err := f.svc.Transfer(context.Background(), ledger.TransferInput{
		SenderOwnerID:    a.OwnerID,
		ReceiverWalletID: b.ID,
		Amount:           500,
		Narration:        "all of it",
	})
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), res.Debited.Balance)
}

func TestServiceConcurrentOppositeTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, "Ada", "Obi", 10000)
	b := f.seed(t, "Bola", "Ade", 10000)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		from, to := a, b
		if i%2 == 1 {
			from, to = b, a
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Transfer(ctx, ledger.TransferInput{
				SenderOwnerID:    from.OwnerID,
				ReceiverWalletID: to.ID,
				Amount:           100,
				Narration:        "ping",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, w := range []ledger.Wallet{a, b} {
		rec, err := f.store.Reconcile(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, money.Cents(10000), rec.Balance)
		assert.True(t, rec.Balanced())
	}
}
