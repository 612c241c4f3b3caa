package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/victornnamdii/wallet-service/internal/money"
)

const defaultLockWait = 5 * time.Second

var errRowNotLocked = errors.New("wallet row is not locked in this scope")

type memoryRow struct {
	state Wallet
	lock  chan struct{}
}

// MemoryStore is a concurrency-safe in-memory Store. Each wallet row has its
// own lock held from LockWallet until the scope ends, so concurrent scopes
// serialise on rows the same way they do against Postgres.
type MemoryStore struct {
	mu           sync.RWMutex
	rows         map[string]*memoryRow
	byOwner      map[string]string
	transactions []Transaction
	lockWait     time.Duration
}

// NewInMemory creates an in-memory store. lockWait bounds row lock waits;
// zero selects the default.
func NewInMemory(lockWait time.Duration) *MemoryStore {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &MemoryStore{
		rows:     make(map[string]*memoryRow),
		byOwner:  make(map[string]string),
		lockWait: lockWait,
	}
}

// Atomic runs fn and publishes its staged writes only when it returns nil.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: s, held: make(map[string]*memoryRow), staged: make(map[string]*Wallet)}
	defer tx.release()

	if err := ctx.Err(); err != nil {
		return storageErr("begin", err)
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *MemoryStore) commit(tx *memoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range tx.newWallets {
		if _, exists := s.byOwner[w.OwnerID]; exists {
			return ErrWalletExists
		}
		if _, exists := s.rows[w.ID]; exists {
			return storageErr("commit", fmt.Errorf("duplicate wallet id %s", w.ID))
		}
	}
	for _, w := range tx.newWallets {
		s.rows[w.ID] = &memoryRow{state: w, lock: make(chan struct{}, 1)}
		s.byOwner[w.OwnerID] = w.ID
	}
	for id, staged := range tx.staged {
		if row, ok := s.rows[id]; ok {
			row.state = *staged
		}
	}
	s.transactions = append(s.transactions, tx.inserts...)
	return nil
}

func (s *MemoryStore) resolve(l Lookup) (*memoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := l.WalletID
	if id == "" {
		var ok bool
		if id, ok = s.byOwner[l.OwnerID]; !ok {
			return nil, ErrNotFound
		}
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row, nil
}

func (s *MemoryStore) snapshot(row *memoryRow) Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return row.state
}

// Wallet reads a committed wallet.
func (s *MemoryStore) Wallet(_ context.Context, l Lookup) (Wallet, error) {
	row, err := s.resolve(l)
	if err != nil {
		return Wallet{}, err
	}
	return s.snapshot(row), nil
}

// Transactions lists a wallet's committed transactions, newest first.
func (s *MemoryStore) Transactions(_ context.Context, walletID string, page Page) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].WalletID == walletID {
			matched = append(matched, s.transactions[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if page.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Offset:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

// Reconcile sums a wallet's committed transactions against its balance.
func (s *MemoryStore) Reconcile(_ context.Context, walletID string) (Reconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[walletID]
	if !ok {
		return Reconciliation{}, ErrNotFound
	}
	rec := Reconciliation{WalletID: walletID, Balance: row.state.Balance}
	for _, t := range s.transactions {
		if t.WalletID != walletID {
			continue
		}
		rec.Entries++
		switch t.Direction {
		case Credit:
			rec.Credits += t.Amount
		case Debit:
			rec.Debits += t.Amount
		}
	}
	return rec, nil
}

type memoryTx struct {
	store      *MemoryStore
	held       map[string]*memoryRow
	order      []string
	staged     map[string]*Wallet
	newWallets []Wallet
	inserts    []Transaction
}

func (t *memoryTx) LockWallet(ctx context.Context, l Lookup) (Wallet, error) {
	if w, ok := t.pending(l); ok {
		return w, nil
	}
	row, err := t.store.resolve(l)
	if err != nil {
		return Wallet{}, err
	}
	id := t.store.snapshot(row).ID
	if staged, ok := t.staged[id]; ok {
		return *staged, nil
	}

	timer := time.NewTimer(t.store.lockWait)
	defer timer.Stop()
	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return Wallet{}, storageErr("lock wallet", ctx.Err())
	case <-timer.C:
		return Wallet{}, storageErr("lock wallet", ErrLockTimeout)
	}

	w := t.store.snapshot(row)
	t.held[id] = row
	t.order = append(t.order, id)
	t.staged[id] = &w
	return w, nil
}

func (t *memoryTx) FindWallet(_ context.Context, l Lookup) (Wallet, error) {
	if w, ok := t.pending(l); ok {
		return w, nil
	}
	row, err := t.store.resolve(l)
	if err != nil {
		return Wallet{}, err
	}
	w := t.store.snapshot(row)
	if staged, ok := t.staged[w.ID]; ok {
		return *staged, nil
	}
	return w, nil
}

func (t *memoryTx) AdjustBalance(_ context.Context, walletID string, delta money.Cents) (money.Cents, error) {
	staged, ok := t.staged[walletID]
	if !ok {
		staged = t.pendingByID(walletID)
	}
	if staged == nil {
		return 0, storageErr("adjust balance", fmt.Errorf("%w: %s", errRowNotLocked, walletID))
	}
	next, ok := staged.Balance.Add(delta)
	if !ok || next < 0 {
		return 0, storageErr("adjust balance", fmt.Errorf("%w: wallet %s", errBalanceOutOfRange, walletID))
	}
	staged.Balance = next
	staged.UpdatedAt = time.Now().UTC()
	return next, nil
}

func (t *memoryTx) InsertWallet(_ context.Context, w Wallet) error {
	if _, err := t.store.resolve(ByOwner(w.OwnerID)); err == nil {
		return ErrWalletExists
	}
	for _, pending := range t.newWallets {
		if pending.OwnerID == w.OwnerID {
			return ErrWalletExists
		}
	}
	t.newWallets = append(t.newWallets, w)
	return nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, tr Transaction) error {
	if _, err := t.FindWallet(context.Background(), ByID(tr.WalletID)); err != nil {
		return storageErr("insert transaction", fmt.Errorf("wallet %s: %w", tr.WalletID, err))
	}
	t.inserts = append(t.inserts, tr)
	return nil
}

// pending returns a wallet inserted earlier in this scope. Such rows are
// invisible to other scopes, so they are implicitly locked.
func (t *memoryTx) pending(l Lookup) (Wallet, bool) {
	for i := range t.newWallets {
		w := &t.newWallets[i]
		if (l.WalletID != "" && w.ID == l.WalletID) || (l.WalletID == "" && w.OwnerID == l.OwnerID) {
			return *w, true
		}
	}
	return Wallet{}, false
}

func (t *memoryTx) pendingByID(id string) *Wallet {
	for i := range t.newWallets {
		if t.newWallets[i].ID == id {
			return &t.newWallets[i]
		}
	}
	return nil
}

func (t *memoryTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		<-t.held[t.order[i]].lock
	}
	t.order = nil
}
