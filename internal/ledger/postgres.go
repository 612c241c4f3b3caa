package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornnamdii/wallet-service/internal/money"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// table describes how to read rows of one relation. The ledger only ever
// reads, locks, increments and inserts; there is no generic update.
type table[R any] struct {
	name      string
	alias     string
	selectSQL string
	touch     string
	scan      func(row pgx.Row) (R, error)
}

func (t table[R]) find(ctx context.Context, q querier, predicate string, args ...any) (R, error) {
	return t.scan(q.QueryRow(ctx, t.selectSQL+" WHERE "+predicate, args...))
}

func (t table[R]) lockRowForUpdate(ctx context.Context, q querier, predicate string, args ...any) (R, error) {
	return t.scan(q.QueryRow(ctx, t.selectSQL+" WHERE "+predicate+" FOR UPDATE OF "+t.alias, args...))
}

// mutate adds delta to column on the rows matched by predicate and returns the
// stored result. The delta is bound as $1, predicate placeholders start at $2.
func (t table[R]) mutate(ctx context.Context, q querier, column, predicate string, delta int64, args ...any) (int64, error) {
	set := fmt.Sprintf("%s = %s.%s + $1", column, t.alias, column)
	if t.touch != "" {
		set += ", " + t.touch + " = NOW()"
	}
	query := fmt.Sprintf("UPDATE %s %s SET %s WHERE %s RETURNING %s.%s", t.name, t.alias, set, predicate, t.alias, column)

	var result int64
	if err := q.QueryRow(ctx, query, append([]any{delta}, args...)...).Scan(&result); err != nil {
		return 0, err
	}
	return result, nil
}

func (t table[R]) insert(ctx context.Context, q querier, columns []string, values ...any) error {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	_, err := q.Exec(ctx, query, values...)
	return err
}

var wallets = table[Wallet]{
	name:  "wallets",
	alias: "w",
	selectSQL: `SELECT w.id, w.user_id, w.balance, w.currency, w.created_at, w.updated_at,
        COALESCE(TRIM(CONCAT_WS(' ', u.first_name, u.last_name)), '')
        FROM wallets w LEFT JOIN users u ON u.id = w.user_id`,
	touch: "updated_at",
	scan:  scanWallet,
}

var transactions = table[Transaction]{
	name:      "transactions",
	alias:     "t",
	selectSQL: `SELECT t.id, t.wallet_id, t.amount, t.direction, t.narration, t.created_at FROM transactions t`,
	scan:      scanTransaction,
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w                    Wallet
		id, ownerID          uuid.UUID
		balance              int64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &ownerID, &balance, &w.Currency, &createdAt, &updatedAt, &w.OwnerName); err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerID = ownerID.String()
	w.Balance = money.Cents(balance)
	w.CreatedAt = createdAt.UTC()
	w.UpdatedAt = updatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t            Transaction
		id, walletID uuid.UUID
		amount       int64
		direction    string
		createdAt    time.Time
	)
	if err := row.Scan(&id, &walletID, &amount, &direction, &t.Narration, &createdAt); err != nil {
		return Transaction{}, err
	}
	t.ID = id.String()
	t.WalletID = walletID.String()
	t.Amount = money.Cents(amount)
	t.Direction = Direction(direction)
	t.CreatedAt = createdAt.UTC()
	return t, nil
}

// PostgresStore keeps wallets and transactions in PostgreSQL and serialises
// balance changes with SELECT ... FOR UPDATE row locks.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed store. A positive lockTimeout
// bounds how long any statement in a scope waits for a row lock.
func NewPostgresStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: lockTimeout}
}

// Atomic runs fn inside a database transaction.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if s.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			return storageErr("set lock timeout", err)
		}
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// Wallet reads a wallet without locking it.
func (s *PostgresStore) Wallet(ctx context.Context, l Lookup) (Wallet, error) {
	return findWallet(ctx, s.db, l)
}

// Transactions lists a wallet's transactions, newest first.
func (s *PostgresStore) Transactions(ctx context.Context, walletID string, page Page) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrInvalidID
	}
	rows, err := s.db.Query(ctx, transactions.selectSQL+` WHERE t.wallet_id = $1
        ORDER BY t.created_at DESC, t.id DESC LIMIT $2 OFFSET $3`, id, page.Limit, page.Offset)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("list transactions", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return out, nil
}

// Reconcile sums a wallet's transactions against its stored balance.
func (s *PostgresStore) Reconcile(ctx context.Context, walletID string) (Reconciliation, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return Reconciliation{}, ErrInvalidID
	}
	const query = `
        SELECT w.balance,
               COALESCE(SUM(t.amount) FILTER (WHERE t.direction = 'credit'), 0),
               COALESCE(SUM(t.amount) FILTER (WHERE t.direction = 'debit'), 0),
               COUNT(t.id)
        FROM wallets w
        LEFT JOIN transactions t ON t.wallet_id = w.id
        WHERE w.id = $1
        GROUP BY w.balance`
	var balance, credits, debits, entries int64
	if err := s.db.QueryRow(ctx, query, id).Scan(&balance, &credits, &debits, &entries); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reconciliation{}, ErrNotFound
		}
		return Reconciliation{}, storageErr("reconcile", err)
	}
	return Reconciliation{
		WalletID: id.String(),
		Balance:  money.Cents(balance),
		Credits:  money.Cents(credits),
		Debits:   money.Cents(debits),
		Entries:  int(entries),
	}, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockWallet(ctx context.Context, l Lookup) (Wallet, error) {
	predicate, arg, err := walletPredicate(l)
	if err != nil {
		return Wallet{}, err
	}
	w, err := wallets.lockRowForUpdate(ctx, t.tx, predicate, arg)
	if err != nil {
		return Wallet{}, classify("lock wallet", err)
	}
	return w, nil
}

func (t *pgTx) FindWallet(ctx context.Context, l Lookup) (Wallet, error) {
	return findWallet(ctx, t.tx, l)
}

func (t *pgTx) AdjustBalance(ctx context.Context, walletID string, delta money.Cents) (money.Cents, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, ErrInvalidID
	}
	balance, err := wallets.mutate(ctx, t.tx, "balance", "w.id = $2", int64(delta), id)
	if err != nil {
		return 0, classify("adjust balance", err)
	}
	return money.Cents(balance), nil
}

func (t *pgTx) InsertWallet(ctx context.Context, w Wallet) error {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return ErrInvalidID
	}
	ownerID, err := uuid.Parse(w.OwnerID)
	if err != nil {
		return fmt.Errorf("invalid owner id %q: %w", w.OwnerID, err)
	}
	err = wallets.insert(ctx, t.tx,
		[]string{"id", "user_id", "balance", "currency", "created_at", "updated_at"},
		id, ownerID, int64(w.Balance), w.Currency, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return ErrWalletExists
			case pgForeignKeyViolation:
				return fmt.Errorf("owner %s: %w", w.OwnerID, ErrNotFound)
			}
		}
		return storageErr("insert wallet", err)
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr Transaction) error {
	id, err := uuid.Parse(tr.ID)
	if err != nil {
		return storageErr("insert transaction", err)
	}
	walletID, err := uuid.Parse(tr.WalletID)
	if err != nil {
		return ErrInvalidID
	}
	err = transactions.insert(ctx, t.tx,
		[]string{"id", "wallet_id", "amount", "direction", "narration", "created_at"},
		id, walletID, int64(tr.Amount), string(tr.Direction), tr.Narration, tr.CreatedAt,
	)
	if err != nil {
		return storageErr("insert transaction", err)
	}
	return nil
}

func findWallet(ctx context.Context, q querier, l Lookup) (Wallet, error) {
	predicate, arg, err := walletPredicate(l)
	if err != nil {
		return Wallet{}, err
	}
	w, err := wallets.find(ctx, q, predicate, arg)
	if err != nil {
		return Wallet{}, classify("find wallet", err)
	}
	return w, nil
}

func walletPredicate(l Lookup) (string, uuid.UUID, error) {
	if l.WalletID != "" {
		id, err := uuid.Parse(l.WalletID)
		if err != nil {
			return "", uuid.Nil, ErrInvalidID
		}
		return "w.id = $1", id, nil
	}
	ownerID, err := uuid.Parse(l.OwnerID)
	if err != nil {
		return "", uuid.Nil, ErrNotFound
	}
	return "w.user_id = $1", ownerID, nil
}

func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return storageErr(op, err)
}
