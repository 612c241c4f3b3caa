package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when no account matches the identifier.
var ErrUserNotFound = errors.New("user not found")

// Repository reads account holders.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByID fetches a user together with the id of their wallet, if any.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrUserNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT u.id, u.email, u.first_name, u.last_name, w.id, u.created_at
        FROM users u LEFT JOIN wallets w ON w.user_id = u.id
        WHERE u.id = $1`, userID)
	var (
		uid       uuid.UUID
		walletID  *uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&uid, &user.Email, &user.FirstName, &user.LastName, &walletID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.ID = uid.String()
	if walletID != nil {
		user.WalletID = walletID.String()
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
