package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	id := uuid.NewString()
	require.NoError(t, repo.Add(User{ID: id, Email: "ada@example.com", FirstName: "Ada ", LastName: "Obi"}))

	name, err := svc.DisplayName(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", name)

	_, err = svc.DisplayName(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLinkWallet(t *testing.T) {
	repo := NewMemoryRepository()
	id := uuid.NewString()
	require.NoError(t, repo.Add(User{ID: id, FirstName: "Ada"}))

	walletID := uuid.NewString()
	require.NoError(t, repo.LinkWallet(id, walletID))

	user, err := NewService(repo).FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, walletID, user.WalletID)
	assert.Equal(t, "Ada", user.FullName())

	assert.ErrorIs(t, repo.LinkWallet(uuid.NewString(), walletID), ErrUserNotFound)
	assert.Error(t, repo.Add(User{}))
}
