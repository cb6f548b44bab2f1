package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/zkp-club-login/pkg/store"
)

const addr = "0xAAAA00000000000000000000000000000000123A"

func newStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	s, err := store.New(db)
	require.NoError(t, err)
	return s
}

func newAccount(wallet string) *store.Account {
	return &store.Account{
		Username:      "user",
		DisplayName:   "user",
		Role:          store.RoleCommonUser,
		Status:        store.UserStatusEnabled,
		Group:         "vip",
		WalletAddress: wallet,
		ZkpHash:       "9",
	}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	taken, err := s.WalletAddressTaken(ctx, addr)
	require.NoError(t, err)
	assert.False(t, taken)

	a := newAccount(strings.ToLower(addr))
	require.NoError(t, s.Create(ctx, a, 0))
	assert.NotZero(t, a.ID)
	assert.NotEmpty(t, a.AffCode)
	assert.Equal(t, store.NormalizeAddress(addr), a.WalletAddress)

	taken, err = s.WalletAddressTaken(ctx, addr)
	require.NoError(t, err)
	assert.True(t, taken)

	found, err := s.FindByWalletAddress(ctx, strings.ToLower(addr))
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)
	assert.Equal(t, "vip", found.Group)
	assert.Equal(t, "9", found.ZkpHash)
	assert.True(t, found.Enabled())

	byID, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.WalletAddress, byID.WalletAddress)

	_, err = s.FindByID(ctx, a.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindUnknownYieldsZeroRecord(t *testing.T) {
	s := newStore(t)
	a, err := s.FindByWalletAddress(context.Background(), addr)
	require.NoError(t, err)
	assert.Zero(t, a.ID)
}

func TestDeletedAccountIsTakenButNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := newAccount(addr)
	require.NoError(t, s.Create(ctx, a, 0))
	require.NoError(t, s.Delete(ctx, a.ID))

	taken, err := s.WalletAddressTaken(ctx, addr)
	require.NoError(t, err)
	assert.True(t, taken)

	found, err := s.FindByWalletAddress(ctx, addr)
	require.NoError(t, err)
	assert.Zero(t, found.ID)
}

func TestUpdateRefreshesHashAndStatus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	a := newAccount(addr)
	require.NoError(t, s.Create(ctx, a, 0))

	a.ZkpHash = "12345"
	a.Status = store.UserStatusDisabled
	require.NoError(t, s.Update(ctx, a))

	found, err := s.FindByWalletAddress(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "12345", found.ZkpHash)
	assert.False(t, found.Enabled())

	assert.ErrorIs(t, s.Update(ctx, &store.Account{}), store.ErrNotFound)
}

func TestCreateCreditsInviter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	inviter := newAccount(addr)
	require.NoError(t, s.Create(ctx, inviter, 0))

	id, err := s.ResolveInviterID(ctx, inviter.AffCode)
	require.NoError(t, err)
	assert.Equal(t, inviter.ID, id)

	_, err = s.ResolveInviterID(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	invitee := newAccount("0xBBBB00000000000000000000000000000000456B")
	require.NoError(t, s.Create(ctx, invitee, id))
	assert.Equal(t, id, invitee.InviterID)
	assert.NotEqual(t, inviter.AffCode, invitee.AffCode)

	reloaded, err := s.FindByID(ctx, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.AffCount)
}

func TestOpenPicksDriver(t *testing.T) {
	// Only the SQLite path is exercised without a server; a Postgres DSN must
	// not be handed to SQLite.
	_, err := store.Open("host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1")
	assert.Error(t, err)
}
