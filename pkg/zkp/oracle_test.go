package zkp_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
	"github.com/jakovmitrovski/zkp-club-login/pkg/chain/chaintest"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

func TestHashKeyPadsBigEndian(t *testing.T) {
	key, err := zkp.HashKey("258")
	require.NoError(t, err)
	var want [32]byte
	want[30], want[31] = 1, 2
	assert.Equal(t, want, key)

	max := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	_, err = zkp.HashKey(max)
	assert.NoError(t, err)

	padded, err := zkp.HashKey("00258")
	require.NoError(t, err)
	assert.Equal(t, key, padded)

	for _, bad := range []string{"", "abc", "0x10", "-1", "+5", "+0", "-0", max + "0", "115792089237316195423570985008687907853269984665640564039457584007913129639936"} {
		_, err := zkp.HashKey(bad)
		assert.ErrorIs(t, err, zkp.ErrInvalidHash, "input %q", bad)
	}
}

func TestHashStatus(t *testing.T) {
	client, backend := chaintest.NewClient()
	key, _ := zkp.HashKey("9")
	deployer := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	backend.SetHash(key, chaintest.HashRecord{Active: true, Deployer: deployer, Exists: true})
	checker := zkp.NewStatusChecker(client, zerolog.Nop())

	st, err := checker.Status(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, &zkp.HashStatus{IsActive: true, Deployer: deployer, Exists: true}, st)
	assert.True(t, checker.IsValid(context.Background(), "9"))
}

func TestHashIsValidPolicy(t *testing.T) {
	tests := []struct {
		name string
		rec  chaintest.HashRecord
		want bool
	}{
		{"active", chaintest.HashRecord{Active: true, Exists: true}, true},
		{"revoked", chaintest.HashRecord{Active: false, Exists: true}, false},
		{"unknown", chaintest.HashRecord{}, false},
		{"active but missing", chaintest.HashRecord{Active: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend := chaintest.NewClient()
			key, _ := zkp.HashKey("42")
			backend.SetHash(key, tt.rec)
			checker := zkp.NewStatusChecker(client, zerolog.Nop())
			assert.Equal(t, tt.want, checker.IsValid(context.Background(), "42"))
		})
	}
}

func TestHashIsValidFailsClosed(t *testing.T) {
	client, backend := chaintest.NewClient()
	key, _ := zkp.HashKey("42")
	backend.SetHash(key, chaintest.HashRecord{Active: true, Exists: true})
	var logs bytes.Buffer
	checker := zkp.NewStatusChecker(client, zerolog.New(&logs))

	assert.True(t, checker.IsValid(context.Background(), ""), "empty hash is always valid")
	assert.Zero(t, backend.Calls(chain.MethodGetHashStatus))

	assert.False(t, checker.IsValid(context.Background(), "not-a-number"))

	backend.Fail(chain.MethodGetHashStatus, errors.New("execution reverted"))
	assert.False(t, checker.IsValid(context.Background(), "42"))
	assert.Contains(t, logs.String(), "denying")

	backend.Fail(chain.MethodGetHashStatus, nil)
	backend.SetDelay(time.Hour)
	cfg := chaintest.Config()
	cfg.CallTimeout = 10 * time.Millisecond
	slow := zkp.NewStatusChecker(chain.NewClientWithBackend(cfg, backend), zerolog.Nop())
	assert.False(t, slow.IsValid(context.Background(), "42"))
}

func TestMembershipCheck(t *testing.T) {
	client, backend := chaintest.NewClient()
	backend.SetMembership(wallet, "ai", chaintest.Membership{TokenBased: true})
	backend.SetMembership(wallet, "defi", chaintest.Membership{Permanent: true, CrossChain: true})
	gate := zkp.NewMembershipGate(client, "ai", zerolog.Nop())

	st, err := gate.Check(context.Background(), wallet.Hex(), "ai")
	require.NoError(t, err)
	assert.Equal(t, zkp.MembershipStatus{IsTokenBased: true}, *st)
	assert.True(t, st.IsMember())

	st, err = gate.Check(context.Background(), wallet.Hex(), "defi")
	require.NoError(t, err)
	assert.True(t, st.IsPermanent)
	assert.True(t, st.IsCrossChain)
	assert.False(t, st.IsTemporary)

	_, err = gate.Check(context.Background(), "0x1234", "ai")
	assert.ErrorIs(t, err, zkp.ErrInvalidAddress)
}

func TestIsMemberPolicy(t *testing.T) {
	tests := []struct {
		name string
		m    chaintest.Membership
		want bool
	}{
		{"none", chaintest.Membership{}, false},
		{"permanent", chaintest.Membership{Permanent: true}, true},
		{"temporary", chaintest.Membership{Temporary: true}, true},
		{"token based", chaintest.Membership{TokenBased: true}, true},
		{"cross chain", chaintest.Membership{CrossChain: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend := chaintest.NewClient()
			backend.SetMembership(wallet, "ai", tt.m)
			gate := zkp.NewMembershipGate(client, "ai", zerolog.Nop())
			assert.Equal(t, tt.want, gate.IsMember(context.Background(), wallet.Hex()))
			// Lower-case addresses resolve to the same member.
			assert.Equal(t, tt.want, gate.IsMember(context.Background(), common.Bytes2Hex(wallet.Bytes())))
		})
	}
}

func TestIsMemberFailsClosed(t *testing.T) {
	client, backend := chaintest.NewClient()
	backend.SetMembership(wallet, "ai", chaintest.Membership{Permanent: true})
	gate := zkp.NewMembershipGate(client, "ai", zerolog.Nop())

	assert.True(t, gate.IsMember(context.Background(), ""))
	assert.Zero(t, backend.Calls(chain.MethodCheckDetailedMembership))

	assert.False(t, gate.IsMember(context.Background(), "not an address"))

	backend.Fail(chain.MethodCheckDetailedMembership, errors.New("header not found"))
	assert.False(t, gate.IsMember(context.Background(), wallet.Hex()))
}

func TestGateCheck(t *testing.T) {
	calls := 0
	g := zkp.Gate[int]{
		Name: "test",
		Query: func(_ context.Context, key string) (int, error) {
			calls++
			if key == "err" {
				return 1, errors.New("oracle down")
			}
			return len(key), nil
		},
		Allow: func(n int) bool { return n > 2 },
		Log:   zerolog.Nop(),
	}

	assert.True(t, g.Check(context.Background(), ""))
	assert.Equal(t, 0, calls)
	assert.True(t, g.Check(context.Background(), "long"))
	assert.False(t, g.Check(context.Background(), "ab"))
	assert.False(t, g.Check(context.Background(), "err"))
	assert.Equal(t, 3, calls)
}
