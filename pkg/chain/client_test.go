package chain_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
	"github.com/jakovmitrovski/zkp-club-login/pkg/chain/chaintest"
)

func TestABIsParseBothContracts(t *testing.T) {
	client, _ := chaintest.NewClient()

	verifier, membership, err := client.ABIs()
	require.NoError(t, err)
	assert.Contains(t, verifier.Methods, chain.MethodVerifyProof)
	assert.Contains(t, verifier.Methods, chain.MethodGetHashStatus)
	assert.Contains(t, membership.Methods, chain.MethodCheckDetailedMembership)

	again, _, err := client.ABIs()
	require.NoError(t, err)
	assert.Same(t, verifier, again)
}

func TestCallTimesOut(t *testing.T) {
	cfg := chaintest.Config()
	cfg.CallTimeout = 20 * time.Millisecond
	backend := chaintest.NewBackend()
	backend.SetDelay(time.Second)
	client := chain.NewClientWithBackend(cfg, backend)

	to := chaintest.MembershipAddress
	_, err := client.Call(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{1, 2, 3, 4}})
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrTimeout)

	_, err = client.GasPrice(context.Background())
	assert.ErrorIs(t, err, chain.ErrTimeout)
}

func TestCallRevertIsNotTimeout(t *testing.T) {
	client, _ := chaintest.NewClient()

	to := chaintest.VerifierAddress
	_, err := client.Call(context.Background(), ethereum.CallMsg{To: &to, Data: []byte{0xde, 0xad, 0xbe, 0xef}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, chain.ErrTimeout)
}

func TestDefaultCallTimeout(t *testing.T) {
	client := chain.NewClientWithBackend(chain.Config{}, chaintest.NewBackend())
	assert.Equal(t, chain.DefaultCallTimeout, client.Config().CallTimeout)
}

func TestConnectFailureIsCached(t *testing.T) {
	// An unsupported scheme fails inside the dial itself.
	client := chain.NewClient(chain.Config{RPCURL: "bogus://node", VerifierAddress: common.Address{1}})

	err := client.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrConnect)

	_, again := client.Backend(context.Background())
	assert.Same(t, err, again)
	assert.False(t, client.Ready(context.Background()))
}

func TestTransactionKnown(t *testing.T) {
	client, backend := chaintest.NewClient()
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000})
	require.NoError(t, client.Send(context.Background(), tx))

	known, err := client.TransactionKnown(context.Background(), tx.Hash())
	require.NoError(t, err)
	assert.True(t, known)

	backend.Evict()
	known, err = client.TransactionKnown(context.Background(), tx.Hash())
	require.NoError(t, err)
	assert.False(t, known)

	backend.Fail(chaintest.OpTransactionByHash, errors.New("connection reset"))
	_, err = client.TransactionKnown(context.Background(), tx.Hash())
	assert.Error(t, err)
}
