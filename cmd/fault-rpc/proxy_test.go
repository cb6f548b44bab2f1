package main

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/iotest"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

var wallet = common.HexToAddress("0xAAAA00000000000000000000000000000000123A")

// newUpstream answers every eth_call with a valid verifyProof result.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	verifierABI, err := chain.VerifierMetaData.GetAbi()
	require.NoError(t, err)
	result, err := verifierABI.Methods[chain.MethodVerifyProof].Outputs.Pack(wallet, true)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  hexutil.Encode(result),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func simulate(t *testing.T, client *chain.Client) (common.Address, bool, error) {
	t.Helper()
	verifierABI, _, err := client.ABIs()
	require.NoError(t, err)
	one := big.NewInt(1)
	data, err := verifierABI.Pack(chain.MethodVerifyProof,
		[2]*big.Int{one, one}, [2][2]*big.Int{{one, one}, {one, one}}, [2]*big.Int{one, one}, [1]*big.Int{one})
	require.NoError(t, err)

	to := client.Config().VerifierAddress
	out, err := client.Call(context.Background(), ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return common.Address{}, false, err
	}
	vals, err := verifierABI.Unpack(chain.MethodVerifyProof, out)
	require.NoError(t, err)
	return vals[0].(common.Address), vals[1].(bool), nil
}

func newClient(url string, timeout time.Duration) *chain.Client {
	return chain.NewClient(chain.Config{
		RPCURL:            url,
		ChainID:           big.NewInt(8453),
		VerifierAddress:   common.HexToAddress("0x7587CA385f1e10c411638003dA0f1bd3C99b919e"),
		MembershipAddress: common.HexToAddress("0x2A152405afB201258D66919570BbD4625455a65f"),
		CallTimeout:       timeout,
	})
}

func TestSelectorMatchesABI(t *testing.T) {
	verifierABI, err := chain.VerifierMetaData.GetAbi()
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(verifierABI.Methods[chain.MethodVerifyProof].ID), verifyProofSelector)
}

func TestInvalidatesEveryNthVerifyCall(t *testing.T) {
	upstream := newUpstream(t)
	proxy := httptest.NewServer(NewFaultyNode(upstream.URL, 2, 0, zerolog.Nop()))
	defer proxy.Close()
	client := newClient(proxy.URL, 5*time.Second)

	want := []bool{true, false, true, false}
	for i, valid := range want {
		addr, got, err := simulate(t, client)
		require.NoError(t, err)
		assert.Equal(t, valid, got, "call %d", i+1)
		if valid {
			assert.Equal(t, wallet, addr)
		} else {
			assert.Equal(t, common.Address{}, addr)
		}
	}
}

func TestPassThroughWhenDisabled(t *testing.T) {
	upstream := newUpstream(t)
	proxy := httptest.NewServer(NewFaultyNode(upstream.URL, 0, 0, zerolog.Nop()))
	defer proxy.Close()
	client := newClient(proxy.URL, 5*time.Second)

	for i := 0; i < 3; i++ {
		_, valid, err := simulate(t, client)
		require.NoError(t, err)
		assert.True(t, valid)
	}
}

func TestDelayTriggersClientTimeout(t *testing.T) {
	upstream := newUpstream(t)
	proxy := httptest.NewServer(NewFaultyNode(upstream.URL, 0, time.Second, zerolog.Nop()))
	defer proxy.Close()
	client := newClient(proxy.URL, 50*time.Millisecond)

	_, _, err := simulate(t, client)
	assert.ErrorIs(t, err, chain.ErrTimeout)
}

func TestIsVerifyProofCall(t *testing.T) {
	raw := func(s string) json.RawMessage { return json.RawMessage(s) }
	assert.True(t, isVerifyProofCall(rpcRequest{Method: "eth_call", Params: []json.RawMessage{raw(`{"input":"` + verifyProofSelector + `00"}`)}}))
	assert.True(t, isVerifyProofCall(rpcRequest{Method: "eth_call", Params: []json.RawMessage{raw(`{"data":"` + verifyProofSelector + `"}`)}}))
	assert.False(t, isVerifyProofCall(rpcRequest{Method: "eth_call", Params: []json.RawMessage{raw(`{"data":"0xdeadbeef"}`)}}))
	assert.False(t, isVerifyProofCall(rpcRequest{Method: "eth_sendRawTransaction", Params: []json.RawMessage{raw(`"0x00"`)}}))
	assert.False(t, isVerifyProofCall(rpcRequest{Method: "eth_call"}))
}

func TestRejectsUnreadableBody(t *testing.T) {
	upstream := newUpstream(t)
	node := NewFaultyNode(upstream.URL, 1, 0, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/", iotest.ErrReader(errors.New("connection reset")))
	w := httptest.NewRecorder()
	node.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "connection reset")
}
