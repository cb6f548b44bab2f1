// Package chaintest provides an in-memory stand-in for the verifier and
// membership contracts. It decodes real ABI call data and answers with real
// ABI-encoded return data.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

// Pseudo method names for the non-contract backend calls, usable with Fail.
const (
	OpPendingNonce      = "pendingNonce"
	OpGasPrice          = "gasPrice"
	OpSend              = "sendTransaction"
	OpTransactionByHash = "transactionByHash"
)

var (
	VerifierAddress   = common.HexToAddress("0x7587CA385f1e10c411638003dA0f1bd3C99b919e")
	MembershipAddress = common.HexToAddress("0x2A152405afB201258D66919570BbD4625455a65f")
	ChainID           = big.NewInt(8453)
)

type HashRecord struct {
	Active   bool
	Deployer common.Address
	Exists   bool
}

type Membership struct {
	Permanent  bool
	Temporary  bool
	TokenBased bool
	CrossChain bool
}

type Backend struct {
	mu sync.Mutex

	verifier   *abi.ABI
	membership *abi.ABI

	deployer common.Address
	valid    bool
	hashes   map[[32]byte]HashRecord
	members  map[string]Membership
	failures map[string]error
	delay    time.Duration
	nonce    uint64
	gasPrice *big.Int

	sent        []*types.Transaction
	pool        map[common.Hash]*types.Transaction
	calls       map[string]int
	verifyCalls [][]interface{}
}

func NewBackend() *Backend {
	verifier, err := chain.VerifierMetaData.GetAbi()
	if err != nil {
		panic(err)
	}
	membership, err := chain.MembershipMetaData.GetAbi()
	if err != nil {
		panic(err)
	}
	return &Backend{
		verifier:   verifier,
		membership: membership,
		hashes:     make(map[[32]byte]HashRecord),
		members:    make(map[string]Membership),
		failures:   make(map[string]error),
		gasPrice:   big.NewInt(1_000_000_000),
		calls:      make(map[string]int),
		pool:       make(map[common.Hash]*types.Transaction),
	}
}

// Config returns a chain.Config pointing at the fake contract addresses.
func Config() chain.Config {
	return chain.Config{
		RPCURL:            "memory://chaintest",
		ChainID:           ChainID,
		VerifierAddress:   VerifierAddress,
		MembershipAddress: MembershipAddress,
		CallTimeout:       time.Second,
	}
}

// NewClient returns a chain client wired to a fresh backend.
func NewClient() (*chain.Client, *Backend) {
	b := NewBackend()
	return chain.NewClientWithBackend(Config(), b), b
}

// SetProofResult sets what verifyProof returns for any proof.
func (b *Backend) SetProofResult(deployer common.Address, valid bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deployer, b.valid = deployer, valid
}

func (b *Backend) SetHash(hash [32]byte, rec HashRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hashes[hash] = rec
}

func (b *Backend) SetMembership(member common.Address, club string, m Membership) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members[memberKey(member, club)] = m
}

// Fail makes every later call of the named contract method or Op* return err.
// A nil err clears the failure.
func (b *Backend) Fail(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, method)
		return
	}
	b.failures[method] = err
}

// SetDelay delays every call; calls whose context expires first return its error.
func (b *Backend) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// VerifyArgs returns the decoded arguments of every verifyProof call seen.
func (b *Backend) VerifyArgs() [][]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]interface{}(nil), b.verifyCalls...)
}

func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}

	var contract *abi.ABI
	switch *msg.To {
	case VerifierAddress:
		contract = b.verifier
	case MembershipAddress:
		contract = b.membership
	default:
		return nil, nil
	}
	method, err := contract.MethodById(msg.Data[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("execution reverted: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[method.Name]++
	if err := b.failures[method.Name]; err != nil {
		return nil, err
	}

	switch method.Name {
	case chain.MethodVerifyProof:
		b.verifyCalls = append(b.verifyCalls, args)
		return method.Outputs.Pack(b.deployer, b.valid)
	case chain.MethodGetHashStatus:
		rec := b.hashes[args[0].([32]byte)]
		return method.Outputs.Pack(rec.Active, rec.Deployer, rec.Exists)
	case chain.MethodCheckDetailedMembership:
		m := b.members[memberKey(args[0].(common.Address), args[1].(string))]
		return method.Outputs.Pack(m.Permanent, m.Temporary, m.TokenBased, m.CrossChain)
	}
	return nil, fmt.Errorf("execution reverted: unexpected method %s", method.Name)
}

func (b *Backend) PendingNonceAt(ctx context.Context, _ common.Address) (uint64, error) {
	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[OpPendingNonce]++
	if err := b.failures[OpPendingNonce]; err != nil {
		return 0, err
	}
	return b.nonce, nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[OpGasPrice]++
	if err := b.failures[OpGasPrice]; err != nil {
		return nil, err
	}
	return new(big.Int).Set(b.gasPrice), nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[OpSend]++
	if err := b.failures[OpSend]; err != nil {
		return err
	}
	if tx.Nonce() < b.nonce {
		return errors.New("nonce too low")
	}
	b.sent = append(b.sent, tx)
	b.pool[tx.Hash()] = tx
	b.nonce = tx.Nonce() + 1
	return nil
}

func (b *Backend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if err := b.wait(ctx); err != nil {
		return nil, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[OpTransactionByHash]++
	if err := b.failures[OpTransactionByHash]; err != nil {
		return nil, false, err
	}
	tx, ok := b.pool[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, true, nil
}

// Evict drops every pooled transaction as a node would on restart or pool
// overflow. The pending nonce falls back to the lowest evicted nonce.
func (b *Backend) Evict() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for hash, tx := range b.pool {
		if tx.Nonce() < b.nonce {
			b.nonce = tx.Nonce()
		}
		delete(b.pool, hash)
	}
}

func (b *Backend) wait(ctx context.Context) error {
	b.mu.Lock()
	delay := b.delay
	b.mu.Unlock()
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func memberKey(member common.Address, club string) string {
	return strings.ToLower(member.Hex()) + "/" + club
}
