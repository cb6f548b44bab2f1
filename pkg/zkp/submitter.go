package zkp

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

// GasLimit caps every verification transaction.
const GasLimit uint64 = 300_000

// Submitter signs and broadcasts transactions for one service key. Submissions
// are serialized so that a single process never races itself for a nonce.
type Submitter struct {
	chain *chain.Client
	opts  *bind.TransactOpts

	mu        sync.Mutex
	lastNonce uint64
	lastHash  common.Hash
	submitted bool
}

func NewSubmitter(client *chain.Client, key *ecdsa.PrivateKey) (*Submitter, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, client.Config().ChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	return &Submitter{chain: client, opts: opts}, nil
}

// From is the address transactions are sent from.
func (s *Submitter) From() common.Address {
	return s.opts.From
}

// Submit sends a legacy transaction calling to with data.
func (s *Submitter) Submit(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.chain.PendingNonce(ctx, s.opts.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	if s.submitted && nonce <= s.lastNonce {
		nonce = s.nextNonce(ctx, nonce)
	}

	gasPrice, err := s.chain.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      GasLimit,
		To:       &to,
		Data:     data,
	})
	signed, err := s.opts.Signer(s.opts.From, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := s.chain.Send(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.lastNonce, s.lastHash, s.submitted = nonce, signed.Hash(), true
	return signed, nil
}

// nextNonce resolves a pending nonce that does not account for our previous
// transaction. If the node still knows that transaction it is lagging and the
// nonce after it is used; if the node dropped it, its nonce is free again.
func (s *Submitter) nextNonce(ctx context.Context, pending uint64) uint64 {
	known, err := s.chain.TransactionKnown(ctx, s.lastHash)
	if err != nil || known {
		return s.lastNonce + 1
	}
	return pending
}
