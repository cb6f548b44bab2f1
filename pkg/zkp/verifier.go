package zkp

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

var (
	ErrConfigMissing    = errors.New("proof signing key not configured")
	ErrPack             = errors.New("failed to pack contract arguments")
	ErrSimulationFailed = errors.New("verifyProof simulation failed")
	ErrProofInvalid     = errors.New("proof verification failed")
	ErrSubmitFailed     = errors.New("failed to submit verification transaction")
)

// Outcome is the result of a committed proof verification. WalletAddress
// comes from the simulation; TransactionHash is the committed record.
type Outcome struct {
	WalletAddress   common.Address
	TransactionHash common.Hash
}

// Verifier checks proofs against the verifier contract and records them on
// chain with the service's own key.
type Verifier struct {
	chain     *chain.Client
	submitter *Submitter
	log       zerolog.Logger
}

// ParseSigningKey decodes a hex private key, with or without 0x prefix.
func ParseSigningKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// NewVerifier builds a verifier. An empty signingKey yields a disabled
// verifier whose Verify always fails with ErrConfigMissing.
func NewVerifier(client *chain.Client, signingKey string, log zerolog.Logger) (*Verifier, error) {
	v := &Verifier{chain: client, log: log}
	if signingKey == "" {
		return v, nil
	}
	key, err := ParseSigningKey(signingKey)
	if err != nil {
		return nil, err
	}
	if v.submitter, err = NewSubmitter(client, key); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Verifier) Enabled() bool {
	return v.submitter != nil
}

// Verify simulates verifyProof and, only if the contract accepts the proof,
// commits the same call as a transaction. On ErrSubmitFailed the returned
// Outcome still carries the wallet address.
func (v *Verifier) Verify(ctx context.Context, p *Payload) (*Outcome, error) {
	if !v.Enabled() {
		return nil, ErrConfigMissing
	}
	if _, err := v.chain.Backend(ctx); err != nil {
		return nil, err
	}
	verifierABI, _, err := v.chain.ABIs()
	if err != nil {
		return nil, err
	}

	data, err := verifierABI.Pack(chain.MethodVerifyProof, p.A, p.B, p.C, p.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPack, err)
	}

	to := v.chain.Config().VerifierAddress
	result, err := v.chain.Call(ctx, ethereum.CallMsg{
		From: v.submitter.From(),
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSimulationFailed, err)
	}

	wallet, err := decodeVerifyResult(verifierABI.Unpack(chain.MethodVerifyProof, result))
	if err != nil {
		return nil, err
	}

	tx, err := v.submitter.Submit(ctx, to, data)
	if err != nil {
		return &Outcome{WalletAddress: wallet}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	v.log.Info().
		Str("wallet", wallet.Hex()).
		Str("tx", tx.Hash().Hex()).
		Uint64("nonce", tx.Nonce()).
		Msg("proof verified and recorded")
	return &Outcome{WalletAddress: wallet, TransactionHash: tx.Hash()}, nil
}

func decodeVerifyResult(outputs []interface{}, err error) (common.Address, error) {
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: failed to unpack result: %w", ErrProofInvalid, err)
	}
	if len(outputs) != 2 {
		return common.Address{}, fmt.Errorf("%w: unexpected output length %d", ErrProofInvalid, len(outputs))
	}
	deployer, ok := outputs[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: failed to parse hashDeployer", ErrProofInvalid)
	}
	valid, ok := outputs[1].(bool)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: failed to parse isValid", ErrProofInvalid)
	}
	if !valid {
		return common.Address{}, ErrProofInvalid
	}
	return deployer, nil
}
