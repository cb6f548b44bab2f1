package zkp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

var ErrInvalidHash = errors.New("invalid proof hash identifier")

// HashStatus is a point-in-time snapshot of a verified proof's on-chain record.
type HashStatus struct {
	IsActive bool
	Deployer common.Address
	Exists   bool
}

// StatusChecker re-queries the verifier contract for previously verified proofs.
type StatusChecker struct {
	chain *chain.Client
	gate  Gate[*HashStatus]
}

func NewStatusChecker(client *chain.Client, log zerolog.Logger) *StatusChecker {
	s := &StatusChecker{chain: client}
	s.gate = Gate[*HashStatus]{
		Name:  "proof-status",
		Query: s.Status,
		Allow: func(st *HashStatus) bool { return st.Exists && st.IsActive },
		Log:   log,
	}
	return s
}

// HashKey converts an unsigned decimal hash identifier to its bytes32 form.
// Leading zeros are accepted, a sign is not.
func HashKey(hashID string) ([32]byte, error) {
	if strings.HasPrefix(hashID, "+") || strings.HasPrefix(hashID, "-") {
		return [32]byte{}, fmt.Errorf("%w: %q: signed value", ErrInvalidHash, hashID)
	}
	v, err := uint256.FromDecimal(hashID)
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %q: %w", ErrInvalidHash, hashID, err)
	}
	return v.Bytes32(), nil
}

// Status fetches the on-chain record for hashID.
func (s *StatusChecker) Status(ctx context.Context, hashID string) (*HashStatus, error) {
	key, err := HashKey(hashID)
	if err != nil {
		return nil, err
	}
	verifierABI, _, err := s.chain.ABIs()
	if err != nil {
		return nil, err
	}
	data, err := verifierABI.Pack(chain.MethodGetHashStatus, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPack, err)
	}

	to := s.chain.Config().VerifierAddress
	result, err := s.chain.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("getHashStatus call failed: %w", err)
	}

	outputs, err := verifierABI.Unpack(chain.MethodGetHashStatus, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getHashStatus result: %w", err)
	}
	if len(outputs) != 3 {
		return nil, fmt.Errorf("unexpected output length %d from getHashStatus", len(outputs))
	}
	isActive, ok1 := outputs[0].(bool)
	deployer, ok2 := outputs[1].(common.Address)
	exists, ok3 := outputs[2].(bool)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("unexpected output types from getHashStatus")
	}

	return &HashStatus{IsActive: isActive, Deployer: deployer, Exists: exists}, nil
}

// IsValid reports whether hashID still refers to an existing, active proof.
// The empty identifier is always valid; query failures are never valid.
func (s *StatusChecker) IsValid(ctx context.Context, hashID string) bool {
	return s.gate.Check(ctx, hashID)
}
