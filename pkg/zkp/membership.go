package zkp

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
)

var ErrInvalidAddress = errors.New("invalid wallet address")

// MembershipStatus holds the tier flags of one wallet in one club.
type MembershipStatus struct {
	IsPermanent  bool
	IsTemporary  bool
	IsTokenBased bool
	IsCrossChain bool
}

// IsMember is true when any tier grants membership.
func (m MembershipStatus) IsMember() bool {
	return m.IsPermanent || m.IsTemporary || m.IsTokenBased || m.IsCrossChain
}

type MembershipGate struct {
	chain *chain.Client
	club  string
	gate  Gate[*MembershipStatus]
}

// NewMembershipGate creates a gate that admits members of club.
func NewMembershipGate(client *chain.Client, club string, log zerolog.Logger) *MembershipGate {
	m := &MembershipGate{chain: client, club: club}
	m.gate = Gate[*MembershipStatus]{
		Name: "club-membership",
		Query: func(ctx context.Context, wallet string) (*MembershipStatus, error) {
			return m.Check(ctx, wallet, m.club)
		},
		Allow: func(st *MembershipStatus) bool { return st.IsMember() },
		Log:   log,
	}
	return m
}

func (m *MembershipGate) Club() string {
	return m.club
}

// Check queries the detailed membership flags of wallet in club.
func (m *MembershipGate) Check(ctx context.Context, wallet, club string) (*MembershipStatus, error) {
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, wallet)
	}
	_, membershipABI, err := m.chain.ABIs()
	if err != nil {
		return nil, err
	}
	data, err := membershipABI.Pack(chain.MethodCheckDetailedMembership, common.HexToAddress(wallet), club)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPack, err)
	}

	to := m.chain.Config().MembershipAddress
	result, err := m.chain.Call(ctx, ethereum.CallMsg{To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("checkDetailedMembership call failed: %w", err)
	}

	outputs, err := membershipABI.Unpack(chain.MethodCheckDetailedMembership, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack checkDetailedMembership result: %w", err)
	}
	if len(outputs) != 4 {
		return nil, fmt.Errorf("unexpected output length %d from checkDetailedMembership", len(outputs))
	}
	flags := make([]bool, 4)
	for i, out := range outputs {
		b, ok := out.(bool)
		if !ok {
			return nil, fmt.Errorf("unexpected output type %T at %d from checkDetailedMembership", out, i)
		}
		flags[i] = b
	}

	return &MembershipStatus{
		IsPermanent:  flags[0],
		IsTemporary:  flags[1],
		IsTokenBased: flags[2],
		IsCrossChain: flags[3],
	}, nil
}

// IsMember reports whether wallet belongs to the configured club. The empty
// address is always admitted; query failures never are.
func (m *MembershipGate) IsMember(ctx context.Context, wallet string) bool {
	return m.gate.Check(ctx, wallet)
}
