package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/jakovmitrovski/zkp-club-login/pkg/chain"
	"github.com/jakovmitrovski/zkp-club-login/pkg/store"
	"github.com/jakovmitrovski/zkp-club-login/pkg/zkp"
)

type ProofVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, p *zkp.Payload) (*zkp.Outcome, error)
}

type MembershipChecker interface {
	IsMember(ctx context.Context, wallet string) bool
}

type AccountStore interface {
	WalletAddressTaken(ctx context.Context, addr string) (bool, error)
	FindByWalletAddress(ctx context.Context, addr string) (*store.Account, error)
	Create(ctx context.Context, a *store.Account, inviterID int) error
	Update(ctx context.Context, a *store.Account) error
	ResolveInviterID(ctx context.Context, affCode string) (int, error)
}

// Session receives the identity of an accepted login.
type Session interface {
	Establish(a *store.Account) error
}

type Options struct {
	RegisterEnabled bool
	DefaultGroup    string
}

type Request struct {
	ProofText     string
	AffiliateCode string
}

type Result struct {
	Account         *store.Account
	TransactionHash common.Hash
}

// Orchestrator runs one login attempt from proof text to an established session.
type Orchestrator struct {
	verifier   ProofVerifier
	membership MembershipChecker
	accounts   AccountStore
	opts       Options
	log        zerolog.Logger
}

func NewOrchestrator(v ProofVerifier, m MembershipChecker, accounts AccountStore, opts Options, log zerolog.Logger) *Orchestrator {
	if opts.DefaultGroup == "" {
		opts.DefaultGroup = "vip"
	}
	return &Orchestrator{
		verifier:   v,
		membership: m,
		accounts:   accounts,
		opts:       opts,
		log:        log,
	}
}

// Enabled reports whether logins can be served at all.
func (o *Orchestrator) Enabled() bool {
	return o.verifier.Enabled()
}

// Login returns either a Result or a *Denial.
func (o *Orchestrator) Login(ctx context.Context, req Request, session Session) (*Result, error) {
	if !o.Enabled() {
		return nil, deny(ReasonFeatureDisabled, zkp.ErrConfigMissing)
	}
	if strings.TrimSpace(req.ProofText) == "" {
		return nil, deny(ReasonInvalidPayload, nil)
	}

	payload, err := zkp.ParseProof(req.ProofText)
	if err != nil {
		return nil, deny(ReasonInvalidCode, err)
	}

	outcome, err := o.verifier.Verify(ctx, payload)
	if err != nil {
		if errors.Is(err, zkp.ErrConfigMissing) || errors.Is(err, chain.ErrABI) {
			return nil, deny(ReasonFeatureDisabled, err)
		}
		o.log.Info().Err(err).Msg("proof rejected")
		return nil, deny(ReasonProofInvalid, err)
	}
	wallet := outcome.WalletAddress.Hex()
	log := o.log.With().Str("wallet", wallet).Str("tx", outcome.TransactionHash.Hex()).Logger()

	if !o.membership.IsMember(ctx, wallet) {
		log.Info().Msg("verified wallet is not a club member")
		return nil, deny(ReasonNotClubMember, nil)
	}

	account, err := o.provision(ctx, wallet, payload.HashID(), req.AffiliateCode, log)
	if err != nil {
		return nil, err
	}

	if !account.Enabled() {
		return nil, deny(ReasonAccountDisabled, nil)
	}

	if err := session.Establish(account); err != nil {
		return nil, deny(ReasonSessionError, err)
	}

	log.Info().Int("account", account.ID).Msg("login accepted")
	return &Result{Account: account, TransactionHash: outcome.TransactionHash}, nil
}

// provision refreshes the proof link of a known wallet or registers a new one.
func (o *Orchestrator) provision(ctx context.Context, wallet, hashID, affCode string, log zerolog.Logger) (*store.Account, error) {
	taken, err := o.accounts.WalletAddressTaken(ctx, wallet)
	if err != nil {
		return nil, deny(ReasonPersistError, err)
	}

	if taken {
		account, err := o.accounts.FindByWalletAddress(ctx, wallet)
		if err != nil {
			return nil, deny(ReasonPersistError, err)
		}
		if account == nil || account.ID == 0 {
			return nil, deny(ReasonAccountDeleted, nil)
		}
		account.ZkpHash = hashID
		if err := o.accounts.Update(ctx, account); err != nil {
			log.Error().Err(err).Int("account", account.ID).Msg("failed to refresh proof hash")
		}
		return account, nil
	}

	if !o.opts.RegisterEnabled {
		return nil, deny(ReasonRegistrationDisabled, nil)
	}

	name := abbreviateAddress(wallet)
	account := &store.Account{
		Username:      name,
		DisplayName:   name,
		Role:          store.RoleCommonUser,
		Status:        store.UserStatusEnabled,
		Group:         o.opts.DefaultGroup,
		WalletAddress: wallet,
		ZkpHash:       hashID,
	}

	inviterID := 0
	if affCode != "" {
		if id, err := o.accounts.ResolveInviterID(ctx, affCode); err == nil {
			inviterID = id
		}
	}

	if err := o.accounts.Create(ctx, account, inviterID); err != nil {
		return nil, deny(ReasonPersistError, err)
	}
	log.Info().Int("account", account.ID).Int("inviter", inviterID).Msg("account registered")
	return account, nil
}

func abbreviateAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
