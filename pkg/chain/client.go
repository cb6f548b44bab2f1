package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultCallTimeout bounds every remote call issued through a Client.
const DefaultCallTimeout = 30 * time.Second

var (
	ErrConnect = errors.New("failed to connect to chain node")
	ErrABI     = errors.New("failed to parse contract ABI")
	ErrTimeout = errors.New("chain call timed out")
)

// Backend is the subset of the node API the login flow needs. *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

type Config struct {
	RPCURL            string
	ChainID           *big.Int
	VerifierAddress   common.Address
	MembershipAddress common.Address
	CallTimeout       time.Duration
}

// Client owns the node connection and the parsed contract interfaces for the
// lifetime of the process. Both are initialized at most once; failures are
// cached and returned to every later caller.
type Client struct {
	cfg  Config
	dial func(ctx context.Context, url string) (Backend, error)

	connectOnce sync.Once
	backend     Backend
	connectErr  error

	abiOnce        sync.Once
	verifierMeta   *bind.MetaData
	membershipMeta *bind.MetaData
	verifierABI    *abi.ABI
	membershipABI  *abi.ABI
	abiErr         error
}

// NewClient creates a client that dials cfg.RPCURL on first use.
func NewClient(cfg Config) *Client {
	return newClient(cfg, func(ctx context.Context, url string) (Backend, error) {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// NewClientWithBackend creates a client over an already connected backend.
func NewClientWithBackend(cfg Config, backend Backend) *Client {
	return newClient(cfg, func(context.Context, string) (Backend, error) {
		return backend, nil
	})
}

func newClient(cfg Config, dial func(ctx context.Context, url string) (Backend, error)) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.ChainID == nil {
		cfg.ChainID = new(big.Int)
	}
	return &Client{
		cfg:            cfg,
		dial:           dial,
		verifierMeta:   VerifierMetaData,
		membershipMeta: MembershipMetaData,
	}
}

func (c *Client) Config() Config {
	return c.cfg
}

// Connect runs the one-time initialization eagerly. Callers that skip it get
// the same initialization lazily on their first remote call.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.Backend(ctx); err != nil {
		return err
	}
	_, _, err := c.ABIs()
	return err
}

// Ready reports whether initialization has happened and succeeded.
func (c *Client) Ready(ctx context.Context) bool {
	return c.Connect(ctx) == nil
}

// Backend returns the shared node connection, dialing it on first call.
func (c *Client) Backend(ctx context.Context) (Backend, error) {
	c.connectOnce.Do(func() {
		dialCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()
		backend, err := c.dial(dialCtx, c.cfg.RPCURL)
		if err != nil {
			c.connectErr = fmt.Errorf("%w: %w", ErrConnect, err)
			return
		}
		c.backend = backend
	})
	return c.backend, c.connectErr
}

// ABIs returns the verifier and membership contract interfaces.
func (c *Client) ABIs() (*abi.ABI, *abi.ABI, error) {
	c.abiOnce.Do(func() {
		verifier, err := c.verifierMeta.GetAbi()
		if err != nil {
			c.abiErr = fmt.Errorf("%w: verifier: %w", ErrABI, err)
			return
		}
		membership, err := c.membershipMeta.GetAbi()
		if err != nil {
			c.abiErr = fmt.Errorf("%w: membership: %w", ErrABI, err)
			return
		}
		c.verifierABI, c.membershipABI = verifier, membership
	})
	return c.verifierABI, c.membershipABI, c.abiErr
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	backend, err := c.Backend(ctx)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	out, err := backend.CallContract(callCtx, msg, nil)
	if err != nil {
		return nil, classify(callCtx, err)
	}
	return out, nil
}

// PendingNonce returns the next nonce for account including pending transactions.
func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	backend, err := c.Backend(ctx)
	if err != nil {
		return 0, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	nonce, err := backend.PendingNonceAt(callCtx, account)
	if err != nil {
		return 0, classify(callCtx, err)
	}
	return nonce, nil
}

// GasPrice returns the node's suggested legacy gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	backend, err := c.Backend(ctx)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	price, err := backend.SuggestGasPrice(callCtx)
	if err != nil {
		return nil, classify(callCtx, err)
	}
	return price, nil
}

// Send broadcasts a signed transaction.
func (c *Client) Send(ctx context.Context, tx *types.Transaction) error {
	backend, err := c.Backend(ctx)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := backend.SendTransaction(callCtx, tx); err != nil {
		return classify(callCtx, err)
	}
	return nil
}

// TransactionKnown reports whether the node still has the transaction, either
// pending in its pool or included in a block.
func (c *Client) TransactionKnown(ctx context.Context, hash common.Hash) (bool, error) {
	backend, err := c.Backend(ctx)
	if err != nil {
		return false, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if _, _, err := backend.TransactionByHash(callCtx, hash); err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, classify(callCtx, err)
	}
	return true, nil
}

func classify(callCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
